package selection

import (
	"errors"
	"fmt"

	"voxelselect/internal/models"
)

var (
	// ErrInvalidShape is returned when a volume has a non-positive extent
	ErrInvalidShape = errors.New("invalid volume shape")

	// ErrInvalidSeed is wrapped by InvalidSeedError
	ErrInvalidSeed = errors.New("seed voxel outside volume")

	// ErrInvalidBlockSize is returned for block sizes below one
	ErrInvalidBlockSize = errors.New("block size must be at least 1")

	// ErrInvalidAxis is returned for axes other than 0, 1 and 2
	ErrInvalidAxis = errors.New("axis must be 0, 1 or 2")

	// ErrInvalidRadius is returned for malformed or negative search radii
	ErrInvalidRadius = errors.New("search radius must be a scalar or 3 non-negative values")

	// ErrInvalidPrecision is returned for a negative precision
	ErrInvalidPrecision = errors.New("precision must not be negative")
)

// InvalidSeedError reports a region-growing seed that lies outside the volume
type InvalidSeedError struct {
	Seed  models.Voxel
	Shape models.Shape
}

func (e *InvalidSeedError) Error() string {
	return fmt.Sprintf("seed %s outside volume of shape %s", e.Seed, e.Shape)
}

func (e *InvalidSeedError) Unwrap() error {
	return ErrInvalidSeed
}
