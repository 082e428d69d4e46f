package selection

import (
	"fmt"

	"voxelselect/internal/models"
)

// AllAxes perturbs a block along x, y and z
var AllAxes = []int{0, 1, 2}

// GenerateBlock returns the voxels of a block of blockSize voxels per side
// centred on center. Only the listed axes are perturbed (all three when none
// are given); the others keep the centre's coordinate. Along a perturbed
// axis the block spans [c-floor(n/2), c+ceil(n/2)).
//
// The result is not bounds-checked; out-of-range voxels are dropped when the
// block is applied to a selection.
func GenerateBlock(center models.Voxel, blockSize int, axes ...int) ([]models.Voxel, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("block size %d: %w", blockSize, ErrInvalidBlockSize)
	}
	if len(axes) == 0 {
		axes = AllAxes
	}

	var lo, hi models.Voxel
	for a := 0; a < 3; a++ {
		lo[a], hi[a] = center[a], center[a]+1
	}
	for _, ax := range axes {
		if ax < 0 || ax > 2 {
			return nil, fmt.Errorf("axis %d: %w", ax, ErrInvalidAxis)
		}
		if blockSize == 1 {
			continue
		}
		lo[ax] = center[ax] - blockSize/2
		hi[ax] = center[ax] + (blockSize+1)/2
	}

	block := make([]models.Voxel, 0, (hi[0]-lo[0])*(hi[1]-lo[1])*(hi[2]-lo[2]))
	for z := lo[2]; z < hi[2]; z++ {
		for y := lo[1]; y < hi[1]; y++ {
			for x := lo[0]; x < hi[0]; x++ {
				block = append(block, models.Voxel{x, y, z})
			}
		}
	}
	return block, nil
}

// SelectBlock adds the block around center to the selection
func (s *Selection) SelectBlock(center models.Voxel, blockSize int, axes ...int) error {
	block, err := GenerateBlock(center, blockSize, axes...)
	if err != nil {
		return err
	}
	s.AddToSelection(block)
	return nil
}

// DeselectBlock removes the block around center from the selection
func (s *Selection) DeselectBlock(center models.Voxel, blockSize int, axes ...int) error {
	block, err := GenerateBlock(center, blockSize, axes...)
	if err != nil {
		return err
	}
	s.RemoveFromSelection(block)
	return nil
}
