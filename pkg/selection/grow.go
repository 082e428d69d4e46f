package selection

import (
	"fmt"
	"math"

	"voxelselect/internal/models"
)

// GrowParams controls value-based region growing
type GrowParams struct {
	// Precision is the tolerance around the seed value. A voxel matches when
	// |value - seed| < Precision. Nil or zero requires exact equality.
	Precision *float64

	// SearchRadius limits the search to an ellipsoid around the seed. Nil or
	// empty searches the whole volume, a single value applies to every axis,
	// three values give per-axis radii. Radii are floored to whole voxels,
	// and any zero radius also means the whole volume.
	SearchRadius []float64

	// Local keeps only the 6-connected region of matches containing the seed
	Local bool
}

// Precision returns a pointer to p, for use in GrowParams
func Precision(p float64) *float64 {
	return &p
}

// searchSpace is the box scanned by SelectByValue. radius is nil when the
// whole volume is searched and no ellipsoid applies.
type searchSpace struct {
	box    models.Box
	radius []int
}

// SelectByValue grows a region from seed, adding every voxel whose value
// matches the seed's to the selection. It returns the number of matching
// voxels. Nothing changes, and no event fires, when there are none.
func (s *Selection) SelectByValue(seed models.Voxel, params GrowParams) (int, error) {
	if !s.shape.Contains(seed) {
		return 0, &InvalidSeedError{Seed: seed, Shape: s.shape}
	}
	if params.Precision != nil && *params.Precision < 0 {
		return 0, fmt.Errorf("precision %g: %w", *params.Precision, ErrInvalidPrecision)
	}
	space, err := s.searchSpace(seed, params.SearchRadius)
	if err != nil {
		return 0, err
	}

	seedValue := s.volume.Value(seed[0], seed[1], seed[2])
	match := matcher(seedValue, params.Precision)

	size := space.box.Size()
	hits := make([]bool, size.Len())
	nhits := 0
	i := 0
	for z := space.box.Lo[2]; z < space.box.Hi[2]; z++ {
		for y := space.box.Lo[1]; y < space.box.Hi[1]; y++ {
			for x := space.box.Lo[0]; x < space.box.Hi[0]; x++ {
				v := models.Voxel{x, y, z}
				if space.inside(seed, v) && match(s.volume.Value(x, y, z)) {
					hits[i] = true
					nhits++
				}
				i++
			}
		}
	}

	if params.Local && nhits > 0 {
		local := models.Voxel{seed[0] - space.box.Lo[0], seed[1] - space.box.Lo[1], seed[2] - space.box.Lo[2]}
		hits = component(size, hits, size.Index(local))
		nhits = 0
		for _, h := range hits {
			if h {
				nhits++
			}
		}
	}
	if nhits == 0 {
		return 0, nil
	}

	coords := make([]models.Voxel, 0, nhits)
	for idx, h := range hits {
		if h {
			coords = append(coords, size.Voxel(idx).Add(space.box.Lo))
		}
	}
	s.AddToSelection(coords)
	return nhits, nil
}

// searchSpace normalises radius and returns the region to scan around seed
func (s *Selection) searchSpace(seed models.Voxel, radius []float64) (searchSpace, error) {
	whole := searchSpace{box: models.Box{Hi: models.Voxel(s.shape)}}

	var r [3]float64
	switch len(radius) {
	case 0:
		return whole, nil
	case 1:
		r = [3]float64{radius[0], radius[0], radius[0]}
	case 3:
		copy(r[:], radius)
	default:
		return searchSpace{}, fmt.Errorf("%d radius values: %w", len(radius), ErrInvalidRadius)
	}

	// No radius needs to reach further than this to cover the volume.
	limit := float64(s.shape[0] + s.shape[1] + s.shape[2])

	ri := make([]int, 3)
	for a, v := range r {
		if v < 0 || math.IsNaN(v) {
			return searchSpace{}, fmt.Errorf("radius %g: %w", v, ErrInvalidRadius)
		}
		if math.IsInf(v, 1) {
			return whole, nil
		}
		ri[a] = int(math.Floor(math.Min(v, limit)))
		if ri[a] == 0 {
			return whole, nil
		}
	}

	space := searchSpace{radius: ri}
	for a := 0; a < 3; a++ {
		space.box.Lo[a] = max(seed[a]-ri[a], 0)
		space.box.Hi[a] = min(seed[a]+ri[a]+1, s.shape[a])
	}
	return space, nil
}

// inside reports whether v lies within the search ellipsoid around seed
func (sp searchSpace) inside(seed, v models.Voxel) bool {
	if sp.radius == nil {
		return true
	}
	var dist float64
	for a := 0; a < 3; a++ {
		d := float64(v[a]-seed[a]) / float64(sp.radius[a])
		dist += d * d
	}
	return dist <= 1
}

func matcher(seedValue float64, precision *float64) func(float64) bool {
	if precision == nil || *precision == 0 {
		return func(v float64) bool { return v == seedValue }
	}
	p := *precision
	return func(v float64) bool { return math.Abs(v-seedValue) < p }
}
