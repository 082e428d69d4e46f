// Package selection maintains a boolean voxel mask over a 3D volume and
// implements the spatial selection tools used by the editor: explicit voxel
// lists, cubic blocks and value-based region growing.
//
// A Selection is not safe for concurrent use. Callers that share one between
// goroutines must serialise every call.
package selection

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"voxelselect/internal/models"
	"voxelselect/pkg/event"
)

// Change describes the most recent mutation of a selection
type Change struct {
	// Previous holds the voxels selected immediately before the mutation
	Previous []models.Voxel

	// Current holds the voxels selected immediately after it
	Current []models.Voxel

	// Box bounds every voxel whose state flipped. It is empty when the
	// mutation left the mask unchanged.
	Box models.Box
}

// Block is a boolean sub-mask positioned inside the full volume
type Block struct {
	// Offset is the position of the block's first voxel in the volume
	Offset models.Voxel

	// Shape is the extent of the block
	Shape models.Shape

	// Mask holds one entry per block voxel, x varying fastest
	Mask []bool
}

// At reports whether the block voxel at local coordinate v is selected
func (b Block) At(v models.Voxel) bool {
	return b.Mask[b.Shape.Index(v)]
}

// Selection is a dense voxel mask aligned with a borrowed volume
type Selection struct {
	volume models.Reader
	shape  models.Shape

	mask  []bool
	count int

	previous []models.Voxel
	current  []models.Voxel
	changed  models.Box

	changes event.Bus[Change]
}

// New creates an empty selection over vol. The volume is only ever read.
func New(vol models.Reader) (*Selection, error) {
	if vol == nil {
		return nil, fmt.Errorf("nil volume: %w", ErrInvalidShape)
	}
	shape := vol.Shape()
	if !shape.Valid() {
		return nil, fmt.Errorf("volume shape %s: %w", shape, ErrInvalidShape)
	}

	return &Selection{
		volume: vol,
		shape:  shape,
		mask:   make([]bool, shape.Len()),
	}, nil
}

// Shape returns the shape of the mask, which always equals the volume's
func (s *Selection) Shape() models.Shape {
	return s.shape
}

// Volume returns the volume the selection was created for
func (s *Selection) Volume() models.Reader {
	return s.volume
}

// Size returns the number of selected voxels
func (s *Selection) Size() int {
	return s.count
}

// Selected reports whether v is selected. Out-of-bounds voxels never are.
func (s *Selection) Selected(v models.Voxel) bool {
	if !s.shape.Contains(v) {
		return false
	}
	return s.mask[s.shape.Index(v)]
}

// Subscribe registers fn to be called after every mutation
func (s *Selection) Subscribe(fn func(Change)) *event.Subscription[Change] {
	return s.changes.Subscribe(fn)
}

// SetSelection replaces the selection with the in-bounds voxels of coords
func (s *Selection) SetSelection(coords []models.Voxel) {
	s.mutate(func() models.Box {
		var box models.Box
		for idx, on := range s.mask {
			if on {
				box = box.Extend(s.shape.Voxel(idx))
				s.mask[idx] = false
			}
		}
		s.count = 0
		// box may also cover voxels that were cleared and set again.
		return box.Union(s.write(coords, true))
	})
}

// AddToSelection marks the in-bounds voxels of coords as selected
func (s *Selection) AddToSelection(coords []models.Voxel) {
	s.mutate(func() models.Box {
		return s.write(coords, true)
	})
}

// RemoveFromSelection marks the in-bounds voxels of coords as unselected
func (s *Selection) RemoveFromSelection(coords []models.Voxel) {
	s.mutate(func() models.Box {
		return s.write(coords, false)
	})
}

// ClearSelection deselects every voxel
func (s *Selection) ClearSelection() {
	s.mutate(func() models.Box {
		var box models.Box
		for idx, on := range s.mask {
			if on {
				box = box.Extend(s.shape.Voxel(idx))
				s.mask[idx] = false
			}
		}
		s.count = 0
		return box
	})
}

// InvertSelection flips every voxel of the mask
func (s *Selection) InvertSelection() {
	s.mutate(func() models.Box {
		for idx, on := range s.mask {
			s.mask[idx] = !on
		}
		s.count = len(s.mask) - s.count
		return models.Box{Hi: models.Voxel(s.shape)}
	})
}

// Indices returns the selected voxels in x-fastest order, read from the mask
func (s *Selection) Indices() []models.Voxel {
	out := make([]models.Voxel, 0, s.count)
	if s.count == 0 {
		return out
	}
	for idx, on := range s.mask {
		if on {
			out = append(out, s.shape.Voxel(idx))
		}
	}
	return out
}

// PreviousIndices returns the voxels that were selected just before the
// latest mutation, or an empty set if there has been none
func (s *Selection) PreviousIndices() []models.Voxel {
	if s.previous == nil {
		return []models.Voxel{}
	}
	return s.previous
}

// LastChange returns the record of the latest mutation. The slices are
// shared with the selection and must not be modified.
func (s *Selection) LastChange() Change {
	return Change{
		Previous: s.PreviousIndices(),
		Current:  s.currentIndices(),
		Box:      s.changed,
	}
}

// BoundedSelection returns the smallest block containing every selected
// voxel. ok is false when nothing is selected.
func (s *Selection) BoundedSelection() (block Block, ok bool) {
	if s.count == 0 {
		return Block{}, false
	}

	var box models.Box
	for idx, on := range s.mask {
		if on {
			box = box.Extend(s.shape.Voxel(idx))
		}
	}
	return s.Region(box), true
}

// Region copies the part of the mask covered by box, clamped to the volume
func (s *Selection) Region(box models.Box) Block {
	for a := 0; a < 3; a++ {
		box.Lo[a] = max(box.Lo[a], 0)
		box.Hi[a] = min(box.Hi[a], s.shape[a])
	}
	size := box.Size()
	block := Block{Offset: box.Lo, Shape: size, Mask: make([]bool, size.Len())}

	i := 0
	for z := box.Lo[2]; z < box.Hi[2]; z++ {
		for y := box.Lo[1]; y < box.Hi[1]; y++ {
			for x := box.Lo[0]; x < box.Hi[0]; x++ {
				block.Mask[i] = s.mask[s.shape.Index(models.Voxel{x, y, z})]
				i++
			}
		}
	}
	return block
}

func (s *Selection) String() string {
	return fmt.Sprintf("%s of %s voxels selected",
		humanize.Comma(int64(s.count)), humanize.Comma(int64(len(s.mask))))
}

// filter drops every coordinate outside the volume
func (s *Selection) filter(coords []models.Voxel) []models.Voxel {
	out := make([]models.Voxel, 0, len(coords))
	for _, v := range coords {
		if s.shape.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// write sets the filtered coords to on and returns the box of flipped voxels
func (s *Selection) write(coords []models.Voxel, on bool) models.Box {
	var box models.Box
	for _, v := range s.filter(coords) {
		idx := s.shape.Index(v)
		if s.mask[idx] == on {
			continue
		}
		s.mask[idx] = on
		if on {
			s.count++
		} else {
			s.count--
		}
		box = box.Extend(v)
	}
	return box
}

// mutate records the before and after state around apply and notifies
// subscribers
func (s *Selection) mutate(apply func() models.Box) {
	before := s.Indices()
	s.changed = apply()
	s.previous = before
	s.current = s.Indices()
	s.changes.Publish(s.LastChange())
}

func (s *Selection) currentIndices() []models.Voxel {
	if s.current == nil {
		return []models.Voxel{}
	}
	return s.current
}
