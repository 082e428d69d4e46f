// Package render prepares CPU-side images and buffers of a selection for a
// renderer to upload. It performs no GPU work itself.
package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache/lru"

	"voxelselect/internal/models"
	"voxelselect/pkg/config"
	"voxelselect/pkg/event"
	"voxelselect/pkg/selection"
)

// ErrInvalidState is returned for display states that cannot be rendered
var ErrInvalidState = errors.New("invalid display state")

// DisplayState is the set of display settings a buffer depends on. Buffers
// are cached per state and rebuilt when a state is requested that is not
// in the cache.
type DisplayState struct {
	// Alpha is written for selected cells, zero for the rest
	Alpha uint8

	// Downsample is the number of voxels per buffer cell along each axis.
	// A cell is selected when any of its voxels is. Zero means one.
	Downsample int
}

func (s DisplayState) factor() int {
	if s.Downsample == 0 {
		return 1
	}
	return s.Downsample
}

// NewTextureFromConfig creates a texture sized by the render section of cfg
// and returns it with the configured full-resolution display state
func NewTextureFromConfig(sel *selection.Selection, cfg *config.Config, logger *slog.Logger) (*Texture, DisplayState, error) {
	tex, err := NewTexture(sel, cfg.Render.CacheEntries, logger)
	if err != nil {
		return nil, DisplayState{}, err
	}
	return tex, DisplayState{Alpha: cfg.Render.Alpha, Downsample: 1}, nil
}

// Buffer is an alpha8 image of the selection, x varying fastest
type Buffer struct {
	State DisplayState
	Shape models.Shape
	Data  []byte
}

// Texture keeps buffers of one selection up to date across changes
type Texture struct {
	sel    *selection.Selection
	sub    *event.Subscription[selection.Change]
	cache  *lru.Cache
	states map[DisplayState]struct{}
	logger *slog.Logger
}

// NewTexture creates a texture cache holding at most entries buffers
func NewTexture(sel *selection.Selection, entries int, logger *slog.Logger) (*Texture, error) {
	if entries < 1 {
		return nil, fmt.Errorf("cache needs at least one entry, got %d", entries)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Texture{
		sel:    sel,
		cache:  lru.New(entries),
		states: make(map[DisplayState]struct{}),
		logger: logger,
	}
	t.cache.OnEvicted = func(key lru.Key, _ interface{}) {
		delete(t.states, key.(DisplayState))
	}
	t.sub = sel.Subscribe(t.selectionChanged)
	return t, nil
}

// Close stops tracking the selection and drops every cached buffer
func (t *Texture) Close() {
	t.sub.Unsubscribe()
	t.cache.Clear()
}

// Len returns the number of cached buffers
func (t *Texture) Len() int {
	return t.cache.Len()
}

// Invalidate drops every cached buffer
func (t *Texture) Invalidate() {
	t.cache.Clear()
}

// Buffer returns the buffer for state, building it if it is not cached
func (t *Texture) Buffer(state DisplayState) (*Buffer, error) {
	if state.Downsample < 0 {
		return nil, fmt.Errorf("%w: downsample %d", ErrInvalidState, state.Downsample)
	}
	if v, ok := t.cache.Get(state); ok {
		return v.(*Buffer), nil
	}

	f := state.factor()
	shape := t.sel.Shape()
	buf := &Buffer{State: state}
	for a := 0; a < 3; a++ {
		buf.Shape[a] = (shape[a] + f - 1) / f
	}
	buf.Data = make([]byte, buf.Shape.Len())
	t.fill(buf, models.Box{Hi: models.Voxel(buf.Shape)})

	t.cache.Add(state, buf)
	t.states[state] = struct{}{}
	t.logger.Debug("built selection buffer",
		"alpha", state.Alpha, "downsample", f,
		"shape", buf.Shape.String(), "size", humanize.Bytes(uint64(len(buf.Data))))
	return buf, nil
}

// selectionChanged refreshes the changed block of every cached buffer
func (t *Texture) selectionChanged(c selection.Change) {
	if c.Box.Empty() {
		return
	}
	for state := range t.states {
		v, ok := t.cache.Get(state)
		if !ok {
			continue
		}
		buf := v.(*Buffer)
		f := state.factor()

		var cells models.Box
		for a := 0; a < 3; a++ {
			cells.Lo[a] = c.Box.Lo[a] / f
			cells.Hi[a] = (c.Box.Hi[a]-1)/f + 1
		}
		t.fill(buf, cells)
		t.logger.Debug("updated selection buffer",
			"alpha", state.Alpha, "downsample", f,
			"offset", cells.Lo.String(), "size", cells.Size().String())
	}
}

// fill recomputes the cells of buf covered by cells
func (t *Texture) fill(buf *Buffer, cells models.Box) {
	f := buf.State.factor()
	for z := cells.Lo[2]; z < cells.Hi[2]; z++ {
		for y := cells.Lo[1]; y < cells.Hi[1]; y++ {
			for x := cells.Lo[0]; x < cells.Hi[0]; x++ {
				cell := models.Voxel{x, y, z}
				var value byte
				if t.anySelected(cell, f) {
					value = buf.State.Alpha
				}
				buf.Data[buf.Shape.Index(cell)] = value
			}
		}
	}
}

// anySelected reports whether any voxel of the f-sized cell is selected
func (t *Texture) anySelected(cell models.Voxel, f int) bool {
	if f == 1 {
		return t.sel.Selected(cell)
	}
	lo := models.Voxel{cell[0] * f, cell[1] * f, cell[2] * f}
	for z := lo[2]; z < lo[2]+f; z++ {
		for y := lo[1]; y < lo[1]+f; y++ {
			for x := lo[0]; x < lo[0]+f; x++ {
				if t.sel.Selected(models.Voxel{x, y, z}) {
					return true
				}
			}
		}
	}
	return false
}
