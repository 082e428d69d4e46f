// Package editor binds a selection to a writable volume and keeps an undo
// history of selection and value edits.
package editor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"voxelselect/internal/models"
	"voxelselect/pkg/config"
	"voxelselect/pkg/event"
	"voxelselect/pkg/selection"
)

// ErrEmptySelection is returned by operations that need selected voxels
var ErrEmptySelection = errors.New("selection is empty")

// Options configures an Editor
type Options struct {
	// MaxHistory caps the number of undo steps; zero keeps everything
	MaxHistory int

	// BlockSize and Axes are used by SelectBlock and DeselectBlock
	BlockSize int
	Axes      []int

	// Grow is used by SelectByValue
	Grow selection.GrowParams

	// Logger receives debug output; nil discards it
	Logger *slog.Logger
}

// OptionsFromConfig builds editor options from the tool and editor sections
// of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		MaxHistory: cfg.Editor.MaxHistory,
		BlockSize:  cfg.Selection.BlockSize,
		Axes:       cfg.Selection.Axes,
		Grow: selection.GrowParams{
			SearchRadius: cfg.Selection.SearchRadius,
			Local:        cfg.Selection.Local,
		},
	}
	if cfg.Selection.Precision > 0 {
		opts.Grow.Precision = selection.Precision(cfg.Selection.Precision)
	}
	if cfg.Editor.Verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return opts
}

// Editor owns the selection of one volume together with its undo history
type Editor struct {
	volume models.Writer
	sel    *selection.Selection
	sub    *event.Subscription[selection.Change]
	opts   Options
	logger *slog.Logger

	// done holds every recorded step. Steps up to and including doneIndex
	// have been applied; those after it have been undone.
	done      []*Step
	doneIndex int
	inGroup   bool

	states event.Bus[State]
}

// New creates an editor, and an empty selection, for vol
func New(vol models.Writer, opts Options) (*Editor, error) {
	sel, err := selection.New(vol)
	if err != nil {
		return nil, err
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = 1
	}

	e := &Editor{
		volume:    vol,
		sel:       sel,
		opts:      opts,
		logger:    opts.Logger,
		doneIndex: -1,
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.sub = sel.Subscribe(e.selectionChanged)
	return e, nil
}

// Close detaches the editor from its selection
func (e *Editor) Close() {
	e.sub.Unsubscribe()
}

// Selection returns the selection being edited
func (e *Editor) Selection() *selection.Selection {
	return e.sel
}

// SubscribeState registers fn to be called whenever the history changes
func (e *Editor) SubscribeState(fn func(State)) *event.Subscription[State] {
	return e.states.Subscribe(fn)
}

// State returns the current position in the history
func (e *Editor) State() State {
	return State{
		CanUndo:  e.doneIndex >= 0,
		CanRedo:  e.doneIndex < len(e.done)-1,
		Position: e.doneIndex + 1,
		Length:   len(e.done),
	}
}

// CanUndo reports whether there is a step to undo
func (e *Editor) CanUndo() bool {
	return e.State().CanUndo
}

// CanRedo reports whether there is a step to redo
func (e *Editor) CanRedo() bool {
	return e.State().CanRedo
}

// SelectBlock selects the configured block around center
func (e *Editor) SelectBlock(center models.Voxel) error {
	return e.sel.SelectBlock(center, e.opts.BlockSize, e.opts.Axes...)
}

// DeselectBlock deselects the configured block around center
func (e *Editor) DeselectBlock(center models.Voxel) error {
	return e.sel.DeselectBlock(center, e.opts.BlockSize, e.opts.Axes...)
}

// SelectByValue grows a region from seed with the configured parameters
func (e *Editor) SelectByValue(seed models.Voxel) (int, error) {
	return e.sel.SelectByValue(seed, e.opts.Grow)
}

// FillSelection writes value into every selected voxel
func (e *Editor) FillSelection(value float64) error {
	block, ok := e.sel.BoundedSelection()
	if !ok {
		return ErrEmptySelection
	}

	change := ValueChange{
		Offset: block.Offset,
		Shape:  block.Shape,
		Old:    make([]float64, len(block.Mask)),
		New:    make([]float64, len(block.Mask)),
	}
	for i, selected := range block.Mask {
		v := block.Shape.Voxel(i).Add(block.Offset)
		old := e.volume.Value(v[0], v[1], v[2])
		change.Old[i] = old
		if selected {
			change.New[i] = value
		} else {
			change.New[i] = old
		}
	}

	change.apply(e)
	e.changeMade(change)
	return nil
}

// StartChangeGroup merges every following change into one undo step until
// EndChangeGroup is called
func (e *Editor) StartChangeGroup() {
	e.truncateRedo()
	e.done = append(e.done, newStep())
	e.doneIndex++
	e.inGroup = true

	e.logger.Debug("starting change group", "index", e.doneIndex, "length", len(e.done))
}

// EndChangeGroup closes the group opened by StartChangeGroup
func (e *Editor) EndChangeGroup() {
	if !e.inGroup {
		return
	}
	e.inGroup = false

	if len(e.done[e.doneIndex].Changes) == 0 {
		e.done = e.done[:e.doneIndex]
		e.doneIndex--
	}
	e.trim()

	e.logger.Debug("ending change group", "index", e.doneIndex, "length", len(e.done))
	e.states.Publish(e.State())
}

// Undo reverts the most recent step. It returns false when there is none.
func (e *Editor) Undo() bool {
	if e.doneIndex < 0 {
		return false
	}
	e.logger.Debug("undo change", "index", e.doneIndex, "length", len(e.done))

	step := e.done[e.doneIndex]
	for i := len(step.Changes) - 1; i >= 0; i-- {
		step.Changes[i].revert(e)
	}
	e.doneIndex--
	e.inGroup = false

	e.states.Publish(e.State())
	return true
}

// Redo reapplies the most recently undone step. It returns false when there
// is none.
func (e *Editor) Redo() bool {
	if e.doneIndex >= len(e.done)-1 {
		return false
	}
	e.logger.Debug("redo change", "index", e.doneIndex+1, "length", len(e.done))

	step := e.done[e.doneIndex+1]
	for _, c := range step.Changes {
		c.apply(e)
	}
	e.doneIndex++
	e.inGroup = false

	e.states.Publish(e.State())
	return true
}

// History returns the recorded steps, oldest first
func (e *Editor) History() []*Step {
	return e.done
}

// CreateMask returns a new volume holding 1 where voxels are selected and 0
// elsewhere
func (e *Editor) CreateMask() (*models.Volume, error) {
	mask, err := e.newLike()
	if err != nil {
		return nil, err
	}
	for _, v := range e.sel.Indices() {
		mask.Set(v[0], v[1], v[2], 1)
	}
	return mask, nil
}

// CreateROI returns a copy of the volume with every unselected voxel zeroed
func (e *Editor) CreateROI() (*models.Volume, error) {
	roi, err := e.newLike()
	if err != nil {
		return nil, err
	}
	for _, v := range e.sel.Indices() {
		roi.Set(v[0], v[1], v[2], e.volume.Value(v[0], v[1], v[2]))
	}
	return roi, nil
}

func (e *Editor) newLike() (*models.Volume, error) {
	shape := e.sel.Shape()
	out, err := models.NewVolume(shape[0], shape[1], shape[2])
	if err != nil {
		return nil, fmt.Errorf("failed to allocate volume: %w", err)
	}
	if src, ok := e.volume.(*models.Volume); ok {
		out.VoxelSize = src.VoxelSize
	}
	return out, nil
}

// selectionChanged records selection edits made through any path other
// than undo and redo. Mutations that flipped no voxel leave no step.
func (e *Editor) selectionChanged(c selection.Change) {
	if c.Box.Empty() {
		return
	}
	e.changeMade(SelectionChange{Old: c.Previous, New: c.Current})
}

func (e *Editor) changeMade(c Change) {
	if e.inGroup {
		step := e.done[e.doneIndex]
		step.Changes = append(step.Changes, c)
	} else {
		e.truncateRedo()
		e.done = append(e.done, newStep(c))
		e.doneIndex++
		e.trim()
	}

	e.logger.Debug("new change", "index", e.doneIndex, "length", len(e.done))
	e.states.Publish(e.State())
}

// truncateRedo discards every undone step
func (e *Editor) truncateRedo() {
	for i := e.doneIndex + 1; i < len(e.done); i++ {
		e.done[i] = nil
	}
	e.done = e.done[:e.doneIndex+1]
}

// trim drops the oldest steps beyond MaxHistory. An open group is never
// dropped.
func (e *Editor) trim() {
	if e.opts.MaxHistory <= 0 || e.inGroup {
		return
	}
	if extra := len(e.done) - e.opts.MaxHistory; extra > 0 {
		e.done = append([]*Step(nil), e.done[extra:]...)
		e.doneIndex -= extra
	}
}

// replaceSelection sets the selection without recording a new step
func (e *Editor) replaceSelection(vs []models.Voxel) {
	e.sub.Pause()
	defer e.sub.Resume()
	e.sel.SetSelection(vs)
}

func (e *Editor) writeBlock(offset models.Voxel, shape models.Shape, values []float64) {
	for i, value := range values {
		v := shape.Voxel(i).Add(offset)
		e.volume.Set(v[0], v[1], v[2], value)
	}
}
