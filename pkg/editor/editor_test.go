package editor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelselect/internal/models"
	"voxelselect/pkg/config"
	"voxelselect/pkg/selection"
)

func newTestEditor(t *testing.T, opts Options) (*Editor, *models.Volume) {
	t.Helper()
	vol, err := models.NewVolume(6, 6, 6)
	require.NoError(t, err)
	for i := range vol.Data {
		vol.Data[i] = float64(i % 4)
	}
	ed, err := New(vol, opts)
	require.NoError(t, err)
	t.Cleanup(ed.Close)
	return ed, vol
}

// TestNewEditorState verifies a fresh editor has nothing to undo or redo
func TestNewEditorState(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})

	assert.Equal(t, State{}, ed.State())
	assert.False(t, ed.Undo())
	assert.False(t, ed.Redo())
	assert.Equal(t, 0, ed.Selection().Size())
}

// TestUndoRedoSelection verifies selection edits are recorded and replayed
func TestUndoRedoSelection(t *testing.T) {
	ed, _ := newTestEditor(t, Options{BlockSize: 2})
	sel := ed.Selection()

	require.NoError(t, ed.SelectBlock(models.Voxel{2, 2, 2}))
	require.Equal(t, 8, sel.Size())
	sel.AddToSelection([]models.Voxel{{5, 5, 5}})
	require.Equal(t, 9, sel.Size())
	assert.Equal(t, State{CanUndo: true, Position: 2, Length: 2}, ed.State())

	require.True(t, ed.Undo())
	assert.Equal(t, 8, sel.Size())
	assert.False(t, sel.Selected(models.Voxel{5, 5, 5}))

	require.True(t, ed.Undo())
	assert.Equal(t, 0, sel.Size())
	assert.Equal(t, State{CanRedo: true, Position: 0, Length: 2}, ed.State())

	require.True(t, ed.Redo())
	require.True(t, ed.Redo())
	assert.Equal(t, 9, sel.Size())
	assert.False(t, ed.Redo())
	assert.Len(t, ed.History(), 2, "replaying must not record new steps")
}

// TestNewChangeDiscardsRedo verifies editing after an undo drops the undone steps
func TestNewChangeDiscardsRedo(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	sel := ed.Selection()

	sel.AddToSelection([]models.Voxel{{0, 0, 0}})
	sel.AddToSelection([]models.Voxel{{1, 0, 0}})
	require.True(t, ed.Undo())
	require.True(t, ed.CanRedo())

	sel.AddToSelection([]models.Voxel{{2, 0, 0}})

	assert.False(t, ed.CanRedo())
	assert.Len(t, ed.History(), 2)
	assert.False(t, sel.Selected(models.Voxel{1, 0, 0}))
}

// TestFillSelectionUndo verifies value edits only touch selected voxels and can be undone
func TestFillSelectionUndo(t *testing.T) {
	ed, vol := newTestEditor(t, Options{})
	original := vol.Clone()

	assert.ErrorIs(t, ed.FillSelection(9), ErrEmptySelection)

	ed.Selection().AddToSelection([]models.Voxel{{1, 1, 1}, {3, 2, 1}})
	require.NoError(t, ed.FillSelection(9))

	assert.Equal(t, 9.0, vol.Value(1, 1, 1))
	assert.Equal(t, 9.0, vol.Value(3, 2, 1))
	assert.Equal(t, original.Value(2, 1, 1), vol.Value(2, 1, 1), "unselected voxels inside the bounds keep their value")

	require.True(t, ed.Undo())
	assert.Equal(t, original.Data, vol.Data)
	assert.Equal(t, 2, ed.Selection().Size(), "undoing a fill leaves the selection alone")

	require.True(t, ed.Redo())
	assert.Equal(t, 9.0, vol.Value(3, 2, 1))
}

// TestChangeGroup verifies grouped changes undo and redo as one step
func TestChangeGroup(t *testing.T) {
	ed, vol := newTestEditor(t, Options{})
	sel := ed.Selection()
	original := vol.Clone()

	ed.StartChangeGroup()
	sel.AddToSelection([]models.Voxel{{0, 0, 0}})
	sel.AddToSelection([]models.Voxel{{1, 1, 1}})
	require.NoError(t, ed.FillSelection(-1))
	ed.EndChangeGroup()

	require.Len(t, ed.History(), 1)
	assert.Len(t, ed.History()[0].Changes, 3)

	require.True(t, ed.Undo())
	assert.Equal(t, 0, sel.Size())
	assert.Equal(t, original.Data, vol.Data)

	require.True(t, ed.Redo())
	assert.Equal(t, 2, sel.Size())
	assert.Equal(t, -1.0, vol.Value(1, 1, 1))
}

// TestEmptyChangeGroup verifies a group without changes leaves no step behind
func TestEmptyChangeGroup(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})

	ed.StartChangeGroup()
	ed.EndChangeGroup()

	assert.Empty(t, ed.History())
	assert.False(t, ed.CanUndo())
}

// TestMaxHistory verifies the oldest steps are dropped beyond the cap
func TestMaxHistory(t *testing.T) {
	ed, _ := newTestEditor(t, Options{MaxHistory: 3})
	sel := ed.Selection()

	for x := 0; x < 5; x++ {
		sel.AddToSelection([]models.Voxel{{x, 0, 0}})
	}
	require.Len(t, ed.History(), 3)

	undone := 0
	for ed.Undo() {
		undone++
	}
	assert.Equal(t, 3, undone)
	assert.Equal(t, 2, sel.Size(), "the first two additions are beyond the history")
}

// TestUnchangedSelectionNotRecorded verifies edits that flip no voxel leave no step
func TestUnchangedSelectionNotRecorded(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	sel := ed.Selection()

	sel.AddToSelection([]models.Voxel{{9, 9, 9}})
	assert.Equal(t, 0, sel.Size())
	assert.Empty(t, ed.History())
	assert.False(t, ed.CanUndo())

	sel.AddToSelection([]models.Voxel{{1, 1, 1}})
	sel.AddToSelection([]models.Voxel{{1, 1, 1}})
	sel.RemoveFromSelection([]models.Voxel{{2, 2, 2}})
	assert.Len(t, ed.History(), 1)

	require.True(t, ed.Undo())
	assert.Equal(t, 0, sel.Size())
	assert.False(t, ed.CanUndo())
}

// TestStepIDs verifies each history step gets a distinct identifier
func TestStepIDs(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	ed.Selection().AddToSelection([]models.Voxel{{0, 0, 0}})
	ed.Selection().ClearSelection()

	history := ed.History()
	require.Len(t, history, 2)
	assert.NotEqual(t, history[0].ID, history[1].ID)
}

// TestStateEvents verifies subscribers see every history transition
func TestStateEvents(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	var states []State
	ed.SubscribeState(func(s State) { states = append(states, s) })

	ed.Selection().AddToSelection([]models.Voxel{{0, 0, 0}})
	ed.Undo()
	ed.Redo()

	require.Len(t, states, 3)
	assert.True(t, states[0].CanUndo)
	assert.True(t, states[1].CanRedo)
	assert.False(t, states[2].CanRedo)
}

// TestClose verifies a closed editor stops recording
func TestClose(t *testing.T) {
	ed, _ := newTestEditor(t, Options{})
	ed.Close()

	ed.Selection().AddToSelection([]models.Voxel{{0, 0, 0}})

	assert.Empty(t, ed.History())
}

// TestSelectByValueUsesOptions verifies the configured growth parameters are applied
func TestSelectByValueUsesOptions(t *testing.T) {
	ed, vol := newTestEditor(t, Options{Grow: selection.GrowParams{Local: true}})
	vol.Fill(0)
	vol.Set(0, 0, 0, 5)
	vol.Set(1, 0, 0, 5)
	vol.Set(4, 4, 4, 5)

	n, err := ed.SelectByValue(models.Voxel{0, 0, 0})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, ed.CanUndo())
}

// TestDeselectBlock verifies the configured block is removed
func TestDeselectBlock(t *testing.T) {
	ed, _ := newTestEditor(t, Options{BlockSize: 3, Axes: []int{0, 1}})
	require.NoError(t, ed.SelectBlock(models.Voxel{2, 2, 2}))
	require.Equal(t, 9, ed.Selection().Size())

	require.NoError(t, ed.DeselectBlock(models.Voxel{2, 2, 2}))
	assert.Equal(t, 0, ed.Selection().Size())
}

// TestCreateMaskAndROI verifies derived volumes follow the selection
func TestCreateMaskAndROI(t *testing.T) {
	ed, vol := newTestEditor(t, Options{})
	vol.VoxelSize.Z = 2.5
	vol.Set(2, 3, 4, 7)
	ed.Selection().AddToSelection([]models.Voxel{{1, 0, 0}, {2, 3, 4}})

	mask, err := ed.CreateMask()
	require.NoError(t, err)
	roi, err := ed.CreateROI()
	require.NoError(t, err)

	assert.Equal(t, 1.0, mask.Value(1, 0, 0))
	assert.Equal(t, 0.0, mask.Value(0, 0, 0))
	assert.Equal(t, 2.5, mask.VoxelSize.Z)

	assert.Equal(t, 7.0, roi.Value(2, 3, 4))
	assert.Equal(t, 0.0, roi.Value(3, 3, 4))

	total := 0.0
	for _, v := range mask.Data {
		total += v
	}
	assert.Equal(t, 2.0, total)
}

// TestStats verifies summary statistics of selected values
func TestStats(t *testing.T) {
	ed, vol := newTestEditor(t, Options{})

	empty := ed.Stats()
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))

	vol.Set(0, 0, 0, 2)
	vol.Set(1, 0, 0, 4)
	vol.Set(2, 0, 0, 6)
	ed.Selection().AddToSelection([]models.Voxel{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}})

	stats := ed.Stats()
	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 4.0, stats.Mean, 1e-12)
	assert.InDelta(t, 2.0, stats.StdDev, 1e-12)
	assert.Equal(t, 2.0, stats.Min)
	assert.Equal(t, 6.0, stats.Max)

	ed.Selection().SetSelection([]models.Voxel{{1, 0, 0}})
	assert.Equal(t, 0.0, ed.Stats().StdDev)
}

// TestOptionsFromConfig verifies tool settings are taken from the configuration
func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Selection.BlockSize = 5
	cfg.Selection.Precision = 0.5
	cfg.Selection.SearchRadius = []float64{2}
	cfg.Selection.Local = true
	cfg.Editor.MaxHistory = 7

	opts := OptionsFromConfig(cfg)

	assert.Equal(t, 5, opts.BlockSize)
	assert.Equal(t, []int{0, 1, 2}, opts.Axes)
	assert.Equal(t, 7, opts.MaxHistory)
	require.NotNil(t, opts.Grow.Precision)
	assert.Equal(t, 0.5, *opts.Grow.Precision)
	assert.Equal(t, []float64{2}, opts.Grow.SearchRadius)
	assert.True(t, opts.Grow.Local)
	assert.Nil(t, opts.Logger)

	cfg.Selection.Precision = 0
	assert.Nil(t, OptionsFromConfig(cfg).Grow.Precision)
}
