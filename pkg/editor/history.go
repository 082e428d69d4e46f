package editor

import (
	"github.com/google/uuid"

	"voxelselect/internal/models"
)

// Change is a single undoable edit
type Change interface {
	apply(e *Editor)
	revert(e *Editor)
}

// SelectionChange records the selection before and after an edit
type SelectionChange struct {
	Old []models.Voxel
	New []models.Voxel
}

func (c SelectionChange) apply(e *Editor) {
	e.replaceSelection(c.New)
}

func (c SelectionChange) revert(e *Editor) {
	e.replaceSelection(c.Old)
}

// ValueChange records voxel values over a block before and after an edit
type ValueChange struct {
	// Offset is the position of the block in the volume
	Offset models.Voxel

	// Shape is the extent of the block
	Shape models.Shape

	// Old and New hold one value per block voxel, x varying fastest
	Old []float64
	New []float64
}

func (c ValueChange) apply(e *Editor) {
	e.writeBlock(c.Offset, c.Shape, c.New)
}

func (c ValueChange) revert(e *Editor) {
	e.writeBlock(c.Offset, c.Shape, c.Old)
}

// Step is one entry of the undo history: a single change, or every change
// made inside a change group
type Step struct {
	ID      uuid.UUID
	Changes []Change
}

func newStep(changes ...Change) *Step {
	return &Step{ID: uuid.New(), Changes: changes}
}

// State describes the position in the undo history
type State struct {
	CanUndo bool
	CanRedo bool

	// Position is the number of steps that can be undone
	Position int

	// Length is the total number of recorded steps
	Length int
}
