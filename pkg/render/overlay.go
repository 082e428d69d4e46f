package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"voxelselect/internal/models"
	"voxelselect/pkg/selection"
)

// Overlay renders 2D views of a selection for display on top of its volume
type Overlay struct {
	sel *selection.Selection

	// alpha is the opacity of selected voxels; unselected voxels are clear
	alpha uint8
}

// NewOverlay creates an overlay renderer for sel
func NewOverlay(sel *selection.Selection, alpha uint8) *Overlay {
	return &Overlay{
		sel:   sel,
		alpha: alpha,
	}
}

// ExtractSlice extracts a 2D slice of the selection along the specified axis
func (o *Overlay) ExtractSlice(axis string, position int) (*image.Alpha, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	shape := o.sel.Shape()
	width, height, depth := shape[0], shape[1], shape[2]
	var img *image.Alpha

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, width)
		}

		img = image.NewAlpha(image.Rect(0, 0, depth, height))
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				if o.sel.Selected(models.Voxel{position, y, z}) {
					img.SetAlpha(z, y, color.Alpha{A: o.alpha})
				}
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, height)
		}

		img = image.NewAlpha(image.Rect(0, 0, width, depth))
		for z := 0; z < depth; z++ {
			for x := 0; x < width; x++ {
				if o.sel.Selected(models.Voxel{x, position, z}) {
					img.SetAlpha(x, z, color.Alpha{A: o.alpha})
				}
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, depth)
		}

		img = image.NewAlpha(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if o.sel.Selected(models.Voxel{x, y, position}) {
					img.SetAlpha(x, y, color.Alpha{A: o.alpha})
				}
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// ExtractRegion extracts a 3D subregion of the selection mask
func (o *Overlay) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) (selection.Block, error) {
	// Validate parameters
	if startX < 0 || startY < 0 || startZ < 0 {
		return selection.Block{}, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return selection.Block{}, fmt.Errorf("size dimensions must be positive")
	}

	shape := o.sel.Shape()
	if startX+sizeX > shape[0] || startY+sizeY > shape[1] || startZ+sizeZ > shape[2] {
		return selection.Block{}, fmt.Errorf("region extends beyond volume boundaries")
	}

	lo := models.Voxel{startX, startY, startZ}
	return o.sel.Region(models.Box{Lo: lo, Hi: lo.Add(models.Voxel{sizeX, sizeY, sizeZ})}), nil
}

// SaveSlice saves an extracted slice as a PNG image
func (o *Overlay) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (o *Overlay) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	shape := o.sel.Shape()
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = shape[0]
	case "y", "Y":
		maxPos = shape[1]
	case "z", "Z":
		maxPos = shape[2]
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := o.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("selection_%s_%03d.png", axis, pos))
		if err := o.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
