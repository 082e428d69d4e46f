package models

import (
	"fmt"
)

// Shape is the extent of a volume along x, y and z, in voxels
type Shape [3]int

// Len returns the number of voxels covered by the shape
func (s Shape) Len() int {
	return s[0] * s[1] * s[2]
}

// Valid reports whether every extent is positive
func (s Shape) Valid() bool {
	return s[0] > 0 && s[1] > 0 && s[2] > 0
}

// Contains reports whether v lies inside [0, s[axis]) on every axis
func (s Shape) Contains(v Voxel) bool {
	return v[0] >= 0 && v[0] < s[0] &&
		v[1] >= 0 && v[1] < s[1] &&
		v[2] >= 0 && v[2] < s[2]
}

// Index returns the linear index of v in x-fastest order.
// The caller is responsible for checking Contains first.
func (s Shape) Index(v Voxel) int {
	return v[2]*s[0]*s[1] + v[1]*s[0] + v[0]
}

// Voxel returns the coordinate stored at linear index idx
func (s Shape) Voxel(idx int) Voxel {
	plane := s[0] * s[1]
	z := idx / plane
	rem := idx - z*plane
	return Voxel{rem % s[0], rem / s[0], z}
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s[0], s[1], s[2])
}

// Voxel is an integer (x, y, z) coordinate
type Voxel [3]int

// Add returns v offset by o
func (v Voxel) Add(o Voxel) Voxel {
	return Voxel{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Voxel) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v[0], v[1], v[2])
}

// Reader is the read-only view of a 3D scalar field that selections work on
type Reader interface {
	// Shape returns the fixed extent of the field
	Shape() Shape

	// Value returns the scalar stored at (x, y, z)
	Value(x, y, z int) float64
}

// Volume represents a dense 3D scalar image
type Volume struct {
	// Data is the 3D volume data as a 1D array, x varying fastest
	Data []float64

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// NewVolume allocates a zero-filled volume of the given dimensions
func NewVolume(width, height, depth int) (*Volume, error) {
	shape := Shape{width, height, depth}
	if !shape.Valid() {
		return nil, fmt.Errorf("invalid volume dimensions %s", shape)
	}

	vol := &Volume{
		Data:   make([]float64, shape.Len()),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
	vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = 1, 1, 1
	return vol, nil
}

// NewVolumeFromData wraps existing voxel data. The slice is not copied.
func NewVolumeFromData(data []float64, width, height, depth int) (*Volume, error) {
	vol, err := NewVolume(width, height, depth)
	if err != nil {
		return nil, err
	}
	if len(data) != vol.Shape().Len() {
		return nil, fmt.Errorf("data length %d does not match dimensions %s", len(data), vol.Shape())
	}
	vol.Data = data
	return vol, nil
}

// Shape returns the dimensions of the volume. A nil volume has the zero,
// invalid, shape.
func (v *Volume) Shape() Shape {
	if v == nil {
		return Shape{}
	}
	return Shape{v.Width, v.Height, v.Depth}
}

// Value returns the voxel value at (x, y, z)
func (v *Volume) Value(x, y, z int) float64 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set stores value at (x, y, z)
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}

// Fill sets every voxel to value
func (v *Volume) Fill(value float64) {
	for i := range v.Data {
		v.Data[i] = value
	}
}

// Clone returns a deep copy of the volume
func (v *Volume) Clone() *Volume {
	c := *v
	c.Data = make([]float64, len(v.Data))
	copy(c.Data, v.Data)
	return &c
}

// Box is an axis-aligned block of voxels. Lo is inclusive and Hi exclusive.
type Box struct {
	Lo, Hi Voxel
}

// Empty reports whether the box contains no voxels
func (b Box) Empty() bool {
	return b.Hi[0] <= b.Lo[0] || b.Hi[1] <= b.Lo[1] || b.Hi[2] <= b.Lo[2]
}

// Size returns the extent of the box along each axis
func (b Box) Size() Shape {
	if b.Empty() {
		return Shape{}
	}
	return Shape{b.Hi[0] - b.Lo[0], b.Hi[1] - b.Lo[1], b.Hi[2] - b.Lo[2]}
}

// Contains reports whether v lies inside the box
func (b Box) Contains(v Voxel) bool {
	return v[0] >= b.Lo[0] && v[0] < b.Hi[0] &&
		v[1] >= b.Lo[1] && v[1] < b.Hi[1] &&
		v[2] >= b.Lo[2] && v[2] < b.Hi[2]
}

// Extend grows the box so that it covers v
func (b Box) Extend(v Voxel) Box {
	if b.Empty() {
		return Box{Lo: v, Hi: Voxel{v[0] + 1, v[1] + 1, v[2] + 1}}
	}
	for a := 0; a < 3; a++ {
		if v[a] < b.Lo[a] {
			b.Lo[a] = v[a]
		}
		if v[a]+1 > b.Hi[a] {
			b.Hi[a] = v[a] + 1
		}
	}
	return b
}

// Union returns the smallest box covering both b and o
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	b = b.Extend(o.Lo)
	return b.Extend(Voxel{o.Hi[0] - 1, o.Hi[1] - 1, o.Hi[2] - 1})
}

// BoundsOf returns the smallest box covering every voxel in vs
func BoundsOf(vs []Voxel) Box {
	var b Box
	for _, v := range vs {
		b = b.Extend(v)
	}
	return b
}

// Writer is a volume whose voxels can be overwritten. Only the editor writes;
// selections hold a Reader.
type Writer interface {
	Reader

	// Set stores value at (x, y, z)
	Set(x, y, z int, value float64)
}
