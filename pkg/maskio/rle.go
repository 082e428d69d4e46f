package maskio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"voxelselect/internal/models"
)

// RLE is a run of selected voxels starting at Start and extending Length
// voxels along x.
type RLE struct {
	Start  [3]int32
	Length int32
}

// RLEs are simply a slice of RLE.
type RLEs []RLE

// rleSize is the encoded size of one RLE in bytes
const rleSize = 16

// RunsOf encodes vs, which must be in x-fastest order without duplicates, as
// x-runs.
func RunsOf(vs []models.Voxel) RLEs {
	var rles RLEs
	for _, v := range vs {
		if n := len(rles); n > 0 {
			last := &rles[n-1]
			if int(last.Start[1]) == v[1] && int(last.Start[2]) == v[2] &&
				int(last.Start[0]+last.Length) == v[0] {
				last.Length++
				continue
			}
		}
		rles = append(rles, RLE{Start: [3]int32{int32(v[0]), int32(v[1]), int32(v[2])}, Length: 1})
	}
	return rles
}

// Voxels expands the runs back into individual voxels
func (rles RLEs) Voxels() []models.Voxel {
	numVoxels, _ := rles.Stats()
	out := make([]models.Voxel, 0, numVoxels)
	for _, rle := range rles {
		for i := int32(0); i < rle.Length; i++ {
			out = append(out, models.Voxel{int(rle.Start[0] + i), int(rle.Start[1]), int(rle.Start[2])})
		}
	}
	return out
}

// Stats returns the total number of voxels and runs.
func (rles RLEs) Stats() (numVoxels, numRuns int) {
	for _, rle := range rles {
		numVoxels += int(rle.Length)
	}
	return numVoxels, len(rles)
}

// MarshalBinary fulfills the encoding.BinaryMarshaler interface.
func (rles RLEs) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(rles)*rleSize))
	for _, rle := range rles {
		if err := binary.Write(buf, binary.LittleEndian, rle); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary fulfills the encoding.BinaryUnmarshaler interface.
func (rles *RLEs) UnmarshalBinary(b []byte) error {
	if len(b)%rleSize != 0 {
		return fmt.Errorf("%w: RLE encoding # bytes is not divisible by %d: %d", ErrCorrupt, rleSize, len(b))
	}
	numRLEs := len(b) / rleSize
	*rles = make(RLEs, numRLEs)
	buf := bytes.NewReader(b)
	for i := 0; i < numRLEs; i++ {
		if err := binary.Read(buf, binary.LittleEndian, &(*rles)[i]); err != nil {
			return err
		}
	}
	return nil
}

// within reports whether every run lies inside shape
func (rles RLEs) within(shape models.Shape) bool {
	for _, rle := range rles {
		if rle.Length < 1 {
			return false
		}
		first := models.Voxel{int(rle.Start[0]), int(rle.Start[1]), int(rle.Start[2])}
		last := models.Voxel{first[0] + int(rle.Length) - 1, first[1], first[2]}
		if !shape.Contains(first) || !shape.Contains(last) {
			return false
		}
	}
	return true
}
