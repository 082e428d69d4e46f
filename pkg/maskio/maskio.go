// Package maskio saves and restores selection masks. A mask file is a fixed
// header followed by x-runs of selected voxels, optionally snappy-compressed.
package maskio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"

	"voxelselect/internal/models"
	"voxelselect/pkg/config"
	"voxelselect/pkg/selection"
)

// Version is the format version written by Encode
const Version = 1

var magic = [4]byte{'V', 'X', 'S', 'M'}

const flagSnappy = 1 << 0

var (
	// ErrCorrupt is returned for data that is not a valid mask encoding
	ErrCorrupt = errors.New("corrupt mask data")

	// ErrUnsupportedVersion is returned for files from a newer format
	ErrUnsupportedVersion = errors.New("unsupported mask format version")

	// ErrShapeMismatch is returned when a mask is restored onto a selection
	// of another shape
	ErrShapeMismatch = errors.New("mask shape does not match selection")
)

type header struct {
	Magic    [4]byte
	Version  uint8
	Flags    uint8
	Reserved uint16
	Shape    [3]int32
	Length   uint32
}

// Mask is a decoded selection mask
type Mask struct {
	Shape models.Shape
	Runs  RLEs
}

// Voxels returns every selected voxel of the mask
func (m *Mask) Voxels() []models.Voxel {
	return m.Runs.Voxels()
}

// Size returns the number of selected voxels
func (m *Mask) Size() int {
	n, _ := m.Runs.Stats()
	return n
}

// Options controls encoding
type Options struct {
	// Compress snappy-compresses the runs
	Compress bool

	// Logger receives debug output; nil discards it
	Logger *slog.Logger
}

// OptionsFromConfig returns encoding options for the storage section of cfg
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{Compress: cfg.Storage.Compress, Logger: logger}
}

// Encode writes the selection's mask to w
func Encode(w io.Writer, sel *selection.Selection, opts Options) error {
	shape := sel.Shape()
	runs := RunsOf(sel.Indices())

	payload, err := runs.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode runs: %w", err)
	}
	rawSize := len(payload)

	h := header{Magic: magic, Version: Version}
	for a := 0; a < 3; a++ {
		h.Shape[a] = int32(shape[a])
	}
	if opts.Compress {
		h.Flags |= flagSnappy
		payload = snappy.Encode(nil, payload)
	}
	h.Length = uint32(len(payload))

	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}

	if opts.Logger != nil {
		_, numRuns := runs.Stats()
		opts.Logger.Debug("encoded selection mask",
			"shape", shape.String(),
			"voxels", humanize.Comma(int64(sel.Size())),
			"runs", numRuns,
			"raw", humanize.Bytes(uint64(rawSize)),
			"written", humanize.Bytes(uint64(len(payload))))
	}
	return nil
}

// Decode reads a mask written by Encode
func Decode(r io.Reader) (*Mask, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrCorrupt, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, h.Magic[:])
	}
	if h.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	shape := models.Shape{int(h.Shape[0]), int(h.Shape[1]), int(h.Shape[2])}
	if !shape.Valid() {
		return nil, fmt.Errorf("%w: invalid shape %s", ErrCorrupt, shape)
	}

	maxRaw := rawLimit(shape)
	if int64(h.Length) > 2*maxRaw+64 {
		return nil, fmt.Errorf("%w: payload of %s exceeds shape %s", ErrCorrupt, humanize.Bytes(uint64(h.Length)), shape)
	}

	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: failed to read runs: %v", ErrCorrupt, err)
	}
	if h.Flags&flagSnappy != 0 {
		n, err := snappy.DecodedLen(payload)
		if err != nil || int64(n) > maxRaw {
			return nil, fmt.Errorf("%w: bad compressed payload", ErrCorrupt)
		}
		if payload, err = snappy.Decode(nil, payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	var runs RLEs
	if err := runs.UnmarshalBinary(payload); err != nil {
		return nil, err
	}
	if !runs.within(shape) {
		return nil, fmt.Errorf("%w: runs fall outside shape %s", ErrCorrupt, shape)
	}
	return &Mask{Shape: shape, Runs: runs}, nil
}

// rawLimit bounds the decoded payload for shape. There is at most one run
// per voxel, and nothing beyond the header's 32-bit length can be read, so
// the product saturates there.
func rawLimit(shape models.Shape) int64 {
	limit := int64(rleSize)
	for _, n := range shape {
		if limit > math.MaxUint32/int64(n) {
			return math.MaxUint32
		}
		limit *= int64(n)
	}
	return limit
}

// Restore replaces the selection with the decoded mask
func Restore(sel *selection.Selection, m *Mask) error {
	if sel.Shape() != m.Shape {
		return fmt.Errorf("%w: mask %s, selection %s", ErrShapeMismatch, m.Shape, sel.Shape())
	}
	sel.SetSelection(m.Voxels())
	return nil
}

// Marshal encodes the selection's mask into a byte slice
func Marshal(sel *selection.Selection, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, sel, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a mask from b
func Unmarshal(b []byte) (*Mask, error) {
	return Decode(bytes.NewReader(b))
}
