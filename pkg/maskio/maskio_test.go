package maskio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelselect/internal/models"
	"voxelselect/pkg/config"
	"voxelselect/pkg/selection"
)

func newTestSelection(t *testing.T, width, height, depth int) *selection.Selection {
	t.Helper()
	vol, err := models.NewVolume(width, height, depth)
	require.NoError(t, err)
	sel, err := selection.New(vol)
	require.NoError(t, err)
	return sel
}

// TestRunsOf verifies consecutive x voxels collapse into one run
func TestRunsOf(t *testing.T) {
	runs := RunsOf([]models.Voxel{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {4, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 1, 1}})

	assert.Equal(t, RLEs{
		{Start: [3]int32{0, 0, 0}, Length: 3},
		{Start: [3]int32{4, 0, 0}, Length: 1},
		{Start: [3]int32{0, 1, 0}, Length: 2},
		{Start: [3]int32{1, 1, 1}, Length: 1},
	}, runs)

	voxels, numRuns := runs.Stats()
	assert.Equal(t, 7, voxels)
	assert.Equal(t, 4, numRuns)
}

// TestRLEsBinary verifies runs survive binary marshalling
func TestRLEsBinary(t *testing.T) {
	runs := RLEs{{Start: [3]int32{3, 4, 5}, Length: 6}, {Start: [3]int32{0, 0, 9}, Length: 1}}

	b, err := runs.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, 32)

	var got RLEs
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, runs, got)

	assert.ErrorIs(t, got.UnmarshalBinary(b[:20]), ErrCorrupt)
}

// TestRoundTrip verifies a mask restored from its encoding matches the original, with and without compression
func TestRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		src := newTestSelection(t, 16, 12, 8)
		require.NoError(t, src.SelectBlock(models.Voxel{5, 5, 5}, 4))
		src.AddToSelection([]models.Voxel{{15, 11, 7}, {0, 0, 0}})
		src.RemoveFromSelection([]models.Voxel{{5, 5, 5}})

		data, err := Marshal(src, Options{Compress: compress})
		require.NoError(t, err)

		mask, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, src.Shape(), mask.Shape)
		assert.Equal(t, src.Size(), mask.Size())

		dst := newTestSelection(t, 16, 12, 8)
		dst.AddToSelection([]models.Voxel{{1, 1, 1}})
		require.NoError(t, Restore(dst, mask))

		assert.Equal(t, src.Indices(), dst.Indices(), "compress=%v", compress)
	}
}

// TestRoundTripEmpty verifies an empty selection encodes to a header only
func TestRoundTripEmpty(t *testing.T) {
	sel := newTestSelection(t, 2, 2, 2)

	data, err := Marshal(sel, Options{})
	require.NoError(t, err)
	assert.Len(t, data, binary.Size(header{}))

	mask, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 0, mask.Size())
}

// TestCompressionShrinksDenseMasks verifies snappy pays off on a large block
func TestCompressionShrinksDenseMasks(t *testing.T) {
	sel := newTestSelection(t, 64, 64, 64)
	require.NoError(t, sel.SelectBlock(models.Voxel{32, 32, 32}, 40))

	raw, err := Marshal(sel, Options{})
	require.NoError(t, err)
	packed, err := Marshal(sel, Options{Compress: true})
	require.NoError(t, err)

	assert.Less(t, len(packed), len(raw))
}

// TestRestoreShapeMismatch verifies masks only restore onto matching selections
func TestRestoreShapeMismatch(t *testing.T) {
	src := newTestSelection(t, 4, 4, 4)
	src.AddToSelection([]models.Voxel{{1, 1, 1}})
	data, err := Marshal(src, Options{})
	require.NoError(t, err)
	mask, err := Unmarshal(data)
	require.NoError(t, err)

	dst := newTestSelection(t, 4, 4, 5)
	assert.ErrorIs(t, Restore(dst, mask), ErrShapeMismatch)
	assert.Equal(t, 0, dst.Size())
}

// TestDecodeCorrupt verifies malformed input is rejected
func TestDecodeCorrupt(t *testing.T) {
	src := newTestSelection(t, 4, 4, 4)
	src.AddToSelection([]models.Voxel{{3, 3, 3}})
	good, err := Marshal(src, Options{})
	require.NoError(t, err)

	_, err = Unmarshal(good[:3])
	assert.ErrorIs(t, err, ErrCorrupt)

	badMagic := append([]byte{}, good...)
	badMagic[0] = 'X'
	_, err = Unmarshal(badMagic)
	assert.ErrorIs(t, err, ErrCorrupt)

	newer := append([]byte{}, good...)
	newer[4] = Version + 1
	_, err = Unmarshal(newer)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Unmarshal(good[:len(good)-1])
	assert.ErrorIs(t, err, ErrCorrupt)

	// A run that starts inside the volume but extends past its edge.
	var buf bytes.Buffer
	h := header{Magic: magic, Version: Version, Shape: [3]int32{4, 4, 4}, Length: rleSize}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, h))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, RLE{Start: [3]int32{2, 0, 0}, Length: 3}))
	_, err = Decode(&buf)
	assert.ErrorIs(t, err, ErrCorrupt)
}

// TestDecodeHugeShape verifies extents near the int32 limit neither overflow
// the payload bound nor reject a valid run
func TestDecodeHugeShape(t *testing.T) {
	assert.Equal(t, int64(4*4*4*rleSize), rawLimit(models.Shape{4, 4, 4}))
	assert.Equal(t, int64(math.MaxUint32), rawLimit(models.Shape{math.MaxInt32, math.MaxInt32, math.MaxInt32}))
	assert.Equal(t, int64(math.MaxUint32), rawLimit(models.Shape{1 << 16, 1 << 16, 1}))

	var buf bytes.Buffer
	h := header{Magic: magic, Version: Version, Shape: [3]int32{math.MaxInt32, math.MaxInt32, math.MaxInt32}, Length: rleSize}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, h))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, RLE{Start: [3]int32{0, 0, 0}, Length: 5}))

	mask, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 5, mask.Size())
	assert.Equal(t, models.Shape{math.MaxInt32, math.MaxInt32, math.MaxInt32}, mask.Shape)
}

// TestOptionsFromConfig verifies compression follows the storage section
func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.True(t, OptionsFromConfig(cfg, nil).Compress)

	cfg.Storage.Compress = false
	assert.False(t, OptionsFromConfig(cfg, nil).Compress)
}
