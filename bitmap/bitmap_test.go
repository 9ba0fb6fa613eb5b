package bitmap_test

import (
	"testing"

	"github.com/block-fs/simplefs/bitmap"
	"github.com/block-fs/simplefs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyBitmapBasics(t *testing.T) {
	bm := bitmap.New(1000)

	first, err := bm.GetFirst(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, first, "first free bit of an empty bitmap is bit 0")

	_, err = bm.GetFirst(8000, 0)
	assert.ErrorIs(t, err, errors.ErrOutOfRange, "start past NumBits must fail, not silently return -1")

	require.NoError(t, bm.Set(0, 1))
	first, err = bm.GetFirst(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first, "bit 0 is now allocated, so the next free bit is 1")

	require.NoError(t, bm.Set(0, 0))
	first, err = bm.GetFirst(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, first)
}

func TestGetFirstNoneFound(t *testing.T) {
	bm := bitmap.New(8)
	for i := 0; i < 8; i++ {
		require.NoError(t, bm.Set(i, 1))
	}

	idx, err := bm.GetFirst(0, 0)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestSetOutOfRange(t *testing.T) {
	bm := bitmap.New(10)
	assert.ErrorIs(t, bm.Set(10, 1), errors.ErrOutOfRange)
	assert.ErrorIs(t, bm.Set(-1, 1), errors.ErrOutOfRange)
}

func TestMSBFirstBitOrdering(t *testing.T) {
	bm := bitmap.New(16)
	require.NoError(t, bm.Set(0, 1))
	assert.Equal(t, byte(0b1000_0000), bm.Entries()[0], "bit 0 must be the MSB of byte 0")

	require.NoError(t, bm.Set(7, 1))
	assert.Equal(t, byte(0b1000_0001), bm.Entries()[0], "bit 7 must be the LSB of byte 0")

	require.NoError(t, bm.Set(8, 1))
	assert.Equal(t, byte(0b1000_0000), bm.Entries()[1], "bit 8 must be the MSB of byte 1")
}

func TestWrapAliasesCallerBytes(t *testing.T) {
	raw := make([]byte, 2)
	bm := bitmap.Wrap(raw, 16)

	require.NoError(t, bm.Set(3, 1))
	assert.Equal(t, byte(0b0001_0000), raw[0], "Set through the Bitmap must mutate the caller's slice in place")
}

func TestPopCountTracksSetBits(t *testing.T) {
	bm := bitmap.New(100)
	assert.Equal(t, 0, bm.PopCount())

	for _, i := range []int{0, 5, 99} {
		require.NoError(t, bm.Set(i, 1))
	}
	assert.Equal(t, 3, bm.PopCount())

	require.NoError(t, bm.Set(5, 0))
	assert.Equal(t, 2, bm.PopCount())
}
