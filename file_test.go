package simplefs_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simplefs "github.com/block-fs/simplefs"
	"github.com/block-fs/simplefs/internal/simplefstest"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	fs, root := simplefstest.NewFS(t, 200, 256)

	f, err := fs.CreateFile(root, "greeting.txt")
	require.NoError(t, err)

	payload := []byte("hello, simplefs")
	n, err := fs.Write(f, payload, len(payload))
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, len(payload), f.SizeInBytes())

	require.NoError(t, fs.Seek(f, 0))

	dst := make([]byte, len(payload))
	n, err = fs.Read(f, dst, len(dst))
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.True(t, bytes.Equal(payload, dst))
}

func TestSeekOutOfRange(t *testing.T) {
	fs, root := simplefstest.NewFS(t, 200, 256)

	f, err := fs.CreateFile(root, "a.txt")
	require.NoError(t, err)

	err = fs.Seek(f, -1)
	assert.ErrorIs(t, err, simplefs.ErrOutOfRange)

	capacity := 256 - 12 - (4 + 4 + 129 + 4 + 4 + 4) // first-block file data capacity at this block size
	err = fs.Seek(f, capacity+1)
	assert.ErrorIs(t, err, simplefs.ErrOutOfRange)
}

func TestReadRejectsNegativeSize(t *testing.T) {
	fs, root := simplefstest.NewFS(t, 200, 256)

	f, err := fs.CreateFile(root, "a.txt")
	require.NoError(t, err)

	_, err = fs.Read(f, make([]byte, 4), -1)
	assert.ErrorIs(t, err, simplefs.ErrInvalidArgs)
}

func TestWriteRejectsSizeLargerThanSource(t *testing.T) {
	fs, root := simplefstest.NewFS(t, 200, 256)

	f, err := fs.CreateFile(root, "a.txt")
	require.NoError(t, err)

	_, err = fs.Write(f, []byte("abc"), 10)
	assert.ErrorIs(t, err, simplefs.ErrInvalidArgs)
}

func TestLargeWriteGrowsChainAndReadsBack(t *testing.T) {
	// block size large enough that a 420-byte write stays inside the first
	// block alone, so the second, larger write is what forces the chain to
	// grow.
	const blockSize = 600
	const firstCapacity = blockSize - 12 - (4 + 4 + 129 + 4 + 4 + 4)
	const contCapacity = blockSize - 12

	fs, root := simplefstest.NewFS(t, 400, blockSize)

	f, err := fs.CreateFile(root, "big.bin")
	require.NoError(t, err)

	small := bytes.Repeat([]byte{'x'}, 420)
	n, err := fs.Write(f, small, len(small))
	require.NoError(t, err)
	assert.Equal(t, len(small), n)
	assert.Equal(t, 1, f.SizeInBlocks())

	require.NoError(t, fs.Seek(f, 0))

	big := make([]byte, 2000)
	for i := range big {
		big[i] = byte(i % 251)
	}
	n, err = fs.Write(f, big, len(big))
	require.NoError(t, err)
	assert.Equal(t, len(big), n)

	wantChain := 1 + (len(big)-firstCapacity+contCapacity-1)/contCapacity
	assert.Equal(t, wantChain, f.SizeInBlocks())

	require.NoError(t, fs.Seek(f, 0))
	dst := make([]byte, len(big))
	n, err = fs.Read(f, dst, len(dst))
	require.NoError(t, err)
	assert.Equal(t, len(big), n)
	assert.True(t, bytes.Equal(big, dst))
}

func TestDiskFullDuringWriteReturnsPartialCount(t *testing.T) {
	fs, root := simplefstest.NewFS(t, 4, 256)

	f, err := fs.CreateFile(root, "a.bin")
	require.NoError(t, err)

	huge := bytes.Repeat([]byte{'z'}, 100000)
	n, err := fs.Write(f, huge, len(huge))
	assert.ErrorIs(t, err, simplefs.ErrDiskFull)
	assert.True(t, n > 0)
	assert.True(t, n < len(huge))
}
