package disk_test

import (
	"path/filepath"
	"testing"

	"github.com/block-fs/simplefs/disk"
	"github.com/block-fs/simplefs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFormatsNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.simplefs")

	d, err := disk.Init(path, 1000, 256)
	require.NoError(t, err)
	defer d.Destroy()

	assert.Equal(t, 1000, d.NumBlocks())
	assert.Equal(t, 1000, d.FreeBlocks())
	assert.Equal(t, 0, d.FirstFreeBlock())
}

func TestWriteThenReadBlockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.simplefs")

	d, err := disk.Init(path, 1000, 256)
	require.NoError(t, err)
	defer d.Destroy()

	src := make([]byte, d.BlockSize())
	copy(src, []byte("pippo"))

	require.NoError(t, d.WriteBlock(src, 0))
	assert.Equal(t, 999, d.FreeBlocks())

	dst := make([]byte, d.BlockSize())
	require.NoError(t, d.ReadBlock(dst, 0))
	assert.Equal(t, "pippo", string(dst[:5]))

	err = d.ReadBlock(dst, 2)
	assert.ErrorIs(t, err, errors.ErrBlockFree)
}

func TestReadWriteOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.simplefs")
	d, err := disk.Init(path, 10, 256)
	require.NoError(t, err)
	defer d.Destroy()

	buf := make([]byte, d.BlockSize())
	assert.ErrorIs(t, d.ReadBlock(buf, 10), errors.ErrOutOfRange)
	assert.ErrorIs(t, d.WriteBlock(buf, -1), errors.ErrOutOfRange)
	assert.ErrorIs(t, d.FreeBlock(10), errors.ErrOutOfRange)
}

func TestFreeBlockUpdatesFirstFreeAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.simplefs")
	d, err := disk.Init(path, 10, 256)
	require.NoError(t, err)
	defer d.Destroy()

	buf := make([]byte, d.BlockSize())
	require.NoError(t, d.WriteBlock(buf, 0))
	require.NoError(t, d.WriteBlock(buf, 1))
	assert.Equal(t, 2, d.FirstFreeBlock())

	require.NoError(t, d.FreeBlock(0))
	assert.Equal(t, 0, d.FirstFreeBlock())
	assert.Equal(t, 9, d.FreeBlocks())
}

func TestOpeningExistingFileTrustsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.simplefs")

	d1, err := disk.Init(path, 100, 256)
	require.NoError(t, err)

	buf := make([]byte, d1.BlockSize())
	require.NoError(t, d1.WriteBlock(buf, 0))
	require.NoError(t, d1.Destroy())

	d2, err := disk.Init(path, 100, 256)
	require.NoError(t, err)
	defer d2.Destroy()

	assert.Equal(t, 99, d2.FreeBlocks())
	dst := make([]byte, d2.BlockSize())
	require.NoError(t, d2.ReadBlock(dst, 0))
}

func TestResetClearsBitmapAndFreeCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.simplefs")
	d, err := disk.Init(path, 10, 256)
	require.NoError(t, err)
	defer d.Destroy()

	buf := make([]byte, d.BlockSize())
	require.NoError(t, d.WriteBlock(buf, 0))
	require.NoError(t, d.WriteBlock(buf, 3))

	require.NoError(t, d.Reset())
	assert.Equal(t, 10, d.FreeBlocks())
	assert.Equal(t, 0, d.FirstFreeBlock())

	err = d.ReadBlock(buf, 0)
	assert.ErrorIs(t, err, errors.ErrBlockFree)
}
