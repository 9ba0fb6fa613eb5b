// Package simplefstest provides scratch-disk helpers for tests of the
// directory and file operations, mirroring the teacher's own root-level
// testing package: build a throwaway image, get back an initialized
// filesystem and root handle, and don't worry about cleanup.
package simplefstest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	simplefs "github.com/block-fs/simplefs"
	"github.com/block-fs/simplefs/disk"
)

// NewFS builds a brand-new, formatted filesystem backed by an in-memory
// stream with numBlocks blocks of blockSize bytes each, and returns it
// together with a handle to its root directory.
func NewFS(t *testing.T, numBlocks, blockSize int) (*simplefs.FS, *simplefs.DirectoryHandle) {
	t.Helper()
	fs, root, _ := NewFSWithDriver(t, numBlocks, blockSize)
	return fs, root
}

// NewFSWithDriver is NewFS plus the underlying disk.Driver, for tests that
// need to read or hand-corrupt raw blocks (for example to exercise cycle
// detection in a next_block chain) rather than go through the filesystem
// API alone.
func NewFSWithDriver(t *testing.T, numBlocks, blockSize int) (*simplefs.FS, *simplefs.DirectoryHandle, *disk.Driver) {
	t.Helper()

	size := 12 + (numBlocks+7)/8 + numBlocks*blockSize
	stream := bytesextra.NewReadWriteSeeker(make([]byte, size))

	d, err := disk.Open(stream, numBlocks, blockSize, true)
	require.NoError(t, err)

	fs, root, err := simplefs.Init(d)
	require.NoError(t, err)

	return fs, root, d
}
