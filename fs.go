// Package simplefs implements a small block-structured hierarchical file
// system living inside a single host backing file: a memory-mapped disk
// driver and free-space bitmap (package disk), fixed on-disk record shapes
// (package layout), and the directory/file operations tying them together.
package simplefs

import (
	"github.com/block-fs/simplefs/disk"
	"github.com/block-fs/simplefs/layout"
)

// FS binds the directory/file operations in this package to a single open
// disk driver. Every handle returned by its operations borrows this FS; it
// must outlive every handle derived from it.
type FS struct {
	disk *disk.Driver
}

// New binds a filesystem to an already-open disk driver.
func New(d *disk.Driver) *FS {
	return &FS{disk: d}
}

// Format clears every bitmap bit and writes a fresh root directory at block
// 0, which becomes the disk's first allocation. Calling Format twice in a
// row leaves the disk bit-identical both times.
func (fs *FS) Format() error {
	if err := fs.disk.Reset(); err != nil {
		return err
	}

	l := fs.disk.Layout()
	root := layout.FirstDirectoryBlock{
		Header: layout.BlockHeader{
			PreviousBlock: layout.NoBlock,
			NextBlock:     layout.NoBlock,
			BlockInFile:   0,
		},
		FCB: layout.FileControlBlock{
			DirectoryBlock: layout.NoBlock,
			BlockInDisk:    0,
			Name:           "/",
			SizeInBytes:    int32(l.BlockSize),
			SizeInBlocks:   1,
			IsDir:          true,
		},
		NumEntries: 0,
		Entries:    make([]int32, l.FirstDirectoryEntryCount()),
	}

	raw, err := l.MarshalFirstDirectoryBlock(root)
	if err != nil {
		return err
	}
	return fs.disk.WriteBlock(raw, 0)
}

// Init binds disk d to a filesystem, formatting it first if it is
// unformatted (signalled by block 0, where the root always lives once
// formatted, still being free), then returns a handle to the root
// directory.
func Init(d *disk.Driver) (*FS, *DirectoryHandle, error) {
	fs := New(d)

	if d.FirstFreeBlock() == 0 {
		if err := fs.Format(); err != nil {
			return nil, nil, err
		}
	}

	root, err := fs.readDirectoryBlock(0)
	if err != nil {
		return nil, nil, err
	}

	return fs, &DirectoryHandle{fs: fs, blockInDisk: 0, first: root, parent: nil}, nil
}

// FreeBlocks is the number of currently unallocated blocks on the underlying
// disk.
func (fs *FS) FreeBlocks() int {
	return fs.disk.FreeBlocks()
}

// Root returns a freshly re-read handle to the root directory, discarding
// any other handle's stale cached copy.
func (fs *FS) Root() (*DirectoryHandle, error) {
	root, err := fs.readDirectoryBlock(0)
	if err != nil {
		return nil, err
	}
	return &DirectoryHandle{fs: fs, blockInDisk: 0, first: root, parent: nil}, nil
}

func (fs *FS) readDirectoryBlock(index int32) (layout.FirstDirectoryBlock, error) {
	l := fs.disk.Layout()
	raw := make([]byte, l.BlockSize)
	if err := fs.disk.ReadBlock(raw, int(index)); err != nil {
		return layout.FirstDirectoryBlock{}, err
	}
	return l.UnmarshalFirstDirectoryBlock(raw)
}

func (fs *FS) readFileBlock(index int32) (layout.FirstFileBlock, error) {
	l := fs.disk.Layout()
	raw := make([]byte, l.BlockSize)
	if err := fs.disk.ReadBlock(raw, int(index)); err != nil {
		return layout.FirstFileBlock{}, err
	}
	return l.UnmarshalFirstFileBlock(raw)
}
