package simplefs

import "github.com/block-fs/simplefs/layout"

// DirectoryHandle is a cursor onto a currently open directory: the cached
// copy of its first block, plus an optional link to the parent directory's
// own handle. changedir mutates a handle in place rather than returning a
// new one, matching spec.md's state-machine for handles.
type DirectoryHandle struct {
	fs          *FS
	blockInDisk int32
	first       layout.FirstDirectoryBlock
	parent      *DirectoryHandle
}

// Name is the directory's own name ("/" for the root).
func (h *DirectoryHandle) Name() string {
	return h.first.FCB.Name
}

// BlockInDisk is the index of this directory's first block.
func (h *DirectoryHandle) BlockInDisk() int32 {
	return h.blockInDisk
}

// IsRoot reports whether this handle has no parent.
func (h *DirectoryHandle) IsRoot() bool {
	return h.parent == nil
}

// ContinuationBlock is the index of the first continuation block in this
// directory's entry chain, or layout.NoBlock if its entries all still fit
// in the first block.
func (h *DirectoryHandle) ContinuationBlock() int32 {
	return h.first.Header.NextBlock
}

// FileHandle is a cursor onto a currently open regular file: the cached
// copy of its first block and the current read/write position.
type FileHandle struct {
	fs          *FS
	blockInDisk int32
	first       layout.FirstFileBlock
	posInFile   int
}

// Name is the file's own name.
func (h *FileHandle) Name() string {
	return h.first.FCB.Name
}

// BlockInDisk is the index of this file's first block.
func (h *FileHandle) BlockInDisk() int32 {
	return h.blockInDisk
}

// SizeInBytes is the file's current logical size.
func (h *FileHandle) SizeInBytes() int {
	return int(h.first.FCB.SizeInBytes)
}

// SizeInBlocks is the number of blocks currently making up the file's chain.
func (h *FileHandle) SizeInBlocks() int {
	return int(h.first.FCB.SizeInBlocks)
}

// Pos is the handle's current read/write cursor.
func (h *FileHandle) Pos() int {
	return h.posInFile
}

// ContinuationBlock is the index of the first continuation block in this
// file's data chain, or layout.NoBlock if its data all still fits in the
// first block.
func (h *FileHandle) ContinuationBlock() int32 {
	return h.first.Header.NextBlock
}

// CloseDirectory releases a directory handle. On-disk state is unchanged;
// closing an already-closed (nil) handle is a no-op.
func CloseDirectory(h *DirectoryHandle) error {
	return nil
}

// CloseFile releases a file handle. On-disk state is unchanged; closing an
// already-closed (nil) handle is a no-op.
func CloseFile(h *FileHandle) error {
	return nil
}
