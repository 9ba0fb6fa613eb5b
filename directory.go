package simplefs

import (
	"github.com/block-fs/simplefs/errors"
	"github.com/block-fs/simplefs/layout"
)

func firstZeroSlot(entries []int32) (int, bool) {
	for i, v := range entries {
		if v == 0 {
			return i, true
		}
	}
	return 0, false
}

func (fs *FS) writeDirectoryHead(dir *DirectoryHandle) error {
	raw, err := fs.disk.Layout().MarshalFirstDirectoryBlock(dir.first)
	if err != nil {
		return err
	}
	return fs.disk.WriteBlock(raw, int(dir.blockInDisk))
}

func (fs *FS) readDirectoryContinuation(index int32) (layout.DirectoryBlock, error) {
	l := fs.disk.Layout()
	raw := make([]byte, l.BlockSize)
	if err := fs.disk.ReadBlock(raw, int(index)); err != nil {
		return layout.DirectoryBlock{}, err
	}
	return l.UnmarshalDirectoryBlock(raw)
}

func (fs *FS) writeDirectoryContinuation(index int32, db layout.DirectoryBlock) error {
	raw, err := fs.disk.Layout().MarshalDirectoryBlock(db)
	if err != nil {
		return err
	}
	return fs.disk.WriteBlock(raw, int(index))
}

// walkEntries visits every occupied slot of dir's entry chain (head block,
// then its next_block continuations) in order, stopping early if visit
// returns stop=true. Chain traversal is bounded by the disk's total block
// count: a chain that doesn't terminate within that many steps is treated
// as corrupt rather than looped forever.
func (fs *FS) walkEntries(dir *DirectoryHandle, visit func(childBlock int32) (stop bool, err error)) error {
	for _, e := range dir.first.Entries {
		if e == 0 {
			continue
		}
		stop, err := visit(e)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}

	next := dir.first.Header.NextBlock
	steps := 0
	limit := fs.disk.NumBlocks()
	for next != layout.NoBlock {
		steps++
		if steps > limit {
			return errors.ErrCorrupt
		}
		db, err := fs.readDirectoryContinuation(next)
		if err != nil {
			return err
		}
		for _, e := range db.Entries {
			if e == 0 {
				continue
			}
			stop, err := visit(e)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		next = db.Header.NextBlock
	}
	return nil
}

func (fs *FS) findNamedEntry(dir *DirectoryHandle, name string, wantDir bool) (int32, bool, error) {
	l := fs.disk.Layout()
	found := int32(-1)

	err := fs.walkEntries(dir, func(child int32) (bool, error) {
		raw := make([]byte, l.BlockSize)
		if err := fs.disk.ReadBlock(raw, int(child)); err != nil {
			return false, err
		}
		_, fcb, err := l.ObjectHeader(raw)
		if err != nil {
			return false, err
		}
		if fcb.Name == name && fcb.IsDir == wantDir {
			found = child
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return -1, false, err
	}
	return found, found != -1, nil
}

// insertEntry links a newly allocated child block into dir's entry chain,
// per the algorithm of spec.md 4.4: fill the lowest-index free slot in the
// earliest block that has one, growing the chain by exactly one block only
// if none of the existing blocks has room.
func (fs *FS) insertEntry(dir *DirectoryHandle, childBlock int32) error {
	l := fs.disk.Layout()

	if idx, ok := firstZeroSlot(dir.first.Entries); ok {
		dir.first.Entries[idx] = childBlock
		dir.first.NumEntries++
		return fs.writeDirectoryHead(dir)
	}

	prevIndex := dir.blockInDisk
	prevBlockInFile := dir.first.Header.BlockInFile
	next := dir.first.Header.NextBlock
	steps := 0
	limit := fs.disk.NumBlocks()

	for next != layout.NoBlock {
		steps++
		if steps > limit {
			return errors.ErrCorrupt
		}
		db, err := fs.readDirectoryContinuation(next)
		if err != nil {
			return err
		}

		if idx, ok := firstZeroSlot(db.Entries); ok {
			db.Entries[idx] = childBlock
			if err := fs.writeDirectoryContinuation(next, db); err != nil {
				return err
			}
			dir.first.NumEntries++
			return fs.writeDirectoryHead(dir)
		}

		prevIndex = next
		prevBlockInFile = db.Header.BlockInFile
		next = db.Header.NextBlock
	}

	newIndex, err := fs.disk.FirstFree(0)
	if err != nil {
		return err
	}
	if newIndex < 0 {
		return errors.ErrDiskFull
	}

	entries := make([]int32, l.DirectoryEntryCount())
	entries[0] = childBlock
	newBlock := layout.DirectoryBlock{
		Header: layout.BlockHeader{
			PreviousBlock: prevIndex,
			NextBlock:     layout.NoBlock,
			BlockInFile:   prevBlockInFile + 1,
		},
		Entries: entries,
	}
	if err := fs.writeDirectoryContinuation(int32(newIndex), newBlock); err != nil {
		return err
	}

	if prevIndex == dir.blockInDisk {
		dir.first.Header.NextBlock = int32(newIndex)
	} else {
		prevBlock, err := fs.readDirectoryContinuation(prevIndex)
		if err != nil {
			return err
		}
		prevBlock.Header.NextBlock = int32(newIndex)
		if err := fs.writeDirectoryContinuation(prevIndex, prevBlock); err != nil {
			return err
		}
	}

	dir.first.NumEntries++
	return fs.writeDirectoryHead(dir)
}

// CreateFile allocates a new regular file and links it into dir.
func (fs *FS) CreateFile(dir *DirectoryHandle, name string) (*FileHandle, error) {
	if fs.disk.FreeBlocks() <= 2 {
		return nil, errors.ErrDiskFull
	}
	if _, found, err := fs.findNamedEntry(dir, name, false); err != nil {
		return nil, err
	} else if found {
		return nil, errors.ErrExists
	}

	idx, err := fs.disk.FirstFree(0)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, errors.ErrDiskFull
	}

	l := fs.disk.Layout()
	first := layout.FirstFileBlock{
		Header: layout.BlockHeader{
			PreviousBlock: layout.NoBlock,
			NextBlock:     layout.NoBlock,
			BlockInFile:   0,
		},
		FCB: layout.FileControlBlock{
			DirectoryBlock: dir.blockInDisk,
			BlockInDisk:    int32(idx),
			Name:           name,
			SizeInBytes:    0,
			SizeInBlocks:   1,
			IsDir:          false,
		},
		Data: make([]byte, l.FirstFileDataCapacity()),
	}

	raw, err := l.MarshalFirstFileBlock(first)
	if err != nil {
		return nil, err
	}
	if err := fs.disk.WriteBlock(raw, idx); err != nil {
		return nil, err
	}

	if err := fs.insertEntry(dir, int32(idx)); err != nil {
		return nil, err
	}

	return &FileHandle{fs: fs, blockInDisk: int32(idx), first: first, posInFile: 0}, nil
}

// Mkdir allocates a new subdirectory and links it into dir.
func (fs *FS) Mkdir(dir *DirectoryHandle, name string) (*DirectoryHandle, error) {
	if fs.disk.FreeBlocks() <= 1 {
		return nil, errors.ErrDiskFull
	}
	if _, found, err := fs.findNamedEntry(dir, name, true); err != nil {
		return nil, err
	} else if found {
		return nil, errors.ErrExists
	}

	idx, err := fs.disk.FirstFree(0)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, errors.ErrDiskFull
	}

	l := fs.disk.Layout()
	first := layout.FirstDirectoryBlock{
		Header: layout.BlockHeader{
			PreviousBlock: layout.NoBlock,
			NextBlock:     layout.NoBlock,
			BlockInFile:   0,
		},
		FCB: layout.FileControlBlock{
			DirectoryBlock: dir.blockInDisk,
			BlockInDisk:    int32(idx),
			Name:           name,
			SizeInBytes:    int32(l.BlockSize),
			SizeInBlocks:   1,
			IsDir:          true,
		},
		NumEntries: 0,
		Entries:    make([]int32, l.FirstDirectoryEntryCount()),
	}

	raw, err := l.MarshalFirstDirectoryBlock(first)
	if err != nil {
		return nil, err
	}
	if err := fs.disk.WriteBlock(raw, idx); err != nil {
		return nil, err
	}

	if err := fs.insertEntry(dir, int32(idx)); err != nil {
		return nil, err
	}

	return &DirectoryHandle{fs: fs, blockInDisk: int32(idx), first: first, parent: dir}, nil
}

// Readdir yields the names of dir's children in stable insertion order.
func (fs *FS) Readdir(dir *DirectoryHandle) ([]string, error) {
	l := fs.disk.Layout()
	var names []string

	err := fs.walkEntries(dir, func(child int32) (bool, error) {
		raw := make([]byte, l.BlockSize)
		if err := fs.disk.ReadBlock(raw, int(child)); err != nil {
			return false, err
		}
		_, fcb, err := l.ObjectHeader(raw)
		if err != nil {
			return false, err
		}
		names = append(names, fcb.Name)
		return false, nil
	})
	return names, err
}

// OpenFile looks up name among dir's file (non-directory) entries and
// returns a handle to it.
func (fs *FS) OpenFile(dir *DirectoryHandle, name string) (*FileHandle, error) {
	idx, found, err := fs.findNamedEntry(dir, name, false)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrNotFound
	}
	first, err := fs.readFileBlock(idx)
	if err != nil {
		return nil, err
	}
	return &FileHandle{fs: fs, blockInDisk: idx, first: first, posInFile: 0}, nil
}

// FindDir looks up name among dir's subdirectory entries and returns the
// block index of its first block.
func (fs *FS) FindDir(dir *DirectoryHandle, name string) (int32, error) {
	idx, found, err := fs.findNamedEntry(dir, name, true)
	if err != nil {
		return -1, err
	}
	if !found {
		return -1, errors.ErrNotFound
	}
	return idx, nil
}

// Changedir navigates handle to name, mutating it in place. name of ".."
// moves to the parent (failing with ErrAtRoot at the root); any other name
// is looked up via FindDir.
func (fs *FS) Changedir(handle *DirectoryHandle, name string) error {
	if name == ".." {
		if handle.IsRoot() {
			return errors.ErrAtRoot
		}
		parent := handle.parent
		fresh, err := fs.readDirectoryBlock(parent.blockInDisk)
		if err != nil {
			return err
		}
		handle.blockInDisk = parent.blockInDisk
		handle.first = fresh
		handle.parent = parent.parent
		return nil
	}

	childIndex, err := fs.FindDir(handle, name)
	if err != nil {
		return err
	}
	childFirst, err := fs.readDirectoryBlock(childIndex)
	if err != nil {
		return err
	}

	parentCopy := &DirectoryHandle{fs: fs, blockInDisk: handle.blockInDisk, first: handle.first, parent: handle.parent}
	handle.blockInDisk = childIndex
	handle.first = childFirst
	handle.parent = parentCopy
	return nil
}
