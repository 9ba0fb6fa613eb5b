package simplefs

import (
	"github.com/hashicorp/go-multierror"

	"github.com/block-fs/simplefs/errors"
	"github.com/block-fs/simplefs/layout"
)

func (fs *FS) findAnyNamedEntry(dir *DirectoryHandle, name string) (childBlock int32, isDir bool, found bool, err error) {
	l := fs.disk.Layout()
	childBlock = -1

	err = fs.walkEntries(dir, func(child int32) (bool, error) {
		raw := make([]byte, l.BlockSize)
		if err := fs.disk.ReadBlock(raw, int(child)); err != nil {
			return false, err
		}
		_, fcb, err := l.ObjectHeader(raw)
		if err != nil {
			return false, err
		}
		if fcb.Name == name {
			childBlock = child
			isDir = fcb.IsDir
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return -1, false, false, err
	}
	return childBlock, isDir, childBlock != -1, nil
}

func (fs *FS) loadContinuations(dir *DirectoryHandle) ([]int32, []layout.DirectoryBlock, error) {
	var indices []int32
	var blocks []layout.DirectoryBlock

	next := dir.first.Header.NextBlock
	steps := 0
	limit := fs.disk.NumBlocks()
	for next != layout.NoBlock {
		steps++
		if steps > limit {
			return nil, nil, errors.ErrCorrupt
		}
		db, err := fs.readDirectoryContinuation(next)
		if err != nil {
			return nil, nil, err
		}
		indices = append(indices, next)
		blocks = append(blocks, db)
		next = db.Header.NextBlock
	}
	return indices, blocks, nil
}

// unlinkEntry removes childBlock's slot from dir's entry chain, shifting
// every later slot (across the whole chain, head then continuations) down
// by one so the packed-with-no-gaps contract implied by 4.4's
// lowest-free-slot insertion rule keeps holding.
func (fs *FS) unlinkEntry(dir *DirectoryHandle, childBlock int32) error {
	contIndices, contBlocks, err := fs.loadContinuations(dir)
	if err != nil {
		return err
	}

	segments := make([][]int32, 0, 1+len(contBlocks))
	segments = append(segments, dir.first.Entries)
	for i := range contBlocks {
		segments = append(segments, contBlocks[i].Entries)
	}

	type slot struct{ seg, idx int }
	var flat []slot
	removeAt := -1
	for si, seg := range segments {
		for i := range seg {
			if removeAt == -1 && seg[i] == childBlock {
				removeAt = len(flat)
			}
			flat = append(flat, slot{si, i})
		}
	}
	if removeAt == -1 {
		return errors.ErrNotFound
	}

	for i := removeAt; i < len(flat)-1; i++ {
		cur, nxt := flat[i], flat[i+1]
		segments[cur.seg][cur.idx] = segments[nxt.seg][nxt.idx]
	}
	last := flat[len(flat)-1]
	segments[last.seg][last.idx] = 0

	dir.first.NumEntries--

	if err := fs.writeDirectoryHead(dir); err != nil {
		return err
	}
	for i, idx := range contIndices {
		if err := fs.writeDirectoryContinuation(idx, contBlocks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) freeDirectoryChain(headIndex int32) error {
	first, err := fs.readDirectoryBlock(headIndex)
	if err != nil {
		return err
	}
	next := first.Header.NextBlock
	if err := fs.disk.FreeBlock(int(headIndex)); err != nil {
		return err
	}

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
		nextNext := db.Header.NextBlock
		if err := fs.disk.FreeBlock(int(next)); err != nil {
			return err
		}
		next = nextNext
	}
	return nil
}

func (fs *FS) freeFileChain(headIndex int32) error {
	first, err := fs.readFileBlock(headIndex)
	if err != nil {
		return err
	}
	next := first.Header.NextBlock
	if err := fs.disk.FreeBlock(int(headIndex)); err != nil {
		return err
	}

	steps := 0
	limit := fs.disk.NumBlocks()
	for next != layout.NoBlock {
		steps++
		if steps > limit {
			return errors.ErrCorrupt
		}
		fb, err := fs.readFileContinuation(next)
		if err != nil {
			return err
		}
		nextNext := fb.Header.NextBlock
		if err := fs.disk.FreeBlock(int(next)); err != nil {
			return err
		}
		next = nextNext
	}
	return nil
}

// Remove deletes name from dir. If name is a directory, every entry inside
// it is removed first (the name list is snapshotted before recursing so
// removal doesn't mutate the list being iterated); failures accumulated
// across multiple bad entries are reported together instead of stopping at
// the first one.
func (fs *FS) Remove(dir *DirectoryHandle, name string) error {
	childIndex, isDir, found, err := fs.findAnyNamedEntry(dir, name)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrNotFound
	}

	if isDir {
		childFirst, err := fs.readDirectoryBlock(childIndex)
		if err != nil {
			return err
		}
		childHandle := &DirectoryHandle{fs: fs, blockInDisk: childIndex, first: childFirst, parent: dir}

		names, err := fs.Readdir(childHandle)
		if err != nil {
			return err
		}

		var result *multierror.Error
		for _, childName := range names {
			if err := fs.Remove(childHandle, childName); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if result != nil {
			return result.ErrorOrNil()
		}

		if err := fs.unlinkEntry(dir, childIndex); err != nil {
			return err
		}
		return fs.freeDirectoryChain(childIndex)
	}

	if err := fs.unlinkEntry(dir, childIndex); err != nil {
		return err
	}
	return fs.freeFileChain(childIndex)
}
