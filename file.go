package simplefs

import (
	"github.com/block-fs/simplefs/errors"
	"github.com/block-fs/simplefs/layout"
)

func (fs *FS) writeFileHead(f *FileHandle) error {
	raw, err := fs.disk.Layout().MarshalFirstFileBlock(f.first)
	if err != nil {
		return err
	}
	return fs.disk.WriteBlock(raw, int(f.blockInDisk))
}

func (fs *FS) readFileContinuation(index int32) (layout.FileBlock, error) {
	l := fs.disk.Layout()
	raw := make([]byte, l.BlockSize)
	if err := fs.disk.ReadBlock(raw, int(index)); err != nil {
		return layout.FileBlock{}, err
	}
	return l.UnmarshalFileBlock(raw)
}

func (fs *FS) writeFileContinuation(index int32, fb layout.FileBlock) error {
	raw, err := fs.disk.Layout().MarshalFileBlock(fb)
	if err != nil {
		return err
	}
	return fs.disk.WriteBlock(raw, int(index))
}

// iterateDataBlocks visits the data slice of each block in f's chain, head
// first, stopping early if visit returns stop=true. Bounded by the disk's
// total block count against cycles in next_block.
func (fs *FS) iterateDataBlocks(f *FileHandle, visit func(data []byte) (stop bool, err error)) error {
	stop, err := visit(f.first.Data)
	if err != nil || stop {
		return err
	}

	next := f.first.Header.NextBlock
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
		stop, err := visit(fb.Data)
		if err != nil || stop {
			return err
		}
		next = fb.Header.NextBlock
	}
	return nil
}

func (fs *FS) fileCapacity(f *FileHandle) (int, error) {
	l := fs.disk.Layout()
	capacity := 0
	first := true
	err := fs.iterateDataBlocks(f, func(data []byte) (bool, error) {
		if first {
			capacity += l.FirstFileDataCapacity()
			first = false
		} else {
			capacity += l.FileDataCapacity()
		}
		return false, nil
	})
	return capacity, err
}

func (fs *FS) fileChainLength(f *FileHandle) (int, error) {
	length := 1
	next := f.first.Header.NextBlock
	steps := 0
	limit := fs.disk.NumBlocks()
	for next != layout.NoBlock {
		steps++
		if steps > limit {
			return 0, errors.ErrCorrupt
		}
		fb, err := fs.readFileContinuation(next)
		if err != nil {
			return 0, err
		}
		length++
		next = fb.Header.NextBlock
	}
	return length, nil
}

// Seek moves f's cursor to pos, which must lie within the capacity
// currently spanned by f's block chain.
func (fs *FS) Seek(f *FileHandle, pos int) error {
	capacity, err := fs.fileCapacity(f)
	if err != nil {
		return err
	}
	if pos < 0 || pos > capacity {
		return errors.ErrOutOfRange
	}
	f.posInFile = pos
	return nil
}

// Read copies up to size bytes from f's current position into dst,
// advancing the cursor by the number of bytes actually produced.
func (fs *FS) Read(f *FileHandle, dst []byte, size int) (int, error) {
	if size < 0 || f.posInFile > int(f.first.FCB.SizeInBytes) {
		return 0, errors.ErrInvalidArgs
	}

	pos := f.posInFile
	remaining := size
	written := 0
	blockStart := 0

	err := fs.iterateDataBlocks(f, func(data []byte) (bool, error) {
		blockEnd := blockStart + len(data)
		if remaining > 0 && pos < blockEnd {
			offset := pos - blockStart
			n := len(data) - offset
			if n > remaining {
				n = remaining
			}
			copy(dst[written:written+n], data[offset:offset+n])
			written += n
			pos += n
			remaining -= n
		}
		blockStart = blockEnd
		return remaining == 0, nil
	})
	if err != nil {
		return written, err
	}

	f.posInFile = pos
	return written, nil
}

// Write writes size bytes from src starting at f's current position,
// overwriting existing content and extending f's chain with new blocks as
// needed, then updates size_in_bytes/size_in_blocks and persists every
// block touched. On DiskFull mid-write the bytes already written remain
// durable and the partial count is returned.
func (fs *FS) Write(f *FileHandle, src []byte, size int) (int, error) {
	if size < 0 || size > len(src) {
		return 0, errors.ErrInvalidArgs
	}

	l := fs.disk.Layout()
	pos := f.posInFile
	remaining := size
	srcOff := 0
	written := 0

	curIndex := f.blockInDisk
	isHead := true
	curHeader := f.first.Header
	curData := f.first.Data
	capacity := l.FirstFileDataCapacity()
	blockStart := 0

	steps := 0
	limit := fs.disk.NumBlocks() + 1

	for remaining > 0 {
		steps++
		if steps > limit {
			return written, errors.ErrCorrupt
		}

		blockEnd := blockStart + capacity
		if pos < blockEnd {
			offset := pos - blockStart
			n := capacity - offset
			if n > remaining {
				n = remaining
			}
			copy(curData[offset:offset+n], src[srcOff:srcOff+n])
			srcOff += n
			written += n
			pos += n
			remaining -= n

			var err error
			if isHead {
				f.first.Data = curData
				err = fs.writeFileHead(f)
			} else {
				err = fs.writeFileContinuation(curIndex, layout.FileBlock{Header: curHeader, Data: curData})
			}
			if err != nil {
				return written, err
			}

			if remaining == 0 {
				break
			}
		}
		blockStart = blockEnd

		if curHeader.NextBlock == layout.NoBlock {
			newIndex, err := fs.disk.FirstFree(0)
			if err != nil {
				return written, err
			}
			if newIndex < 0 {
				return written, errors.ErrDiskFull
			}

			newHeader := layout.BlockHeader{
				PreviousBlock: curIndex,
				NextBlock:     layout.NoBlock,
				BlockInFile:   curHeader.BlockInFile + 1,
			}
			newData := make([]byte, l.FileDataCapacity())
			if err := fs.writeFileContinuation(int32(newIndex), layout.FileBlock{Header: newHeader, Data: newData}); err != nil {
				return written, err
			}

			curHeader.NextBlock = int32(newIndex)
			if isHead {
				f.first.Header = curHeader
				if err := fs.writeFileHead(f); err != nil {
					return written, err
				}
			} else {
				if err := fs.writeFileContinuation(curIndex, layout.FileBlock{Header: curHeader, Data: curData}); err != nil {
					return written, err
				}
			}

			curIndex = int32(newIndex)
			curHeader = newHeader
			curData = newData
			capacity = l.FileDataCapacity()
			isHead = false
		} else {
			nextIndex := curHeader.NextBlock
			fb, err := fs.readFileContinuation(nextIndex)
			if err != nil {
				return written, err
			}
			curIndex = nextIndex
			curHeader = fb.Header
			curData = fb.Data
			capacity = l.FileDataCapacity()
			isHead = false
		}
	}

	newSize := pos
	if int(f.first.FCB.SizeInBytes) > newSize {
		newSize = int(f.first.FCB.SizeInBytes)
	}
	f.first.FCB.SizeInBytes = int32(newSize)

	chainLen, err := fs.fileChainLength(f)
	if err != nil {
		return written, err
	}
	f.first.FCB.SizeInBlocks = int32(chainLen)
	if err := fs.writeFileHead(f); err != nil {
		return written, err
	}

	f.posInFile = pos
	return written, nil
}
