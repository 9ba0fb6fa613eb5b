// Package disk implements the memory-mapped block device that sits under
// every SimpleFS filesystem: it owns the backing store, the mapped region,
// and the allocation bitmap carved out of that region, and exposes the
// read_block/write_block/free_block/first_free primitives the rest of the
// module builds on.
package disk

import (
	"io"
	"os"

	"github.com/block-fs/simplefs/bitmap"
	"github.com/block-fs/simplefs/errors"
	"github.com/block-fs/simplefs/layout"
)

// Driver owns a single backing store's mapping, the DiskHeader stored in
// it, and a Bitmap view aliased directly onto the mapping's bitmap region:
// flipping a bit through Bitmap mutates the same bytes Flush later
// persists.
type Driver struct {
	mapping []byte
	flush   func([]byte) error
	closeFn func() error

	layout layout.Layout
	bitmap *bitmap.Bitmap

	numBlocks      int
	dataOffset     int
	freeBlocks     int
	firstFreeBlock int
}

func dataOffset(numBlocks int) int {
	return layout.DiskHeaderSize + bitmap.NumBytes(numBlocks)
}

func mappingSize(numBlocks, blockSize int) int {
	return dataOffset(numBlocks) + numBlocks*blockSize
}

// Init opens path, creating and formatting it if it does not already exist.
// A path that already exists is opened and trusted as-is: disk.Init never
// reformats an existing backing file. Only fs.Init's bitmap-empty check
// decides whether the filesystem layer reformats it.
func Init(path string, numBlocks int, blockSize int) (*Driver, error) {
	l, err := layout.New(blockSize)
	if err != nil {
		return nil, err
	}

	size := mappingSize(numBlocks, blockSize)

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	flags := os.O_RDWR
	if isNew {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, errors.ErrIOFailed.Wrap(err)
	}

	if isNew {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, errors.ErrIOFailed.Wrap(err)
		}
	} else {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, errors.ErrIOFailed.Wrap(err)
		}
		if info.Size() < int64(size) {
			if err := f.Truncate(int64(size)); err != nil {
				f.Close()
				return nil, errors.ErrIOFailed.Wrap(err)
			}
		}
	}

	mapping, flush, closeFn, err := openFileBacking(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}

	return newDriver(mapping, flush, closeFn, l, numBlocks, isNew)
}

// Open binds a Driver to a disk image held in an in-memory stream (for
// example one backed by github.com/xaionaro-go/bytesextra) instead of a
// real file. When isNew is false, stream must already contain numBlocks
// worth of header, bitmap, and data, exactly as Init would have produced
// for an existing file; when isNew is true, stream's current content is
// ignored and a fresh header/bitmap is written, exactly as Init does for a
// brand-new path. This is the entry point tests use to exercise the driver
// without touching the filesystem.
func Open(stream io.ReadWriteSeeker, numBlocks int, blockSize int, isNew bool) (*Driver, error) {
	l, err := layout.New(blockSize)
	if err != nil {
		return nil, err
	}

	size := mappingSize(numBlocks, blockSize)
	buf := make([]byte, size)
	if !isNew {
		if _, err := stream.Seek(0, io.SeekStart); err != nil {
			return nil, errors.ErrIOFailed.Wrap(err)
		}
		if _, err := io.ReadFull(stream, buf); err != nil {
			return nil, errors.ErrIOFailed.Wrap(err)
		}
	}

	flush := func(mapping []byte) error {
		if _, err := stream.Seek(0, io.SeekStart); err != nil {
			return errors.ErrIOFailed.Wrap(err)
		}
		if _, err := stream.Write(mapping); err != nil {
			return errors.ErrIOFailed.Wrap(err)
		}
		return nil
	}
	closeFn := func() error { return nil }

	return newDriver(buf, flush, closeFn, l, numBlocks, isNew)
}

func newDriver(mapping []byte, flush func([]byte) error, closeFn func() error, l layout.Layout, numBlocks int, isNew bool) (*Driver, error) {
	bmOffset := layout.DiskHeaderSize
	bmSize := bitmap.NumBytes(numBlocks)
	bm := bitmap.Wrap(mapping[bmOffset:bmOffset+bmSize], numBlocks)

	d := &Driver{
		mapping:    mapping,
		flush:      flush,
		closeFn:    closeFn,
		layout:     l,
		bitmap:     bm,
		numBlocks:  numBlocks,
		dataOffset: dataOffset(numBlocks),
	}

	if isNew {
		first, err := bm.GetFirst(0, 0)
		if err != nil {
			return nil, err
		}
		d.freeBlocks = numBlocks
		d.firstFreeBlock = first
		if err := d.writeHeader(); err != nil {
			return nil, err
		}
	} else {
		header, err := d.readHeader()
		if err != nil {
			return nil, err
		}
		d.numBlocks = int(header.NumBlocks)
		d.freeBlocks = int(header.FreeBlocks)
		d.firstFreeBlock = int(header.FirstFreeBlock)
	}

	return d, nil
}

// NumBlocks is the total number of data blocks on the disk.
func (d *Driver) NumBlocks() int {
	return d.numBlocks
}

// FreeBlocks is the number of currently unallocated blocks.
func (d *Driver) FreeBlocks() int {
	return d.freeBlocks
}

// FirstFreeBlock is the smallest index with a clear bit, or -1 when full.
func (d *Driver) FirstFreeBlock() int {
	return d.firstFreeBlock
}

// BlockSize is the fixed payload size of every data block.
func (d *Driver) BlockSize() int {
	return d.layout.BlockSize
}

// Layout exposes the geometry derived from this disk's block size.
func (d *Driver) Layout() layout.Layout {
	return d.layout
}

func (d *Driver) readHeader() (layout.DiskHeader, error) {
	var h layout.DiskHeader
	err := h.UnmarshalBinary(d.mapping[:layout.DiskHeaderSize])
	return h, err
}

func (d *Driver) writeHeader() error {
	h := layout.DiskHeader{
		NumBlocks:      int32(d.numBlocks),
		FreeBlocks:     int32(d.freeBlocks),
		FirstFreeBlock: int32(d.firstFreeBlock),
	}
	raw, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	copy(d.mapping[:layout.DiskHeaderSize], raw)
	return nil
}

func (d *Driver) blockOffset(i int) (int, error) {
	if i < 0 || i >= d.numBlocks {
		return 0, errors.ErrOutOfRange
	}
	return d.dataOffset + i*d.layout.BlockSize, nil
}

// ReadBlock copies the B bytes of block i into dst. Fails with OutOfRange if
// i is not a valid block index, BlockFree if block i is not allocated.
func (d *Driver) ReadBlock(dst []byte, i int) error {
	offset, err := d.blockOffset(i)
	if err != nil {
		return err
	}
	allocated, err := d.bitmap.Get(i)
	if err != nil {
		return err
	}
	if !allocated {
		return errors.ErrBlockFree
	}
	n := copy(dst, d.mapping[offset:offset+d.layout.BlockSize])
	if n < d.layout.BlockSize {
		return errors.ErrInvalidArgs.WithMessage("destination buffer smaller than block size")
	}
	return nil
}

// WriteBlock copies B bytes from src into block i, marking it allocated if
// it was not already, and persists the change.
func (d *Driver) WriteBlock(src []byte, i int) error {
	offset, err := d.blockOffset(i)
	if err != nil {
		return err
	}
	if len(src) < d.layout.BlockSize {
		return errors.ErrInvalidArgs.WithMessage("source buffer smaller than block size")
	}

	wasAllocated, err := d.bitmap.Get(i)
	if err != nil {
		return err
	}
	if !wasAllocated {
		d.freeBlocks--
	}
	if err := d.bitmap.Set(i, 1); err != nil {
		return err
	}
	copy(d.mapping[offset:offset+d.layout.BlockSize], src[:d.layout.BlockSize])

	if err := d.Flush(); err != nil {
		return err
	}

	first, err := d.bitmap.GetFirst(0, 0)
	if err != nil {
		return err
	}
	d.firstFreeBlock = first
	return d.writeHeader()
}

// FreeBlock releases block i back to the free pool.
func (d *Driver) FreeBlock(i int) error {
	if i < 0 || i >= d.numBlocks {
		return errors.ErrOutOfRange
	}
	wasAllocated, err := d.bitmap.Get(i)
	if err != nil {
		return err
	}
	if wasAllocated {
		d.freeBlocks++
	}
	if err := d.bitmap.Set(i, 0); err != nil {
		return err
	}
	if d.firstFreeBlock == -1 || i < d.firstFreeBlock {
		d.firstFreeBlock = i
	}
	if err := d.writeHeader(); err != nil {
		return err
	}
	return d.Flush()
}

// Reset clears every bitmap bit and resets the free-block bookkeeping to a
// brand-new disk's values, without touching any block's data. fs.Format
// uses this before writing a fresh root directory at block 0.
func (d *Driver) Reset() error {
	for i := 0; i < d.numBlocks; i++ {
		if err := d.bitmap.Set(i, 0); err != nil {
			return err
		}
	}
	d.freeBlocks = d.numBlocks
	first, err := d.bitmap.GetFirst(0, 0)
	if err != nil {
		return err
	}
	d.firstFreeBlock = first
	if err := d.writeHeader(); err != nil {
		return err
	}
	return d.Flush()
}

// FirstFree returns the smallest free block index at or after start.
func (d *Driver) FirstFree(start int) (int, error) {
	return d.bitmap.GetFirst(start, 0)
}

// Flush synchronously persists the entire mapping (header, bitmap, data).
func (d *Driver) Flush() error {
	return d.flush(d.mapping)
}

// Destroy releases the mapping and any file descriptor or stream resources,
// and drops the bitmap view.
func (d *Driver) Destroy() error {
	if err := d.Flush(); err != nil {
		return err
	}
	if err := d.closeFn(); err != nil {
		return err
	}
	d.bitmap = nil
	d.mapping = nil
	return nil
}
