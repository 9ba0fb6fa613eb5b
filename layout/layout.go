// Package layout defines the fixed-size, byte-exact records SimpleFS stores
// on disk: the DiskHeader, the per-block BlockHeader, the FileControlBlock
// embedded in every object's first block, and the four block shapes
// (FirstFileBlock, FileBlock, FirstDirectoryBlock, DirectoryBlock) built out
// of those pieces.
//
// Every record here is fixed-size and value-copyable; none of them hold
// pointers into the backing store. A Layout computed from a single block
// size governs how many directory-entry slots and how much file data fit in
// each block shape, exactly as spec'd: B and the entry counts derived from
// it are part of the on-disk format contract, so a disk created with one
// block size cannot be read with another.
package layout

import (
	"bytes"
	"encoding/binary"

	"github.com/block-fs/simplefs/errors"
	"github.com/noxer/bytewriter"
)

// NoBlock is the sentinel used in previous_block/next_block/directory_block
// fields to mean "none". Directory entry slots use 0, not NoBlock, for
// "empty".
const NoBlock = int32(-1)

// MaxNameLength is the longest file or directory name SimpleFS can store,
// in bytes. NameFieldSize reserves one extra byte for the NUL terminator.
const MaxNameLength = 128
const NameFieldSize = MaxNameLength + 1

// Fixed encoded sizes of the prefix records, in bytes.
const (
	DiskHeaderSize       = 4 + 4 + 4                    // NumBlocks, FreeBlocks, FirstFreeBlock
	BlockHeaderSize      = 4 + 4 + 4                    // PreviousBlock, NextBlock, BlockInFile
	FileControlBlockSize = 4 + 4 + NameFieldSize + 4 + 4 + 4
)

// DiskHeader is the first DiskHeaderSize bytes of the backing file.
type DiskHeader struct {
	NumBlocks      int32
	FreeBlocks     int32
	FirstFreeBlock int32
}

// MarshalBinary encodes the header in the little-endian field order spec'd
// for the backing file.
func (h DiskHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DiskHeaderSize)
	w := bytewriter.New(buf)
	for _, field := range []int32{h.NumBlocks, h.FreeBlocks, h.FirstFreeBlock} {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return nil, errors.ErrIOFailed.Wrap(err)
		}
	}
	return buf, nil
}

// UnmarshalBinary decodes a DiskHeader from its on-disk representation.
func (h *DiskHeader) UnmarshalBinary(data []byte) error {
	if len(data) < DiskHeaderSize {
		return errors.ErrIOFailed.WithMessage("short disk header")
	}
	r := bytes.NewReader(data)
	return binary.Read(r, binary.LittleEndian, h)
}

// BlockHeader prefixes every data-area block.
type BlockHeader struct {
	PreviousBlock int32
	NextBlock     int32
	BlockInFile   int32
}

func (h BlockHeader) marshalInto(w *bytewriter.Writer) error {
	for _, field := range []int32{h.PreviousBlock, h.NextBlock, h.BlockInFile} {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return errors.ErrIOFailed.Wrap(err)
		}
	}
	return nil
}

func unmarshalBlockHeader(r *bytes.Reader) (BlockHeader, error) {
	var h BlockHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return BlockHeader{}, errors.ErrIOFailed.Wrap(err)
	}
	return h, nil
}

// FileControlBlock is the metadata record embedded in the first block of
// every file or directory.
type FileControlBlock struct {
	DirectoryBlock int32
	BlockInDisk    int32
	Name           string
	SizeInBytes    int32
	SizeInBlocks   int32
	IsDir          bool
}

func encodeName(name string) ([NameFieldSize]byte, error) {
	var out [NameFieldSize]byte
	raw := []byte(name)
	if len(raw) > MaxNameLength {
		return out, errors.ErrInvalidArgs.WithMessage("name exceeds maximum length")
	}
	copy(out[:], raw)
	return out, nil
}

func decodeName(raw [NameFieldSize]byte) string {
	n := bytes.IndexByte(raw[:], 0)
	if n < 0 {
		n = len(raw)
	}
	return string(raw[:n])
}

func (fcb FileControlBlock) marshalInto(w *bytewriter.Writer) error {
	name, err := encodeName(fcb.Name)
	if err != nil {
		return err
	}

	isDir := int32(0)
	if fcb.IsDir {
		isDir = 1
	}

	if err := binary.Write(w, binary.LittleEndian, fcb.DirectoryBlock); err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	if err := binary.Write(w, binary.LittleEndian, fcb.BlockInDisk); err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	if err := binary.Write(w, binary.LittleEndian, name); err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	if err := binary.Write(w, binary.LittleEndian, fcb.SizeInBytes); err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	if err := binary.Write(w, binary.LittleEndian, fcb.SizeInBlocks); err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	return binary.Write(w, binary.LittleEndian, isDir)
}

func unmarshalFileControlBlock(r *bytes.Reader) (FileControlBlock, error) {
	var raw struct {
		DirectoryBlock int32
		BlockInDisk    int32
		Name           [NameFieldSize]byte
		SizeInBytes    int32
		SizeInBlocks   int32
		IsDir          int32
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return FileControlBlock{}, errors.ErrIOFailed.Wrap(err)
	}
	return FileControlBlock{
		DirectoryBlock: raw.DirectoryBlock,
		BlockInDisk:    raw.BlockInDisk,
		Name:           decodeName(raw.Name),
		SizeInBytes:    raw.SizeInBytes,
		SizeInBlocks:   raw.SizeInBlocks,
		IsDir:          raw.IsDir != 0,
	}, nil
}

// FirstFileBlock is the head of a regular file's block chain.
type FirstFileBlock struct {
	Header BlockHeader
	FCB    FileControlBlock
	Data   []byte
}

// FileBlock is a continuation block of a regular file's chain.
type FileBlock struct {
	Header BlockHeader
	Data   []byte
}

// FirstDirectoryBlock is the head of a directory's block chain.
type FirstDirectoryBlock struct {
	Header     BlockHeader
	FCB        FileControlBlock
	NumEntries int32
	Entries    []int32
}

// DirectoryBlock is a continuation block of a directory's chain.
type DirectoryBlock struct {
	Header  BlockHeader
	Entries []int32
}

// ObjectHeader decodes just the BlockHeader and FileControlBlock prefix
// shared by FirstFileBlock and FirstDirectoryBlock, without caring which
// shape the rest of the block is. open_file, find_dir, and readdir only
// ever need the name and is_dir bit out of a candidate first block, so they
// use this instead of fully decoding a FirstFileBlock or
// FirstDirectoryBlock.
func (l Layout) ObjectHeader(data []byte) (BlockHeader, FileControlBlock, error) {
	if len(data) != l.BlockSize {
		return BlockHeader{}, FileControlBlock{}, errors.ErrIOFailed.WithMessage("wrong block size")
	}
	r := bytes.NewReader(data)

	header, err := unmarshalBlockHeader(r)
	if err != nil {
		return BlockHeader{}, FileControlBlock{}, err
	}
	fcb, err := unmarshalFileControlBlock(r)
	if err != nil {
		return BlockHeader{}, FileControlBlock{}, err
	}
	return header, fcb, nil
}

// Layout derives the per-block-size geometry of every record shape: how
// many bytes of file data fit in a first block versus a continuation block,
// and how many directory entry slots fit in a first directory block versus
// a continuation block. Nd and Nd' from spec.md are
// FirstDirectoryEntryCount and DirectoryEntryCount here.
type Layout struct {
	BlockSize int
}

// New validates and returns a Layout for the given block size. The block
// size must be large enough to hold at least a BlockHeader, a
// FileControlBlock, and one directory entry slot -- otherwise no shape
// derived from it could ever hold anything.
func New(blockSize int) (Layout, error) {
	minSize := BlockHeaderSize + FileControlBlockSize + 4 + 4 // num_entries + one entry slot
	if blockSize < minSize {
		return Layout{}, errors.ErrInvalidArgs.WithMessage(
			"block size too small to hold a directory header and one entry")
	}
	return Layout{BlockSize: blockSize}, nil
}

// FirstFileDataCapacity is the number of file-data bytes a FirstFileBlock
// can hold.
func (l Layout) FirstFileDataCapacity() int {
	return l.BlockSize - BlockHeaderSize - FileControlBlockSize
}

// FileDataCapacity is the number of file-data bytes a continuation
// FileBlock can hold.
func (l Layout) FileDataCapacity() int {
	return l.BlockSize - BlockHeaderSize
}

// FirstDirectoryEntryCount is Nd: the number of entry slots in a
// FirstDirectoryBlock.
func (l Layout) FirstDirectoryEntryCount() int {
	return (l.BlockSize - BlockHeaderSize - FileControlBlockSize - 4) / 4
}

// DirectoryEntryCount is Nd': the number of entry slots in a continuation
// DirectoryBlock.
func (l Layout) DirectoryEntryCount() int {
	return (l.BlockSize - BlockHeaderSize) / 4
}

func (l Layout) newBuffer() ([]byte, *bytewriter.Writer) {
	buf := make([]byte, l.BlockSize)
	return buf, bytewriter.New(buf)
}

// MarshalFirstFileBlock encodes a FirstFileBlock as one block-sized buffer.
func (l Layout) MarshalFirstFileBlock(b FirstFileBlock) ([]byte, error) {
	buf, w := l.newBuffer()
	if err := b.Header.marshalInto(w); err != nil {
		return nil, err
	}
	if err := b.FCB.marshalInto(w); err != nil {
		return nil, err
	}

	capacity := l.FirstFileDataCapacity()
	if len(b.Data) > capacity {
		return nil, errors.ErrInvalidArgs.WithMessage("file data exceeds first-block capacity")
	}
	if _, err := w.Write(b.Data); err != nil {
		return nil, errors.ErrIOFailed.Wrap(err)
	}
	return buf, nil
}

// UnmarshalFirstFileBlock decodes a FirstFileBlock from a block-sized
// buffer.
func (l Layout) UnmarshalFirstFileBlock(data []byte) (FirstFileBlock, error) {
	if len(data) != l.BlockSize {
		return FirstFileBlock{}, errors.ErrIOFailed.WithMessage("wrong block size")
	}
	r := bytes.NewReader(data)

	header, err := unmarshalBlockHeader(r)
	if err != nil {
		return FirstFileBlock{}, err
	}
	fcb, err := unmarshalFileControlBlock(r)
	if err != nil {
		return FirstFileBlock{}, err
	}

	fileData := make([]byte, l.FirstFileDataCapacity())
	if _, err := r.Read(fileData); err != nil {
		return FirstFileBlock{}, errors.ErrIOFailed.Wrap(err)
	}
	return FirstFileBlock{Header: header, FCB: fcb, Data: fileData}, nil
}

// MarshalFileBlock encodes a continuation FileBlock.
func (l Layout) MarshalFileBlock(b FileBlock) ([]byte, error) {
	buf, w := l.newBuffer()
	if err := b.Header.marshalInto(w); err != nil {
		return nil, err
	}

	capacity := l.FileDataCapacity()
	if len(b.Data) > capacity {
		return nil, errors.ErrInvalidArgs.WithMessage("file data exceeds block capacity")
	}
	if _, err := w.Write(b.Data); err != nil {
		return nil, errors.ErrIOFailed.Wrap(err)
	}
	return buf, nil
}

// UnmarshalFileBlock decodes a continuation FileBlock.
func (l Layout) UnmarshalFileBlock(data []byte) (FileBlock, error) {
	if len(data) != l.BlockSize {
		return FileBlock{}, errors.ErrIOFailed.WithMessage("wrong block size")
	}
	r := bytes.NewReader(data)

	header, err := unmarshalBlockHeader(r)
	if err != nil {
		return FileBlock{}, err
	}

	fileData := make([]byte, l.FileDataCapacity())
	if _, err := r.Read(fileData); err != nil {
		return FileBlock{}, errors.ErrIOFailed.Wrap(err)
	}
	return FileBlock{Header: header, Data: fileData}, nil
}

// MarshalFirstDirectoryBlock encodes a FirstDirectoryBlock.
func (l Layout) MarshalFirstDirectoryBlock(b FirstDirectoryBlock) ([]byte, error) {
	buf, w := l.newBuffer()
	if err := b.Header.marshalInto(w); err != nil {
		return nil, err
	}
	if err := b.FCB.marshalInto(w); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, b.NumEntries); err != nil {
		return nil, errors.ErrIOFailed.Wrap(err)
	}

	entries := padEntries(b.Entries, l.FirstDirectoryEntryCount())
	if err := binary.Write(w, binary.LittleEndian, entries); err != nil {
		return nil, errors.ErrIOFailed.Wrap(err)
	}
	return buf, nil
}

// UnmarshalFirstDirectoryBlock decodes a FirstDirectoryBlock.
func (l Layout) UnmarshalFirstDirectoryBlock(data []byte) (FirstDirectoryBlock, error) {
	if len(data) != l.BlockSize {
		return FirstDirectoryBlock{}, errors.ErrIOFailed.WithMessage("wrong block size")
	}
	r := bytes.NewReader(data)

	header, err := unmarshalBlockHeader(r)
	if err != nil {
		return FirstDirectoryBlock{}, err
	}
	fcb, err := unmarshalFileControlBlock(r)
	if err != nil {
		return FirstDirectoryBlock{}, err
	}

	var numEntries int32
	if err := binary.Read(r, binary.LittleEndian, &numEntries); err != nil {
		return FirstDirectoryBlock{}, errors.ErrIOFailed.Wrap(err)
	}

	entries := make([]int32, l.FirstDirectoryEntryCount())
	if err := binary.Read(r, binary.LittleEndian, &entries); err != nil {
		return FirstDirectoryBlock{}, errors.ErrIOFailed.Wrap(err)
	}

	return FirstDirectoryBlock{
		Header:     header,
		FCB:        fcb,
		NumEntries: numEntries,
		Entries:    entries,
	}, nil
}

// MarshalDirectoryBlock encodes a continuation DirectoryBlock.
func (l Layout) MarshalDirectoryBlock(b DirectoryBlock) ([]byte, error) {
	buf, w := l.newBuffer()
	if err := b.Header.marshalInto(w); err != nil {
		return nil, err
	}

	entries := padEntries(b.Entries, l.DirectoryEntryCount())
	if err := binary.Write(w, binary.LittleEndian, entries); err != nil {
		return nil, errors.ErrIOFailed.Wrap(err)
	}
	return buf, nil
}

// UnmarshalDirectoryBlock decodes a continuation DirectoryBlock.
func (l Layout) UnmarshalDirectoryBlock(data []byte) (DirectoryBlock, error) {
	if len(data) != l.BlockSize {
		return DirectoryBlock{}, errors.ErrIOFailed.WithMessage("wrong block size")
	}
	r := bytes.NewReader(data)

	header, err := unmarshalBlockHeader(r)
	if err != nil {
		return DirectoryBlock{}, err
	}

	entries := make([]int32, l.DirectoryEntryCount())
	if err := binary.Read(r, binary.LittleEndian, &entries); err != nil {
		return DirectoryBlock{}, errors.ErrIOFailed.Wrap(err)
	}

	return DirectoryBlock{Header: header, Entries: entries}, nil
}

// padEntries returns a slice of exactly n entries, zero-filled past len(src).
// Slot value 0 means "empty" per spec.md; NoBlock (-1) is reserved for
// previous/next/directory_block links, never for an entry slot.
func padEntries(src []int32, n int) []int32 {
	out := make([]int32, n)
	copy(out, src)
	return out
}
