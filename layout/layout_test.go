package layout_test

import (
	"testing"

	"github.com/block-fs/simplefs/errors"
	"github.com/block-fs/simplefs/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsTooSmallBlockSize(t *testing.T) {
	_, err := layout.New(8)
	assert.ErrorIs(t, err, errors.ErrInvalidArgs)
}

func TestFirstFileBlockRoundTrip(t *testing.T) {
	l, err := layout.New(256)
	require.NoError(t, err)

	data := make([]byte, l.FirstFileDataCapacity())
	copy(data, []byte("hello world"))

	block := layout.FirstFileBlock{
		Header: layout.BlockHeader{PreviousBlock: layout.NoBlock, NextBlock: 5, BlockInFile: 0},
		FCB: layout.FileControlBlock{
			DirectoryBlock: 1,
			BlockInDisk:    2,
			Name:           "report.txt",
			SizeInBytes:    11,
			SizeInBlocks:   1,
			IsDir:          false,
		},
		Data: data,
	}

	raw, err := l.MarshalFirstFileBlock(block)
	require.NoError(t, err)
	assert.Len(t, raw, 256)

	decoded, err := l.UnmarshalFirstFileBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, block.Header, decoded.Header)
	assert.Equal(t, block.FCB, decoded.FCB)
	assert.Equal(t, data, decoded.Data)
}

func TestFirstFileBlockRejectsOversizedData(t *testing.T) {
	l, err := layout.New(256)
	require.NoError(t, err)

	block := layout.FirstFileBlock{
		Data: make([]byte, l.FirstFileDataCapacity()+1),
	}
	_, err = l.MarshalFirstFileBlock(block)
	assert.ErrorIs(t, err, errors.ErrInvalidArgs)
}

func TestFileBlockRoundTrip(t *testing.T) {
	l, err := layout.New(256)
	require.NoError(t, err)

	data := make([]byte, l.FileDataCapacity())
	copy(data, []byte("continuation payload"))

	block := layout.FileBlock{
		Header: layout.BlockHeader{PreviousBlock: 0, NextBlock: layout.NoBlock, BlockInFile: 1},
		Data:   data,
	}

	raw, err := l.MarshalFileBlock(block)
	require.NoError(t, err)

	decoded, err := l.UnmarshalFileBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, block.Header, decoded.Header)
	assert.Equal(t, data, decoded.Data)
}

func TestFirstDirectoryBlockRoundTrip(t *testing.T) {
	l, err := layout.New(256)
	require.NoError(t, err)

	entries := make([]int32, l.FirstDirectoryEntryCount())
	entries[0] = 3
	entries[1] = 4

	block := layout.FirstDirectoryBlock{
		Header: layout.BlockHeader{PreviousBlock: layout.NoBlock, NextBlock: layout.NoBlock, BlockInFile: 0},
		FCB: layout.FileControlBlock{
			DirectoryBlock: layout.NoBlock,
			BlockInDisk:    0,
			Name:           "",
			SizeInBytes:    0,
			SizeInBlocks:   1,
			IsDir:          true,
		},
		NumEntries: 2,
		Entries:    entries,
	}

	raw, err := l.MarshalFirstDirectoryBlock(block)
	require.NoError(t, err)

	decoded, err := l.UnmarshalFirstDirectoryBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, block.Header, decoded.Header)
	assert.Equal(t, block.FCB, decoded.FCB)
	assert.Equal(t, block.NumEntries, decoded.NumEntries)
	assert.Equal(t, entries, decoded.Entries)
}

func TestDirectoryBlockRoundTrip(t *testing.T) {
	l, err := layout.New(256)
	require.NoError(t, err)

	entries := make([]int32, l.DirectoryEntryCount())
	entries[0] = 9

	block := layout.DirectoryBlock{
		Header:  layout.BlockHeader{PreviousBlock: 0, NextBlock: layout.NoBlock, BlockInFile: 1},
		Entries: entries,
	}

	raw, err := l.MarshalDirectoryBlock(block)
	require.NoError(t, err)

	decoded, err := l.UnmarshalDirectoryBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, block.Header, decoded.Header)
	assert.Equal(t, entries, decoded.Entries)
}

func TestNameRoundTripAtMaxLength(t *testing.T) {
	l, err := layout.New(512)
	require.NoError(t, err)

	longName := make([]byte, layout.MaxNameLength)
	for i := range longName {
		longName[i] = 'a'
	}

	block := layout.FirstFileBlock{
		FCB: layout.FileControlBlock{Name: string(longName)},
	}
	raw, err := l.MarshalFirstFileBlock(block)
	require.NoError(t, err)

	decoded, err := l.UnmarshalFirstFileBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, string(longName), decoded.FCB.Name)
}

func TestNameTooLongRejected(t *testing.T) {
	l, err := layout.New(512)
	require.NoError(t, err)

	tooLong := make([]byte, layout.MaxNameLength+1)
	block := layout.FirstFileBlock{
		FCB: layout.FileControlBlock{Name: string(tooLong)},
	}
	_, err = l.MarshalFirstFileBlock(block)
	assert.ErrorIs(t, err, errors.ErrInvalidArgs)
}

func TestUnmarshalRejectsWrongBlockSize(t *testing.T) {
	l, err := layout.New(256)
	require.NoError(t, err)

	_, err = l.UnmarshalFileBlock(make([]byte, 255))
	assert.ErrorIs(t, err, errors.ErrIOFailed)
}

func TestObjectHeaderReadsCommonPrefix(t *testing.T) {
	l, err := layout.New(256)
	require.NoError(t, err)

	block := layout.FirstFileBlock{
		Header: layout.BlockHeader{PreviousBlock: layout.NoBlock, NextBlock: layout.NoBlock, BlockInFile: 0},
		FCB: layout.FileControlBlock{
			DirectoryBlock: 0,
			BlockInDisk:    4,
			Name:           "notes.txt",
			SizeInBytes:    0,
			SizeInBlocks:   1,
			IsDir:          false,
		},
		Data: make([]byte, l.FirstFileDataCapacity()),
	}

	raw, err := l.MarshalFirstFileBlock(block)
	require.NoError(t, err)

	header, fcb, err := l.ObjectHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, block.Header, header)
	assert.Equal(t, block.FCB, fcb)
}
