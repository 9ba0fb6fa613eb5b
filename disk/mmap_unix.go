//go:build unix

package disk

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/block-fs/simplefs/errors"
)

// openFileBacking maps the first size bytes of f into memory, read/write,
// shared with the backing file. The returned flush forces dirty pages back
// to disk; close unmaps and releases the file descriptor.
func openFileBacking(f *os.File, size int) ([]byte, func([]byte) error, func() error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, nil, errors.ErrIOFailed.Wrap(err)
	}

	flush := func(mapping []byte) error {
		if err := unix.Msync(mapping, unix.MS_SYNC); err != nil {
			return errors.ErrIOFailed.Wrap(err)
		}
		return nil
	}
	closeFn := func() error {
		if err := unix.Munmap(data); err != nil {
			return errors.ErrIOFailed.Wrap(err)
		}
		return f.Close()
	}
	return data, flush, closeFn, nil
}
