//go:build !unix

package disk

import (
	"os"

	"github.com/block-fs/simplefs/errors"
)

// openFileBacking is the portable fallback for platforms without a real
// mmap syscall wired up (golang.org/x/sys/unix is unix-only): it reads the
// whole region into a plain heap buffer and writes it back explicitly on
// flush instead of relying on the kernel to flush mapped pages.
func openFileBacking(f *os.File, size int) ([]byte, func([]byte) error, func() error, error) {
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, nil, nil, errors.ErrIOFailed.Wrap(err)
	}

	flush := func(mapping []byte) error {
		if _, err := f.WriteAt(mapping, 0); err != nil {
			return errors.ErrIOFailed.Wrap(err)
		}
		return f.Sync()
	}
	closeFn := func() error {
		return f.Close()
	}
	return data, flush, closeFn, nil
}
