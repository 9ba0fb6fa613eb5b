package simplefs

import "github.com/block-fs/simplefs/errors"

// Error kinds from spec.md 7, re-exported so callers can write
// simplefs.ErrNotFound instead of reaching into the errors subpackage.
var (
	ErrOutOfRange  = errors.ErrOutOfRange
	ErrBlockFree   = errors.ErrBlockFree
	ErrDiskFull    = errors.ErrDiskFull
	ErrNotFound    = errors.ErrNotFound
	ErrExists      = errors.ErrExists
	ErrAtRoot      = errors.ErrAtRoot
	ErrInvalidArgs = errors.ErrInvalidArgs
	ErrIOFailed    = errors.ErrIOFailed
	ErrCorrupt     = errors.ErrCorrupt
)
