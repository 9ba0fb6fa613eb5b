package errors

import "fmt"

// SimplefsError is a sentinel error kind, one per row of the error table in
// the design: every fallible operation in bitmap, layout, disk, and the root
// package returns one of these (optionally wrapped with extra context via
// WithMessage or Wrap).
type SimplefsError string

const ErrOutOfRange = SimplefsError("invalid block or position")
const ErrBlockFree = SimplefsError("block not allocated")
const ErrDiskFull = SimplefsError("no free blocks")
const ErrNotFound = SimplefsError("no such entry")
const ErrExists = SimplefsError("name already in use")
const ErrAtRoot = SimplefsError("already at root")
const ErrInvalidArgs = SimplefsError("invalid arguments")
const ErrIOFailed = SimplefsError("storage error")

// ErrCorrupt is raised when a next_block chain is found to contain a cycle
// or otherwise violates the acyclic block-graph invariant. The original spec
// does not name this kind explicitly but requires rejecting such disks.
const ErrCorrupt = SimplefsError("corrupt on-disk structure")

func (e SimplefsError) Error() string {
	return string(e)
}

func (e SimplefsError) WithMessage(message string) DriverError {
	return customDriverError{
		message: fmt.Sprintf("%s: %s", string(e), message),
		kind:    e,
	}
}

func (e SimplefsError) Wrap(err error) DriverError {
	return customDriverError{
		message: fmt.Sprintf("%s: %s", string(e), err.Error()),
		kind:    e,
		cause:   err,
	}
}
