// Package errors defines the error kinds raised by every other package in
// this module. It lives at the bottom of the import graph so bitmap, layout,
// and disk can all return errors the root package recognizes without
// creating an import cycle back to it.
package errors

import "fmt"

// DriverError is the error interface returned by every operation in this
// module. It behaves like a normal Go error but also supports attaching
// context without losing the ability to test against the original sentinel
// with errors.Is.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

// customDriverError carries a human-readable message plus up to two things
// errors.Is should recognize: the sentinel kind it derives from, and (for
// Wrap) the error it wraps. Both are reachable via Unwrap so chains built
// from either WithMessage or Wrap stay transparent to errors.Is/errors.As.
type customDriverError struct {
	message string
	kind    error
	cause   error
}

func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message: fmt.Sprintf("%s: %s", e.message, message),
		kind:    e,
	}
}

func (e customDriverError) Wrap(err error) DriverError {
	return customDriverError{
		message: fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		kind:    e,
		cause:   err,
	}
}

func (e customDriverError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}
