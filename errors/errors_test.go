package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/block-fs/simplefs/errors"
	"github.com/stretchr/testify/assert"
)

func TestSimplefsErrorWithMessage(t *testing.T) {
	newErr := errors.ErrNotFound.WithMessage("pluto")
	assert.Equal(t, "no such entry: pluto", newErr.Error())
	assert.ErrorIs(t, newErr, errors.ErrNotFound)
}

func TestSimplefsErrorWrap(t *testing.T) {
	originalErr := stderrors.New("open: permission denied")
	newErr := errors.ErrIOFailed.Wrap(originalErr)

	assert.Equal(t, "storage error: open: permission denied", newErr.Error())
	assert.ErrorIs(t, newErr, originalErr)
	assert.ErrorIs(t, newErr, errors.ErrIOFailed)
}

func TestErrorIsDistinguishesKinds(t *testing.T) {
	err := errors.ErrExists.WithMessage("a.txt")
	assert.ErrorIs(t, err, errors.ErrExists)
	assert.NotErrorIs(t, err, errors.ErrNotFound)
}
