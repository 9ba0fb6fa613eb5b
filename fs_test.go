package simplefs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/block-fs/simplefs/internal/simplefstest"
)

func TestFormatThenInitProducesEmptyRoot(t *testing.T) {
	fs, root := simplefstest.NewFS(t, 1000, 256)

	assert.Equal(t, "/", root.Name())
	assert.True(t, root.IsRoot())

	names, err := fs.Readdir(root)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFormatIsIdempotent(t *testing.T) {
	fs, root := simplefstest.NewFS(t, 200, 256)

	_, err := fs.CreateFile(root, "a.txt")
	require.NoError(t, err)

	require.NoError(t, fs.Format())
	require.NoError(t, fs.Format())

	freshRoot, err := fs.Root()
	require.NoError(t, err)

	names, err := fs.Readdir(freshRoot)
	require.NoError(t, err)
	assert.Empty(t, names, "formatting twice must leave a fresh, empty root both times")
}
