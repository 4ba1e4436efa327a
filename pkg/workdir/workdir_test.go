package workdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireCreatesDirectory(t *testing.T) {
	base := t.TempDir()

	w, err := Acquire(base)
	require.NoError(t, err)

	assert.DirExists(t, w.Path())
	assert.Equal(t, base, filepath.Dir(w.Path()))
	w.Release()
}

func TestReleaseRemovesDirectory(t *testing.T) {
	w, err := Acquire(t.TempDir())
	require.NoError(t, err)

	// Steps leave droppings behind; release must remove them too.
	require.NoError(t, os.WriteFile(filepath.Join(w.Path(), "keyring.gpg"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(w.Path(), "extract", "bin"), 0755))

	w.Release()
	assert.NoDirExists(t, w.Path())
}

func TestReleaseIsIdempotent(t *testing.T) {
	w, err := Acquire(t.TempDir())
	require.NoError(t, err)

	w.Release()
	assert.NotPanics(t, w.Release, "second release must be a no-op")
	assert.NoDirExists(t, w.Path())
}

func TestReleaseSurvivesMissingDirectory(t *testing.T) {
	w, err := Acquire(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(w.Path()))
	assert.NotPanics(t, w.Release)
}

func TestAcquireFailsOnBadBase(t *testing.T) {
	_, err := Acquire(filepath.Join(t.TempDir(), "does", "not", "exist"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrWorkdirCreate))
}
