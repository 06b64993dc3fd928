package workdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireTemporary(t *testing.T) {
	t.Parallel()

	path, release, err := Acquire("")
	require.NoError(t, err)
	require.DirExists(t, path)
	require.NoError(t, os.WriteFile(filepath.Join(path, "x.g"), []byte("x"), 0o644))

	require.NoError(t, release())
	assert.NoDirExists(t, path)
}

func TestAcquirePersistent(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	path, release, err := Acquire(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, path)
	require.DirExists(t, dir)

	file := filepath.Join(path, "x.v")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	require.NoError(t, release())
	assert.FileExists(t, file)

	// An existing directory is reused.
	again, release, err := Acquire(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, again)
	require.NoError(t, release())
}

func TestAcquireUnwritable(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, _, err := Acquire(filepath.Join(blocker, "out"))
	assert.Error(t, err)
}
