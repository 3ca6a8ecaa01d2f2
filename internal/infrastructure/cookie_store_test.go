package infrastructure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCookieStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets", "cookies.txt")
	store := NewFileCookieStore(path)

	assert.Equal(t, path, store.Path())
	assert.False(t, store.Exists())

	require.NoError(t, store.Update("first"))
	assert.True(t, store.Exists())

	require.NoError(t, store.Update("second"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, os.Remove(path))
	assert.False(t, store.Exists(), "presence is never cached")
}

func TestFileCookieStore_Unconfigured(t *testing.T) {
	store := NewFileCookieStore("")

	assert.False(t, store.Exists())
	assert.Error(t, store.Update("x"))
}
