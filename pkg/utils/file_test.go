package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stale", "nested"), 0o755))

	require.NoError(t, ClearFolder(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.DirExists(t, dir)
}

func TestClearFolderMissing(t *testing.T) {
	assert.Error(t, ClearFolder(filepath.Join(t.TempDir(), "missing")))
}

func TestPrepareFolderCreates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")

	require.NoError(t, PrepareFolder(dir))
	assert.DirExists(t, dir)
}
