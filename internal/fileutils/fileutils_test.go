package fileutils_test

import (
	"os"
	"path/filepath"
	"testing"

	"softetsolutions/mattax/internal/fileutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("test"), 0600))

	assert.True(t, fileutils.FileExists(testFile))
	assert.False(t, fileutils.FileExists(filepath.Join(tmpDir, "nonexistent.txt")))
	assert.False(t, fileutils.FileExists(tmpDir))
}

func TestDirectoryExists(t *testing.T) {
	tmpDir := t.TempDir()
	assert.True(t, fileutils.DirectoryExists(tmpDir))
	assert.False(t, fileutils.DirectoryExists(filepath.Join(tmpDir, "missing")))
}

func TestEnsureDirectoryExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, fileutils.EnsureDirectoryExists(dir))
	assert.True(t, fileutils.DirectoryExists(dir))
	require.NoError(t, fileutils.EnsureDirectoryExists(dir))
}

func TestReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	full := filepath.Join(tmpDir, "full.jpg")
	empty := filepath.Join(tmpDir, "empty.jpg")
	require.NoError(t, os.WriteFile(full, []byte("data"), 0600))
	require.NoError(t, os.WriteFile(empty, nil, 0600))

	data, err := fileutils.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	_, err = fileutils.ReadFile(empty)
	assert.ErrorContains(t, err, "file is empty")

	_, err = fileutils.ReadFile(filepath.Join(tmpDir, "missing.jpg"))
	assert.ErrorContains(t, err, "file does not exist")
}

func TestWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out", "report.csv")

	require.NoError(t, fileutils.WriteFile(path, []byte("first"), 0600))
	require.NoError(t, fileutils.WriteFile(path, []byte("second"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
