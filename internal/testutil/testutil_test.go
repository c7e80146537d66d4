package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.NotEmpty(t, root)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestGetProjectRootValidated(t *testing.T) {
	root, err := GetProjectRootValidated()
	require.NoError(t, err)
	assert.True(t, DirExists(filepath.Join(root, "internal")))

	require.Error(t, ValidateProjectRoot(t.TempDir()))
}

func TestEnsureDir(t *testing.T) {
	testDir := filepath.Join(t.TempDir(), "test", "nested", "dir")

	err := EnsureDir(testDir)
	require.NoError(t, err)
	assert.True(t, DirExists(testDir))
}

func TestFileExists(t *testing.T) {
	// Test with non-existent file
	assert.False(t, FileExists("/non/existent/file"))

	path := WriteFile(t, t.TempDir(), "sub/file.txt", []byte("x"))
	assert.True(t, FileExists(path))
	assert.False(t, DirExists(path))
}

func TestEncodeNPY(t *testing.T) {
	data := MustEncodeNPY(t, "<i8", "(2,)", []int64{5, 6})

	assert.True(t, bytes.HasPrefix(data, []byte("\x93NUMPY\x01\x00")))
	headerLen := binary.LittleEndian.Uint16(data[8:10])
	assert.Zero(t, (10+int(headerLen))%64, "data must start on a 64-byte boundary")
	assert.Len(t, data, 10+int(headerLen)+16)
	assert.Contains(t, string(data[10:10+headerLen]), "'shape': (2,)")

	_, err := EncodeNPY("<i8", "(1,)", "not numeric")
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, t.TempDir(), "a.txt", []byte("hello"))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}
