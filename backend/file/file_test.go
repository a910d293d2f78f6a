package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jaime-Moranchel/sfse/backend"
	"github.com/Jaime-Moranchel/sfse/backend/file"
)

func TestCreateFromPathRejectsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.img")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := file.CreateFromPath(path, 4096)
	require.Error(t, err)
}

func TestCreateThenOpenReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.img")

	storage, err := file.CreateFromPath(path, 4096)
	require.NoError(t, err)

	w, err := storage.Writable()
	require.NoError(t, err)
	n, err := w.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.NoError(t, storage.Close())

	ro, err := file.OpenFromPath(path, true)
	require.NoError(t, err)
	defer ro.Close()

	info, err := ro.Stat()
	require.NoError(t, err)
	require.EqualValues(t, 4096, info.Size())

	buf := make([]byte, 5)
	_, err = ro.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), buf)

	_, err = ro.Writable()
	require.ErrorIs(t, err, backend.ErrIncorrectOpenMode)
}
