package blockdevice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsBlockDeviceFalseForRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.img")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.False(t, isBlockDevice(f))
}

func TestIsBlockDeviceFalseAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.img")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	f, err := os.Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.False(t, isBlockDevice(f))
}
