package filesystem_test

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/Jaime-Moranchel/sfse/filesystem"
)

func TestInodeEncodeDecodeRoundTrip(t *testing.T) {
	ino := filesystem.Inode{
		Valid:  true,
		Size:   12345,
		Name:   "hello.txt",
		Direct: [filesystem.DirectPointers]uint32{10, 11, 0, 0},
	}
	buf := ino.Encode()
	require.Len(t, buf, filesystem.InodeSize)

	decoded, err := filesystem.DecodeInode(buf, 0)
	require.NoError(t, err)
	require.Equal(t, ino, decoded)
}

func TestInodeInvalidityByteAnyNonOneMeansInvalid(t *testing.T) {
	ino := filesystem.Inode{Valid: false, Name: "x"}
	buf := ino.Encode()
	require.Equal(t, byte(0), buf[0])

	decoded, err := filesystem.DecodeInode(buf, 1)
	require.NoError(t, err)
	require.False(t, decoded.Valid)
}

func TestNonZeroDirectStopsAtFirstZero(t *testing.T) {
	ino := filesystem.Inode{Direct: [filesystem.DirectPointers]uint32{5, 6, 0, 9}}
	require.Equal(t, []uint32{5, 6}, ino.NonZeroDirect())
}

func TestTruncateNameRespectsRuneBoundaries(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "é"
	}
	truncated := filesystem.TruncateName(long)
	require.LessOrEqual(t, len(truncated), filesystem.MaxNameBytes)
	require.True(t, utf8.ValidString(truncated))
}

func TestDecodeInodeRejectsWrongLength(t *testing.T) {
	_, err := filesystem.DecodeInode(make([]byte, 10), 0)
	require.Error(t, err)
}
