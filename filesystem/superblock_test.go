package filesystem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jaime-Moranchel/sfse/filesystem"
)

func TestSuperblockEncodeDecodeRoundTrip(t *testing.T) {
	sb := filesystem.Superblock{
		NumBitmapBlocks: 1,
		NumInodeBlocks:  1,
		FileCount:       2,
	}
	copy(sb.DerivationSalt[:], []byte("0123456789abcdef"))
	copy(sb.KeyVerifier[:], []byte("0123456789abcdef0123456789abcdef"))

	buf := sb.Encode(4096)
	require.Len(t, buf, 4096)
	require.True(t, filesystem.IsFormatted(buf))
	require.Equal(t, []byte{0x53, 0x46, 0x53, 0x45}, buf[0:4])

	decoded, err := filesystem.DecodeSuperblock(buf)
	require.NoError(t, err)
	require.Equal(t, sb, decoded)
}

func TestUnformattedBufferIsNotFormatted(t *testing.T) {
	require.False(t, filesystem.IsFormatted(make([]byte, 64)))
}
