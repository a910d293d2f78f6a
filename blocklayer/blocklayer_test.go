package blocklayer_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jaime-Moranchel/sfse/blockdevice"
	"github.com/Jaime-Moranchel/sfse/blocklayer"
	"github.com/Jaime-Moranchel/sfse/sectorcipher"
	"github.com/Jaime-Moranchel/sfse/testhelper"
)

func newLayer(t *testing.T, numBlocks int) *blocklayer.BlockLayer {
	t.Helper()
	const blockSize = 4096
	storage := testhelper.NewMemStorage(int64(numBlocks * blockSize))
	dev, err := blockdevice.Open(storage, 512)
	require.NoError(t, err)

	cipher := sectorcipher.New("p", "1234")
	require.NoError(t, cipher.Rekey(bytes.Repeat([]byte{0x07}, sectorcipher.SaltSize)))

	layer, err := blocklayer.New(dev, cipher, blockSize)
	require.NoError(t, err)
	return layer
}

func TestBlockZeroIsPlaintext(t *testing.T) {
	layer := newLayer(t, 4)
	plaintext := bytes.Repeat([]byte{0xAB}, layer.BlockSize())
	require.NoError(t, layer.WriteBlock(0, plaintext))

	got, err := layer.ReadBlock(0)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestNonZeroBlockRoundTripsThroughCipher(t *testing.T) {
	layer := newLayer(t, 4)
	plaintext := bytes.Repeat([]byte{0xCD}, layer.BlockSize())
	require.NoError(t, layer.WriteBlock(1, plaintext))

	got, err := layer.ReadBlock(1)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestShortWriteIsZeroPadded(t *testing.T) {
	layer := newLayer(t, 4)
	short := []byte("hello")
	require.NoError(t, layer.WriteBlock(2, short))

	got, err := layer.ReadBlock(2)
	require.NoError(t, err)
	require.Len(t, got, layer.BlockSize())
	require.True(t, bytes.HasPrefix(got, short))
	require.True(t, bytes.Equal(got[len(short):], make([]byte, layer.BlockSize()-len(short))))
}

func TestIdenticalPlaintextDiffersAcrossBlocks(t *testing.T) {
	const blockSize = 4096
	storage := testhelper.NewMemStorage(4 * blockSize)
	dev, err := blockdevice.Open(storage, 512)
	require.NoError(t, err)
	cipher := sectorcipher.New("p", "1234")
	require.NoError(t, cipher.Rekey(bytes.Repeat([]byte{0x07}, sectorcipher.SaltSize)))
	layer, err := blocklayer.New(dev, cipher, blockSize)
	require.NoError(t, err)

	plaintext := bytes.Repeat([]byte{0x00}, blockSize)
	require.NoError(t, layer.WriteBlock(1, plaintext))
	require.NoError(t, layer.WriteBlock(2, plaintext))

	raw1, err := dev.Read(1*(blockSize/512), blockSize)
	require.NoError(t, err)
	raw2, err := dev.Read(2*(blockSize/512), blockSize)
	require.NoError(t, err)
	require.NotEqual(t, raw1, raw2)
}
