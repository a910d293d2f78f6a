package filesystem

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jaime-Moranchel/sfse/blockdevice"
	"github.com/Jaime-Moranchel/sfse/blocklayer"
	"github.com/Jaime-Moranchel/sfse/sectorcipher"
	"github.com/Jaime-Moranchel/sfse/testhelper"
)

func TestCheckDiagnoseRepairRoundTrip(t *testing.T) {
	storage := testhelper.NewMemStorage(256 * DefaultBlockSize)
	dev, err := blockdevice.Open(storage, DefaultSectorSize)
	require.NoError(t, err)
	cipher := sectorcipher.New("p", "1234")
	layer, err := blocklayer.New(dev, cipher, DefaultBlockSize)
	require.NoError(t, err)

	fs, err := Format(layer, cipher, "")
	require.NoError(t, err)
	require.NoError(t, fs.CreateFile("a", bytes.NewReader([]byte("hello"))))

	ino, err := fs.readInodeSlot(fs.directory["a"])
	require.NoError(t, err)
	block := ino.Direct[0]

	// Simulate a torn write: clear the bitmap bit for a block an inode
	// still references.
	require.NoError(t, fs.setBitmapBit(block, false))

	divergences, err := fs.Check()
	require.NoError(t, err)
	require.Len(t, divergences, 1)
	require.Equal(t, block, divergences[0].Block)
	require.Equal(t, "a", divergences[0].ReferencedBy)
	require.False(t, divergences[0].BitmapSet)

	out, err := fs.Diagnose(divergences[0])
	require.NoError(t, err)
	require.NotEmpty(t, out)

	require.NoError(t, fs.Repair())
	divergences, err = fs.Check()
	require.NoError(t, err)
	require.Empty(t, divergences)
}

func TestDiagnoseRejectsBlockBeforeDataRegion(t *testing.T) {
	storage := testhelper.NewMemStorage(256 * DefaultBlockSize)
	dev, err := blockdevice.Open(storage, DefaultSectorSize)
	require.NoError(t, err)
	cipher := sectorcipher.New("p", "1234")
	layer, err := blocklayer.New(dev, cipher, DefaultBlockSize)
	require.NoError(t, err)

	fs, err := Format(layer, cipher, "")
	require.NoError(t, err)

	_, err = fs.Diagnose(Divergence{Block: 0})
	require.Error(t, err)
}
