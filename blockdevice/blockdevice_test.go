package blockdevice_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jaime-Moranchel/sfse/blockdevice"
	"github.com/Jaime-Moranchel/sfse/testhelper"
)

func TestOpenRejectsNonMultipleSize(t *testing.T) {
	storage := testhelper.NewMemStorage(1000)
	_, err := blockdevice.Open(storage, 512)
	require.Error(t, err)
}

func TestOpenRejectsZeroSectorSize(t *testing.T) {
	storage := testhelper.NewMemStorage(1024)
	_, err := blockdevice.Open(storage, 0)
	require.Error(t, err)
}

func TestReadWriteRoundTrip(t *testing.T) {
	storage := testhelper.NewMemStorage(4096)
	dev, err := blockdevice.Open(storage, 512)
	require.NoError(t, err)
	require.Equal(t, 512, dev.SectorSize())
	require.EqualValues(t, 4096, dev.DiskSize())
	require.EqualValues(t, 8, dev.NumSectors())

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, dev.Write(2, payload))

	got, err := dev.Read(2, 512)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, dev.Close())
}

func TestReadRejectsNonSectorMultipleLength(t *testing.T) {
	storage := testhelper.NewMemStorage(4096)
	dev, err := blockdevice.Open(storage, 512)
	require.NoError(t, err)

	_, err = dev.Read(0, 100)
	require.Error(t, err)
}

func TestWriteRejectsNonSectorMultipleLength(t *testing.T) {
	storage := testhelper.NewMemStorage(4096)
	dev, err := blockdevice.Open(storage, 512)
	require.NoError(t, err)

	err = dev.Write(0, make([]byte, 100))
	require.Error(t, err)
}
