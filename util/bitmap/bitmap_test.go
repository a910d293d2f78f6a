package bitmap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jaime-Moranchel/sfse/util/bitmap"
)

func TestNewBitsAllFree(t *testing.T) {
	bm := bitmap.NewBits(20)
	for i := 0; i < 20; i++ {
		set, err := bm.IsSet(i)
		require.NoError(t, err)
		require.False(t, set)
	}
}

func TestSetClearRoundTrip(t *testing.T) {
	bm := bitmap.NewBits(17)
	require.NoError(t, bm.Set(0))
	require.NoError(t, bm.Set(16))
	set, err := bm.IsSet(0)
	require.NoError(t, err)
	require.True(t, set)
	set, err = bm.IsSet(16)
	require.NoError(t, err)
	require.True(t, set)
	set, err = bm.IsSet(1)
	require.NoError(t, err)
	require.False(t, set)

	require.NoError(t, bm.Clear(0))
	set, err = bm.IsSet(0)
	require.NoError(t, err)
	require.False(t, set)
}

func TestFirstFree(t *testing.T) {
	bm := bitmap.NewBits(10)
	for i := 0; i < 8; i++ {
		require.NoError(t, bm.Set(i))
	}
	require.Equal(t, 8, bm.FirstFree(0))
	require.NoError(t, bm.Set(8))
	require.Equal(t, 9, bm.FirstFree(0))
	require.NoError(t, bm.Set(9))
	require.Equal(t, -1, bm.FirstFree(0))
}

func TestBitOrderIsLSBFirst(t *testing.T) {
	bm := bitmap.NewBits(8)
	require.NoError(t, bm.Set(0))
	require.Equal(t, byte(0x01), bm.Bytes()[0])
}

func TestOutOfRangeIsError(t *testing.T) {
	bm := bitmap.NewBits(8)
	_, err := bm.IsSet(8)
	require.Error(t, err)
	require.Error(t, bm.Set(-1))
}

func TestFromBytesRoundTrip(t *testing.T) {
	original := []byte{0xaa, 0x55}
	bm := bitmap.FromBytes(original)
	require.Equal(t, original, bm.Bytes())
}
