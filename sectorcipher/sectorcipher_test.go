package sectorcipher_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Jaime-Moranchel/sfse/sectorcipher"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := sectorcipher.New("p", "1234")
	require.NoError(t, c.Rekey(bytes.Repeat([]byte{0x42}, sectorcipher.SaltSize)))

	for _, blockNumber := range []uint32{0, 1, 2, 255} {
		plaintext := make([]byte, 4096)
		_, err := rand.Read(plaintext)
		require.NoError(t, err)

		ciphertext, err := c.Encrypt(blockNumber, plaintext)
		require.NoError(t, err)
		require.Len(t, ciphertext, len(plaintext))
		require.NotEqual(t, plaintext, ciphertext)

		decrypted, err := c.Decrypt(blockNumber, ciphertext)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)
	}
}

func TestDifferentBlockNumbersYieldDifferentCiphertext(t *testing.T) {
	c := sectorcipher.New("p", "1234")
	require.NoError(t, c.Rekey(bytes.Repeat([]byte{0x01}, sectorcipher.SaltSize)))

	plaintext := bytes.Repeat([]byte{0x00}, 4096)
	a, err := c.Encrypt(5, plaintext)
	require.NoError(t, err)
	b, err := c.Encrypt(6, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestRekeyChangesKeyHash(t *testing.T) {
	c := sectorcipher.New("p", "1234")
	require.NoError(t, c.Rekey(bytes.Repeat([]byte{0x01}, sectorcipher.SaltSize)))
	h1 := c.KeyHash()
	require.NoError(t, c.Rekey(bytes.Repeat([]byte{0x02}, sectorcipher.SaltSize)))
	h2 := c.KeyHash()
	require.NotEqual(t, h1, h2)
}

func TestInvalidPlaintextLengthRejected(t *testing.T) {
	c := sectorcipher.New("p", "1234")
	require.NoError(t, c.Rekey(bytes.Repeat([]byte{0x01}, sectorcipher.SaltSize)))
	_, err := c.Encrypt(0, []byte("not a multiple of 16"))
	require.Error(t, err)
}

func TestWrongPasswordProducesDifferentKeyHash(t *testing.T) {
	a := sectorcipher.New("correct horse", "1234")
	require.NoError(t, a.Rekey(bytes.Repeat([]byte{0x09}, sectorcipher.SaltSize)))

	b := sectorcipher.New("wrong password", "1234")
	require.NoError(t, b.Rekey(bytes.Repeat([]byte{0x09}, sectorcipher.SaltSize)))

	require.NotEqual(t, a.KeyHash(), b.KeyHash())
}
