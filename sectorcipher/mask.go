package sectorcipher

import (
	"golang.org/x/crypto/chacha20"
)

// xorMask derives an n-byte keystream from seed and emits it as spec
// §4.2's mask M, in place of the original getrandbits(8) stream. A
// fresh implementation is free to substitute a documented stream cipher
// for the mask generator (spec §9); ChaCha20 with a zero nonce, keyed
// directly from the per-block seed, is a deterministic, independent
// generator from the SplitMix64 instance driving the permutation — the
// two never share state even though both derive from the same seed.
func xorMask(seed [32]byte, n int) ([]byte, error) {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	c.XORKeyStream(buf, buf)
	return buf, nil
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
