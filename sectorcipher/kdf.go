package sectorcipher

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/sha3"
)

// Argon2 cost parameters, normative per spec §4.2/§9: changing any of
// these invalidates every previously formatted image.
const (
	argonTime        = 2
	argonMemoryKiB   = 1024 // 1 MiB, the normative unit per spec §9
	argonParallelism = 2
	argonKeyLen      = 32

	// PinHashSize is the length of the SHAKE-256 digest of the PIN.
	PinHashSize = 16
	// KeySize is the length of the derived working key.
	KeySize = 32
	// SaltSize is the length of the derivation salt stored in the superblock.
	SaltSize = 16
)

// hashPIN reduces the PIN to a fixed 16-byte value via SHAKE-256, used both
// as an ingredient of the per-block seed and, before a real
// derivation_salt is known, as the placeholder salt (spec §9 "salt
// duality").
func hashPIN(pin string) [PinHashSize]byte {
	var out [PinHashSize]byte
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(pin))
	_, _ = h.Read(out[:])
	return out
}

// deriveKey runs Argon2id over the password with the given salt, then
// folds the result through SHA-256 to produce the 32-byte working key
// (spec §4.2 step 1-2).
func deriveKey(password string, salt []byte) [KeySize]byte {
	k0 := argon2.IDKey([]byte(password), salt, argonTime, argonMemoryKiB, argonParallelism, argonKeyLen)
	return sha256.Sum256(k0)
}
