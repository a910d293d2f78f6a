// Package sectorcipher implements spec §4.2: a deterministic, per-block
// invertible transform over AES-256-ECB, reinforced with a block-number-
// seeded permutation and XOR mask so that two blocks carrying identical
// plaintext produce distinct ciphertext. It is grounded on
// original_source/custom_crypt.py's SectorCrypt class and, for the
// Go-side cipher.Block plumbing, on the teacher pack's AES-SIV engine.
package sectorcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Cipher derives, holds, and rotates the per-image key material and
// performs the encrypt/decrypt envelope for a single block number.
type Cipher struct {
	password string
	pin16    [PinHashSize]byte

	salt  []byte
	key   [KeySize]byte
	block cipher.Block

	log *logrus.Entry
}

// New constructs a Cipher for password and pin. Before Rekey is called
// with the image's real derivation_salt (read from the superblock on
// mount, or freshly generated on format), the cipher derives a
// placeholder key from the password with SHAKE-256(pin) standing in as
// the derivation salt (spec §9 "salt duality");
// that placeholder must never be trusted to authenticate against a
// superblock verifier.
func New(password, pin string) *Cipher {
	c := &Cipher{
		password: password,
		pin16:    hashPIN(pin),
		log:      logrus.WithField("component", "sectorcipher"),
	}
	c.rekey(c.pin16[:])
	return c
}

// Rekey re-derives the working key from the given 16-byte derivation
// salt and re-initializes the AES block cipher. Callers must invoke this
// with the superblock's derivation_salt immediately after reading (mount)
// or generating (format) it, per spec §4.4.
func (c *Cipher) Rekey(salt []byte) error {
	if len(salt) != SaltSize {
		return fmt.Errorf("sectorcipher: derivation salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	c.rekey(salt)
	return nil
}

func (c *Cipher) rekey(salt []byte) {
	c.salt = append([]byte(nil), salt...)
	c.key = deriveKey(c.password, c.salt)
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		// c.key is always exactly 32 bytes, so aes.NewCipher cannot fail.
		panic(fmt.Sprintf("sectorcipher: unexpected AES key error: %v", err))
	}
	c.block = block
	c.log.WithField("salt_bytes", len(c.salt)).Debug("rekeyed working key")
}

// KeyHash returns SHA-256 of the currently derived working key, the
// credential verifier stored in (and compared against) the superblock.
func (c *Cipher) KeyHash() [32]byte {
	return sha256.Sum256(c.key[:])
}

// seed computes spec §4.2's per-block seed: SHA-256(key || block_number
// || PIN16).
func (c *Cipher) seed(blockNumber uint32) [32]byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], blockNumber)
	h := sha256.New()
	h.Write(c.key[:])
	h.Write(buf[:])
	h.Write(c.pin16[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func seedToUint64(seed [32]byte) uint64 {
	return binary.BigEndian.Uint64(seed[:8])
}

// Encrypt implements spec §4.2: AES-ECB encrypt, permute by π, XOR with
// mask M. len(plaintext) must be a positive multiple of 16.
func (c *Cipher) Encrypt(blockNumber uint32, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 || len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("sectorcipher: plaintext length %d is not a positive multiple of %d", len(plaintext), aes.BlockSize)
	}
	ciphertext := ecbEncrypt(c.block, plaintext)

	seed := c.seed(blockNumber)
	perm := permutation(len(ciphertext), seedToUint64(seed))
	permuted := applyPermutation(ciphertext, perm)

	mask, err := xorMask(seed, len(permuted))
	if err != nil {
		return nil, fmt.Errorf("sectorcipher: deriving mask: %w", err)
	}
	return xorBytes(permuted, mask), nil
}

// Decrypt reverses Encrypt: XOR with M, invert π, AES-ECB decrypt.
func (c *Cipher) Decrypt(blockNumber uint32, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("sectorcipher: ciphertext length %d is not a positive multiple of %d", len(ciphertext), aes.BlockSize)
	}
	seed := c.seed(blockNumber)

	mask, err := xorMask(seed, len(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("sectorcipher: deriving mask: %w", err)
	}
	unmasked := xorBytes(ciphertext, mask)

	perm := permutation(len(unmasked), seedToUint64(seed))
	unpermuted := applyPermutation(unmasked, invertPermutation(perm))

	return ecbDecrypt(c.block, unpermuted), nil
}
