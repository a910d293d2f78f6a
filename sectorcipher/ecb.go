package sectorcipher

import "crypto/cipher"

// Go's crypto/cipher deliberately ships no ECB mode — it is almost never
// the right choice — but spec §4.2 requires it exactly, so it is
// hand-rolled here as a loop of whole-block Encrypt/Decrypt calls over a
// standard crypto/aes cipher.Block, the same direct cipher.Block usage
// style as the teacher pack's AES-SIV implementation.
func ecbEncrypt(block cipher.Block, src []byte) []byte {
	bs := block.BlockSize()
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += bs {
		block.Encrypt(dst[i:i+bs], src[i:i+bs])
	}
	return dst
}

func ecbDecrypt(block cipher.Block, src []byte) []byte {
	bs := block.BlockSize()
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += bs {
		block.Decrypt(dst[i:i+bs], src[i:i+bs])
	}
	return dst
}
