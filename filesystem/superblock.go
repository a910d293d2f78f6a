package filesystem

import (
	"encoding/binary"

	"github.com/Jaime-Moranchel/sfse/sfserrors"
)

// Magic identifies a formatted sfse image at offset 0 of block 0.
var Magic = [4]byte{'S', 'F', 'S', 'E'}

// Superblock is the plaintext header occupying block 0 (spec §3). Only
// SuperblockSignificantBytes are meaningful; the rest of the block is
// zero padding.
type Superblock struct {
	NumBitmapBlocks uint32
	NumInodeBlocks  uint32
	FileCount       uint32
	DerivationSalt  [16]byte
	KeyVerifier     [32]byte
}

// Encode renders the superblock into a blockSize-byte buffer, zero-padded
// past the 64 significant bytes.
func (s Superblock) Encode(blockSize int) []byte {
	buf := make([]byte, blockSize)
	copy(buf[0:4], Magic[:])
	binary.BigEndian.PutUint32(buf[4:8], s.NumBitmapBlocks)
	binary.BigEndian.PutUint32(buf[8:12], s.NumInodeBlocks)
	binary.BigEndian.PutUint32(buf[12:16], s.FileCount)
	copy(buf[16:32], s.DerivationSalt[:])
	copy(buf[32:64], s.KeyVerifier[:])
	return buf
}

// IsFormatted reports whether buf's first four bytes match the sfse magic.
func IsFormatted(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == Magic[0] && buf[1] == Magic[1] && buf[2] == Magic[2] && buf[3] == Magic[3]
}

// DecodeSuperblock parses a block-0 buffer. Callers must check IsFormatted
// first; DecodeSuperblock does not itself validate the magic.
func DecodeSuperblock(buf []byte) (Superblock, error) {
	if len(buf) < SuperblockSignificantBytes {
		return Superblock{}, sfserrors.NewDecodeError(0, "superblock buffer shorter than 64 bytes")
	}
	var sb Superblock
	sb.NumBitmapBlocks = binary.BigEndian.Uint32(buf[4:8])
	sb.NumInodeBlocks = binary.BigEndian.Uint32(buf[8:12])
	sb.FileCount = binary.BigEndian.Uint32(buf[12:16])
	copy(sb.DerivationSalt[:], buf[16:32])
	copy(sb.KeyVerifier[:], buf[32:64])
	return sb, nil
}
