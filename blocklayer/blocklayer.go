// Package blocklayer implements spec §4.3: a stateless façade translating
// logical block numbers to sector ranges on a blockdevice.BlockDevice,
// routing every block except block 0 (the plaintext superblock) through a
// sectorcipher.Cipher. It is grounded on the teacher's filesystem.File /
// disk.Disk layering, where a higher-level component never talks to
// sectors directly.
package blocklayer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Jaime-Moranchel/sfse/blockdevice"
	"github.com/Jaime-Moranchel/sfse/sectorcipher"
)

// BlockLayer maps a fixed block_size onto an underlying BlockDevice's
// sector_size and encrypts/decrypts every block above block 0.
type BlockLayer struct {
	dev       *blockdevice.BlockDevice
	cipher    *sectorcipher.Cipher
	blockSize int
	spb       int // sectors per block
	log       *logrus.Entry
}

// New constructs a BlockLayer. blockSize must be a positive multiple of
// dev's sector size.
func New(dev *blockdevice.BlockDevice, cipher *sectorcipher.Cipher, blockSize int) (*BlockLayer, error) {
	sectorSize := dev.SectorSize()
	if blockSize <= 0 || blockSize%sectorSize != 0 {
		return nil, fmt.Errorf("blocklayer: block size %d is not a positive multiple of sector size %d", blockSize, sectorSize)
	}
	return &BlockLayer{
		dev:       dev,
		cipher:    cipher,
		blockSize: blockSize,
		spb:       blockSize / sectorSize,
		log:       logrus.WithField("component", "blocklayer"),
	}, nil
}

// BlockSize returns the logical block size in bytes.
func (l *BlockLayer) BlockSize() int { return l.blockSize }

// NumBlocks returns the total number of addressable logical blocks.
func (l *BlockLayer) NumBlocks() int64 { return l.dev.NumSectors() / int64(l.spb) }

// ReadBlock reads logical block b, decrypting it unless b == 0.
func (l *BlockLayer) ReadBlock(b uint32) ([]byte, error) {
	raw, err := l.dev.Read(int(b)*l.spb, l.blockSize)
	if err != nil {
		return nil, fmt.Errorf("blocklayer: read block %d: %w", b, err)
	}
	if b == 0 {
		return raw, nil
	}
	plaintext, err := l.cipher.Decrypt(b, raw)
	if err != nil {
		return nil, fmt.Errorf("blocklayer: decrypt block %d: %w", b, err)
	}
	return plaintext, nil
}

// WriteBlock writes data to logical block b, zero-padding data up to
// block_size if shorter, and encrypting it unless b == 0.
func (l *BlockLayer) WriteBlock(b uint32, data []byte) error {
	if len(data) > l.blockSize {
		return fmt.Errorf("blocklayer: data length %d exceeds block size %d", len(data), l.blockSize)
	}
	padded := data
	if len(data) < l.blockSize {
		padded = make([]byte, l.blockSize)
		copy(padded, data)
	}

	payload := padded
	if b != 0 {
		ciphertext, err := l.cipher.Encrypt(b, padded)
		if err != nil {
			return fmt.Errorf("blocklayer: encrypt block %d: %w", b, err)
		}
		payload = ciphertext
	}
	if err := l.dev.Write(int(b)*l.spb, payload); err != nil {
		return fmt.Errorf("blocklayer: write block %d: %w", b, err)
	}
	return nil
}

// Close releases the underlying block device.
func (l *BlockLayer) Close() error {
	return l.dev.Close()
}
