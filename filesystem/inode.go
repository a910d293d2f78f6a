package filesystem

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/Jaime-Moranchel/sfse/sfserrors"
)

const validityValid = 0x01

// Inode is the fixed 64-byte on-disk file record (spec §3).
type Inode struct {
	Valid   bool
	Size    uint64 // up to 2^56-1
	Name    string
	Direct  [DirectPointers]uint32
	// Indirect and DoubleIndirect are reserved and always encoded as 0.
}

// Encode renders the inode into exactly InodeSize bytes.
func (ino Inode) Encode() []byte {
	buf := make([]byte, InodeSize)
	if ino.Valid {
		buf[0] = validityValid
	}

	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], ino.Size)
	copy(buf[1:8], sizeBuf[1:8]) // 7-byte big-endian size field

	nameBytes := []byte(ino.Name)
	if len(nameBytes) > MaxNameBytes {
		nameBytes = nameBytes[:MaxNameBytes]
	}
	copy(buf[8:8+MaxNameBytes], nameBytes)

	for i, p := range ino.Direct {
		binary.BigEndian.PutUint32(buf[40+i*4:44+i*4], p)
	}
	// buf[56:64] (indirect, double-indirect) stay zero.
	return buf
}

// DecodeInode parses a single 64-byte inode slot. An inode whose validity
// byte is not exactly 0x01 decodes as Valid == false and its remaining
// fields are still parsed best-effort (callers, e.g. find_free_inode_position,
// only care about Valid in that case).
func DecodeInode(buf []byte, position int) (Inode, error) {
	if len(buf) != InodeSize {
		return Inode{}, sfserrors.NewDecodeError(position, "slot is not exactly 64 bytes")
	}
	var ino Inode
	ino.Valid = buf[0] == validityValid

	var sizeBuf [8]byte
	copy(sizeBuf[1:8], buf[1:8])
	ino.Size = binary.BigEndian.Uint64(sizeBuf[:])

	nameBytes := buf[8 : 8+MaxNameBytes]
	end := len(nameBytes)
	for end > 0 && nameBytes[end-1] == 0 {
		end--
	}
	name := nameBytes[:end]
	if !utf8.Valid(name) {
		return Inode{}, sfserrors.NewDecodeError(position, "name is not valid UTF-8")
	}
	ino.Name = string(name)

	for i := range ino.Direct {
		ino.Direct[i] = binary.BigEndian.Uint32(buf[40+i*4 : 44+i*4])
	}
	return ino, nil
}

// TruncateName truncates name to at most MaxNameBytes UTF-8 bytes without
// splitting a multi-byte rune, per spec §6's "truncated to 32 bytes on store".
func TruncateName(name string) string {
	b := []byte(name)
	if len(b) <= MaxNameBytes {
		return name
	}
	cut := MaxNameBytes
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut])
}

// NonZeroDirect returns the prefix of ino.Direct up to (not including) the
// first zero pointer, per I1's "contiguous from slot 0" invariant.
func (ino Inode) NonZeroDirect() []uint32 {
	for i, p := range ino.Direct {
		if p == 0 {
			return ino.Direct[:i]
		}
	}
	return ino.Direct[:]
}
