package filesystem

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/xattr"
	"github.com/sirupsen/logrus"
	times "gopkg.in/djherbis/times.v1"

	"github.com/Jaime-Moranchel/sfse/blocklayer"
	"github.com/Jaime-Moranchel/sfse/sectorcipher"
	"github.com/Jaime-Moranchel/sfse/sfserrors"
	"github.com/Jaime-Moranchel/sfse/util/bitmap"
)

// xattrFormattedKey is a best-effort, purely informational tag set on the
// backing image file at format time; it is never consulted by mount or
// format logic (the superblock magic and verifier are the sole format
// contract, per spec §6).
const xattrFormattedKey = "user.sfse.formatted"

// FileSystem implements spec §4.4 over a blocklayer.BlockLayer: mount/
// format protocol, bitmap and inode-table management, and the file
// operations create/read/delete/rename/list.
//
// A FileSystem is not safe for concurrent use (spec §5): one goroutine,
// one image, synchronous calls all the way down to the block device.
type FileSystem struct {
	layer  *blocklayer.BlockLayer
	cipher *sectorcipher.Cipher
	layout Layout

	blockSize int
	directory map[string]int // name -> inode slot position

	imagePath string // best-effort, for xattr tagging; may be empty

	sessionID uuid.UUID
	log       *logrus.Entry
}

// Mount opens an existing formatted image, verifying password and PIN
// against the superblock's stored verifier. It fails with
// sfserrors.ErrBadCredentials on mismatch, without decrypting any block
// beyond the superblock.
func Mount(layer *blocklayer.BlockLayer, cipher *sectorcipher.Cipher, imagePath string) (*FileSystem, error) {
	return open(layer, cipher, imagePath, false)
}

// Format (re-)initializes the image unconditionally: new random
// derivation salt, fresh superblock, zeroed bitmap and inode blocks, and
// an empty directory. Equivalent to spec's `_init_filesystem(force=true)`.
func Format(layer *blocklayer.BlockLayer, cipher *sectorcipher.Cipher, imagePath string) (*FileSystem, error) {
	return open(layer, cipher, imagePath, true)
}

func open(layer *blocklayer.BlockLayer, cipher *sectorcipher.Cipher, imagePath string, force bool) (*FileSystem, error) {
	sessionID := uuid.New()
	log := logrus.WithFields(logrus.Fields{"component": "filesystem", "session_id": sessionID.String()})

	totalBlocks := layer.NumBlocks()
	if totalBlocks > int64(^uint32(0)) {
		return nil, fmt.Errorf("filesystem: image too large: %d blocks", totalBlocks)
	}
	layout, err := ComputeLayout(uint32(totalBlocks), layer.BlockSize())
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{
		layer:     layer,
		cipher:    cipher,
		layout:    layout,
		blockSize: layer.BlockSize(),
		directory: make(map[string]int),
		imagePath: imagePath,
		sessionID: sessionID,
		log:       log,
	}

	raw0, err := layer.ReadBlock(0)
	if err != nil {
		return nil, fmt.Errorf("filesystem: read superblock: %w", err)
	}

	if !force && IsFormatted(raw0) {
		sb, err := DecodeSuperblock(raw0)
		if err != nil {
			return nil, err
		}
		if err := cipher.Rekey(sb.DerivationSalt[:]); err != nil {
			return nil, err
		}
		keyHash := cipher.KeyHash()
		if keyHash != sb.KeyVerifier {
			log.Warn("mount rejected: credential verifier mismatch")
			return nil, sfserrors.ErrBadCredentials
		}
		fs.layout.NumBitmapBlocks = sb.NumBitmapBlocks
		fs.layout.NumInodeBlocks = sb.NumInodeBlocks
		fs.layout.OffsetData = 1 + sb.NumBitmapBlocks + sb.NumInodeBlocks
		if err := fs.loadInodes(); err != nil {
			return nil, err
		}
		log.WithField("files", len(fs.directory)).Info("mounted existing image")
		return fs, nil
	}

	if err := fs.format(); err != nil {
		return nil, err
	}
	log.Info("formatted new image")
	return fs, nil
}

func (fs *FileSystem) format() error {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return fmt.Errorf("filesystem: generating derivation salt: %w", err)
	}
	if err := fs.cipher.Rekey(salt[:]); err != nil {
		return err
	}

	sb := Superblock{
		NumBitmapBlocks: fs.layout.NumBitmapBlocks,
		NumInodeBlocks:  fs.layout.NumInodeBlocks,
		FileCount:       0,
		DerivationSalt:  salt,
		KeyVerifier:     fs.cipher.KeyHash(),
	}
	if err := fs.layer.WriteBlock(0, sb.Encode(fs.blockSize)); err != nil {
		return fmt.Errorf("filesystem: write superblock: %w", err)
	}

	zero := make([]byte, fs.blockSize)
	bStart, bEnd := fs.layout.BitmapBlockRange()
	for b := bStart; b < bEnd; b++ {
		if err := fs.layer.WriteBlock(b, zero); err != nil {
			return fmt.Errorf("filesystem: zero bitmap block %d: %w", b, err)
		}
	}
	iStart, iEnd := fs.layout.InodeBlockRange()
	for b := iStart; b < iEnd; b++ {
		if err := fs.layer.WriteBlock(b, zero); err != nil {
			return fmt.Errorf("filesystem: zero inode block %d: %w", b, err)
		}
	}
	fs.directory = make(map[string]int)

	fs.tagFormatted()
	return nil
}

// Format re-runs the mount/format protocol with force = true, matching
// spec's format() operation on an already-open FileSystem.
func (fs *FileSystem) Format() error {
	if err := fs.format(); err != nil {
		return err
	}
	fs.log.Info("reformatted image")
	return nil
}

// tagFormatted best-effort sets an xattr on the backing image file
// recording the format timestamp; it does nothing when no image path is
// known, and failures (unsupported fs, permission, non-Unix) are logged at
// Debug and ignored, since this is pure external metadata never consulted
// by mount/format logic.
func (fs *FileSystem) tagFormatted() {
	if fs.imagePath == "" {
		return
	}
	stamp := time.Now().UTC().Format("2006-01-02T15:04:05Z07:00")
	if err := xattr.Set(fs.imagePath, xattrFormattedKey, []byte(stamp)); err != nil {
		fs.log.WithError(err).Debug("could not set format xattr")
	}
}

// Close releases the underlying block layer and device.
func (fs *FileSystem) Close() error {
	return fs.layer.Close()
}

// --- bitmap operations (spec §4.4) ---

func (fs *FileSystem) bitsPerBitmapBlock() int64 {
	return int64(fs.blockSize) * 8
}

// setBitmapBit implements set_bitmap(block, used): locates the bitmap
// block and bit for a data block number and flips it. A block number
// below OffsetData is a no-op, matching spec's "if r < 0, no-op".
func (fs *FileSystem) setBitmapBit(block uint32, used bool) error {
	if block < fs.layout.OffsetData {
		return nil
	}
	r := int64(block) - int64(fs.layout.OffsetData)
	bitmapBlockIdx := uint32(r / fs.bitsPerBitmapBlock())
	withinBlockBit := int(r % fs.bitsPerBitmapBlock())
	bitmapBlockNum := 1 + bitmapBlockIdx

	raw, err := fs.layer.ReadBlock(bitmapBlockNum)
	if err != nil {
		return fmt.Errorf("filesystem: read bitmap block %d: %w", bitmapBlockNum, err)
	}
	bm := bitmap.FromBytes(raw)
	if used {
		err = bm.Set(withinBlockBit)
	} else {
		err = bm.Clear(withinBlockBit)
	}
	if err != nil {
		return fmt.Errorf("filesystem: update bitmap bit for block %d: %w", block, err)
	}
	return fs.layer.WriteBlock(bitmapBlockNum, bm.Bytes())
}

// findFreeBlock implements find_free_block(): linear scan of the data
// region's bitmap, returns and marks used the first free data block.
func (fs *FileSystem) findFreeBlock() (uint32, error) {
	numDataBlocks := int64(fs.layout.NumDataBlocks())
	bitsPerBlock := fs.bitsPerBitmapBlock()

	for bitmapBlockIdx := uint32(0); bitmapBlockIdx < fs.layout.NumBitmapBlocks; bitmapBlockIdx++ {
		bitmapBlockNum := 1 + bitmapBlockIdx
		raw, err := fs.layer.ReadBlock(bitmapBlockNum)
		if err != nil {
			return 0, fmt.Errorf("filesystem: read bitmap block %d: %w", bitmapBlockNum, err)
		}
		bm := bitmap.FromBytes(raw)
		free := bm.FirstFree(0)
		if free == -1 {
			continue
		}
		absoluteIndex := int64(bitmapBlockIdx)*bitsPerBlock + int64(free)
		if absoluteIndex >= numDataBlocks {
			continue
		}
		if err := bm.Set(free); err != nil {
			return 0, fmt.Errorf("filesystem: mark block allocated: %w", err)
		}
		if err := fs.layer.WriteBlock(bitmapBlockNum, bm.Bytes()); err != nil {
			return 0, fmt.Errorf("filesystem: write bitmap block %d: %w", bitmapBlockNum, err)
		}
		return fs.layout.OffsetData + uint32(absoluteIndex), nil
	}
	return 0, sfserrors.ErrNoFreeBlock
}

// --- inode operations (spec §4.4) ---

func (fs *FileSystem) inodesPerBlock() int {
	return InodesPerBlock(fs.blockSize)
}

func (fs *FileSystem) inodeSlotLocation(position int) (blockNum uint32, offset int) {
	iStart, _ := fs.layout.InodeBlockRange()
	perBlock := fs.inodesPerBlock()
	blockNum = iStart + uint32(position/perBlock)
	offset = (position % perBlock) * InodeSize
	return blockNum, offset
}

func (fs *FileSystem) readInodeSlot(position int) (Inode, error) {
	blockNum, offset := fs.inodeSlotLocation(position)
	raw, err := fs.layer.ReadBlock(blockNum)
	if err != nil {
		return Inode{}, fmt.Errorf("filesystem: read inode block %d: %w", blockNum, err)
	}
	return DecodeInode(raw[offset:offset+InodeSize], position)
}

// writeInode implements write_inode(inode): read-modify-write the
// enclosing inode block with the slot overwritten.
func (fs *FileSystem) writeInode(position int, ino Inode) error {
	blockNum, offset := fs.inodeSlotLocation(position)
	raw, err := fs.layer.ReadBlock(blockNum)
	if err != nil {
		return fmt.Errorf("filesystem: read inode block %d: %w", blockNum, err)
	}
	copy(raw[offset:offset+InodeSize], ino.Encode())
	return fs.layer.WriteBlock(blockNum, raw)
}

// findFreeInodePosition implements find_free_inode_position(): linear scan
// for the first slot whose validity byte is not exactly 0x01.
func (fs *FileSystem) findFreeInodePosition() (int, error) {
	total := fs.layout.NumInodeSlots(fs.blockSize)
	for position := 0; position < total; position++ {
		ino, err := fs.readInodeSlot(position)
		if err != nil {
			// A malformed slot is, per spec §7, treated as invalid/free.
			continue
		}
		if !ino.Valid {
			return position, nil
		}
	}
	return 0, sfserrors.ErrNoFreeInode
}

// loadInodes implements load_inodes(): rebuilds the in-memory directory
// by scanning every inode slot in ascending position order. Duplicate
// names are last-write-wins, matching scan order.
func (fs *FileSystem) loadInodes() error {
	fs.directory = make(map[string]int)
	total := fs.layout.NumInodeSlots(fs.blockSize)
	for position := 0; position < total; position++ {
		ino, err := fs.readInodeSlot(position)
		if err != nil {
			fs.log.WithError(err).WithField("position", position).Debug("skipping malformed inode slot")
			continue
		}
		if ino.Valid {
			fs.directory[ino.Name] = position
		}
	}
	return nil
}

// --- file operations (spec §4.4) ---

// CreateFile implements create_file(name, source): reads up to four
// block_size-sized chunks from source, allocating one data block per
// non-empty chunk. A source longer than four blocks fails with
// sfserrors.ErrTooLarge and releases any blocks/inode slot already
// allocated for this attempt.
func (fs *FileSystem) CreateFile(name string, source io.Reader) error {
	name = TruncateName(name)
	if _, exists := fs.directory[name]; exists {
		return sfserrors.ErrExists
	}

	position, err := fs.findFreeInodePosition()
	if err != nil {
		return err
	}

	var direct [DirectPointers]uint32
	var size uint64
	allocated := 0

	rollback := func() {
		for i := 0; i < allocated; i++ {
			_ = fs.setBitmapBit(direct[i], false)
		}
	}

	chunk := make([]byte, fs.blockSize)
	for allocated < DirectPointers {
		n, readErr := io.ReadFull(source, chunk)
		if n > 0 {
			block, err := fs.findFreeBlock()
			if err != nil {
				rollback()
				return err
			}
			if err := fs.layer.WriteBlock(block, chunk[:n]); err != nil {
				rollback()
				return err
			}
			direct[allocated] = block
			allocated++
			size += uint64(n)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			rollback()
			return fmt.Errorf("filesystem: reading source for %q: %w", name, readErr)
		}
	}

	// A fifth chunk's worth of data means the source exceeds four blocks.
	if allocated == DirectPointers {
		n, readErr := source.Read(make([]byte, 1))
		if n > 0 || (readErr != nil && readErr != io.EOF) {
			rollback()
			return sfserrors.ErrTooLarge
		}
	}

	ino := Inode{Valid: true, Size: size, Name: name, Direct: direct}
	if err := fs.writeInode(position, ino); err != nil {
		rollback()
		return err
	}
	fs.directory[name] = position
	fs.log.WithFields(logrus.Fields{"name": name, "size": size}).Info("created file")
	return nil
}

// CreateFileFromPath is a convenience wrapper over CreateFile that also
// logs the source file's modification time, purely informational.
func (fs *FileSystem) CreateFileFromPath(name, sourcePath string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("filesystem: opening source %q: %w", sourcePath, err)
	}
	defer f.Close()

	if t, err := times.Stat(sourcePath); err == nil {
		fs.log.WithFields(logrus.Fields{"name": name, "source_mtime": t.ModTime()}).Debug("source file mtime")
	}
	return fs.CreateFile(name, f)
}

// ReadFile implements read_file(name): concatenates each non-zero direct
// block in slot order and truncates to inode.size. Returns
// sfserrors.ErrNotFound if name is absent.
func (fs *FileSystem) ReadFile(name string) ([]byte, error) {
	position, ok := fs.directory[name]
	if !ok {
		return nil, sfserrors.ErrNotFound
	}
	ino, err := fs.readInodeSlot(position)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, p := range ino.NonZeroDirect() {
		data, err := fs.layer.ReadBlock(p)
		if err != nil {
			return nil, fmt.Errorf("filesystem: reading block %d for %q: %w", p, name, err)
		}
		out = append(out, data...)
	}
	if uint64(len(out)) > ino.Size {
		out = out[:ino.Size]
	}
	return out, nil
}

// DeleteFile implements delete_file(name): clears each direct block's
// bitmap bit, invalidates the inode, and removes the directory entry.
func (fs *FileSystem) DeleteFile(name string) error {
	position, ok := fs.directory[name]
	if !ok {
		return sfserrors.ErrNotFound
	}
	ino, err := fs.readInodeSlot(position)
	if err != nil {
		return err
	}
	for _, p := range ino.NonZeroDirect() {
		if err := fs.setBitmapBit(p, false); err != nil {
			return err
		}
	}
	ino.Valid = false
	if err := fs.writeInode(position, ino); err != nil {
		return err
	}
	delete(fs.directory, name)
	fs.log.WithField("name", name).Info("deleted file")
	return nil
}

// RenameFile implements rename_file(old, new).
func (fs *FileSystem) RenameFile(oldName, newName string) error {
	newName = TruncateName(newName)
	position, ok := fs.directory[oldName]
	if !ok {
		return sfserrors.ErrNotFound
	}
	if _, exists := fs.directory[newName]; exists {
		return sfserrors.ErrExists
	}
	ino, err := fs.readInodeSlot(position)
	if err != nil {
		return err
	}
	ino.Name = newName
	if err := fs.writeInode(position, ino); err != nil {
		return err
	}
	delete(fs.directory, oldName)
	fs.directory[newName] = position
	return nil
}

// FileInfo is one entry yielded by ListFiles.
type FileInfo struct {
	Name string
	Size uint64
}

// ListFiles implements list_files(): yields (name, size) pairs. Order is
// unspecified (Go map iteration), matching spec's "directory-iteration
// order" with no further guarantee.
func (fs *FileSystem) ListFiles() ([]FileInfo, error) {
	out := make([]FileInfo, 0, len(fs.directory))
	for name, position := range fs.directory {
		ino, err := fs.readInodeSlot(position)
		if err != nil {
			return nil, err
		}
		out = append(out, FileInfo{Name: name, Size: ino.Size})
	}
	return out, nil
}

// KeyHash exposes the currently derived key's SHA-256 verifier, primarily
// for tests asserting I5.
func (fs *FileSystem) KeyHash() [32]byte {
	return fs.cipher.KeyHash()
}
