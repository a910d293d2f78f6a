// Package backend abstracts the raw byte store behind an sfse image: a
// regular file or an actual block device. All image I/O above this package
// (blockdevice, and through it blocklayer and the filesystem) goes through
// a Storage rather than an *os.File.
//
// Unlike go-diskfs's backend.Storage — which backs a streaming FAT/ISO9660
// writer and a partition-table walk, and so needs Read, Seek and an
// Sys()-exposed *os.File for ioctls reachable through the storage handle
// itself — sfse's BlockDevice only ever issues block-aligned ReadAt/WriteAt
// calls (see blockdevice.BlockDevice.Read/Write), and sector-size discovery
// opens its own *os.File directly (blockdevice.OpenPath) rather than going
// through a mounted Storage. Streaming Read/Seek and Sys() are therefore
// dropped here rather than carried over unused.
package backend

import (
	"errors"
	"io"
	"io/fs"
)

// ErrIncorrectOpenMode is returned by Storage.Writable when the backing
// store was opened read-only.
var ErrIncorrectOpenMode = errors.New("image file or device not open for write")

// File is the minimal read side of a backing store: positioned reads only.
type File interface {
	Stat() (fs.FileInfo, error)
	io.ReaderAt
	io.Closer
}

// WritableFile additionally allows positioned writes.
type WritableFile interface {
	File
	io.WriterAt
}

// Storage is the handle a block device is built on top of.
type Storage interface {
	File
	// Writable returns a write-capable view, or ErrIncorrectOpenMode if
	// the store was opened read-only.
	Writable() (WritableFile, error)
}
