// Package file implements backend.Storage over a plain os.File: either an
// existing raw image (OpenFromPath) or a freshly-truncated one of fixed
// size (CreateFromPath). The filesystem layers above never grow or shrink
// this file once it is created, per the image's fixed-size contract.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Jaime-Moranchel/sfse/backend"
)

// rawBackend wraps a single *os.File as a backend.Storage. Unlike
// go-diskfs's equivalent, it holds the concrete *os.File directly rather
// than an fs.File it has to type-assert back down on every call: sfse has
// no other backend.Storage implementation that wraps something other than
// a real file (testhelper.MemStorage implements backend.Storage on its
// own), so there is nothing generic to dispatch over here.
type rawBackend struct {
	file     *os.File
	readOnly bool
}

// New wraps an already-open *os.File as a backend.Storage.
func New(f *os.File, readOnly bool) backend.Storage {
	return rawBackend{file: f, readOnly: readOnly}
}

// OpenFromPath opens an existing image file or block device. The path must
// already exist: sfse does not create images implicitly on open, mirroring
// the teacher's exclusive-open-for-an-existing-device convention.
func OpenFromPath(pathName string, readOnly bool) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass image path or device name")
	}

	if _, err := os.Stat(pathName); os.IsNotExist(err) {
		return nil, fmt.Errorf("image %s does not exist", pathName)
	}

	openMode := os.O_RDONLY
	if !readOnly {
		openMode |= os.O_RDWR
	}

	f, err := os.OpenFile(pathName, openMode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open image %s with mode %v: %w", pathName, openMode, err)
	}

	return rawBackend{file: f, readOnly: readOnly}, nil
}

// CreateFromPath creates a new zero-filled image of exactly size bytes.
// The path must not already exist (O_EXCL): this is the "surrounding
// environment" sizing step spec.md leaves external to the filesystem core
// — once created, the filesystem never resizes the image.
func CreateFromPath(pathName string, size int64) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass image path")
	}
	if size <= 0 {
		return nil, errors.New("must pass a positive image size")
	}
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_EXCL|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not create image %s: %w", pathName, err)
	}
	if err := os.Truncate(pathName, size); err != nil {
		return nil, fmt.Errorf("could not size image %s to %d bytes: %w", pathName, size, err)
	}

	return rawBackend{file: f, readOnly: false}, nil
}

// backend.Storage interface guard
var _ backend.Storage = (*rawBackend)(nil)

// Writable returns the backing *os.File itself, which already satisfies
// backend.WritableFile, or ErrIncorrectOpenMode if opened read-only.
func (f rawBackend) Writable() (backend.WritableFile, error) {
	if f.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	return f.file, nil
}

func (f rawBackend) Stat() (fs.FileInfo, error) {
	return f.file.Stat()
}

func (f rawBackend) Close() error {
	return f.file.Close()
}

func (f rawBackend) ReadAt(p []byte, off int64) (n int, err error) {
	return f.file.ReadAt(p, off)
}
