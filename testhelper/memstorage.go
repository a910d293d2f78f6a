// Package testhelper provides lightweight backend.Storage fakes so that
// blockdevice, blocklayer, backup and filesystem tests can exercise real
// positioned read/write/stat semantics without touching the filesystem,
// adapted from the teacher's FileImpl reader/writer-func stub.
package testhelper

import (
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/Jaime-Moranchel/sfse/backend"
)

// MemStorage is an in-memory backend.Storage backed by a fixed-size byte
// slice, standing in for an sfse image file in tests. It only implements
// positioned access (ReadAt/WriteAt), matching backend.Storage's narrowed
// contract — sfse never streams through a Storage sequentially.
type MemStorage struct {
	data     []byte
	readOnly bool
	closed   bool
}

// NewMemStorage allocates a zero-filled in-memory store of size bytes.
func NewMemStorage(size int64) *MemStorage {
	return &MemStorage{data: make([]byte, size)}
}

// NewMemStorageFromBytes wraps an existing buffer without copying.
func NewMemStorageFromBytes(b []byte) *MemStorage {
	return &MemStorage{data: b}
}

// Bytes exposes the underlying buffer for test assertions.
func (m *MemStorage) Bytes() []byte { return m.data }

func (m *MemStorage) Stat() (fs.FileInfo, error) {
	return memFileInfo{size: int64(len(m.data))}, nil
}

func (m *MemStorage) ReadAt(b []byte, offset int64) (int, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	if offset < 0 || offset >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(b, m.data[offset:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemStorage) WriteAt(b []byte, offset int64) (int, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	if m.readOnly {
		return 0, backend.ErrIncorrectOpenMode
	}
	if offset < 0 || offset+int64(len(b)) > int64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	return copy(m.data[offset:], b), nil
}

func (m *MemStorage) Close() error {
	m.closed = true
	return nil
}

func (m *MemStorage) Writable() (backend.WritableFile, error) {
	if m.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	return m, nil
}

type memFileInfo struct {
	size int64
}

func (i memFileInfo) Name() string       { return "memstorage" }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() fs.FileMode  { return 0o600 }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() interface{}   { return nil }
