// Package backup exports and imports raw sfse images through a
// compression codec. It never decrypts or interprets the image's
// contents (superblock, bitmap, inode table, data blocks) — it operates
// purely on bytes, so it cannot violate the on-disk format contract in
// filesystem/layout.go. This is a pure domain-stack addition: spec.md's
// Non-goals list never mentions backup or compression.
package backup

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"

	"github.com/Jaime-Moranchel/sfse/backend"
)

// Codec names a supported compression format for Export/Import.
type Codec int

const (
	// XZ gives maximum compression ratio, suited to archival export.
	XZ Codec = iota
	// LZ4 favors speed, suited to a quick snapshot before a risky operation.
	LZ4
)

// Export streams src's entire backing store through codec into dst.
func Export(src backend.Storage, dst io.Writer, codec Codec) error {
	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("backup: stat source: %w", err)
	}

	w, err := newWriter(dst, codec)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(w, io.NewSectionReader(src, 0, info.Size()), info.Size()); err != nil {
		return fmt.Errorf("backup: export: %w", err)
	}
	return closeWriter(w)
}

// Import decompresses src via codec and writes the result into dst,
// starting at offset 0, up to dst's fixed size. A stream that would run
// past that size fails instead of growing dst.
func Import(src io.Reader, dst backend.Storage, codec Codec) error {
	info, err := dst.Stat()
	if err != nil {
		return fmt.Errorf("backup: stat destination: %w", err)
	}
	w, err := dst.Writable()
	if err != nil {
		return fmt.Errorf("backup: import: %w", err)
	}
	r, err := newReader(src, codec)
	if err != nil {
		return err
	}

	buf := make([]byte, 64*1024)
	var offset int64
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if offset+int64(n) > info.Size() {
				return fmt.Errorf("backup: import: decompressed image exceeds destination size %d", info.Size())
			}
			if _, writeErr := w.WriteAt(buf[:n], offset); writeErr != nil {
				return fmt.Errorf("backup: import: writing at offset %d: %w", offset, writeErr)
			}
			offset += int64(n)
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("backup: import: reading compressed stream: %w", readErr)
		}
	}
}

func newWriter(dst io.Writer, codec Codec) (io.Writer, error) {
	switch codec {
	case XZ:
		w, err := xz.NewWriter(dst)
		if err != nil {
			return nil, fmt.Errorf("backup: creating xz writer: %w", err)
		}
		return w, nil
	case LZ4:
		return lz4.NewWriter(dst), nil
	default:
		return nil, fmt.Errorf("backup: unknown codec %d", codec)
	}
}

func closeWriter(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("backup: closing compressed stream: %w", err)
		}
	}
	return nil
}

func newReader(src io.Reader, codec Codec) (io.Reader, error) {
	switch codec {
	case XZ:
		r, err := xz.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("backup: creating xz reader: %w", err)
		}
		return r, nil
	case LZ4:
		return lz4.NewReader(src), nil
	default:
		return nil, fmt.Errorf("backup: unknown codec %d", codec)
	}
}
