// Package snapshot persists a line store to a compact on-disk file so a
// session can be restored without re-reading its source. The text column is
// zstd-compressed and guarded by a BLAKE2b-256 digest verified on load.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/tailview/tailview/logstore"
)

var magicHeader = []byte("TVSNAP01")

// ErrInvalidHeader reports a file that is not a tailview snapshot.
var ErrInvalidHeader = errors.New("snapshot: invalid file header")

// ErrChecksum reports a snapshot whose contents do not match its digest.
var ErrChecksum = errors.New("snapshot: checksum mismatch")

// Writer serializes line stores to snapshot files.
type Writer struct {
	encoder *zstd.Encoder
}

func NewWriter() (*Writer, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &Writer{encoder: enc}, nil
}

// WriteSnapshot writes the store's current lines to path.
//
// Layout: magic (8) | compressed size (uint32) | zstd block | row count
// (uint32) | BLAKE2b-256 digest of the uncompressed column (32).
func (w *Writer) WriteSnapshot(path string, st *logstore.Store) error {
	snap := st.Snapshot()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(magicHeader); err != nil {
		return err
	}

	// Text column: [Len uint32][Bytes] per line. Line numbers are contiguous
	// from 1 within a generation, so they are not stored.
	buf := new(bytes.Buffer)
	for _, line := range snap {
		b := []byte(line.Text)
		binary.Write(buf, binary.LittleEndian, uint32(len(b)))
		buf.Write(b)
	}
	raw := buf.Bytes()
	digest := blake2b.Sum256(raw)

	compressed := w.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))
	if err := binary.Write(f, binary.LittleEndian, uint32(len(compressed))); err != nil {
		return err
	}
	if _, err := f.Write(compressed); err != nil {
		return err
	}

	if err := binary.Write(f, binary.LittleEndian, uint32(len(snap))); err != nil {
		return err
	}
	_, err = f.Write(digest[:])
	return err
}

// Reader restores snapshot files.
type Reader struct {
	decoder *zstd.Decoder
}

func NewReader() (*Reader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Reader{decoder: dec}, nil
}

// ReadSnapshot returns the line texts stored in the file at path, in their
// original order, after verifying the digest.
func (r *Reader) ReadSnapshot(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, len(magicHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, ErrInvalidHeader
	}
	if !bytes.Equal(header, magicHeader) {
		return nil, ErrInvalidHeader
	}

	var compSize uint32
	if err := binary.Read(f, binary.LittleEndian, &compSize); err != nil {
		return nil, fmt.Errorf("snapshot: read size: %w", err)
	}
	compressed := make([]byte, compSize)
	if _, err := io.ReadFull(f, compressed); err != nil {
		return nil, fmt.Errorf("snapshot: read block: %w", err)
	}

	var rowCount uint32
	if err := binary.Read(f, binary.LittleEndian, &rowCount); err != nil {
		return nil, fmt.Errorf("snapshot: read footer: %w", err)
	}
	digest := make([]byte, 32)
	if _, err := io.ReadFull(f, digest); err != nil {
		return nil, fmt.Errorf("snapshot: read digest: %w", err)
	}

	raw, err := r.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decompress: %w", err)
	}
	sum := blake2b.Sum256(raw)
	if !bytes.Equal(sum[:], digest) {
		return nil, ErrChecksum
	}

	texts := make([]string, 0, rowCount)
	rd := bytes.NewReader(raw)
	for i := uint32(0); i < rowCount; i++ {
		var n uint32
		if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("snapshot: row %d: %w", i, err)
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(rd, b); err != nil {
			return nil, fmt.Errorf("snapshot: row %d: %w", i, err)
		}
		texts = append(texts, string(b))
	}
	return texts, nil
}
