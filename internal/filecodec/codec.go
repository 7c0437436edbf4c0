// Package filecodec compresses uploaded reference files and enforces the
// per-file size ceiling. It is a pure transform: no I/O beyond the byte
// slices it is handed.
package filecodec

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zlib"

	"analystpro/internal/apperr"
	"analystpro/internal/types"
)

// MaxEncodedSize is the ceiling on the compressed payload. The check runs
// against the post-compression size only; the original size is display
// metadata.
const MaxEncodedSize = 700 * 1024

// Codec encodes and decodes reference file payloads.
type Codec struct {
	maxEncoded int
}

// New returns a codec with the default ceiling.
func New() *Codec { return &Codec{maxEncoded: MaxEncodedSize} }

// NewWithCeiling returns a codec with a custom ceiling, for tests.
func NewWithCeiling(maxEncoded int) *Codec {
	if maxEncoded <= 0 {
		maxEncoded = MaxEncodedSize
	}
	return &Codec{maxEncoded: maxEncoded}
}

// Encode compresses raw at the maximum deflate level and rejects the file if
// the compressed form exceeds the ceiling. Files are never stored
// uncompressed and never silently truncated.
func (c *Codec) Encode(name, mimeType string, raw []byte) (types.ReferenceFile, error) {
	f := types.ReferenceFile{Name: name, MimeType: mimeType}
	if err := f.Validate(); err != nil {
		return types.ReferenceFile{}, apperr.Validationf("%v", err)
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return types.ReferenceFile{}, fmt.Errorf("filecodec: init compressor: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return types.ReferenceFile{}, fmt.Errorf("filecodec: compress %q: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return types.ReferenceFile{}, fmt.Errorf("filecodec: compress %q: %w", name, err)
	}

	if buf.Len() > c.maxEncoded {
		return types.ReferenceFile{}, apperr.Validationf(
			"file %q is too large even after compression (%d bytes compressed, limit %d)",
			name, buf.Len(), c.maxEncoded)
	}

	f.OriginalSize = int64(len(raw))
	f.Payload = buf.Bytes()
	f.IsCompressed = true
	f.AddedAt = time.Now().UTC()
	return f, nil
}

// Decode is the exact inverse of Encode. Every payload must round-trip
// through Decode before its content is handed to generation or auto-answer.
func (c *Codec) Decode(f types.ReferenceFile) ([]byte, error) {
	if !f.IsCompressed {
		return append([]byte(nil), f.Payload...), nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(f.Payload))
	if err != nil {
		return nil, fmt.Errorf("filecodec: open %q: %w", f.Name, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("filecodec: decompress %q: %w", f.Name, err)
	}
	return raw, nil
}
