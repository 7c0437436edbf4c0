package filecodec

import (
	"bytes"
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"analystpro/internal/apperr"
	"analystpro/internal/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := New()
	raw := []byte(strings.Repeat("requirements baseline for the checkout redesign\n", 500))

	f, err := c.Encode("notes.txt", "text/plain", raw)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !f.IsCompressed {
		t.Fatalf("Encode() IsCompressed = false, want true")
	}
	if f.OriginalSize != int64(len(raw)) {
		t.Fatalf("Encode() OriginalSize = %d, want %d", f.OriginalSize, len(raw))
	}
	if len(f.Payload) >= len(raw) {
		t.Fatalf("compressed payload (%d) not smaller than input (%d)", len(f.Payload), len(raw))
	}

	got, err := c.Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(raw))
	}
}

func TestEncodeRejectsIncompressibleOversize(t *testing.T) {
	c := New()
	// Random bytes do not compress; 2 MB stays well above the 700 KiB ceiling.
	raw := make([]byte, 2<<20)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("rand: %v", err)
	}

	_, err := c.Encode("dump.bin", "application/octet-stream", raw)
	if err == nil {
		t.Fatalf("Encode() accepted a 2MB incompressible file")
	}
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("Encode() error = %v, want ValidationError", err)
	}
}

func TestEncodeCeilingIsOnCompressedSize(t *testing.T) {
	// Highly compressible input bigger than the ceiling must pass, because
	// only the encoded form is checked.
	c := NewWithCeiling(64 * 1024)
	raw := bytes.Repeat([]byte("a"), 1<<20)

	f, err := c.Encode("big.txt", "text/plain", raw)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(f.Payload) > 64*1024 {
		t.Fatalf("payload %d exceeds ceiling", len(f.Payload))
	}
}

func TestEncodeRequiresNameAndMime(t *testing.T) {
	c := New()
	if _, err := c.Encode("", "text/plain", []byte("x")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("missing name: error = %v, want ValidationError", err)
	}
	if _, err := c.Encode("a.txt", "", []byte("x")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("missing mime: error = %v, want ValidationError", err)
	}
}

func TestDecodeUncompressedPassthrough(t *testing.T) {
	c := New()
	f := types.ReferenceFile{Name: "x", MimeType: "text/plain", Payload: []byte("plain"), IsCompressed: false}
	got, err := c.Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(got) != "plain" {
		t.Fatalf("Decode() = %q, want %q", got, "plain")
	}
}
