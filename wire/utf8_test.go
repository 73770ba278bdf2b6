package wire_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/corvidmq/ommq/wire"
)

func TestModifiedUTF8RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    string
	}{
		{name: "empty", s: ""},
		{name: "ascii", s: "hello world"},
		{name: "embedded nul", s: "a\x00b"},
		{name: "bmp code points", s: "café 中文"},
		{name: "leading nul", s: "\x00abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			enc := wire.EncodeModifiedUTF8(tt.s)
			got, err := wire.DecodeModifiedUTF8(enc)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.s {
				t.Fatalf("round trip mismatch: got %q want %q", got, tt.s)
			}
		})
	}
}

func TestModifiedUTF8EmbeddedNulOverlong(t *testing.T) {
	t.Parallel()

	enc := wire.EncodeModifiedUTF8("\x00")
	want := []byte{0xC0, 0x80}
	if !bytes.Equal(enc, want) {
		t.Fatalf("NUL encoding = % x, want % x", enc, want)
	}
}

func TestModifiedUTF8Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
	}{
		{name: "truncated 2-byte", in: []byte{0xC0}},
		{name: "truncated 3-byte", in: []byte{0xE0, 0x80}},
		{name: "bad trail byte", in: []byte{0xC0, 0x00}},
		{name: "invalid lead byte", in: []byte{0xFF}},
		{name: "lone surrogate", in: []byte{0xED, 0xA0, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := wire.DecodeModifiedUTF8(tt.in)
			if !errors.Is(err, wire.ErrMalformedInput) {
				t.Fatalf("DecodeModifiedUTF8(% x) error = %v, want ErrMalformedInput", tt.in, err)
			}
		})
	}
}

func TestReaderWriterUTF8String(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	if err := w.WriteUTF8String("hello"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteUTF8String(""); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	r := wire.NewReader(&buf)
	got, err := r.ReadUTF8String()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
	got2, err := r.ReadUTF8String()
	if err != nil {
		t.Fatalf("read empty: %v", err)
	}
	if got2 != "" {
		t.Fatalf("got %q, want empty", got2)
	}
}

func TestReaderWriterBigUTF8String(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	long := make([]byte, 70000)
	for i := range long {
		long[i] = 'a'
	}
	if err := w.WriteBigUTF8String(string(long)); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := wire.NewReader(&buf)
	got, err := r.ReadBigUTF8String()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != string(long) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(long))
	}
}
