package wire_test

import (
	"bytes"
	"testing"

	"github.com/corvidmq/ommq/wire"
)

func TestBooleanStreamRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bits []bool
	}{
		{name: "empty", bits: nil},
		{name: "few", bits: []bool{true, false, true}},
		{name: "exactly one byte", bits: []bool{true, false, true, false, true, false, true, false}},
		{name: "spans two bytes", bits: []bool{true, false, true, false, true, false, true, false, true}},
		{name: "all true 300", bits: allTrue(300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bs := wire.NewBooleanStream()
			for _, b := range tt.bits {
				bs.WriteBoolean(b)
			}

			var buf bytes.Buffer
			if err := bs.Marshal(wire.NewWriter(&buf)); err != nil {
				t.Fatalf("marshal: %v", err)
			}

			got, err := wire.UnmarshalBooleanStream(wire.NewReader(&buf))
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			for i, want := range tt.bits {
				if got.ReadBoolean() != want {
					t.Fatalf("bit %d: got mismatch, want %v", i, want)
				}
			}
		})
	}
}

func TestBooleanStreamSizePrefixWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		nBools    int
		wantBytes int // length prefix bytes
	}{
		{name: "under 64 bytes of bits", nBools: 63 * 8, wantBytes: 1},
		{name: "64..255 bytes of bits", nBools: 100 * 8, wantBytes: 2},
		{name: "256+ bytes of bits", nBools: 300 * 8, wantBytes: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bs := wire.NewBooleanStream()
			for range tt.nBools {
				bs.WriteBoolean(true)
			}

			var buf bytes.Buffer
			if err := bs.Marshal(wire.NewWriter(&buf)); err != nil {
				t.Fatalf("marshal: %v", err)
			}

			nBytes := (tt.nBools + 7) / 8
			gotPrefixBytes := buf.Len() - nBytes
			if gotPrefixBytes != tt.wantBytes {
				t.Fatalf("size prefix = %d bytes, want %d", gotPrefixBytes, tt.wantBytes)
			}
		})
	}
}

func allTrue(n int) []bool {
	b := make([]bool, n)
	for i := range b {
		b[i] = true
	}
	return b
}
