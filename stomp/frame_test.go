package stomp_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/corvidmq/ommq/stomp"
)

func TestFrameMarshalAndReadFrameRoundTrip(t *testing.T) {
	t.Parallel()

	f := stomp.NewFrame("SEND")
	f.Set("destination", "/queue/orders")
	f.Set("content-type", "text/plain")
	f.Body = []byte("hello")

	b := f.Marshal()
	got, err := stomp.ReadFrame(bufio.NewReader(bytes.NewReader(b)))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Command != "SEND" {
		t.Fatalf("got command %q, want SEND", got.Command)
	}
	if v, _ := got.Get("destination"); v != "/queue/orders" {
		t.Fatalf("got destination %q, want /queue/orders", v)
	}
	if string(got.Body) != "hello" {
		t.Fatalf("got body %q, want hello", got.Body)
	}
}

func TestFrameMarshalWithEmbeddedNULAutoSetsContentLength(t *testing.T) {
	t.Parallel()

	f := stomp.NewFrame("SEND")
	f.Set("destination", "/queue/binary")
	f.Body = []byte{0x01, 0x00, 0x02}

	b := f.Marshal()
	got, err := stomp.ReadFrame(bufio.NewReader(bytes.NewReader(b)))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got.Body, []byte{0x01, 0x00, 0x02}) {
		t.Fatalf("got body %x, want 010002", got.Body)
	}
}

func TestReadFrameSkipsLeadingHeartbeatBlankLines(t *testing.T) {
	t.Parallel()

	raw := "\n\nCONNECTED\nversion:1.1\n\n\x00"
	got, err := stomp.ReadFrame(bufio.NewReader(bytes.NewReader([]byte(raw))))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Command != "CONNECTED" {
		t.Fatalf("got command %q, want CONNECTED", got.Command)
	}
}

func TestReadFrameAcceptsCRLFLineEndings(t *testing.T) {
	t.Parallel()

	raw := "CONNECTED\r\nversion:1.1\r\nsession:sess-1\r\n\r\n\x00"
	got, err := stomp.ReadFrame(bufio.NewReader(bytes.NewReader([]byte(raw))))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Command != "CONNECTED" {
		t.Fatalf("got command %q, want CONNECTED", got.Command)
	}
	if v, _ := got.Get("version"); v != "1.1" {
		t.Fatalf("got version %q, want 1.1", v)
	}
	if v, _ := got.Get("session"); v != "sess-1" {
		t.Fatalf("got session %q, want sess-1", v)
	}
}

func TestReadFrameRejectsHeaderWithoutColon(t *testing.T) {
	t.Parallel()

	raw := "SEND\nbadheader\n\nbody\x00"
	_, err := stomp.ReadFrame(bufio.NewReader(bytes.NewReader([]byte(raw))))
	if err == nil {
		t.Fatalf("got nil error, want malformed-frame error")
	}
}

func TestFrameSetReplacesExistingHeader(t *testing.T) {
	t.Parallel()

	f := stomp.NewFrame("SEND")
	f.Set("destination", "/queue/a")
	f.Set("destination", "/queue/b")
	if len(f.Headers) != 1 {
		t.Fatalf("got %d headers, want 1 (Set should replace, not append)", len(f.Headers))
	}
	if v, _ := f.Get("destination"); v != "/queue/b" {
		t.Fatalf("got %q, want /queue/b", v)
	}
}
