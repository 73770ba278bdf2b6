package command_test

import (
	"errors"
	"io"
	"testing"

	"github.com/corvidmq/ommq/command"
)

func TestMessageSetTextAndReadBack(t *testing.T) {
	t.Parallel()

	m := command.NewMessage(command.TextPayload{})
	if err := m.SetText("hello"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	got, err := m.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestMessageTextOnWrongPayloadFails(t *testing.T) {
	t.Parallel()

	m := command.NewMessage(&command.BytesPayload{Content: []byte("x")})
	if _, err := m.Text(); !errors.Is(err, command.ErrMessageNotReadable) {
		t.Fatalf("got %v, want ErrMessageNotReadable", err)
	}
}

func TestMessageOnSendFreezesBodyAndProperties(t *testing.T) {
	t.Parallel()

	m := command.NewMessage(command.TextPayload{})
	m.OnSend()

	if !m.ReadOnlyBody() || !m.ReadOnlyProperties() {
		t.Fatalf("OnSend did not freeze body/properties")
	}
	if err := m.SetText("too late"); !errors.Is(err, command.ErrMessageNotWritable) {
		t.Fatalf("SetText after OnSend: got %v, want ErrMessageNotWritable", err)
	}
	if err := m.SetProperty("k", "v"); !errors.Is(err, command.ErrMessageNotWritable) {
		t.Fatalf("SetProperty after OnSend: got %v, want ErrMessageNotWritable", err)
	}
}

func TestMessageClearBodyUnfreezes(t *testing.T) {
	t.Parallel()

	m := command.NewMessage(command.TextPayload{})
	m.OnSend()
	m.ClearBody()

	if err := m.SetText("reused"); err != nil {
		t.Fatalf("SetText after ClearBody: %v", err)
	}
}

func TestMessageClearPropertiesResetsMap(t *testing.T) {
	t.Parallel()

	m := command.NewMessage(command.TextPayload{})
	_ = m.SetProperty("k", "v")
	m.OnSend()
	m.ClearProperties()

	if len(m.Properties) != 0 {
		t.Fatalf("got %d properties after ClearProperties, want 0", len(m.Properties))
	}
	if err := m.SetProperty("k2", "v2"); err != nil {
		t.Fatalf("SetProperty after ClearProperties: %v", err)
	}
}

func TestBytesPayloadReadAndReset(t *testing.T) {
	t.Parallel()

	bp := &command.BytesPayload{Content: []byte("abcdef")}

	buf := make([]byte, 3)
	n, err := bp.Read(buf)
	if err != nil || n != 3 || string(buf) != "abc" {
		t.Fatalf("first Read: n=%d err=%v buf=%q", n, err, buf)
	}

	n, err = bp.Read(buf)
	if err != nil || n != 3 || string(buf) != "def" {
		t.Fatalf("second Read: n=%d err=%v buf=%q", n, err, buf)
	}

	if _, err := bp.Read(buf); !errors.Is(err, io.EOF) {
		t.Fatalf("Read at end: got %v, want io.EOF", err)
	}

	bp.Reset()
	n, err = bp.Read(buf)
	if err != nil || n != 3 || string(buf) != "abc" {
		t.Fatalf("Read after Reset: n=%d err=%v buf=%q", n, err, buf)
	}
}

func TestStreamPayloadReadNextAndReset(t *testing.T) {
	t.Parallel()

	sp := &command.StreamPayload{Items: []any{int32(1), "two", true}}

	for _, want := range sp.Items {
		got, err := sp.ReadNext()
		if err != nil {
			t.Fatalf("ReadNext: %v", err)
		}
		if got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if _, err := sp.ReadNext(); !errors.Is(err, io.EOF) {
		t.Fatalf("ReadNext at end: got %v, want io.EOF", err)
	}

	sp.Reset()
	got, err := sp.ReadNext()
	if err != nil || got != int32(1) {
		t.Fatalf("ReadNext after Reset: got %v, %v", got, err)
	}
}

func TestPayloadKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload command.Payload
		want    command.PayloadKind
	}{
		{name: "text", payload: command.TextPayload{}, want: command.PayloadText},
		{name: "bytes", payload: &command.BytesPayload{}, want: command.PayloadBytes},
		{name: "map", payload: command.MapPayload{}, want: command.PayloadMap},
		{name: "stream", payload: &command.StreamPayload{}, want: command.PayloadStream},
		{name: "object", payload: command.ObjectPayload{}, want: command.PayloadObject},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.payload.Kind(); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
