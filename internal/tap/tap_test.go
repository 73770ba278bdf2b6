package tap_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/internal/tap"
	"github.com/corvidmq/ommq/transport"
)

type fakeTransport struct {
	listener transport.Listener
	sent     []command.Command
}

func (f *fakeTransport) Oneway(cmd command.Command) error {
	f.sent = append(f.sent, cmd)
	return nil
}
func (f *fakeTransport) Start() error { return nil }
func (f *fakeTransport) Stop() error  { return nil }
func (f *fakeTransport) Close() error { return nil }
func (f *fakeTransport) SetListener(l transport.Listener) {
	f.listener = l
}
func (f *fakeTransport) SetWireFormat(transport.WireFormat) {}
func (f *fakeTransport) WireFormat() transport.WireFormat   { return nil }
func (f *fakeTransport) IsClosed() bool                     { return false }
func (f *fakeTransport) IsConnected() bool                  { return true }
func (f *fakeTransport) IsFaultTolerant() bool               { return false }
func (f *fakeTransport) RemoteAddress() string               { return "mock://broker" }

func TestTapRecordsBothDirections(t *testing.T) {
	t.Parallel()

	next := &fakeTransport{}
	tp := tap.New(next, 0)

	if err := tp.Oneway(&command.ConnectionInfo{ClientId: "c1"}); err != nil {
		t.Fatalf("Oneway: %v", err)
	}
	next.listener.OnCommand(&command.Response{CorrelationId: 1})

	entries := tp.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Direction != tap.Outbound {
		t.Errorf("got entries[0].Direction=%v, want Outbound", entries[0].Direction)
	}
	if entries[1].Direction != tap.Inbound {
		t.Errorf("got entries[1].Direction=%v, want Inbound", entries[1].Direction)
	}
}

func TestTapRingBufferBounded(t *testing.T) {
	t.Parallel()

	next := &fakeTransport{}
	tp := tap.New(next, 3)

	for i := 0; i < 10; i++ {
		_ = tp.Oneway(&command.ShutdownInfo{})
	}

	entries := tp.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3 (ring capacity)", len(entries))
	}
	if entries[len(entries)-1].Seq != 10 {
		t.Errorf("got last Seq=%d, want 10", entries[len(entries)-1].Seq)
	}
}

func TestTapSubscribeReceivesNewEntries(t *testing.T) {
	t.Parallel()

	next := &fakeTransport{}
	tp := tap.New(next, 0)
	sub := tp.Subscribe()

	if err := tp.Oneway(&command.ShutdownInfo{}); err != nil {
		t.Fatalf("Oneway: %v", err)
	}

	select {
	case e := <-sub:
		if e.Direction != tap.Outbound {
			t.Errorf("got Direction=%v, want Outbound", e.Direction)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no entry delivered on Subscribe channel")
	}
}

func TestFilterMatchesCaseInsensitively(t *testing.T) {
	t.Parallel()

	entries := []tap.Entry{
		{Seq: 1, Direction: tap.Outbound, Command: &command.ConnectionInfo{ClientId: "alpha"}},
		{Seq: 2, Direction: tap.Outbound, Command: &command.ShutdownInfo{}},
	}

	got := tap.Filter(entries, "ALPHA")
	if len(got) != 1 || got[0].Seq != 1 {
		t.Fatalf("got %+v, want only seq 1", got)
	}

	if len(tap.Filter(entries, "")) != 2 {
		t.Error("empty query should match everything")
	}
}

func TestAnalyzeCountsByTypeAndDirection(t *testing.T) {
	t.Parallel()

	entries := []tap.Entry{
		{Direction: tap.Outbound, Command: &command.ConnectionInfo{}},
		{Direction: tap.Inbound, Command: &command.ConnectionInfo{}},
		{Direction: tap.Outbound, Command: &command.ShutdownInfo{}},
		{Err: assertErr},
	}

	a := tap.Analyze(entries)
	if a.Total != 4 {
		t.Errorf("got Total=%d, want 4", a.Total)
	}
	if a.Errors != 1 {
		t.Errorf("got Errors=%d, want 1", a.Errors)
	}
	if len(a.Types) != 2 {
		t.Fatalf("got %d types, want 2", len(a.Types))
	}
}

var assertErr = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }

func TestExportProducesValidJSON(t *testing.T) {
	t.Parallel()

	entries := []tap.Entry{
		{Seq: 1, At: time.Now(), Direction: tap.Outbound, Command: &command.ConnectionInfo{ClientId: "c1"}},
	}

	raw, err := tap.Export(entries)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Export produced invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["type"] != "ConnectionInfo" {
		t.Fatalf("got %+v", decoded)
	}
}

func TestSpanComputesElapsedBetweenFirstAndLast(t *testing.T) {
	t.Parallel()

	start := time.Now()
	entries := []tap.Entry{
		{At: start, Command: &command.ShutdownInfo{}},
		{At: start.Add(5 * time.Second), Command: &command.ShutdownInfo{}},
	}

	if got := tap.Span(entries); got != "5s" {
		t.Errorf("got Span()=%q, want 5s", got)
	}
}
