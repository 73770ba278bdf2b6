package failover_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
	"github.com/corvidmq/ommq/transport/failover"
)

// fakeTransport is a controllable transport.Transport double: Start can be
// made to fail (simulating failOnCreate), and the test can push an
// exception through its listener to simulate a dropped connection.
type fakeTransport struct {
	uri string

	mu        sync.Mutex
	failStart bool
	listener  transport.Listener
	sent      []command.Command
	connected bool
	closed    bool
}

func (f *fakeTransport) setFailStart(v bool) {
	f.mu.Lock()
	f.failStart = v
	f.mu.Unlock()
}

func (f *fakeTransport) willFailStart() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failStart
}

func (f *fakeTransport) Oneway(cmd command.Command) error {
	f.mu.Lock()
	f.sent = append(f.sent, cmd)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Start() error {
	if f.willFailStart() {
		return fmt.Errorf("%s: simulated failOnCreate", f.uri)
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Stop() error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.connected = false
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SetListener(l transport.Listener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}
func (f *fakeTransport) SetWireFormat(transport.WireFormat) {}
func (f *fakeTransport) WireFormat() transport.WireFormat   { return nil }
func (f *fakeTransport) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected && !f.closed
}
func (f *fakeTransport) IsFaultTolerant() bool { return false }
func (f *fakeTransport) RemoteAddress() string { return f.uri }

func (f *fakeTransport) sentCommands() []command.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]command.Command, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) breakConnection(err error) {
	f.mu.Lock()
	f.connected = false
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.OnException(err)
	}
}

func (f *fakeTransport) deliver(cmd command.Command) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.OnCommand(cmd)
	}
}

// dialerFor returns a Dialer over a fixed registry of fakeTransports keyed
// by URI, recording every dial attempt.
func dialerFor(registry map[string]*fakeTransport) (failover.Dialer, func() []string) {
	var mu sync.Mutex
	var attempts []string
	dial := func(_ context.Context, uri string) (transport.Transport, error) {
		mu.Lock()
		attempts = append(attempts, uri)
		mu.Unlock()

		tr, ok := registry[uri]
		if !ok {
			return nil, fmt.Errorf("%s: no such broker", uri)
		}
		if tr.willFailStart() {
			return nil, fmt.Errorf("%s: simulated failOnCreate", uri)
		}
		return tr, nil
	}
	return dial, func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(attempts))
		copy(out, attempts)
		return out
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestConnectsToFirstAvailableURI(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{uri: "mock://a", failStart: true}
	b := &fakeTransport{uri: "mock://b"}
	dial, _ := dialerFor(map[string]*fakeTransport{"mock://a": a, "mock://b": b})

	cfg := failover.DefaultConfig()
	cfg.Randomize = false
	ft := failover.New([]string{"mock://a", "mock://b"}, dial, cfg)
	if err := ft.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ft.Close()

	waitFor(t, 2*time.Second, ft.IsConnected)
	if ft.RemoteAddress() != "mock://b" {
		t.Fatalf("got RemoteAddress()=%q, want mock://b", ft.RemoteAddress())
	}
}

func TestTrackedCommandsReplayInOrderAfterReconnect(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{uri: "mock://a"}
	b := &fakeTransport{uri: "mock://b"}
	dial, _ := dialerFor(map[string]*fakeTransport{"mock://a": a, "mock://b": b})

	cfg := failover.DefaultConfig()
	cfg.Randomize = false
	cfg.InitialReconnectDelay = 5 * time.Millisecond
	ft := failover.New([]string{"mock://a", "mock://b"}, dial, cfg)
	if err := ft.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ft.Close()

	waitFor(t, 2*time.Second, ft.IsConnected)

	tracked := []command.Command{
		&command.ConnectionInfo{ClientId: "c1"},
		&command.SessionInfo{},
		&command.SessionInfo{},
		&command.SessionInfo{},
		&command.ConsumerInfo{},
		&command.ConsumerInfo{},
	}
	for _, cmd := range tracked {
		if err := ft.Oneway(cmd); err != nil {
			t.Fatalf("Oneway: %v", err)
		}
	}
	waitFor(t, 2*time.Second, func() bool { return len(a.sentCommands()) == len(tracked) })

	// a drops and stops accepting new connections; only b is left to
	// reconnect to, so the pool must rotate there.
	a.setFailStart(true)
	a.breakConnection(errors.New("connection reset"))
	waitFor(t, 2*time.Second, func() bool { return ft.RemoteAddress() == "mock://b" })
	waitFor(t, 2*time.Second, ft.IsConnected)

	waitFor(t, 2*time.Second, func() bool { return len(b.sentCommands()) >= len(tracked) })
	replayed := b.sentCommands()
	if len(replayed) != len(tracked) {
		t.Fatalf("got %d replayed commands, want %d", len(replayed), len(tracked))
	}
	for i, cmd := range tracked {
		if replayed[i] != cmd {
			t.Fatalf("replayed command %d out of order: got %T, want the original %T", i, replayed[i], cmd)
		}
	}

	if err := ft.Oneway(&command.ShutdownInfo{}); err != nil {
		t.Fatalf("post-reconnect Oneway: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(b.sentCommands()) == len(tracked)+1 })
}

func TestOnewayBlocksThenSendsOnceReconnected(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{uri: "mock://a", failStart: true}
	dial, _ := dialerFor(map[string]*fakeTransport{"mock://a": a})

	cfg := failover.DefaultConfig()
	cfg.Randomize = false
	cfg.InitialReconnectDelay = 5 * time.Millisecond
	cfg.MaxReconnectDelay = 20 * time.Millisecond
	ft := failover.New([]string{"mock://a"}, dial, cfg)
	if err := ft.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ft.Close()

	resultCh := make(chan error, 1)
	go func() { resultCh <- ft.Oneway(&command.ShutdownInfo{}) }()

	select {
	case err := <-resultCh:
		t.Fatalf("Oneway returned early with %v while disconnected", err)
	case <-time.After(100 * time.Millisecond):
	}

	a.setFailStart(false)

	select {
	case err := <-resultCh:
		if err != nil {
			t.Fatalf("Oneway: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Oneway never unblocked after reconnect succeeded")
	}
}

func TestGivesUpAfterMaxReconnectAttempts(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{uri: "mock://a", failStart: true}
	dial, attempts := dialerFor(map[string]*fakeTransport{"mock://a": a})

	cfg := failover.DefaultConfig()
	cfg.Randomize = false
	cfg.InitialReconnectDelay = time.Millisecond
	cfg.MaxReconnectDelay = 2 * time.Millisecond
	cfg.MaxReconnectAttempts = 3
	ft := failover.New([]string{"mock://a"}, dial, cfg)

	errCh := make(chan error, 1)
	ft.SetListener(exceptionCapture{errCh})

	if err := ft.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ft.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, failover.ErrNoMoreBrokers) {
			t.Fatalf("got %v, want ErrNoMoreBrokers", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ErrNoMoreBrokers")
	}

	if err := ft.Oneway(&command.ShutdownInfo{}); !errors.Is(err, failover.ErrNoMoreBrokers) {
		t.Fatalf("got %v, want ErrNoMoreBrokers", err)
	}
	if got := len(attempts()); got < 3 {
		t.Fatalf("got %d dial attempts, want at least 3", got)
	}
}

type exceptionCapture struct {
	errs chan error
}

func (c exceptionCapture) OnCommand(command.Command) {}
func (c exceptionCapture) OnException(err error)     { c.errs <- err }

func TestBrokerRebalanceSwitchesToReconnectTarget(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{uri: "mock://a", failStart: true}
	b := &fakeTransport{uri: "mock://b"}
	c := &fakeTransport{uri: "mock://c"}
	dial, _ := dialerFor(map[string]*fakeTransport{"mock://a": a, "mock://b": b, "mock://c": c})

	cfg := failover.DefaultConfig()
	cfg.Randomize = false
	cfg.InitialReconnectDelay = 5 * time.Millisecond
	cfg.UpdateURIsSupported = true
	ft := failover.New([]string{"mock://a", "mock://b"}, dial, cfg)
	if err := ft.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ft.Close()

	waitFor(t, 2*time.Second, func() bool { return ft.RemoteAddress() == "mock://b" })

	b.deliver(&command.ConnectionControl{ReconnectTo: "mock://c", Rebalance: true})
	ft.RemoveURI(true, []string{"mock://b"})

	waitFor(t, 5*time.Second, func() bool { return ft.RemoteAddress() == "mock://c" })
	waitFor(t, 2*time.Second, ft.IsConnected)
}

func TestCloseIsIdempotentAndClosesActiveTransport(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{uri: "mock://a"}
	dial, _ := dialerFor(map[string]*fakeTransport{"mock://a": a})

	cfg := failover.DefaultConfig()
	ft := failover.New([]string{"mock://a"}, dial, cfg)
	if err := ft.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 2*time.Second, ft.IsConnected)

	if err := ft.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ft.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !ft.IsClosed() {
		t.Fatal("got IsClosed()=false after Close")
	}
	if !a.closed {
		t.Fatal("got active transport not closed")
	}
}
