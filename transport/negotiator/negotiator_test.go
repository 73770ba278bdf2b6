package negotiator_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/openwire"
	"github.com/corvidmq/ommq/transport"
	"github.com/corvidmq/ommq/transport/negotiator"
)

type fakeTransport struct {
	mu       sync.Mutex
	listener transport.Listener
	wf       transport.WireFormat
	sent     []command.Command
}

func (f *fakeTransport) Oneway(cmd command.Command) error {
	f.mu.Lock()
	f.sent = append(f.sent, cmd)
	f.mu.Unlock()
	return nil
}
func (f *fakeTransport) Start() error { return nil }
func (f *fakeTransport) Stop() error  { return nil }
func (f *fakeTransport) Close() error { return nil }
func (f *fakeTransport) SetListener(l transport.Listener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}
func (f *fakeTransport) SetWireFormat(wf transport.WireFormat) {
	f.mu.Lock()
	f.wf = wf
	f.mu.Unlock()
}
func (f *fakeTransport) WireFormat() transport.WireFormat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wf
}
func (f *fakeTransport) IsClosed() bool        { return false }
func (f *fakeTransport) IsConnected() bool     { return true }
func (f *fakeTransport) IsFaultTolerant() bool { return false }
func (f *fakeTransport) RemoteAddress() string { return "" }

func (f *fakeTransport) deliver(cmd command.Command) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.OnCommand(cmd)
	}
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestStartSendsLocalWireFormatInfoImmediately(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	wf := openwire.NewFormat(openwire.MaxSupportedVersion)
	n := negotiator.New(fake, wf, 0)

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if fake.sentCount() != 1 {
		t.Fatalf("got %d sent commands, want 1 (the local handshake)", fake.sentCount())
	}
	if _, ok := fake.sent[0].(*command.WireFormatInfo); !ok {
		t.Fatalf("got %T, want *command.WireFormatInfo", fake.sent[0])
	}
}

func TestOnewayBuffersUntilNegotiatedThenFlushes(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	wf := openwire.NewFormat(openwire.MaxSupportedVersion)
	n := negotiator.New(fake, wf, 0)

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ci := &command.ConnectionInfo{ClientId: "c1"}
	if err := n.Oneway(ci); err != nil {
		t.Fatalf("Oneway: %v", err)
	}
	if fake.sentCount() != 1 {
		t.Fatalf("got %d sent commands before negotiation, want 1 (only the handshake)", fake.sentCount())
	}
	if n.Negotiated() {
		t.Fatal("got Negotiated()=true before the peer's WireFormatInfo arrived")
	}

	remote := command.NewWireFormatInfo(openwire.MaxSupportedVersion)
	fake.deliver(remote)

	if !n.Negotiated() {
		t.Fatal("got Negotiated()=false after the peer's WireFormatInfo arrived")
	}
	if fake.sentCount() != 2 {
		t.Fatalf("got %d sent commands after negotiation, want 2 (handshake + flushed ConnectionInfo)", fake.sentCount())
	}
	if _, ok := fake.sent[1].(*command.ConnectionInfo); !ok {
		t.Fatalf("got %T as the flushed command, want *command.ConnectionInfo", fake.sent[1])
	}
}

func TestStartTimesOutWithoutPeerHandshake(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	wf := openwire.NewFormat(openwire.MaxSupportedVersion)
	n := negotiator.New(fake, wf, 20*time.Millisecond)

	err := n.Start()
	if !errors.Is(err, negotiator.ErrHandshakeTimeout) {
		t.Fatalf("got %v, want ErrHandshakeTimeout", err)
	}
}

func TestNonHandshakeCommandsForwardToListener(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	wf := openwire.NewFormat(openwire.MaxSupportedVersion)
	n := negotiator.New(fake, wf, 0)

	cmds := make(chan command.Command, 1)
	n.SetListener(listenerFunc{onCommand: func(c command.Command) { cmds <- c }})

	fake.deliver(&command.ShutdownInfo{})

	select {
	case cmd := <-cmds:
		if _, ok := cmd.(*command.ShutdownInfo); !ok {
			t.Fatalf("got %T, want *command.ShutdownInfo", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded command")
	}
}

type listenerFunc struct {
	onCommand   func(command.Command)
	onException func(error)
}

func (l listenerFunc) OnCommand(cmd command.Command) {
	if l.onCommand != nil {
		l.onCommand(cmd)
	}
}

func (l listenerFunc) OnException(err error) {
	if l.onException != nil {
		l.onException(err)
	}
}
