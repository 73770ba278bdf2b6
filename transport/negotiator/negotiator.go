// Package negotiator implements WireFormatNegotiator: on Start it sends
// this side's WireFormatInfo immediately, buffers every other outbound
// command until the peer's WireFormatInfo arrives, negotiates the wire
// format options once it does, and then flushes the buffered backlog.
package negotiator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
)

// ErrHandshakeTimeout is returned by Start when no WireFormatInfo arrives
// from the peer within the configured handshake timeout.
var ErrHandshakeTimeout = errors.New("negotiator: handshake timed out")

// Negotiable is satisfied by a wire format capable of handshake
// negotiation (openwire.Format is the only implementation, but the
// interface keeps this package decoupled from it).
type Negotiable interface {
	transport.WireFormat
	LocalWireFormatInfo() *command.WireFormatInfo
	Negotiate(local, remote *command.WireFormatInfo)
}

// Transport wraps next, delaying all but the handshake's own
// WireFormatInfo exchange until negotiation completes.
type Transport struct {
	next             transport.Transport
	wf               Negotiable
	handshakeTimeout time.Duration

	mu              sync.Mutex
	negotiated      bool
	negotiatedCh    chan struct{}
	pendingOutbound []command.Command
	listener        transport.Listener
}

// New wraps next with wf's negotiation. A handshakeTimeout of zero or less
// means Start returns right after sending the local WireFormatInfo,
// without waiting for the peer's.
func New(next transport.Transport, wf Negotiable, handshakeTimeout time.Duration) *Transport {
	t := &Transport{
		next:             next,
		wf:               wf,
		handshakeTimeout: handshakeTimeout,
		negotiatedCh:     make(chan struct{}),
	}
	next.SetWireFormat(wf)
	next.SetListener(t)
	return t
}

// Unwrap supports transport.Narrow.
func (t *Transport) Unwrap() transport.Transport { return t.next }

// Negotiated reports whether the handshake has completed.
func (t *Transport) Negotiated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.negotiated
}

// Start starts the wrapped transport, sends the local WireFormatInfo, and
// (if handshakeTimeout > 0) waits for negotiation to complete before
// returning.
func (t *Transport) Start() error {
	if err := t.next.Start(); err != nil {
		return err
	}
	if err := t.next.Oneway(t.wf.LocalWireFormatInfo()); err != nil {
		return fmt.Errorf("negotiator: start: send handshake: %w", err)
	}
	if t.handshakeTimeout <= 0 {
		return nil
	}
	select {
	case <-t.negotiatedCh:
		return nil
	case <-time.After(t.handshakeTimeout):
		return fmt.Errorf("negotiator: start: %w", ErrHandshakeTimeout)
	}
}

func (t *Transport) Stop() error { return t.next.Stop() }
func (t *Transport) Close() error { return t.next.Close() }

// Oneway sends cmd immediately if negotiation has completed; otherwise it
// buffers cmd to be flushed once the peer's WireFormatInfo arrives.
func (t *Transport) Oneway(cmd command.Command) error {
	t.mu.Lock()
	if !t.negotiated {
		if _, isWfi := cmd.(*command.WireFormatInfo); !isWfi {
			t.pendingOutbound = append(t.pendingOutbound, cmd)
			t.mu.Unlock()
			return nil
		}
	}
	t.mu.Unlock()
	return t.next.Oneway(cmd)
}

func (t *Transport) SetListener(l transport.Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}

// SetWireFormat replaces the wrapped wire format. If wf is itself
// Negotiable it becomes the format future handshakes negotiate against;
// otherwise negotiation is left untouched and wf is only forwarded to the
// wrapped transport.
func (t *Transport) SetWireFormat(wf transport.WireFormat) {
	if n, ok := wf.(Negotiable); ok {
		t.mu.Lock()
		t.wf = n
		t.mu.Unlock()
	}
	t.next.SetWireFormat(wf)
}

func (t *Transport) WireFormat() transport.WireFormat { return t.next.WireFormat() }

func (t *Transport) IsClosed() bool        { return t.next.IsClosed() }
func (t *Transport) IsConnected() bool     { return t.next.IsConnected() }
func (t *Transport) IsFaultTolerant() bool { return t.next.IsFaultTolerant() }
func (t *Transport) RemoteAddress() string { return t.next.RemoteAddress() }

// OnCommand implements transport.Listener. A WireFormatInfo from the peer
// triggers negotiation (once); anything else passes straight through.
func (t *Transport) OnCommand(cmd command.Command) {
	if remote, ok := cmd.(*command.WireFormatInfo); ok {
		t.negotiate(remote)
		return
	}
	t.forward(cmd)
}

func (t *Transport) negotiate(remote *command.WireFormatInfo) {
	t.mu.Lock()
	if t.negotiated {
		t.mu.Unlock()
		return
	}
	local := t.wf.LocalWireFormatInfo()
	t.wf.Negotiate(local, remote)
	t.negotiated = true
	pending := t.pendingOutbound
	t.pendingOutbound = nil
	t.mu.Unlock()

	close(t.negotiatedCh)

	for _, cmd := range pending {
		if err := t.next.Oneway(cmd); err != nil {
			t.fireException(fmt.Errorf("negotiator: flush pending command: %w", err))
		}
	}
}

func (t *Transport) forward(cmd command.Command) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l != nil {
		l.OnCommand(cmd)
	}
}

// OnException implements transport.Listener, passing exceptions straight
// through to the configured listener.
func (t *Transport) OnException(err error) {
	t.fireException(err)
}

func (t *Transport) fireException(err error) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l != nil {
		l.OnException(err)
	}
}
