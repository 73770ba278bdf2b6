// Package correlator implements ResponseCorrelator: the filter that turns
// one-way commands into request/response pairs by assigning each command a
// sequential id and matching inbound Response/ExceptionResponse commands
// back to the goroutine awaiting them.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
)

// ErrRequestTimedOut is returned by Request when its context deadline
// expires before a correlated response arrives.
var ErrRequestTimedOut = errors.New("correlator: request timed out")

type pendingRequest struct {
	ch chan command.Command
}

// Transport wraps a transport.Transport, assigning command ids and
// intercepting Response/ExceptionResponse delivery to satisfy Request
// callers, while every other inbound command passes through to the
// configured Listener unchanged.
type Transport struct {
	next transport.Transport

	mu      sync.Mutex
	nextId  int32
	pending map[int32]*pendingRequest
	listener transport.Listener
	closed  bool
}

// New wraps next, registering itself as next's Listener.
func New(next transport.Transport) *Transport {
	t := &Transport{next: next, pending: make(map[int32]*pendingRequest)}
	next.SetListener(t)
	return t
}

// Unwrap supports transport.Narrow.
func (t *Transport) Unwrap() transport.Transport { return t.next }

func (t *Transport) assignId(cmd command.Command) int32 {
	t.mu.Lock()
	t.nextId++
	id := t.nextId
	t.mu.Unlock()
	cmd.SetCommandId(id)
	return id
}

// Oneway assigns cmd a fresh command id and forwards it without waiting
// for a reply.
func (t *Transport) Oneway(cmd command.Command) error {
	t.assignId(cmd)
	return t.next.Oneway(cmd)
}

// Request marks cmd as requiring a response, assigns it an id, sends it,
// and blocks until a correlated Response/ExceptionResponse arrives or ctx
// is done.
func (t *Transport) Request(ctx context.Context, cmd command.Command) (command.Command, error) {
	cmd.SetResponseRequired(true)
	id := t.assignId(cmd)

	req := &pendingRequest{ch: make(chan command.Command, 1)}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("correlator: request: %w", transport.ErrTransportClosed)
	}
	t.pending[id] = req
	t.mu.Unlock()

	if err := t.next.Oneway(cmd); err != nil {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return nil, fmt.Errorf("correlator: request: %w", err)
	}

	select {
	case resp, ok := <-req.ch:
		if !ok {
			return nil, fmt.Errorf("correlator: request: %w", transport.ErrTransportClosed)
		}
		if ex, isEx := resp.(*command.ExceptionResponse); isEx {
			return nil, fmt.Errorf("correlator: request: broker error: %s", ex.Message)
		}
		return resp, nil
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("correlator: request: %w", ErrRequestTimedOut)
		}
		return nil, fmt.Errorf("correlator: request: %w", ctx.Err())
	}
}

func (t *Transport) Start() error { return t.next.Start() }
func (t *Transport) Stop() error  { return t.next.Stop() }

// Close closes the wrapped transport and wakes every pending Request with
// ErrTransportClosed, matching the broker-side TransportClosed exception
// ActiveMQ-CPP's ResponseCorrelator raises for in-flight requests when the
// underlying connection goes away.
func (t *Transport) Close() error {
	err := t.next.Close()

	t.mu.Lock()
	t.closed = true
	pending := t.pending
	t.pending = make(map[int32]*pendingRequest)
	t.mu.Unlock()

	for _, req := range pending {
		close(req.ch)
	}
	return err
}

// SetListener sets the listener that receives every inbound command this
// filter doesn't itself consume as a correlated response.
func (t *Transport) SetListener(l transport.Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}

func (t *Transport) SetWireFormat(wf transport.WireFormat) { t.next.SetWireFormat(wf) }
func (t *Transport) WireFormat() transport.WireFormat       { return t.next.WireFormat() }

func (t *Transport) IsClosed() bool        { return t.next.IsClosed() }
func (t *Transport) IsConnected() bool     { return t.next.IsConnected() }
func (t *Transport) IsFaultTolerant() bool { return t.next.IsFaultTolerant() }
func (t *Transport) RemoteAddress() string { return t.next.RemoteAddress() }

// OnCommand implements transport.Listener: it is registered on the wrapped
// transport so this filter sees every inbound command first.
func (t *Transport) OnCommand(cmd command.Command) {
	var corrId int32
	switch v := cmd.(type) {
	case *command.Response:
		corrId = v.CorrelationId
	case *command.ExceptionResponse:
		corrId = v.CorrelationId
	default:
		t.forwardCommand(cmd)
		return
	}

	t.mu.Lock()
	req, ok := t.pending[corrId]
	if ok {
		delete(t.pending, corrId)
	}
	t.mu.Unlock()

	if !ok {
		// No Request is waiting on this correlation id (a stray receipt,
		// or one for a plain Oneway that never asked for a response);
		// pass it through like any other inbound command.
		t.forwardCommand(cmd)
		return
	}
	req.ch <- cmd
}

func (t *Transport) forwardCommand(cmd command.Command) {
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
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l != nil {
		l.OnException(err)
	}
}
