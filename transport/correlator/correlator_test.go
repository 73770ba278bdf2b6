package correlator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
	"github.com/corvidmq/ommq/transport/correlator"
)

type fakeTransport struct {
	mu       sync.Mutex
	listener transport.Listener
	sent     []command.Command
	closed   bool
}

func (f *fakeTransport) Oneway(cmd command.Command) error {
	f.mu.Lock()
	f.sent = append(f.sent, cmd)
	f.mu.Unlock()
	return nil
}
func (f *fakeTransport) Start() error { return nil }
func (f *fakeTransport) Stop() error  { return nil }
func (f *fakeTransport) Close() error {
	f.mu.Lock()
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
func (f *fakeTransport) IsConnected() bool     { return !f.IsClosed() }
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

func (f *fakeTransport) lastSentId(t *testing.T) int32 {
	t.Helper()
	for i := 0; i < 200; i++ {
		f.mu.Lock()
		if len(f.sent) > 0 {
			id := f.sent[len(f.sent)-1].CommandId()
			f.mu.Unlock()
			return id
		}
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no command was sent")
	return 0
}

type captureListener struct {
	cmds chan command.Command
	errs chan error
}

func (c *captureListener) OnCommand(cmd command.Command) { c.cmds <- cmd }
func (c *captureListener) OnException(err error)         { c.errs <- err }

func TestRequestMatchesCorrelatedResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	c := correlator.New(fake)

	type result struct {
		resp command.Command
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		resp, err := c.Request(context.Background(), &command.ConnectionInfo{ClientId: "c1"})
		resultCh <- result{resp, err}
	}()

	id := fake.lastSentId(t)
	fake.deliver(&command.Response{CorrelationId: id})

	select {
	case r := <-resultCh:
		if r.err != nil {
			t.Fatalf("Request: %v", r.err)
		}
		if _, ok := r.resp.(*command.Response); !ok {
			t.Fatalf("got %T, want *command.Response", r.resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Request to return")
	}
}

func TestRequestReturnsErrorOnExceptionResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	c := correlator.New(fake)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), &command.ConnectionInfo{})
		errCh <- err
	}()

	id := fake.lastSentId(t)
	fake.deliver(&command.ExceptionResponse{CorrelationId: id, Message: "nope"})

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("got nil error, want one wrapping the broker message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestRequestTimesOut(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	c := correlator.New(fake)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Request(ctx, &command.ConnectionInfo{})
	if !errors.Is(err, correlator.ErrRequestTimedOut) {
		t.Fatalf("got %v, want ErrRequestTimedOut", err)
	}
}

func TestOnewayAssignsIncreasingCommandIds(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	c := correlator.New(fake)

	a := &command.ShutdownInfo{}
	b := &command.ShutdownInfo{}
	if err := c.Oneway(a); err != nil {
		t.Fatalf("Oneway a: %v", err)
	}
	if err := c.Oneway(b); err != nil {
		t.Fatalf("Oneway b: %v", err)
	}
	if a.CommandId() == 0 || b.CommandId() != a.CommandId()+1 {
		t.Fatalf("got ids %d, %d, want sequential starting above zero", a.CommandId(), b.CommandId())
	}
}

func TestCloseWakesPendingRequests(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	c := correlator.New(fake)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), &command.ConnectionInfo{})
		errCh <- err
	}()
	fake.lastSentId(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, transport.ErrTransportClosed) {
			t.Fatalf("got %v, want ErrTransportClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestNonResponseCommandsForwardToListener(t *testing.T) {
	t.Parallel()

	fake := &fakeTransport{}
	c := correlator.New(fake)
	l := &captureListener{cmds: make(chan command.Command, 1), errs: make(chan error, 1)}
	c.SetListener(l)

	fake.deliver(&command.ShutdownInfo{})

	select {
	case cmd := <-l.cmds:
		if _, ok := cmd.(*command.ShutdownInfo); !ok {
			t.Fatalf("got %T, want *command.ShutdownInfo", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded command")
	}
}
