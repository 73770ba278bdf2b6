package transport_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/stomp"
	"github.com/corvidmq/ommq/transport"
)

type captureListener struct {
	cmds chan command.Command
	errs chan error
}

func newCaptureListener() *captureListener {
	return &captureListener{cmds: make(chan command.Command, 8), errs: make(chan error, 8)}
}

func (c *captureListener) OnCommand(cmd command.Command) { c.cmds <- cmd }
func (c *captureListener) OnException(err error)         { c.errs <- err }

func TestIOTransportOnewayWritesFrame(t *testing.T) {
	t.Parallel()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	tr := transport.NewIOTransport(serverConn, stomp.NewWireFormat(nil))
	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tr.Close()

	ci := &command.ConnectionInfo{ClientId: "c1"}
	done := make(chan error, 1)
	go func() { done <- tr.Oneway(ci) }()

	br := bufio.NewReader(clientConn)
	fr, err := stomp.ReadFrame(br)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if fr.Command != "CONNECT" {
		t.Fatalf("got %q, want CONNECT", fr.Command)
	}
	if err := <-done; err != nil {
		t.Fatalf("Oneway: %v", err)
	}
}

func TestIOTransportDeliversInboundCommands(t *testing.T) {
	t.Parallel()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	tr := transport.NewIOTransport(serverConn, stomp.NewWireFormat(nil))
	l := newCaptureListener()
	tr.SetListener(l)
	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tr.Close()

	fr := stomp.NewFrame("CONNECTED")
	fr.Set("receipt-id", "5")
	go func() {
		_, _ = clientConn.Write(fr.Marshal())
	}()

	select {
	case cmd := <-l.cmds:
		resp, ok := cmd.(*command.Response)
		if !ok || resp.CorrelationId != 5 {
			t.Fatalf("got %#v, want *command.Response{CorrelationId:5}", cmd)
		}
	case err := <-l.errs:
		t.Fatalf("got exception %v, want a command", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivered command")
	}
}

func TestIOTransportOnewayFailsBeforeStart(t *testing.T) {
	t.Parallel()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	tr := transport.NewIOTransport(serverConn, stomp.NewWireFormat(nil))
	if err := tr.Oneway(&command.ShutdownInfo{}); err == nil {
		t.Fatal("got nil error, want ErrNotStarted")
	}
}

func TestIOTransportCloseIsIdempotentAndUnblocksReadLoop(t *testing.T) {
	t.Parallel()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	tr := transport.NewIOTransport(serverConn, stomp.NewWireFormat(nil))
	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 2)
	go func() { done <- tr.Close() }()
	go func() { done <- tr.Close() }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Close: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Close did not return")
		}
	}
	if !tr.IsClosed() {
		t.Fatal("got IsClosed()=false after Close")
	}
}
