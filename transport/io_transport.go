package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/corvidmq/ommq/command"
)

// IOTransport is TransportCore: it marshals Oneway commands straight onto
// an underlying connection and runs a read loop on its own goroutine,
// delivering inbound commands/exceptions to a Listener. Grounded on
// IOTransport.cpp's `{new, started, closed}` atomic-flag state machine and
// its run()/oneway()/close() bodies, translated from a joined worker
// thread into a goroutine synchronized with a done channel.
type IOTransport struct {
	conn io.ReadWriteCloser
	br   *bufio.Reader

	writeMu sync.Mutex

	mu       sync.Mutex
	wf       WireFormat
	listener Listener

	started atomic.Bool
	closed  atomic.Bool

	done chan struct{}
}

// NewIOTransport returns an IOTransport reading/writing conn via wf. Start
// must be called before Oneway will send anything or the read loop will
// deliver anything.
func NewIOTransport(conn io.ReadWriteCloser, wf WireFormat) *IOTransport {
	return &IOTransport{
		conn: conn,
		br:   bufio.NewReader(conn),
		wf:   wf,
		done: make(chan struct{}),
	}
}

func (t *IOTransport) SetListener(l Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}

func (t *IOTransport) SetWireFormat(wf WireFormat) {
	t.mu.Lock()
	t.wf = wf
	t.mu.Unlock()
}

func (t *IOTransport) WireFormat() WireFormat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wf
}

func (t *IOTransport) IsClosed() bool     { return t.closed.Load() }
func (t *IOTransport) IsConnected() bool  { return !t.closed.Load() }
func (t *IOTransport) IsFaultTolerant() bool { return false }

func (t *IOTransport) RemoteAddress() string {
	if nc, ok := t.conn.(net.Conn); ok {
		return nc.RemoteAddr().String()
	}
	return ""
}

// Start launches the read-loop goroutine. A second call is a no-op,
// mirroring IOTransport::start's compare-and-set guard on its started flag.
func (t *IOTransport) Start() error {
	if t.closed.Load() {
		return fmt.Errorf("transport: start: %w", ErrTransportClosed)
	}
	if !t.started.CompareAndSwap(false, true) {
		return nil
	}
	go t.run()
	return nil
}

// Stop pauses command delivery. The read loop may still deliver one
// already-in-flight command, matching IOTransport::stop's documented
// "polling can be suspended... may still pull one command off the wire"
// behavior, since the unmarshal-then-check-flag order can't be interrupted
// mid-read.
func (t *IOTransport) Stop() error {
	t.started.Store(false)
	return nil
}

// Close marks the transport closed, drops the listener so no more async
// events fire, closes the underlying connection (waking the read loop out
// of its blocking read), and waits for the read loop to exit.
func (t *IOTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	t.listener = nil
	t.mu.Unlock()

	wasStarted := t.started.Load()
	closeErr := t.conn.Close()
	if wasStarted {
		<-t.done
	}
	if closeErr != nil {
		return fmt.Errorf("transport: close: %w", closeErr)
	}
	return nil
}

// Oneway marshals cmd and writes it to the connection. Writes are
// serialized by writeMu, mirroring the `synchronized(outputStream)` block
// in IOTransport::oneway.
func (t *IOTransport) Oneway(cmd command.Command) error {
	if t.closed.Load() {
		return fmt.Errorf("transport: oneway: %w", ErrTransportClosed)
	}
	if !t.started.Load() {
		return fmt.Errorf("transport: oneway: %w", ErrNotStarted)
	}
	if cmd == nil {
		return fmt.Errorf("transport: oneway: %w", ErrNilCommand)
	}

	b, err := t.WireFormat().Marshal(cmd)
	if err != nil {
		return fmt.Errorf("transport: oneway: marshal: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.conn.Write(b); err != nil {
		return fmt.Errorf("transport: oneway: write: %w", err)
	}
	return nil
}

// run is the read loop: while started and not closed, unmarshal the next
// command off the wire and deliver it. A read error (including the one
// produced by Close() closing the connection out from under a blocked
// read) ends the loop after one final exception delivery attempt, which
// fireException will drop if the transport is by then closed — matching
// IOTransport::run's catch-and-fire behavior around its own while loop.
func (t *IOTransport) run() {
	defer close(t.done)
	for t.started.Load() && !t.closed.Load() {
		cmd, err := t.WireFormat().Unmarshal(t.br)
		if err != nil {
			t.fireException(fmt.Errorf("transport: read: %w", err))
			return
		}
		t.fireCommand(cmd)
	}
}

func (t *IOTransport) fireCommand(cmd command.Command) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l == nil || t.closed.Load() {
		return
	}
	l.OnCommand(cmd)
}

func (t *IOTransport) fireException(err error) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l == nil || !t.started.Load() || t.closed.Load() {
		return
	}
	l.OnException(err)
}
