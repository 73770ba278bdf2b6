// Package inactivity implements InactivityMonitor: a read watchdog that
// closes the transport if nothing (not even a KeepAliveInfo) arrives
// within the negotiated window, and a write pulse that sends a
// KeepAliveInfo of its own whenever nothing else has been written
// recently, so the peer's watchdog stays fed. A zero/negative duration
// disables both timers, leaving the wrapped transport untouched.
package inactivity

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
)

// ErrInactivityTimeout is fired (via OnException) and the wrapped
// transport closed, when no inbound activity is observed within
// MaxInactivityDuration.
var ErrInactivityTimeout = errors.New("inactivity: no activity from peer within the configured window")

// Transport wraps next with read/write inactivity timers.
type Transport struct {
	next                  transport.Transport
	maxInactivityDuration time.Duration

	mu        sync.Mutex
	listener  transport.Listener
	lastRead  time.Time
	lastWrite time.Time
	closed    bool
	stopCh    chan struct{}
}

// New wraps next. maxInactivityDuration <= 0 disables both timers.
func New(next transport.Transport, maxInactivityDuration time.Duration) *Transport {
	t := &Transport{
		next:                  next,
		maxInactivityDuration: maxInactivityDuration,
		stopCh:                make(chan struct{}),
	}
	next.SetListener(t)
	return t
}

// Unwrap supports transport.Narrow.
func (t *Transport) Unwrap() transport.Transport { return t.next }

func (t *Transport) Start() error {
	if err := t.next.Start(); err != nil {
		return err
	}
	if t.maxInactivityDuration <= 0 {
		return nil
	}
	now := time.Now()
	t.mu.Lock()
	t.lastRead = now
	t.lastWrite = now
	t.mu.Unlock()

	go t.watchRead()
	go t.watchWrite()
	return nil
}

func (t *Transport) Stop() error { return t.next.Stop() }

// Close stops both timers and closes the wrapped transport. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.stopCh)
	return t.next.Close()
}

// Oneway records the write and forwards cmd, feeding the write-pulse
// timer so it only sends a KeepAliveInfo when genuinely idle.
func (t *Transport) Oneway(cmd command.Command) error {
	err := t.next.Oneway(cmd)
	if err == nil {
		t.mu.Lock()
		t.lastWrite = time.Now()
		t.mu.Unlock()
	}
	return err
}

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

func (t *Transport) watchRead() {
	ticker := time.NewTicker(t.maxInactivityDuration)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.mu.Lock()
			since := time.Since(t.lastRead)
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			if since >= t.maxInactivityDuration {
				t.fireException(fmt.Errorf("inactivity: %w", ErrInactivityTimeout))
				_ = t.next.Close()
				return
			}
		}
	}
}

func (t *Transport) watchWrite() {
	interval := t.maxInactivityDuration / 2
	if interval <= 0 {
		interval = t.maxInactivityDuration
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.mu.Lock()
			since := time.Since(t.lastWrite)
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			if since < interval {
				continue
			}
			if err := t.next.Oneway(&command.KeepAliveInfo{}); err != nil {
				t.fireException(fmt.Errorf("inactivity: write pulse: %w", err))
				return
			}
			t.mu.Lock()
			t.lastWrite = time.Now()
			t.mu.Unlock()
		}
	}
}

// OnCommand implements transport.Listener: every inbound command (even a
// swallowed KeepAliveInfo) resets the read watchdog, matching the ping's
// sole purpose of keeping the connection looking alive.
func (t *Transport) OnCommand(cmd command.Command) {
	t.mu.Lock()
	t.lastRead = time.Now()
	t.mu.Unlock()

	if command.IsKeepAliveInfo(cmd) {
		return
	}
	t.forward(cmd)
}

func (t *Transport) forward(cmd command.Command) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l != nil {
		l.OnCommand(cmd)
	}
}

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
