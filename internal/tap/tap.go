// Package tap implements an in-process capture point for ommq traffic:
// Tap wraps any transport.Transport (typically the outermost
// FailoverTransport a client.Connection talks through) and records every
// outbound Oneway command and inbound OnCommand/OnException delivery,
// fanning captured Entries out to the ommtap debug viewer (model.go)
// without touching the wire itself. There is no separate daemon process
// here, only the library and the transport it's already driving.
package tap

import (
	"sync"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
)

// Direction distinguishes a command ommq sent from one the broker sent.
type Direction byte

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "out"
	}
	return "in"
}

// Entry is one captured command, timestamped relative to when Tap
// observed it (not when it hit the wire — that's TransportCore's job).
type Entry struct {
	Seq       int
	At        time.Time
	Direction Direction
	Command   command.Command
	Err       error  // set only for a captured OnException
	Storm     *Alert // set when this entry crossed the redelivery-storm threshold
}

// Tap wraps next, recording every command it carries in either
// direction into a bounded ring buffer and broadcasting each one on a
// best-effort subscription channel for a live viewer.
type Tap struct {
	next transport.Transport

	mu       sync.Mutex
	seq      int
	ring     []Entry
	ringCap  int
	listener transport.Listener

	subMu sync.Mutex
	subs  []chan Entry

	storm *storm
}

// New wraps next with capture, keeping at most ringCap entries (0 means
// 1000). Tap registers itself as next's Listener. Redelivered dispatches
// to the same destination are watched for storms: 5 or more within a
// second flags an Alert, repeated at most once per 10s cooldown.
func New(next transport.Transport, ringCap int) *Tap {
	if ringCap <= 0 {
		ringCap = 1000
	}
	t := &Tap{next: next, ringCap: ringCap, storm: newStorm(5, time.Second, 10*time.Second)}
	next.SetListener(t)
	return t
}

// Unwrap supports transport.Narrow, so client can still locate the
// request-capable transport underneath a Tap.
func (t *Tap) Unwrap() transport.Transport { return t.next }

func (t *Tap) record(e Entry) {
	t.mu.Lock()
	t.seq++
	e.Seq = t.seq
	t.ring = append(t.ring, e)
	if len(t.ring) > t.ringCap {
		t.ring = t.ring[len(t.ring)-t.ringCap:]
	}
	t.mu.Unlock()

	t.subMu.Lock()
	for _, ch := range t.subs {
		select {
		case ch <- e:
		default:
		}
	}
	t.subMu.Unlock()
}

// Oneway implements transport.Transport: it records cmd as Outbound
// before handing it to next.
func (t *Tap) Oneway(cmd command.Command) error {
	t.record(Entry{At: time.Now(), Direction: Outbound, Command: cmd})
	return t.next.Oneway(cmd)
}

func (t *Tap) Start() error { return t.next.Start() }
func (t *Tap) Stop() error  { return t.next.Stop() }
func (t *Tap) Close() error {
	t.subMu.Lock()
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
	t.subMu.Unlock()
	return t.next.Close()
}

func (t *Tap) SetListener(l transport.Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}
func (t *Tap) SetWireFormat(wf transport.WireFormat) { t.next.SetWireFormat(wf) }
func (t *Tap) WireFormat() transport.WireFormat      { return t.next.WireFormat() }

func (t *Tap) IsClosed() bool        { return t.next.IsClosed() }
func (t *Tap) IsConnected() bool     { return t.next.IsConnected() }
func (t *Tap) IsFaultTolerant() bool { return t.next.IsFaultTolerant() }
func (t *Tap) RemoteAddress() string { return t.next.RemoteAddress() }

// OnCommand implements transport.Listener: it records cmd as Inbound,
// flags a redelivery storm on the dispatched destination if one is in
// progress, then forwards cmd unchanged to the configured listener.
func (t *Tap) OnCommand(cmd command.Command) {
	e := Entry{At: time.Now(), Direction: Inbound, Command: cmd}
	if md, ok := cmd.(*command.MessageDispatch); ok && md.RedeliveryCounter > 0 {
		e.Storm = t.storm.record(md.Destination.Name, e.At)
	}
	t.record(e)
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l != nil {
		l.OnCommand(cmd)
	}
}

// OnException implements transport.Listener: it records err as a
// directionless Entry, then forwards it.
func (t *Tap) OnException(err error) {
	t.record(Entry{At: time.Now(), Err: err})
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l != nil {
		l.OnException(err)
	}
}

// Entries returns a snapshot of the currently retained capture ring.
func (t *Tap) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.ring))
	copy(out, t.ring)
	return out
}

// Subscribe returns a channel of Entries captured from now on. The
// channel is closed when the Tap itself is Closed.
// Delivery is best-effort: a subscriber that falls behind misses entries
// rather than stalling the transport's read loop.
func (t *Tap) Subscribe() <-chan Entry {
	ch := make(chan Entry, 256)
	t.subMu.Lock()
	t.subs = append(t.subs, ch)
	t.subMu.Unlock()
	return ch
}
