// Package mutex implements MutexTransport: a thin filter that serializes
// Oneway calls from multiple goroutines onto a single wrapped transport,
// so marshal+write of one command never interleaves with another's.
package mutex

import (
	"sync"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
)

// Transport serializes Oneway; everything else passes straight through to
// the wrapped transport.
type Transport struct {
	next transport.Transport

	mu sync.Mutex
}

// New wraps next with outbound-write serialization.
func New(next transport.Transport) *Transport {
	return &Transport{next: next}
}

// Unwrap supports transport.Narrow.
func (t *Transport) Unwrap() transport.Transport { return t.next }

func (t *Transport) Oneway(cmd command.Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next.Oneway(cmd)
}

func (t *Transport) Start() error { return t.next.Start() }
func (t *Transport) Stop() error  { return t.next.Stop() }
func (t *Transport) Close() error { return t.next.Close() }

func (t *Transport) SetListener(l transport.Listener)   { t.next.SetListener(l) }
func (t *Transport) SetWireFormat(wf transport.WireFormat) { t.next.SetWireFormat(wf) }
func (t *Transport) WireFormat() transport.WireFormat    { return t.next.WireFormat() }

func (t *Transport) IsClosed() bool        { return t.next.IsClosed() }
func (t *Transport) IsConnected() bool     { return t.next.IsConnected() }
func (t *Transport) IsFaultTolerant() bool { return t.next.IsFaultTolerant() }
func (t *Transport) RemoteAddress() string { return t.next.RemoteAddress() }
