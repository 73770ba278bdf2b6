// Package transport defines the Transport/Listener contract shared by
// TransportCore (IOTransport) and every TransportFilter that wraps it
// (inactivity, negotiator, mutex, correlator, failover): a one-way command
// sink with an asynchronous inbound listener, independent of which wire
// format or physical connection backs it.
package transport

import (
	"errors"
	"io"

	"github.com/corvidmq/ommq/command"
)

// ErrTransportClosed is returned by any operation attempted on a closed
// transport.
var ErrTransportClosed = errors.New("transport: closed")

// ErrNotStarted is returned by Oneway when Start has not yet been called.
var ErrNotStarted = errors.New("transport: not started")

// ErrNilCommand is returned when Oneway is given a nil command.
var ErrNilCommand = errors.New("transport: nil command")

// WireFormat marshals commands to bytes and unmarshals commands from a
// byte stream. Both openwire.Format and stomp.WireFormat satisfy this
// without transport importing either package.
type WireFormat interface {
	Marshal(cmd command.Command) ([]byte, error)
	Unmarshal(r io.Reader) (command.Command, error)
}

// Listener receives commands and exceptions delivered asynchronously by a
// Transport's read loop.
type Listener interface {
	OnCommand(cmd command.Command)
	OnException(err error)
}

// Transport is the common interface implemented by IOTransport and every
// filter that decorates it. Request/response semantics are layered on top
// by the correlator filter; Transport itself is one-way only, matching
// IOTransport.cpp (which throws UnsupportedOperationException from its
// own request/asyncRequest).
type Transport interface {
	// Oneway hands a command to the transport for marshaling and sending.
	// It does not wait for any reply.
	Oneway(cmd command.Command) error

	Start() error
	Stop() error
	Close() error

	SetListener(l Listener)
	SetWireFormat(wf WireFormat)
	WireFormat() WireFormat

	IsClosed() bool
	IsConnected() bool

	// IsFaultTolerant reports whether this transport (or one of its
	// wrapped layers) reconnects on failure. Only FailoverTransport
	// returns true.
	IsFaultTolerant() bool

	RemoteAddress() string
}

// Narrow walks down through a chain of wrapping transports (each of which
// exposes the layer it wraps through an `Unwrap() Transport` method)
// looking for one of type T. It mirrors
// IOTransport::narrow's typeid-based lookup without needing RTTI.
func Narrow[T Transport](t Transport) (T, bool) {
	for t != nil {
		if v, ok := t.(T); ok {
			return v, true
		}
		u, ok := t.(interface{ Unwrap() Transport })
		if !ok {
			break
		}
		t = u.Unwrap()
	}
	var zero T
	return zero, false
}
