// Package client is the thin Connection/Session/Producer/Consumer facade
// topping the transport stack: it is defined only by the commands it
// emits and the commands it expects to receive, not as a full JMS-shaped
// API. It wires together a WireFormat, the transport
// filter chain (IOTransport + InactivityMonitor + [WireFormatNegotiator]
// + MutexTransport + ResponseCorrelator), and — for failover:// addresses
// — FailoverTransport on top of a pool of such stacks.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/openwire"
	"github.com/corvidmq/ommq/stomp"
	"github.com/corvidmq/ommq/transport"
	"github.com/corvidmq/ommq/transport/correlator"
	"github.com/corvidmq/ommq/transport/failover"
	"github.com/corvidmq/ommq/transport/inactivity"
	"github.com/corvidmq/ommq/transport/mutex"
	"github.com/corvidmq/ommq/transport/negotiator"
	"github.com/corvidmq/ommq/uri"
)

// ErrNotConnected is returned when an operation needing a request/response
// round trip is attempted before a transport has become available.
var ErrNotConnected = errors.New("client: not connected")

// Requester is satisfied by the innermost transport able to correlate a
// command to its reply. *correlator.Transport is the only implementation;
// the interface keeps client decoupled from that package's concrete type
// when narrowing through a FailoverTransport.
type Requester interface {
	transport.Transport
	Request(ctx context.Context, cmd command.Command) (command.Command, error)
}

// Options configures a Dial. The zero value is a usable default:
// negotiated OpenWire version 12, a 30s inactivity timeout, a 15s request
// timeout, and an auto-generated client id.
type Options struct {
	ClientId              string
	UserName              string
	Password              string
	OpenWireVersion       int32
	HandshakeTimeout      time.Duration
	MaxInactivityDuration time.Duration
	RequestTimeout        time.Duration
}

func (o Options) withDefaults() Options {
	if o.OpenWireVersion == 0 {
		o.OpenWireVersion = 12
	}
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.MaxInactivityDuration == 0 {
		o.MaxInactivityDuration = 30 * time.Second
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.ClientId == "" {
		o.ClientId = command.NewConnectionId().String()
	}
	return o
}

// Connection is a single broker connection: the top of the transport
// stack plus the session/producer/consumer registry. Sessions, producers,
// and consumers are addressed by {connection_id, session_value, …}
// triples; this type owns the monotonic counters that assign them.
type Connection struct {
	top       transport.Transport
	opts      Options
	connId    command.ConnectionId
	listener  *dispatcher
	nextSess  int64
	closeOnce sync.Once
}

// Dial connects to addr, which is either a plain "scheme://host:port"
// broker URI or a composite "failover://(uri1,uri2,…)?opt=val" pool,
// sends the CONNECT-equivalent ConnectionInfo, and returns the open
// Connection.
func Dial(ctx context.Context, addr string, opts Options) (*Connection, error) {
	opts = opts.withDefaults()

	top, err := BuildTransport(addr, opts)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	c, err := Connect(ctx, top, opts)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return c, nil
}

// Connect starts top, sends ConnectionInfo, and returns the open
// Connection. Dial builds top from a URI and calls this; Connect is
// exported directly for callers (including tests) that already have a
// transport.Transport stack and just need the Connection/Session/
// Producer/Consumer facade over it.
func Connect(ctx context.Context, top transport.Transport, opts Options) (*Connection, error) {
	opts = opts.withDefaults()
	c := &Connection{
		top:      top,
		opts:     opts,
		connId:   command.NewConnectionId(),
		listener: newDispatcher(),
	}
	top.SetListener(c.listener)

	if err := top.Start(); err != nil {
		return nil, fmt.Errorf("start transport: %w", err)
	}

	info := &command.ConnectionInfo{
		ConnectionId: c.connId,
		ClientId:     opts.ClientId,
		UserName:     opts.UserName,
		Password:     opts.Password,
	}
	if _, err := c.request(ctx, info); err != nil {
		_ = top.Close()
		return nil, fmt.Errorf("open connection: %w", err)
	}
	return c, nil
}

// BuildTransport parses addr and returns either a single per-broker
// stack (plain URI) or a FailoverTransport over a pool of them
// (failover:// URI). Dial calls this directly; it's exported
// for callers (like ommtap) that need to insert something — a Tap,
// instrumentation — between the transport and the Connection facade.
func BuildTransport(addr string, opts Options) (transport.Transport, error) {
	if uri.IsFailover(addr) {
		fu, err := uri.ParseFailover(addr)
		if err != nil {
			return nil, err
		}
		cfg, err := fu.Config()
		if err != nil {
			return nil, err
		}
		dial := func(ctx context.Context, child string) (transport.Transport, error) {
			return dialOne(ctx, child, opts)
		}
		ft := failover.New(fu.Children, dial, cfg)
		return ft, nil
	}
	return dialOne(context.Background(), addr, opts)
}

// dialOne builds one full per-broker stack (IOTransport + InactivityMonitor
// + [WireFormatNegotiator] + MutexTransport + ResponseCorrelator) over a
// freshly dialed net.Conn.
func dialOne(ctx context.Context, raw string, opts Options) (transport.Transport, error) {
	pu, err := uri.ParsePlain(raw)
	if err != nil {
		return nil, err
	}

	conn, err := dialNet(ctx, pu)
	if err != nil {
		return nil, err
	}

	var wf transport.WireFormat
	useStomp := pu.Scheme == "stomp" || pu.Scheme == "stomp+ssl"
	if useStomp {
		wf = stomp.NewWireFormat(stomp.NewFormat())
	} else {
		wf = openwire.NewFormat(opts.OpenWireVersion)
	}

	io := transport.NewIOTransport(conn, wf)
	var next transport.Transport = inactivity.New(io, opts.MaxInactivityDuration)

	if neg, ok := wf.(negotiator.Negotiable); ok {
		next = negotiator.New(next, neg, opts.HandshakeTimeout)
	}

	next = mutex.New(next)
	return correlator.New(next), nil
}

func dialNet(ctx context.Context, pu *uri.PlainURI) (net.Conn, error) {
	host := pu.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, defaultPort(pu.Scheme))
	}

	d := net.Dialer{}
	switch pu.Scheme {
	case "ssl", "stomp+ssl":
		tlsConf := &tls.Config{}
		if v := pu.Options.Get("insecureSkipVerify"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				tlsConf.InsecureSkipVerify = b
			}
		}
		return tls.DialWithDialer(&d, "tcp", host, tlsConf)
	default:
		return d.DialContext(ctx, "tcp", host)
	}
}

func defaultPort(scheme string) string {
	switch scheme {
	case "stomp", "stomp+ssl":
		return "61613"
	default:
		return "61616"
	}
}

// requester narrows the top of the stack down to the currently active
// Requester, polling while a FailoverTransport is between connections.
// A Request in flight when failover swaps the active transport is not
// replayed — only Oneway-tracked commands survive reconnect.
func (c *Connection) requester(ctx context.Context) (Requester, error) {
	if r, ok := transport.Narrow[Requester](c.top); ok {
		return r, nil
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("client: %w: %w", ErrNotConnected, ctx.Err())
		case <-ticker.C:
			if r, ok := transport.Narrow[Requester](c.top); ok {
				return r, nil
			}
		}
	}
}

// request sends cmd and waits for its correlated Response. The correlator
// filter itself turns an ExceptionResponse into an error, so a nil error
// here always means reply is a genuine Response.
func (c *Connection) request(ctx context.Context, cmd command.Command) (command.Command, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	r, err := c.requester(ctx)
	if err != nil {
		return nil, err
	}
	return r.Request(ctx, cmd)
}

// oneway sends cmd without waiting for a reply.
func (c *Connection) oneway(cmd command.Command) error {
	if err := c.top.Oneway(cmd); err != nil {
		return fmt.Errorf("client: oneway: %w", err)
	}
	return nil
}

// nextSessionValue returns the next monotonic session id value scoped to
// this connection's {connection_id, u64 value} SessionId shape.
func (c *Connection) nextSessionValue() int64 {
	return atomic.AddInt64(&c.nextSess, 1)
}

// CreateSession opens a new Session on this connection.
func (c *Connection) CreateSession(ctx context.Context) (*Session, error) {
	sid := command.SessionId{ConnectionId: c.connId.Value, Value: c.nextSessionValue()}
	if _, err := c.request(ctx, &command.SessionInfo{SessionId: sid}); err != nil {
		return nil, fmt.Errorf("client: create session: %w", err)
	}
	return &Session{conn: c, id: sid}, nil
}

// Errors returns the channel transport-level exceptions (e.g. a
// FailoverTransport giving up with ErrNoMoreBrokers) are delivered on.
func (c *Connection) Errors() <-chan error {
	return c.listener.errCh
}

// Close sends ShutdownInfo and tears down the transport stack. Close is
// idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.oneway(&command.ShutdownInfo{})
		err = c.top.Close()
	})
	return err
}
