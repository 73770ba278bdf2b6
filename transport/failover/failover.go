// Package failover implements FailoverTransport: the outermost filter in
// the stack, which owns an ordered pool of broker URIs, reconnects with
// exponential backoff on connection loss, replays commands that must
// survive a reconnect, and reacts to broker-pushed ConnectionControl
// rebalancing hints.
package failover

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
)

// ErrNoMoreBrokers is fired (via OnException) and returned from subsequent
// Oneway/Request calls once MaxReconnectAttempts (or
// StartupMaxReconnectAttempts, before the first connect) is exhausted.
var ErrNoMoreBrokers = errors.New("failover: no more brokers to try")

// ErrSendTimedOut is returned by Oneway when the configured Timeout
// elapses while disconnected and the command is not one that gets
// tracked for replay instead.
var ErrSendTimedOut = errors.New("failover: send timed out while disconnected")

// Dialer constructs (but does not start) the composed transport stack for
// one broker URI — typically IOTransport wrapped by inactivity,
// negotiator, mutex, and correlator, per the scheme encoded in uri. The
// returned transport must not have its Listener set; FailoverTransport
// sets it to itself before calling Start.
type Dialer func(ctx context.Context, uri string) (transport.Transport, error)

// Config holds every option from the failover URI's query-string table.
type Config struct {
	Randomize                   bool
	InitialReconnectDelay      time.Duration
	MaxReconnectDelay          time.Duration
	UseExponentialBackOff      bool
	BackOffMultiplier          float64
	MaxReconnectAttempts       int
	StartupMaxReconnectAttempts int
	Backup                     bool
	BackupPoolSize             int
	TrackMessages              bool
	MaxCacheSize               int
	Timeout                    time.Duration
	PriorityBackup             bool
	PriorityURIs               []string
	UpdateURIsSupported        bool
}

// DefaultConfig returns the documented defaults for every failover option.
func DefaultConfig() Config {
	return Config{
		Randomize:                   true,
		InitialReconnectDelay:       10 * time.Millisecond,
		MaxReconnectDelay:           30 * time.Second,
		UseExponentialBackOff:       true,
		BackOffMultiplier:           2.0,
		MaxReconnectAttempts:        -1,
		StartupMaxReconnectAttempts: 0,
		Backup:                      false,
		BackupPoolSize:              1,
		TrackMessages:               false,
		MaxCacheSize:                131072,
		Timeout:                     -1,
		PriorityBackup:              false,
		UpdateURIsSupported:         true,
	}
}

type state int

const (
	stateInit state = iota
	stateReconnecting
	stateConnected
	stateFailed
	stateClosed
)

// Transport is the outermost element of the filter stack.
type Transport struct {
	cfg  Config
	dial Dialer
	rng  *rand.Rand

	mu           sync.Mutex
	uris         []string
	priority     map[string]bool
	state        state
	current      transport.Transport
	currentURI   string
	connectedCh  chan struct{}
	disconnectCh chan struct{}
	backups      []backupConn
	listener     transport.Listener
	wf           transport.WireFormat
	closed       bool

	trackerMu   sync.Mutex
	tracker     []command.Command
	trackerSize int

	doneCh chan struct{}
	stopCh chan struct{}
}

type backupConn struct {
	uri string
	tr  transport.Transport
}

// New returns a FailoverTransport over uris, using dial to create each
// candidate connection. cfg should usually start from DefaultConfig.
func New(uris []string, dial Dialer, cfg Config) *Transport {
	priority := make(map[string]bool, len(cfg.PriorityURIs))
	for _, u := range cfg.PriorityURIs {
		priority[u] = true
	}
	return &Transport{
		cfg:          cfg,
		dial:         dial,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		uris:         append([]string(nil), uris...),
		priority:     priority,
		state:        stateInit,
		connectedCh:  make(chan struct{}),
		disconnectCh: make(chan struct{}),
		doneCh:       make(chan struct{}),
		stopCh:       make(chan struct{}),
	}
}

// Unwrap supports transport.Narrow. FailoverTransport has no single
// "next" — it returns whichever transport is currently active, or nil.
func (t *Transport) Unwrap() transport.Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Start launches the background reconnect loop. It does not block for
// the first connection — Oneway/Request block (up to Timeout) instead.
func (t *Transport) Start() error {
	t.mu.Lock()
	if t.state != stateInit {
		t.mu.Unlock()
		return nil
	}
	t.state = stateReconnecting
	t.mu.Unlock()

	go t.reconnectLoop()
	return nil
}

func (t *Transport) Stop() error {
	t.mu.Lock()
	cur := t.current
	t.mu.Unlock()
	if cur != nil {
		return cur.Stop()
	}
	return nil
}

// Close is idempotent: it stops the reconnect loop, closes the active and
// any backup transports, and wakes every blocked Oneway/Request.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.state = stateClosed
	cur := t.current
	t.current = nil
	backups := t.backups
	t.backups = nil
	disconnectCh := t.disconnectCh
	t.mu.Unlock()

	close(t.stopCh)
	close(disconnectCh)

	var firstErr error
	if cur != nil {
		if err := cur.Close(); err != nil {
			firstErr = err
		}
	}
	for _, b := range backups {
		_ = b.tr.Close()
	}

	<-t.doneCh
	return firstErr
}

// Oneway implements the send-ordering/tracking rules: tracked commands
// are recorded for replay and, while disconnected, return immediately;
// everything else blocks for a reconnect before sending.
func (t *Transport) Oneway(cmd command.Command) error {
	if t.permanentlyFailed() {
		return fmt.Errorf("failover: oneway: %w", ErrNoMoreBrokers)
	}

	track := command.ShouldTrack(cmd) || (t.cfg.TrackMessages && command.IsMessage(cmd))
	if track {
		t.addToTracker(cmd)
	}

	if cur, ok := t.connectedTransport(); ok {
		return cur.Oneway(cmd)
	}
	if track {
		return nil
	}

	cur, err := t.awaitConnection()
	if err != nil {
		return fmt.Errorf("failover: oneway: %w", err)
	}
	return cur.Oneway(cmd)
}

// Request is not implemented at this layer; ResponseCorrelator (wrapped
// beneath FailoverTransport, or above it, depending on composition) owns
// request/response semantics. FailoverTransport only needs to satisfy
// transport.Transport's one-way contract.

func (t *Transport) SetListener(l transport.Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}

func (t *Transport) SetWireFormat(wf transport.WireFormat) {
	t.mu.Lock()
	t.wf = wf
	cur := t.current
	t.mu.Unlock()
	if cur != nil {
		cur.SetWireFormat(wf)
	}
}

func (t *Transport) WireFormat() transport.WireFormat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wf
}

func (t *Transport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateConnected
}

// IsFaultTolerant is FailoverTransport's hallmark: true.
func (t *Transport) IsFaultTolerant() bool { return true }

func (t *Transport) RemoteAddress() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentURI
}

// RemoveURI drops uris from the pool. If rebalance is true and the
// currently active URI was among those removed, a reconnect is
// triggered — the explicit counterpart to a broker-pushed
// ConnectionControl rebalance.
func (t *Transport) RemoveURI(rebalance bool, uris []string) {
	remove := make(map[string]bool, len(uris))
	for _, u := range uris {
		remove[u] = true
	}

	t.mu.Lock()
	var remaining []string
	for _, u := range t.uris {
		if !remove[u] {
			remaining = append(remaining, u)
		}
	}
	t.uris = remaining
	stillPresent := !remove[t.currentURI]
	t.mu.Unlock()

	if rebalance && !stillPresent {
		t.triggerReconnect()
	}
}

// OnCommand implements transport.Listener, intercepting broker-pushed
// rebalance hints and forwarding everything else.
func (t *Transport) OnCommand(cmd command.Command) {
	if cc, ok := cmd.(*command.ConnectionControl); ok && cc.Rebalance {
		t.mu.Lock()
		supported := t.cfg.UpdateURIsSupported
		t.mu.Unlock()
		if supported {
			t.handleRebalance(cc.ReconnectTo)
			return
		}
	}
	t.forward(cmd)
}

// OnException implements transport.Listener: the active transport
// reported a read failure, so drop it and let the reconnect loop take
// over. Unlike a permanent ErrNoMoreBrokers failure, transient
// disconnects are not forwarded to the outer listener — masking them is
// the entire point of this filter.
func (t *Transport) OnException(err error) {
	t.mu.Lock()
	if t.state != stateConnected || t.closed {
		t.mu.Unlock()
		return
	}
	t.state = stateReconnecting
	cur := t.current
	t.current = nil
	disconnectCh := t.disconnectCh
	t.disconnectCh = make(chan struct{})
	t.connectedCh = make(chan struct{})
	t.mu.Unlock()

	if cur != nil {
		_ = cur.Close()
	}
	close(disconnectCh)
}

func (t *Transport) handleRebalance(reconnectTo string) {
	uris := splitURIList(reconnectTo)
	if len(uris) == 0 {
		return
	}
	t.mu.Lock()
	t.uris = uris
	stillPresent := contains(uris, t.currentURI)
	t.mu.Unlock()

	if !stillPresent {
		t.triggerReconnect()
	}
}

func (t *Transport) triggerReconnect() {
	t.mu.Lock()
	if t.state != stateConnected || t.closed {
		t.mu.Unlock()
		return
	}
	t.state = stateReconnecting
	cur := t.current
	t.current = nil
	disconnectCh := t.disconnectCh
	t.disconnectCh = make(chan struct{})
	t.connectedCh = make(chan struct{})
	t.mu.Unlock()

	if cur != nil {
		_ = cur.Close()
	}
	close(disconnectCh)
}

func (t *Transport) forward(cmd command.Command) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l != nil {
		l.OnCommand(cmd)
	}
}

func (t *Transport) fireException(err error) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l != nil {
		l.OnException(err)
	}
}

func (t *Transport) permanentlyFailed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateFailed
}

func (t *Transport) connectedTransport() (transport.Transport, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateConnected && t.current != nil {
		return t.current, true
	}
	return nil, false
}

// awaitConnection blocks until a connection is established, the
// configured Timeout elapses, or the transport is closed/permanently
// failed.
func (t *Transport) awaitConnection() (transport.Transport, error) {
	var timeoutCh <-chan time.Time
	if t.cfg.Timeout >= 0 {
		timer := time.NewTimer(t.cfg.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return nil, transport.ErrTransportClosed
		}
		if t.state == stateFailed {
			t.mu.Unlock()
			return nil, ErrNoMoreBrokers
		}
		if t.state == stateConnected && t.current != nil {
			cur := t.current
			t.mu.Unlock()
			return cur, nil
		}
		ch := t.connectedCh
		t.mu.Unlock()

		select {
		case <-ch:
		case <-timeoutCh:
			return nil, ErrSendTimedOut
		}
	}
}

const trackerEntryOverhead = 64

func approximateCommandSize(cmd command.Command) int {
	if m, ok := cmd.(*command.Message); ok {
		switch p := m.Payload.(type) {
		case command.TextPayload:
			return trackerEntryOverhead + len(p.Text)
		case *command.BytesPayload:
			return trackerEntryOverhead + len(p.Content)
		}
	}
	return trackerEntryOverhead
}

// addToTracker records cmd for replay on the next successful reconnect,
// evicting the oldest entries if MaxCacheSize would be exceeded (a
// bounded approximation of the byte cap, since ommq doesn't compute an
// exact wire size before marshalling).
func (t *Transport) addToTracker(cmd command.Command) {
	size := approximateCommandSize(cmd)

	t.trackerMu.Lock()
	defer t.trackerMu.Unlock()

	if t.cfg.MaxCacheSize > 0 {
		for t.trackerSize+size > t.cfg.MaxCacheSize && len(t.tracker) > 0 {
			t.trackerSize -= approximateCommandSize(t.tracker[0])
			t.tracker = t.tracker[1:]
		}
	}
	t.tracker = append(t.tracker, cmd)
	t.trackerSize += size
}

func (t *Transport) replayTracker(tr transport.Transport) error {
	t.trackerMu.Lock()
	pending := append([]command.Command(nil), t.tracker...)
	t.trackerMu.Unlock()

	for _, cmd := range pending {
		if err := tr.Oneway(cmd); err != nil {
			return fmt.Errorf("failover: replay tracked command: %w", err)
		}
	}
	return nil
}

// orderedURIs returns the pool in connection-attempt order: priority
// URIs first (if priorityBackup is set), each group optionally shuffled.
func (t *Transport) orderedURIs() []string {
	t.mu.Lock()
	all := append([]string(nil), t.uris...)
	priority := t.priority
	randomize := t.cfg.Randomize
	priorityBackup := t.cfg.PriorityBackup
	t.mu.Unlock()

	if priorityBackup {
		var pri, rest []string
		for _, u := range all {
			if priority[u] {
				pri = append(pri, u)
			} else {
				rest = append(rest, u)
			}
		}
		if randomize {
			t.shuffle(pri)
			t.shuffle(rest)
		}
		return append(pri, rest...)
	}

	if randomize {
		t.shuffle(all)
	}
	return all
}

func (t *Transport) shuffle(uris []string) {
	t.rng.Shuffle(len(uris), func(i, j int) { uris[i], uris[j] = uris[j], uris[i] })
}

// connectToFirstAvailable tries each uri in order, returning the first
// successfully dialed-and-started transport.
func (t *Transport) connectToFirstAvailable(uris []string) (transport.Transport, string, error) {
	var lastErr error
	for _, u := range uris {
		tr, err := t.dial(context.Background(), u)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", u, err)
			continue
		}
		tr.SetListener(t)
		if err := tr.Start(); err != nil {
			lastErr = fmt.Errorf("%s: %w", u, err)
			_ = tr.Close()
			continue
		}
		return tr, u, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no broker URIs configured")
	}
	return nil, "", lastErr
}

func (t *Transport) onConnected(tr transport.Transport, uri string) {
	if wf, ok := func() (transport.WireFormat, bool) {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.wf, t.wf != nil
	}(); ok {
		tr.SetWireFormat(wf)
	}

	_ = t.replayTracker(tr)

	t.mu.Lock()
	t.current = tr
	t.currentURI = uri
	t.state = stateConnected
	connectedCh := t.connectedCh
	t.mu.Unlock()

	close(connectedCh)
}

// takeBackup removes and returns one still-connected pre-dialed standby,
// if cfg.Backup produced any.
func (t *Transport) takeBackup() (transport.Transport, string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, b := range t.backups {
		if b.tr.IsConnected() {
			t.backups = append(t.backups[:i:i], t.backups[i+1:]...)
			return b.tr, b.uri, true
		}
	}
	return nil, "", false
}

// refillBackups dials additional standby connections, up to
// BackupPoolSize, avoiding the currently active URI and any URI already
// backed by a standby. It is a best-effort background task: dial
// failures are silently skipped, matching "keep backup pre-connected
// when possible" rather than a hard requirement.
func (t *Transport) refillBackups() {
	candidates := t.orderedURIs()
	t.mu.Lock()
	need := t.cfg.BackupPoolSize - len(t.backups)
	current := t.currentURI
	existing := make(map[string]bool, len(t.backups)+1)
	existing[current] = true
	for _, b := range t.backups {
		existing[b.uri] = true
	}
	t.mu.Unlock()

	for _, u := range candidates {
		if need <= 0 {
			return
		}
		if existing[u] {
			continue
		}
		tr, err := t.dial(context.Background(), u)
		if err != nil {
			continue
		}
		if err := tr.Start(); err != nil {
			_ = tr.Close()
			continue
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			_ = tr.Close()
			return
		}
		t.backups = append(t.backups, backupConn{uri: u, tr: tr})
		t.mu.Unlock()

		existing[u] = true
		need--
	}
}

func (t *Transport) giveUp() {
	t.mu.Lock()
	t.state = stateFailed
	t.mu.Unlock()
	t.fireException(ErrNoMoreBrokers)
}

func (t *Transport) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-t.stopCh:
	}
}

func (t *Transport) waitUntilDisconnected() {
	t.mu.Lock()
	ch := t.disconnectCh
	t.mu.Unlock()
	<-ch
}

func (t *Transport) reconnectLoop() {
	defer close(t.doneCh)

	delay := t.cfg.InitialReconnectDelay
	attempts := 0
	startup := true

	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		var tr transport.Transport
		var uri string
		var err error
		if bt, buri, ok := t.takeBackup(); ok {
			bt.SetListener(t)
			tr, uri = bt, buri
		} else {
			uris := t.orderedURIs()
			tr, uri, err = t.connectToFirstAvailable(uris)
		}

		if err == nil {
			t.onConnected(tr, uri)
			attempts = 0
			delay = t.cfg.InitialReconnectDelay
			startup = false
			if t.cfg.Backup {
				go t.refillBackups()
			}
			t.waitUntilDisconnected()

			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			continue
		}

		attempts++
		limit := t.cfg.MaxReconnectAttempts
		if startup && t.cfg.StartupMaxReconnectAttempts > 0 {
			limit = t.cfg.StartupMaxReconnectAttempts
		}
		if limit >= 0 && attempts >= limit {
			t.giveUp()
			return
		}

		t.sleep(delay)
		select {
		case <-t.stopCh:
			return
		default:
		}

		if t.cfg.UseExponentialBackOff {
			delay = time.Duration(float64(delay) * t.cfg.BackOffMultiplier)
			if delay > t.cfg.MaxReconnectDelay {
				delay = t.cfg.MaxReconnectDelay
			}
		}
	}
}

func splitURIList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(uris []string, uri string) bool {
	for _, u := range uris {
		if u == uri {
			return true
		}
	}
	return false
}
