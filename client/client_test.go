package client_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/corvidmq/ommq/client"
	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/transport"
	"github.com/corvidmq/ommq/transport/correlator"
	"github.com/corvidmq/ommq/transport/mutex"
)

// fakeBroker is a transport.Transport double standing in for a real
// broker: any command with ResponseRequired() set gets an immediate
// Response, and the test can push MessageDispatch/exceptions through its
// listener directly. It sits beneath mutex+correlator, mirroring the
// real per-broker stack minus IOTransport/negotiator/inactivity.
type fakeBroker struct {
	mu       sync.Mutex
	listener transport.Listener
	sent     []command.Command
	closed   bool
}

func (f *fakeBroker) Oneway(cmd command.Command) error {
	f.mu.Lock()
	f.sent = append(f.sent, cmd)
	l := f.listener
	f.mu.Unlock()

	if cmd.ResponseRequired() && l != nil {
		go l.OnCommand(&command.Response{CorrelationId: cmd.CommandId()})
	}
	return nil
}

func (f *fakeBroker) Start() error { return nil }
func (f *fakeBroker) Stop() error  { return nil }
func (f *fakeBroker) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeBroker) SetListener(l transport.Listener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}
func (f *fakeBroker) SetWireFormat(transport.WireFormat) {}
func (f *fakeBroker) WireFormat() transport.WireFormat   { return nil }
func (f *fakeBroker) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
func (f *fakeBroker) IsConnected() bool     { return !f.IsClosed() }
func (f *fakeBroker) IsFaultTolerant() bool { return false }
func (f *fakeBroker) RemoteAddress() string { return "mock://broker" }

func (f *fakeBroker) sentCommands() []command.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]command.Command, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeBroker) deliver(cmd command.Command) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l != nil {
		l.OnCommand(cmd)
	}
}

// newTestConnection builds the client facade over a fakeBroker through a
// real mutex+correlator stack, exercising the exact layering Dial uses
// above IOTransport.
func newTestConnection(t *testing.T) (*client.Connection, *fakeBroker) {
	t.Helper()
	broker := &fakeBroker{}
	top := correlator.New(mutex.New(broker))

	conn, err := client.Connect(context.Background(), top, client.Options{ClientId: "test-client"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, broker
}

func TestConnectSendsConnectionInfo(t *testing.T) {
	t.Parallel()

	conn, broker := newTestConnection(t)
	_ = conn

	found := false
	for _, cmd := range broker.sentCommands() {
		if ci, ok := cmd.(*command.ConnectionInfo); ok {
			found = true
			if ci.ClientId != "test-client" {
				t.Errorf("got ClientId=%q, want test-client", ci.ClientId)
			}
		}
	}
	if !found {
		t.Fatal("no ConnectionInfo was sent")
	}
}

func TestSessionProducerConsumerRoundTrip(t *testing.T) {
	t.Parallel()

	conn, broker := newTestConnection(t)
	ctx := context.Background()

	sess, err := conn.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	dest := &command.Destination{Kind: command.DestinationQueue, Name: "orders"}
	producer, err := sess.CreateProducer(ctx, dest)
	if err != nil {
		t.Fatalf("CreateProducer: %v", err)
	}
	consumer, err := sess.CreateConsumer(ctx, dest, client.ConsumerOptions{})
	if err != nil {
		t.Fatalf("CreateConsumer: %v", err)
	}

	msg := command.NewMessage(command.TextPayload{Text: "hello"})
	if err := producer.Send(ctx, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sent := broker.sentCommands()
	var sentMsg *command.Message
	for _, cmd := range sent {
		if m, ok := cmd.(*command.Message); ok {
			sentMsg = m
		}
	}
	if sentMsg == nil {
		t.Fatal("Message was never sent to the transport")
	}
	if !sentMsg.ReadOnlyBody() {
		t.Error("got ReadOnlyBody()=false after Send, want true (OnSend freezes it)")
	}

	// Simulate the broker dispatching that message straight back to the
	// consumer that subscribed to the same destination.
	var consumerId command.ConsumerId
	for _, cmd := range sent {
		if ci, ok := cmd.(*command.ConsumerInfo); ok {
			consumerId = ci.ConsumerId
		}
	}
	dispatch := &command.MessageDispatch{
		ConsumerId:  consumerId,
		Destination: dest,
		Message:     sentMsg,
	}
	broker.deliver(dispatch)

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, err := consumer.Receive(recvCtx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	text, err := got.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "hello" {
		t.Errorf("got %q, want hello", text)
	}

	if err := consumer.Ack(ctx, got); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	ackSeen := false
	for _, cmd := range broker.sentCommands() {
		if _, ok := cmd.(*command.MessageAck); ok {
			ackSeen = true
		}
	}
	if !ackSeen {
		t.Error("no MessageAck was sent")
	}
}

func TestErrorsChannelReceivesTransportExceptions(t *testing.T) {
	t.Parallel()

	conn, broker := newTestConnection(t)
	broker.mu.Lock()
	l := broker.listener
	broker.mu.Unlock()

	go l.OnException(context.DeadlineExceeded)

	select {
	case err := <-conn.Errors():
		if err != context.DeadlineExceeded {
			t.Errorf("got %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no exception delivered on Errors()")
	}
}
