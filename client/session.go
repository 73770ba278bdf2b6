package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/corvidmq/ommq/command"
)

// Session is a session within a Connection ({connection_id, value}
// SessionId), owning the monotonic producer/consumer counters scoped to
// it.
type Session struct {
	conn *Connection
	id   command.SessionId

	nextProducer int64
	nextConsumer int64
	nextTxn      int64
}

func (s *Session) nextProducerValue() int64 { return atomic.AddInt64(&s.nextProducer, 1) }
func (s *Session) nextConsumerValue() int64 { return atomic.AddInt64(&s.nextConsumer, 1) }
func (s *Session) nextTxnValue() int64      { return atomic.AddInt64(&s.nextTxn, 1) }

// CreateProducer registers a producer, optionally bound to dest (nil
// leaves it unbound, letting each Message carry its own destination).
func (s *Session) CreateProducer(ctx context.Context, dest *command.Destination) (*Producer, error) {
	id := command.ProducerId{
		ConnectionId:  s.id.ConnectionId,
		SessionValue:  s.id.Value,
		ProducerValue: s.nextProducerValue(),
	}
	info := &command.ProducerInfo{ProducerId: id, Destination: dest}
	if _, err := s.conn.request(ctx, info); err != nil {
		return nil, fmt.Errorf("client: create producer: %w", err)
	}
	return &Producer{session: s, id: id, dest: dest}, nil
}

// ConsumerOptions configures CreateConsumer. The zero value subscribes
// non-durably with client-ack and no selector.
type ConsumerOptions struct {
	Selector         string
	SubscriptionName string // non-empty makes the subscription durable
	NoLocal          bool
	Exclusive        bool
	PrefetchSize     int32
}

// CreateConsumer subscribes to dest and returns a Consumer whose Receive
// delivers dispatched messages in arrival order.
func (s *Session) CreateConsumer(ctx context.Context, dest *command.Destination, opts ConsumerOptions) (*Consumer, error) {
	id := command.ConsumerId{
		ConnectionId:  s.id.ConnectionId,
		SessionValue:  s.id.Value,
		ConsumerValue: s.nextConsumerValue(),
	}
	prefetch := opts.PrefetchSize
	if prefetch == 0 {
		prefetch = 1000
	}
	info := &command.ConsumerInfo{
		ConsumerId:       id,
		Destination:      dest,
		Selector:         opts.Selector,
		SubscriptionName: opts.SubscriptionName,
		NoLocal:          opts.NoLocal,
		Exclusive:        opts.Exclusive,
		PrefetchSize:     prefetch,
	}
	if _, err := s.conn.request(ctx, info); err != nil {
		return nil, fmt.Errorf("client: create consumer: %w", err)
	}

	c := &Consumer{
		session: s,
		id:      id,
		dest:    dest,
		msgCh:   make(chan *command.Message, int(prefetch)),
	}
	s.conn.listener.register(id.String(), c)
	return c, nil
}

// Begin starts a local transaction scoped to this session's connection.
func (s *Session) Begin(ctx context.Context) (*Transaction, error) {
	tid := command.LocalTransactionId{ConnectionId: s.id.ConnectionId, Value: s.nextTxnValue()}
	info := &command.TransactionInfo{
		ConnectionId:  command.ConnectionId{Value: s.id.ConnectionId},
		TransactionId: tid,
		Type:          command.TransactionInfoBegin,
	}
	if _, err := s.conn.request(ctx, info); err != nil {
		return nil, fmt.Errorf("client: begin transaction: %w", err)
	}
	return &Transaction{session: s, id: tid}, nil
}

// Close tears down the session.
func (s *Session) Close(ctx context.Context) error {
	if err := s.conn.oneway(&command.RemoveInfo{ObjectId: s.id}); err != nil {
		return fmt.Errorf("client: close session: %w", err)
	}
	return nil
}
