package client

import (
	"context"
	"fmt"

	"github.com/corvidmq/ommq/command"
)

// Consumer receives messages dispatched to one ConsumerId. Receive
// delivers them in arrival order; Ack must be called for each one under
// client-ack, the default acknowledgment mode.
type Consumer struct {
	session *Session
	id      command.ConsumerId
	dest    *command.Destination
	msgCh   chan *command.Message
}

func (c *Consumer) deliver(msg *command.Message) {
	select {
	case c.msgCh <- msg:
	default:
		// Prefetch exhausted: drop rather than block the shared read
		// loop. A consumer that can't keep up with PrefetchSize should
		// raise it or ack faster.
	}
}

// Receive blocks until a message arrives or ctx is done.
func (c *Consumer) Receive(ctx context.Context) (*command.Message, error) {
	select {
	case msg := <-c.msgCh:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack acknowledges msg using AckConsumed, the normal one-at-a-time
// client-ack mode.
func (c *Consumer) Ack(ctx context.Context, msg *command.Message) error {
	ack := &command.MessageAck{
		Destination:    c.dest,
		ConsumerId:     c.id,
		AckType:        command.AckConsumed,
		FirstMessageId: msg.MessageId,
		LastMessageId:  msg.MessageId,
		MessageCount:   1,
	}
	if err := c.session.conn.oneway(ack); err != nil {
		return fmt.Errorf("client: ack: %w", err)
	}
	return nil
}

// Close unsubscribes and stops further delivery to this Consumer.
func (c *Consumer) Close(ctx context.Context) error {
	c.session.conn.listener.unregister(c.id.String())
	if err := c.session.conn.oneway(&command.RemoveInfo{ObjectId: c.id}); err != nil {
		return fmt.Errorf("client: close consumer: %w", err)
	}
	return nil
}
