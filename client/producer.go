package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/corvidmq/ommq/command"
)

// Producer sends messages, optionally bound to one destination at
// creation (a nil-destination Producer requires each Message to carry
// its own).
type Producer struct {
	session *Session
	id      command.ProducerId
	dest    *command.Destination

	nextSeq int64
}

func (p *Producer) nextSeqId() int64 { return atomic.AddInt64(&p.nextSeq, 1) }

// Send stamps msg with this producer's identity and a fresh MessageId,
// freezes it (OnSend), and hands it to the transport without waiting for
// a broker acknowledgment — matching STOMP SEND's fire-and-forget
// semantics unless a receipt is separately requested.
func (p *Producer) Send(ctx context.Context, msg *command.Message) error {
	if msg.Destination == nil {
		msg.Destination = p.dest
	}
	if msg.Destination == nil {
		return fmt.Errorf("client: send: %w: no destination bound or supplied", command.ErrInvalid)
	}
	msg.ProducerId = p.id
	msg.MessageId = command.MessageId{ProducerId: p.id, ProducerSeqId: p.nextSeqId()}
	msg.Timestamp = timeNowMillis()
	msg.OnSend()

	if err := p.session.conn.oneway(msg); err != nil {
		return fmt.Errorf("client: send: %w", err)
	}
	return nil
}

// Close unregisters the producer.
func (p *Producer) Close() error {
	if err := p.session.conn.oneway(&command.RemoveInfo{ObjectId: p.id}); err != nil {
		return fmt.Errorf("client: close producer: %w", err)
	}
	return nil
}

func timeNowMillis() int64 {
	return time.Now().UnixMilli()
}
