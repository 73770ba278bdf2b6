package client

import (
	"context"
	"fmt"

	"github.com/corvidmq/ommq/command"
)

// Transaction is a local transaction opened by Session.Begin. Only the
// command shapes are implemented here; no coordination logic lives in
// this package.
type Transaction struct {
	session *Session
	id      command.LocalTransactionId
}

// ID returns the transaction id, for stamping onto Messages/MessageAcks
// sent within this transaction.
func (t *Transaction) ID() command.TransactionId {
	return t.id
}

func (t *Transaction) complete(ctx context.Context, kind command.TransactionKind) error {
	info := &command.TransactionInfo{
		ConnectionId:  command.ConnectionId{Value: t.session.id.ConnectionId},
		TransactionId: t.id,
		Type:          kind,
	}
	if _, err := t.session.conn.request(ctx, info); err != nil {
		return err
	}
	return nil
}

// Commit commits the transaction in one phase.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := t.complete(ctx, command.TransactionInfoCommitOnePhase); err != nil {
		return fmt.Errorf("client: commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction. Per command.ShouldTrack, a
// rollback is the one TransactionInfo variant the failover tracker never
// replays after a reconnect — reissuing it against a new transaction
// branch would be meaningless.
func (t *Transaction) Rollback(ctx context.Context) error {
	if err := t.complete(ctx, command.TransactionInfoRollback); err != nil {
		return fmt.Errorf("client: rollback transaction: %w", err)
	}
	return nil
}
