package command

import (
	"fmt"

	"github.com/google/uuid"
)

// ConnectionId identifies a connection. It is UUID-shaped but opaque: any
// non-empty string a peer sends is accepted as-is.
type ConnectionId struct {
	Value string
}

// NewConnectionId returns a freshly generated ConnectionId.
func NewConnectionId() ConnectionId {
	return ConnectionId{Value: uuid.New().String()}
}

func (id ConnectionId) String() string { return id.Value }

// SessionId identifies a session scoped to a connection.
type SessionId struct {
	ConnectionId string
	Value        int64
}

func (id SessionId) String() string {
	return fmt.Sprintf("%s:%d", id.ConnectionId, id.Value)
}

// ConsumerId identifies a consumer scoped to a session.
type ConsumerId struct {
	ConnectionId  string
	SessionValue  int64
	ConsumerValue int64
}

func (id ConsumerId) String() string {
	return fmt.Sprintf("%s:%d:%d", id.ConnectionId, id.SessionValue, id.ConsumerValue)
}

// ProducerId identifies a producer scoped to a session.
type ProducerId struct {
	ConnectionId  string
	SessionValue  int64
	ProducerValue int64
}

func (id ProducerId) String() string {
	return fmt.Sprintf("%s:%d:%d", id.ConnectionId, id.SessionValue, id.ProducerValue)
}

// MessageId identifies a message by the producer that created it plus a
// per-producer sequence number.
type MessageId struct {
	ProducerId     ProducerId
	ProducerSeqId  int64
}

func (id MessageId) String() string {
	return fmt.Sprintf("%s:%d", id.ProducerId, id.ProducerSeqId)
}

// TransactionId is either a LocalTransactionId or an XATransactionId.
type TransactionId interface {
	isTransactionId()
	String() string
}

// LocalTransactionId identifies a broker-local transaction.
type LocalTransactionId struct {
	ConnectionId string
	Value        int64
}

func (LocalTransactionId) isTransactionId() {}

func (id LocalTransactionId) String() string {
	return fmt.Sprintf("TX:%s:%d", id.ConnectionId, id.Value)
}

// maxXAIdPartLen is the upper bound on the branch qualifier and global
// transaction id parts of an XATransactionId, per the XA spec.
const maxXAIdPartLen = 64

// XATransactionId identifies an XA/distributed transaction branch.
type XATransactionId struct {
	FormatId         int32
	BranchQualifier  []byte
	GlobalTransactionId []byte
}

// NewXATransactionId validates and constructs an XATransactionId.
func NewXATransactionId(formatId int32, branchQualifier, globalTransactionId []byte) (XATransactionId, error) {
	if len(branchQualifier) > maxXAIdPartLen {
		return XATransactionId{}, fmt.Errorf("command: %w: branch qualifier length %d exceeds %d", ErrInvalid, len(branchQualifier), maxXAIdPartLen)
	}
	if len(globalTransactionId) > maxXAIdPartLen {
		return XATransactionId{}, fmt.Errorf("command: %w: global transaction id length %d exceeds %d", ErrInvalid, len(globalTransactionId), maxXAIdPartLen)
	}
	return XATransactionId{
		FormatId:            formatId,
		BranchQualifier:     branchQualifier,
		GlobalTransactionId: globalTransactionId,
	}, nil
}

func (XATransactionId) isTransactionId() {}

func (id XATransactionId) String() string {
	return fmt.Sprintf("XID:%d:%x:%x", id.FormatId, id.GlobalTransactionId, id.BranchQualifier)
}
