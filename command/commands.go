package command

// WireFormatInfo is exchanged by both peers immediately after connect to
// negotiate the wire format options.
type WireFormatInfo struct {
	Base

	Magic   string // "ActiveMQ"
	Version int32

	TightEncodingEnabled             bool
	SizePrefixDisabled               bool
	CacheEnabled                     bool
	CacheSize                        int32
	StackTraceEnabled                bool
	MaxInactivityDuration            int64
	MaxInactivityDurationInitalDelay int64
	MaxFrameSize                     int64
	TcpNoDelayEnabled                bool
}

func (*WireFormatInfo) TypeCode() byte { return TypeWireFormatInfo }

// NewWireFormatInfo returns a WireFormatInfo populated with ommq's default
// negotiable options.
func NewWireFormatInfo(version int32) *WireFormatInfo {
	return &WireFormatInfo{
		Magic:                 "ActiveMQ",
		Version:               version,
		TightEncodingEnabled:  true,
		CacheEnabled:          true,
		CacheSize:             1024,
		StackTraceEnabled:     true,
		MaxInactivityDuration: 30000,
		MaxFrameSize:          1 << 20,
	}
}

// BrokerInfo describes the broker a connection attached to.
type BrokerInfo struct {
	Base

	BrokerId    string
	BrokerURL   string
	BrokerName  string
	PeerBrokerInfos []*BrokerInfo
	SlaveBroker bool
	MasterBroker bool
	FaultTolerantConfiguration bool
}

func (*BrokerInfo) TypeCode() byte { return TypeBrokerInfo }

// ConnectionInfo opens a connection.
type ConnectionInfo struct {
	Base

	ConnectionId    ConnectionId
	ClientId        string
	UserName        string
	Password        string
	ClientIp        string
	Manageable      bool
	FailoverReconnect bool
}

func (*ConnectionInfo) TypeCode() byte { return TypeConnectionInfo }

// SessionInfo opens a session within a connection.
type SessionInfo struct {
	Base

	SessionId SessionId
}

func (*SessionInfo) TypeCode() byte { return TypeSessionInfo }

// ConsumerInfo subscribes a consumer to a destination.
type ConsumerInfo struct {
	Base

	ConsumerId        ConsumerId
	Destination       *Destination
	Selector          string
	SubscriptionName  string // durable subscription name; STOMP requires == ClientId
	NoLocal           bool
	Exclusive         bool
	Retroactive       bool
	Priority          int8
	PrefetchSize      int32
	MaximumPendingMessageLimit int32
	DispatchAsync     bool
}

func (*ConsumerInfo) TypeCode() byte { return TypeConsumerInfo }

// IsDurable reports whether this subscription should survive disconnects.
func (c *ConsumerInfo) IsDurable() bool { return c.SubscriptionName != "" }

// ProducerInfo registers a producer, optionally bound to one destination.
type ProducerInfo struct {
	Base

	ProducerId        ProducerId
	Destination       *Destination
	DispatchAsync     bool
}

func (*ProducerInfo) TypeCode() byte { return TypeProducerInfo }

// TransactionKind enumerates the transaction lifecycle operations a
// TransactionInfo can carry.
type TransactionKind byte

const (
	TransactionInfoBegin TransactionKind = iota
	TransactionInfoCommitOnePhase
	TransactionInfoCommitTwoPhase
	TransactionInfoRollback
	TransactionInfoPrepare
	TransactionInfoRecover
	TransactionInfoForget
	TransactionInfoEnd
)

// TransactionInfo begins, commits, rolls back, or otherwise manipulates a
// local or XA transaction. Only the command shape is in scope; no
// coordination logic lives in this module.
type TransactionInfo struct {
	Base

	ConnectionId  ConnectionId
	TransactionId TransactionId
	Type          TransactionKind
}

func (*TransactionInfo) TypeCode() byte { return TypeTransactionInfo }

// RemoveInfo tears down an object previously registered by id (a
// ConsumerId, ProducerId, SessionId, or ConnectionId).
type RemoveInfo struct {
	Base

	ObjectId any
	LastDeliveredSequenceId int64
}

func (*RemoveInfo) TypeCode() byte { return TypeRemoveInfo }

// ShutdownInfo requests an orderly connection shutdown (maps to STOMP
// DISCONNECT).
type ShutdownInfo struct {
	Base
}

func (*ShutdownInfo) TypeCode() byte { return TypeShutdownInfo }

// KeepAliveInfo is the InactivityMonitor's write-pulse heartbeat command.
type KeepAliveInfo struct {
	Base
}

func (*KeepAliveInfo) TypeCode() byte { return TypeKeepAliveInfo }

// Response is a positive reply correlated to a prior command by CommandId.
type Response struct {
	Base

	CorrelationId int32
	Result        any
}

func (*Response) TypeCode() byte { return TypeResponse }

// ExceptionResponse is a negative reply carrying a broker-side error.
type ExceptionResponse struct {
	Base

	CorrelationId  int32
	ExceptionClass string
	Message        string
	StackTrace     string
}

func (*ExceptionResponse) TypeCode() byte { return TypeExceptionResponse }

// ConnectionControl is a broker-initiated hint: rebalance to a different
// URI set, or mark the connection as faulty.
type ConnectionControl struct {
	Base

	Close               bool
	Exit                bool
	Faulty              bool
	ReconnectTo         string
	Rebalance           bool
	ConnectedBrokers    string
}

func (*ConnectionControl) TypeCode() byte { return TypeConnectionControl }

// ConnectionError reports an asynchronous connection-level failure.
type ConnectionError struct {
	Base

	ConnectionId ConnectionId
	Message      string
}

func (*ConnectionError) TypeCode() byte { return TypeConnectionError }

// AckType enumerates the MessageAck acknowledgment modes.
type AckType byte

const (
	AckDelivered AckType = iota
	AckPoison
	AckConsumed
	AckRedelivered
	AckIndividual
)

// MessageAck acknowledges (or negatively acknowledges) one or a range of
// dispatched messages.
type MessageAck struct {
	Base

	Destination       *Destination
	TransactionId     TransactionId
	ConsumerId        ConsumerId
	AckType           AckType
	FirstMessageId    MessageId
	LastMessageId     MessageId
	MessageCount      int32
}

func (*MessageAck) TypeCode() byte { return TypeMessageAck }

// MessageDispatch delivers one Message to a consumer.
type MessageDispatch struct {
	Base

	ConsumerId   ConsumerId
	Destination  *Destination
	Message      *Message
	RedeliveryCounter int32
}

func (*MessageDispatch) TypeCode() byte { return TypeMessageDispatch }
