// Package command implements the OpenWire/STOMP command model: the closed,
// tagged set of command kinds that is the sole unit of transport-level
// conversation between client and broker, plus
// the Message envelope and its Text/Bytes/Map/Stream/Object payload
// variants, and the primitive-property conversion lattice they share.
package command

// Command is implemented by every command kind. CommandId and
// ResponseRequired are assigned by the ResponseCorrelator filter, not by
// the command's creator; TypeCode is the stable numeric tag used by the
// wire formats' marshaller registries.
type Command interface {
	CommandId() int32
	SetCommandId(int32)
	ResponseRequired() bool
	SetResponseRequired(bool)
	TypeCode() byte
}

// Base is embedded by every concrete command type to supply the
// CommandId/ResponseRequired bookkeeping uniformly.
type Base struct {
	Id           int32
	RespRequired bool
}

func (b *Base) CommandId() int32              { return b.Id }
func (b *Base) SetCommandId(id int32)          { b.Id = id }
func (b *Base) ResponseRequired() bool         { return b.RespRequired }
func (b *Base) SetResponseRequired(v bool)     { b.RespRequired = v }

// Stable type codes for the command registry. Values are internal to
// ommq — byte-for-byte compatibility with any particular broker's wire
// encoding is explicitly out of scope without reference fixtures.
const (
	TypeWireFormatInfo byte = iota + 1
	TypeBrokerInfo
	TypeConnectionInfo
	TypeSessionInfo
	TypeConsumerInfo
	TypeProducerInfo
	TypeTransactionInfo
	TypeRemoveInfo
	TypeShutdownInfo
	TypeKeepAliveInfo
	TypeResponse
	TypeExceptionResponse
	TypeConnectionControl
	TypeConnectionError
	TypeMessageAck
	TypeMessageDispatch
	TypeMessageTextType
	TypeMessageBytesType
	TypeMessageMapType
	TypeMessageStreamType
	TypeMessageObjectType
	TypeLocalTransactionId
	TypeXATransactionId
	TypeConnectionId
	TypeSessionId
	TypeConsumerId
	TypeProducerId
	TypeMessageId
	TypeDestination
)

// TypeMessageFor returns the type code for a Message carrying the given
// payload variant.
func TypeMessageFor(p Payload) byte {
	switch p.(type) {
	case TextPayload:
		return TypeMessageTextType
	case *BytesPayload:
		return TypeMessageBytesType
	case MapPayload:
		return TypeMessageMapType
	case *StreamPayload:
		return TypeMessageStreamType
	case ObjectPayload:
		return TypeMessageObjectType
	default:
		return 0
	}
}

// TypeCode implements Command for *Message.
func (m *Message) TypeCode() byte { return TypeMessageFor(m.Payload) }

// IsMessage reports whether c is a Message (of any payload variant).
func IsMessage(c Command) bool {
	_, ok := c.(*Message)
	return ok
}

// IsMessageAck reports whether c is a MessageAck.
func IsMessageAck(c Command) bool {
	_, ok := c.(*MessageAck)
	return ok
}

// IsConnectionInfo reports whether c is a ConnectionInfo.
func IsConnectionInfo(c Command) bool {
	_, ok := c.(*ConnectionInfo)
	return ok
}

// IsResponse reports whether c is a Response or ExceptionResponse.
func IsResponse(c Command) bool {
	switch c.(type) {
	case *Response, *ExceptionResponse:
		return true
	default:
		return false
	}
}

// IsWireFormatInfo reports whether c is a WireFormatInfo.
func IsWireFormatInfo(c Command) bool {
	_, ok := c.(*WireFormatInfo)
	return ok
}

// IsShutdownInfo reports whether c is a ShutdownInfo.
func IsShutdownInfo(c Command) bool {
	_, ok := c.(*ShutdownInfo)
	return ok
}

// IsKeepAliveInfo reports whether c is a KeepAliveInfo.
func IsKeepAliveInfo(c Command) bool {
	_, ok := c.(*KeepAliveInfo)
	return ok
}

// IsMessageDispatch reports whether c is a MessageDispatch.
func IsMessageDispatch(c Command) bool {
	_, ok := c.(*MessageDispatch)
	return ok
}

// IsConnectionControl reports whether c is a ConnectionControl.
func IsConnectionControl(c Command) bool {
	_, ok := c.(*ConnectionControl)
	return ok
}

// ShouldTrack reports whether a command must survive a FailoverTransport
// reconnect and be replayed. Every ConsumerInfo, and every TransactionInfo
// except a rollback, is tracked alongside the always-tracked
// identity/session/producer triad.
func ShouldTrack(c Command) bool {
	switch v := c.(type) {
	case *ConnectionInfo, *SessionInfo, *ProducerInfo:
		return true
	case *ConsumerInfo:
		return true
	case *TransactionInfo:
		return v.Type != TransactionInfoRollback
	default:
		return false
	}
}
