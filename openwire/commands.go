package openwire

import (
	"fmt"

	"github.com/corvidmq/ommq/command"
)

// marshalCommandBody writes the command-specific fields (everything past
// the shared commandId/responseRequired header) of cmd into ctx.
func marshalCommandBody(ctx *marshalCtx, cmd command.Command) error {
	if err := ctx.enter(); err != nil {
		return err
	}
	defer ctx.leave()

	switch v := cmd.(type) {
	case *command.WireFormatInfo:
		return marshalWireFormatInfo(ctx, v)
	case *command.BrokerInfo:
		return marshalBrokerInfo(ctx, v)
	case *command.ConnectionInfo:
		return marshalConnectionInfo(ctx, v)
	case *command.SessionInfo:
		if err := ctx.writeSessionId(v.SessionId, true); err != nil {
			return err
		}
		return nil
	case *command.ConsumerInfo:
		return marshalConsumerInfo(ctx, v)
	case *command.ProducerInfo:
		return marshalProducerInfo(ctx, v)
	case *command.TransactionInfo:
		return marshalTransactionInfo(ctx, v)
	case *command.RemoveInfo:
		return marshalRemoveInfo(ctx, v)
	case *command.ShutdownInfo:
		return nil
	case *command.KeepAliveInfo:
		return nil
	case *command.Response:
		if err := ctx.bw.WriteI32(v.CorrelationId); err != nil {
			return err
		}
		return nil
	case *command.ExceptionResponse:
		return marshalExceptionResponse(ctx, v)
	case *command.ConnectionControl:
		return marshalConnectionControl(ctx, v)
	case *command.ConnectionError:
		return marshalConnectionError(ctx, v)
	case *command.MessageAck:
		return marshalMessageAck(ctx, v)
	case *command.MessageDispatch:
		return marshalMessageDispatch(ctx, v)
	case *command.Message:
		// Top level: the type code already went out in the frame header,
		// so no inline type-code byte is written here (unlike the nested
		// case inside MessageDispatch, which has no frame header of its
		// own and needs marshalMessage's inline tag).
		if err := marshalMessageFields(ctx, v); err != nil {
			return err
		}
		return marshalPayload(ctx, v.Payload)
	default:
		return fmt.Errorf("openwire: unsupported command type %T", cmd)
	}
}

// unmarshalCommandBody reads one command's body given its type code,
// returning a Command with CommandId/ResponseRequired left zero-valued
// for the caller to fill in.
func unmarshalCommandBody(ctx *unmarshalCtx, typeCode byte) (command.Command, error) {
	if err := ctx.enter(); err != nil {
		return nil, err
	}
	defer ctx.leave()

	switch typeCode {
	case command.TypeWireFormatInfo:
		return unmarshalWireFormatInfo(ctx)
	case command.TypeBrokerInfo:
		return unmarshalBrokerInfo(ctx)
	case command.TypeConnectionInfo:
		return unmarshalConnectionInfo(ctx)
	case command.TypeSessionInfo:
		sid, _, err := ctx.readSessionId()
		if err != nil {
			return nil, err
		}
		return &command.SessionInfo{SessionId: sid}, nil
	case command.TypeConsumerInfo:
		return unmarshalConsumerInfo(ctx)
	case command.TypeProducerInfo:
		return unmarshalProducerInfo(ctx)
	case command.TypeTransactionInfo:
		return unmarshalTransactionInfo(ctx)
	case command.TypeRemoveInfo:
		return unmarshalRemoveInfo(ctx)
	case command.TypeShutdownInfo:
		return &command.ShutdownInfo{}, nil
	case command.TypeKeepAliveInfo:
		return &command.KeepAliveInfo{}, nil
	case command.TypeResponse:
		corr, err := ctx.br.ReadI32()
		if err != nil {
			return nil, err
		}
		return &command.Response{CorrelationId: corr}, nil
	case command.TypeExceptionResponse:
		return unmarshalExceptionResponse(ctx)
	case command.TypeConnectionControl:
		return unmarshalConnectionControl(ctx)
	case command.TypeConnectionError:
		return unmarshalConnectionError(ctx)
	case command.TypeMessageAck:
		return unmarshalMessageAck(ctx)
	case command.TypeMessageDispatch:
		return unmarshalMessageDispatch(ctx)
	case command.TypeMessageTextType, command.TypeMessageBytesType, command.TypeMessageMapType,
		command.TypeMessageStreamType, command.TypeMessageObjectType:
		return unmarshalMessage(ctx, typeCode)
	default:
		return nil, fmt.Errorf("openwire: %w: %d", ErrUnknownTypeCode, typeCode)
	}
}

func marshalWireFormatInfo(ctx *marshalCtx, v *command.WireFormatInfo) error {
	if err := ctx.bw.WriteUTF8String(v.Magic); err != nil {
		return err
	}
	if err := ctx.bw.WriteI32(v.Version); err != nil {
		return err
	}
	if err := ctx.writeBool(v.TightEncodingEnabled); err != nil {
		return err
	}
	if err := ctx.writeBool(v.SizePrefixDisabled); err != nil {
		return err
	}
	if err := ctx.writeBool(v.CacheEnabled); err != nil {
		return err
	}
	if err := ctx.bw.WriteI32(v.CacheSize); err != nil {
		return err
	}
	if err := ctx.writeBool(v.StackTraceEnabled); err != nil {
		return err
	}
	if err := ctx.writeLong(v.MaxInactivityDuration); err != nil {
		return err
	}
	if err := ctx.writeLong(v.MaxInactivityDurationInitalDelay); err != nil {
		return err
	}
	if err := ctx.writeLong(v.MaxFrameSize); err != nil {
		return err
	}
	return ctx.writeBool(v.TcpNoDelayEnabled)
}

func unmarshalWireFormatInfo(ctx *unmarshalCtx) (*command.WireFormatInfo, error) {
	v := &command.WireFormatInfo{}
	var err error
	if v.Magic, err = ctx.br.ReadUTF8String(); err != nil {
		return nil, err
	}
	if v.Version, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	if v.TightEncodingEnabled, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.SizePrefixDisabled, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.CacheEnabled, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.CacheSize, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	if v.StackTraceEnabled, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.MaxInactivityDuration, err = ctx.readLong(); err != nil {
		return nil, err
	}
	if v.MaxInactivityDurationInitalDelay, err = ctx.readLong(); err != nil {
		return nil, err
	}
	if v.MaxFrameSize, err = ctx.readLong(); err != nil {
		return nil, err
	}
	if v.TcpNoDelayEnabled, err = ctx.readBool(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalBrokerInfo(ctx *marshalCtx, v *command.BrokerInfo) error {
	if err := ctx.writeOptionalString(v.BrokerId, v.BrokerId != ""); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.BrokerURL, v.BrokerURL != ""); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.BrokerName, v.BrokerName != ""); err != nil {
		return err
	}
	if err := ctx.writeBool(v.SlaveBroker); err != nil {
		return err
	}
	if err := ctx.writeBool(v.MasterBroker); err != nil {
		return err
	}
	return ctx.writeBool(v.FaultTolerantConfiguration)
}

func unmarshalBrokerInfo(ctx *unmarshalCtx) (*command.BrokerInfo, error) {
	v := &command.BrokerInfo{}
	var err error
	if v.BrokerId, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.BrokerURL, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.BrokerName, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.SlaveBroker, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.MasterBroker, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.FaultTolerantConfiguration, err = ctx.readBool(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalConnectionInfo(ctx *marshalCtx, v *command.ConnectionInfo) error {
	if err := ctx.writeConnectionId(v.ConnectionId, true); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.ClientId, v.ClientId != ""); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.UserName, v.UserName != ""); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.Password, v.Password != ""); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.ClientIp, v.ClientIp != ""); err != nil {
		return err
	}
	if err := ctx.writeBool(v.Manageable); err != nil {
		return err
	}
	return ctx.writeBool(v.FailoverReconnect)
}

func unmarshalConnectionInfo(ctx *unmarshalCtx) (*command.ConnectionInfo, error) {
	v := &command.ConnectionInfo{}
	var err error
	if v.ConnectionId, _, err = ctx.readConnectionId(); err != nil {
		return nil, err
	}
	if v.ClientId, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.UserName, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.Password, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.ClientIp, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.Manageable, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.FailoverReconnect, err = ctx.readBool(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalConsumerInfo(ctx *marshalCtx, v *command.ConsumerInfo) error {
	if err := ctx.writeConsumerId(v.ConsumerId, true); err != nil {
		return err
	}
	if err := ctx.writeDestination(v.Destination, v.Destination != nil); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.Selector, v.Selector != ""); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.SubscriptionName, v.SubscriptionName != ""); err != nil {
		return err
	}
	if err := ctx.writeBool(v.NoLocal); err != nil {
		return err
	}
	if err := ctx.writeBool(v.Exclusive); err != nil {
		return err
	}
	if err := ctx.writeBool(v.Retroactive); err != nil {
		return err
	}
	if err := ctx.bw.WriteI8(v.Priority); err != nil {
		return err
	}
	if err := ctx.bw.WriteI32(v.PrefetchSize); err != nil {
		return err
	}
	if err := ctx.bw.WriteI32(v.MaximumPendingMessageLimit); err != nil {
		return err
	}
	return ctx.writeBool(v.DispatchAsync)
}

func unmarshalConsumerInfo(ctx *unmarshalCtx) (*command.ConsumerInfo, error) {
	v := &command.ConsumerInfo{}
	var err error
	if v.ConsumerId, _, err = ctx.readConsumerId(); err != nil {
		return nil, err
	}
	if v.Destination, _, err = ctx.readDestination(); err != nil {
		return nil, err
	}
	if v.Selector, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.SubscriptionName, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.NoLocal, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.Exclusive, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.Retroactive, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.Priority, err = ctx.br.ReadI8(); err != nil {
		return nil, err
	}
	if v.PrefetchSize, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	if v.MaximumPendingMessageLimit, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	if v.DispatchAsync, err = ctx.readBool(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalProducerInfo(ctx *marshalCtx, v *command.ProducerInfo) error {
	if err := ctx.writeProducerId(v.ProducerId, true); err != nil {
		return err
	}
	if err := ctx.writeDestination(v.Destination, v.Destination != nil); err != nil {
		return err
	}
	return ctx.writeBool(v.DispatchAsync)
}

func unmarshalProducerInfo(ctx *unmarshalCtx) (*command.ProducerInfo, error) {
	v := &command.ProducerInfo{}
	var err error
	if v.ProducerId, _, err = ctx.readProducerId(); err != nil {
		return nil, err
	}
	if v.Destination, _, err = ctx.readDestination(); err != nil {
		return nil, err
	}
	if v.DispatchAsync, err = ctx.readBool(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalTransactionInfo(ctx *marshalCtx, v *command.TransactionInfo) error {
	if err := ctx.writeConnectionId(v.ConnectionId, true); err != nil {
		return err
	}
	if err := ctx.writeTransactionId(v.TransactionId, v.TransactionId != nil); err != nil {
		return err
	}
	return ctx.bw.WriteU8(byte(v.Type))
}

func unmarshalTransactionInfo(ctx *unmarshalCtx) (*command.TransactionInfo, error) {
	v := &command.TransactionInfo{}
	var err error
	if v.ConnectionId, _, err = ctx.readConnectionId(); err != nil {
		return nil, err
	}
	if v.TransactionId, _, err = ctx.readTransactionId(); err != nil {
		return nil, err
	}
	kind, err := ctx.br.ReadU8()
	if err != nil {
		return nil, err
	}
	v.Type = command.TransactionKind(kind)
	return v, nil
}

func marshalRemoveInfo(ctx *marshalCtx, v *command.RemoveInfo) error {
	var key string
	switch id := v.ObjectId.(type) {
	case command.ConnectionId:
		key = "conn:" + id.Value
	case command.SessionId:
		key = "sess:" + id.String()
	case command.ConsumerId:
		key = "cons:" + id.String()
	case command.ProducerId:
		key = "prod:" + id.String()
	default:
		return fmt.Errorf("openwire: unsupported RemoveInfo.ObjectId type %T", v.ObjectId)
	}
	if err := ctx.bw.WriteUTF8String(key); err != nil {
		return err
	}
	return ctx.writeLong(v.LastDeliveredSequenceId)
}

func unmarshalRemoveInfo(ctx *unmarshalCtx) (*command.RemoveInfo, error) {
	key, err := ctx.br.ReadUTF8String()
	if err != nil {
		return nil, err
	}
	seq, err := ctx.readLong()
	if err != nil {
		return nil, err
	}
	return &command.RemoveInfo{ObjectId: key, LastDeliveredSequenceId: seq}, nil
}

func marshalExceptionResponse(ctx *marshalCtx, v *command.ExceptionResponse) error {
	if err := ctx.bw.WriteI32(v.CorrelationId); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.ExceptionClass, v.ExceptionClass != ""); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.Message, v.Message != ""); err != nil {
		return err
	}
	return ctx.writeOptionalString(v.StackTrace, v.StackTrace != "")
}

func unmarshalExceptionResponse(ctx *unmarshalCtx) (*command.ExceptionResponse, error) {
	v := &command.ExceptionResponse{}
	var err error
	if v.CorrelationId, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	if v.ExceptionClass, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.Message, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.StackTrace, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalConnectionControl(ctx *marshalCtx, v *command.ConnectionControl) error {
	if err := ctx.writeBool(v.Close); err != nil {
		return err
	}
	if err := ctx.writeBool(v.Exit); err != nil {
		return err
	}
	if err := ctx.writeBool(v.Faulty); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(v.ReconnectTo, v.ReconnectTo != ""); err != nil {
		return err
	}
	if err := ctx.writeBool(v.Rebalance); err != nil {
		return err
	}
	return ctx.writeOptionalString(v.ConnectedBrokers, v.ConnectedBrokers != "")
}

func unmarshalConnectionControl(ctx *unmarshalCtx) (*command.ConnectionControl, error) {
	v := &command.ConnectionControl{}
	var err error
	if v.Close, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.Exit, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.Faulty, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.ReconnectTo, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if v.Rebalance, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if v.ConnectedBrokers, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalConnectionError(ctx *marshalCtx, v *command.ConnectionError) error {
	if err := ctx.writeConnectionId(v.ConnectionId, true); err != nil {
		return err
	}
	return ctx.writeOptionalString(v.Message, v.Message != "")
}

func unmarshalConnectionError(ctx *unmarshalCtx) (*command.ConnectionError, error) {
	v := &command.ConnectionError{}
	var err error
	if v.ConnectionId, _, err = ctx.readConnectionId(); err != nil {
		return nil, err
	}
	if v.Message, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalMessageAck(ctx *marshalCtx, v *command.MessageAck) error {
	if err := ctx.writeDestination(v.Destination, v.Destination != nil); err != nil {
		return err
	}
	if err := ctx.writeTransactionId(v.TransactionId, v.TransactionId != nil); err != nil {
		return err
	}
	if err := ctx.writeConsumerId(v.ConsumerId, true); err != nil {
		return err
	}
	if err := ctx.bw.WriteU8(byte(v.AckType)); err != nil {
		return err
	}
	if err := ctx.writeMessageId(v.FirstMessageId, true); err != nil {
		return err
	}
	if err := ctx.writeMessageId(v.LastMessageId, true); err != nil {
		return err
	}
	return ctx.bw.WriteI32(v.MessageCount)
}

func unmarshalMessageAck(ctx *unmarshalCtx) (*command.MessageAck, error) {
	v := &command.MessageAck{}
	var err error
	if v.Destination, _, err = ctx.readDestination(); err != nil {
		return nil, err
	}
	if v.TransactionId, _, err = ctx.readTransactionId(); err != nil {
		return nil, err
	}
	if v.ConsumerId, _, err = ctx.readConsumerId(); err != nil {
		return nil, err
	}
	ackType, err := ctx.br.ReadU8()
	if err != nil {
		return nil, err
	}
	v.AckType = command.AckType(ackType)
	if v.FirstMessageId, _, err = ctx.readMessageId(); err != nil {
		return nil, err
	}
	if v.LastMessageId, _, err = ctx.readMessageId(); err != nil {
		return nil, err
	}
	if v.MessageCount, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalMessageDispatch(ctx *marshalCtx, v *command.MessageDispatch) error {
	if err := ctx.writeConsumerId(v.ConsumerId, true); err != nil {
		return err
	}
	if err := ctx.writeDestination(v.Destination, v.Destination != nil); err != nil {
		return err
	}
	present := v.Message != nil
	if err := ctx.writeBool(present); err != nil {
		return err
	}
	if present {
		if err := marshalMessage(ctx, v.Message); err != nil {
			return err
		}
	}
	return ctx.bw.WriteI32(v.RedeliveryCounter)
}

func unmarshalMessageDispatch(ctx *unmarshalCtx) (*command.MessageDispatch, error) {
	v := &command.MessageDispatch{}
	var err error
	if v.ConsumerId, _, err = ctx.readConsumerId(); err != nil {
		return nil, err
	}
	if v.Destination, _, err = ctx.readDestination(); err != nil {
		return nil, err
	}
	present, err := ctx.readBool()
	if err != nil {
		return nil, err
	}
	if present {
		m, err := unmarshalMessageFields(ctx)
		if err != nil {
			return nil, err
		}
		typeCode, err := ctx.br.ReadU8()
		if err != nil {
			return nil, err
		}
		if err := unmarshalPayloadInto(ctx, m, typeCode); err != nil {
			return nil, err
		}
		v.Message = m
	}
	if v.RedeliveryCounter, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	return v, nil
}

// marshalMessage writes a full nested Message for use inside
// MessageDispatch, which has no frame header of its own to carry the
// payload-kind type code: envelope fields, then an inline type-code byte,
// then the payload-specific body.
func marshalMessage(ctx *marshalCtx, m *command.Message) error {
	if err := marshalMessageFields(ctx, m); err != nil {
		return err
	}
	typeCode := command.TypeMessageFor(m.Payload)
	if err := ctx.bw.WriteU8(typeCode); err != nil {
		return err
	}
	return marshalPayload(ctx, m.Payload)
}

func unmarshalMessage(ctx *unmarshalCtx, typeCode byte) (*command.Message, error) {
	m, err := unmarshalMessageFields(ctx)
	if err != nil {
		return nil, err
	}
	if err := unmarshalPayloadInto(ctx, m, typeCode); err != nil {
		return nil, err
	}
	return m, nil
}

func marshalMessageFields(ctx *marshalCtx, m *command.Message) error {
	if err := ctx.writeProducerId(m.ProducerId, true); err != nil {
		return err
	}
	if err := ctx.writeMessageId(m.MessageId, true); err != nil {
		return err
	}
	if err := ctx.writeDestination(m.Destination, m.Destination != nil); err != nil {
		return err
	}
	if err := ctx.writeTransactionId(m.TransactionId, m.TransactionId != nil); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(m.CorrelationId, m.CorrelationId != ""); err != nil {
		return err
	}
	if err := ctx.writeDestination(m.ReplyTo, m.ReplyTo != nil); err != nil {
		return err
	}
	if err := ctx.writeBool(m.Persistent); err != nil {
		return err
	}
	if err := ctx.writeLong(m.Expiration); err != nil {
		return err
	}
	if err := ctx.bw.WriteU8(m.Priority); err != nil {
		return err
	}
	if err := ctx.writeLong(m.Timestamp); err != nil {
		return err
	}
	if err := ctx.bw.WriteI32(m.RedeliveryCounter); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(m.GroupId, m.GroupId != ""); err != nil {
		return err
	}
	if err := ctx.bw.WriteI32(m.GroupSequence); err != nil {
		return err
	}
	if err := ctx.writeOptionalString(m.Type, m.Type != ""); err != nil {
		return err
	}
	propBytes, err := MarshalPrimitiveMap(m.Properties)
	if err != nil {
		return err
	}
	return ctx.bw.WriteBytes(propBytes)
}

func unmarshalMessageFields(ctx *unmarshalCtx) (*command.Message, error) {
	m := &command.Message{}
	var err error
	if m.ProducerId, _, err = ctx.readProducerId(); err != nil {
		return nil, err
	}
	if m.MessageId, _, err = ctx.readMessageId(); err != nil {
		return nil, err
	}
	if m.Destination, _, err = ctx.readDestination(); err != nil {
		return nil, err
	}
	if m.TransactionId, _, err = ctx.readTransactionId(); err != nil {
		return nil, err
	}
	if m.CorrelationId, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if m.ReplyTo, _, err = ctx.readDestination(); err != nil {
		return nil, err
	}
	if m.Persistent, err = ctx.readBool(); err != nil {
		return nil, err
	}
	if m.Expiration, err = ctx.readLong(); err != nil {
		return nil, err
	}
	if m.Priority, err = ctx.br.ReadU8(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = ctx.readLong(); err != nil {
		return nil, err
	}
	if m.RedeliveryCounter, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	if m.GroupId, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	if m.GroupSequence, err = ctx.br.ReadI32(); err != nil {
		return nil, err
	}
	if m.Type, err = ctx.readOptionalString(); err != nil {
		return nil, err
	}
	propBytes, err := ctx.br.ReadBytes()
	if err != nil {
		return nil, err
	}
	if m.Properties, err = UnmarshalPrimitiveMap(propBytes); err != nil {
		return nil, err
	}
	return m, nil
}

func marshalPayload(ctx *marshalCtx, p command.Payload) error {
	switch v := p.(type) {
	case command.TextPayload:
		return ctx.bw.WriteBigUTF8String(v.Text)
	case *command.BytesPayload:
		return ctx.bw.WriteBytes(v.Content)
	case command.MapPayload:
		b, err := MarshalPrimitiveMap(v.Values)
		if err != nil {
			return err
		}
		return ctx.bw.WriteBytes(b)
	case *command.StreamPayload:
		return marshalPrimitiveValue(ctx.bw, v.Items)
	case command.ObjectPayload:
		return ctx.bw.WriteBytes(v.Content)
	default:
		return fmt.Errorf("openwire: unsupported payload type %T", p)
	}
}

func unmarshalPayloadInto(ctx *unmarshalCtx, m *command.Message, typeCode byte) error {
	switch typeCode {
	case command.TypeMessageTextType:
		text, err := ctx.br.ReadBigUTF8String()
		if err != nil {
			return err
		}
		m.Payload = command.TextPayload{Text: text}
	case command.TypeMessageBytesType:
		content, err := ctx.br.ReadBytes()
		if err != nil {
			return err
		}
		m.Payload = &command.BytesPayload{Content: content}
	case command.TypeMessageMapType:
		b, err := ctx.br.ReadBytes()
		if err != nil {
			return err
		}
		values, err := UnmarshalPrimitiveMap(b)
		if err != nil {
			return err
		}
		m.Payload = command.MapPayload{Values: values}
	case command.TypeMessageStreamType:
		items, err := unmarshalPrimitiveValue(ctx.br)
		if err != nil {
			return err
		}
		list, _ := items.([]any)
		m.Payload = &command.StreamPayload{Items: list}
	case command.TypeMessageObjectType:
		content, err := ctx.br.ReadBytes()
		if err != nil {
			return err
		}
		m.Payload = command.ObjectPayload{Content: content}
	default:
		return fmt.Errorf("openwire: %w: message payload type %d", ErrUnknownTypeCode, typeCode)
	}
	return nil
}
