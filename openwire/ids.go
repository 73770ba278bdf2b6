package openwire

import (
	"fmt"

	"github.com/corvidmq/ommq/command"
)

// writeCached implements the cached-object slot protocol for one
// identifiable field: a presence bit, then either a literal value (first
// appearance, preceded by the -1 sentinel) or a bare i16 slot reference.
func (c *marshalCtx) writeCached(key string, present bool, writeLiteral func() error) error {
	if err := c.writeBool(present); err != nil {
		return err
	}
	if !present {
		return nil
	}
	if !c.cacheEnabled {
		return writeLiteral()
	}
	if slot, ok := c.cache.encodeLookup(key); ok {
		return c.bw.WriteI16(slot)
	}
	if err := c.bw.WriteI16(-1); err != nil {
		return err
	}
	if err := writeLiteral(); err != nil {
		return err
	}
	c.cache.encodeInsert(key)
	return nil
}

// readCached is the decode-side counterpart of writeCached.
func (c *unmarshalCtx) readCached(readLiteral func() (any, error)) (any, bool, error) {
	present, err := c.readBool()
	if err != nil {
		return nil, false, err
	}
	if !present {
		return nil, false, nil
	}
	if !c.cacheEnabled {
		v, err := readLiteral()
		return v, true, err
	}
	slot, err := c.br.ReadI16()
	if err != nil {
		return nil, false, err
	}
	if slot == -1 {
		v, err := readLiteral()
		if err != nil {
			return nil, false, err
		}
		c.cache.decodeInsert(v)
		return v, true, nil
	}
	v, ok := c.cache.decodeLookup(slot)
	if !ok {
		return nil, false, fmt.Errorf("openwire: slot %d: %w", slot, ErrCacheMiss)
	}
	return v, true, nil
}

func (c *marshalCtx) writeConnectionId(id command.ConnectionId, present bool) error {
	return c.writeCached(id.Value, present, func() error {
		return c.bw.WriteUTF8String(id.Value)
	})
}

func (c *unmarshalCtx) readConnectionId() (command.ConnectionId, bool, error) {
	v, present, err := c.readCached(func() (any, error) {
		s, err := c.br.ReadUTF8String()
		if err != nil {
			return nil, err
		}
		return command.ConnectionId{Value: s}, nil
	})
	if err != nil || !present {
		return command.ConnectionId{}, present, err
	}
	return v.(command.ConnectionId), true, nil
}

func (c *marshalCtx) writeSessionId(id command.SessionId, present bool) error {
	return c.writeCached(id.String(), present, func() error {
		if err := c.bw.WriteUTF8String(id.ConnectionId); err != nil {
			return err
		}
		return c.writeLong(id.Value)
	})
}

func (c *unmarshalCtx) readSessionId() (command.SessionId, bool, error) {
	v, present, err := c.readCached(func() (any, error) {
		connId, err := c.br.ReadUTF8String()
		if err != nil {
			return nil, err
		}
		val, err := c.readLong()
		if err != nil {
			return nil, err
		}
		return command.SessionId{ConnectionId: connId, Value: val}, nil
	})
	if err != nil || !present {
		return command.SessionId{}, present, err
	}
	return v.(command.SessionId), true, nil
}

func (c *marshalCtx) writeConsumerId(id command.ConsumerId, present bool) error {
	return c.writeCached(id.String(), present, func() error {
		if err := c.bw.WriteUTF8String(id.ConnectionId); err != nil {
			return err
		}
		if err := c.writeLong(id.SessionValue); err != nil {
			return err
		}
		return c.writeLong(id.ConsumerValue)
	})
}

func (c *unmarshalCtx) readConsumerId() (command.ConsumerId, bool, error) {
	v, present, err := c.readCached(func() (any, error) {
		connId, err := c.br.ReadUTF8String()
		if err != nil {
			return nil, err
		}
		sv, err := c.readLong()
		if err != nil {
			return nil, err
		}
		cv, err := c.readLong()
		if err != nil {
			return nil, err
		}
		return command.ConsumerId{ConnectionId: connId, SessionValue: sv, ConsumerValue: cv}, nil
	})
	if err != nil || !present {
		return command.ConsumerId{}, present, err
	}
	return v.(command.ConsumerId), true, nil
}

func (c *marshalCtx) writeProducerId(id command.ProducerId, present bool) error {
	return c.writeCached(id.String(), present, func() error {
		if err := c.bw.WriteUTF8String(id.ConnectionId); err != nil {
			return err
		}
		if err := c.writeLong(id.SessionValue); err != nil {
			return err
		}
		return c.writeLong(id.ProducerValue)
	})
}

func (c *unmarshalCtx) readProducerId() (command.ProducerId, bool, error) {
	v, present, err := c.readCached(func() (any, error) {
		connId, err := c.br.ReadUTF8String()
		if err != nil {
			return nil, err
		}
		sv, err := c.readLong()
		if err != nil {
			return nil, err
		}
		pv, err := c.readLong()
		if err != nil {
			return nil, err
		}
		return command.ProducerId{ConnectionId: connId, SessionValue: sv, ProducerValue: pv}, nil
	})
	if err != nil || !present {
		return command.ProducerId{}, present, err
	}
	return v.(command.ProducerId), true, nil
}

func (c *marshalCtx) writeMessageId(id command.MessageId, present bool) error {
	return c.writeCached(id.String(), present, func() error {
		if err := c.writeProducerId(id.ProducerId, true); err != nil {
			return err
		}
		return c.writeLong(id.ProducerSeqId)
	})
}

func (c *unmarshalCtx) readMessageId() (command.MessageId, bool, error) {
	v, present, err := c.readCached(func() (any, error) {
		pid, _, err := c.readProducerId()
		if err != nil {
			return nil, err
		}
		seq, err := c.readLong()
		if err != nil {
			return nil, err
		}
		return command.MessageId{ProducerId: pid, ProducerSeqId: seq}, nil
	})
	if err != nil || !present {
		return command.MessageId{}, present, err
	}
	return v.(command.MessageId), true, nil
}

func (c *marshalCtx) writeDestination(d *command.Destination, present bool) error {
	return c.writeCached(destKey(d), present, func() error {
		if err := c.bw.WriteU8(byte(d.Kind)); err != nil {
			return err
		}
		return c.bw.WriteUTF8String(d.Name)
	})
}

func destKey(d *command.Destination) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func (c *unmarshalCtx) readDestination() (*command.Destination, bool, error) {
	v, present, err := c.readCached(func() (any, error) {
		kind, err := c.br.ReadU8()
		if err != nil {
			return nil, err
		}
		name, err := c.br.ReadUTF8String()
		if err != nil {
			return nil, err
		}
		return &command.Destination{Kind: command.DestinationKind(kind), Name: name}, nil
	})
	if err != nil || !present {
		return nil, present, err
	}
	return v.(*command.Destination), true, nil
}

// Transaction id literal encoding: a discriminator byte (0 = local,
// 1 = XA) followed by type-specific fields. Transaction ids are not part
// of the cached-object set in the reference model (they are short-lived
// by nature), so these are written as plain optional nested values.
func (c *marshalCtx) writeTransactionId(id command.TransactionId, present bool) error {
	if err := c.writeBool(present); err != nil {
		return err
	}
	if !present {
		return nil
	}
	switch v := id.(type) {
	case command.LocalTransactionId:
		if err := c.bw.WriteU8(0); err != nil {
			return err
		}
		if err := c.bw.WriteUTF8String(v.ConnectionId); err != nil {
			return err
		}
		return c.writeLong(v.Value)
	case command.XATransactionId:
		if err := c.bw.WriteU8(1); err != nil {
			return err
		}
		if err := c.bw.WriteI32(v.FormatId); err != nil {
			return err
		}
		if err := c.bw.WriteBytes(v.BranchQualifier); err != nil {
			return err
		}
		return c.bw.WriteBytes(v.GlobalTransactionId)
	default:
		return fmt.Errorf("openwire: unknown transaction id type %T", id)
	}
}

func (c *unmarshalCtx) readTransactionId() (command.TransactionId, bool, error) {
	present, err := c.readBool()
	if err != nil || !present {
		return nil, present, err
	}
	kind, err := c.br.ReadU8()
	if err != nil {
		return nil, false, err
	}
	switch kind {
	case 0:
		connId, err := c.br.ReadUTF8String()
		if err != nil {
			return nil, false, err
		}
		val, err := c.readLong()
		if err != nil {
			return nil, false, err
		}
		return command.LocalTransactionId{ConnectionId: connId, Value: val}, true, nil
	case 1:
		formatId, err := c.br.ReadI32()
		if err != nil {
			return nil, false, err
		}
		branch, err := c.br.ReadBytes()
		if err != nil {
			return nil, false, err
		}
		global, err := c.br.ReadBytes()
		if err != nil {
			return nil, false, err
		}
		xid, err := command.NewXATransactionId(formatId, branch, global)
		if err != nil {
			return nil, false, fmt.Errorf("openwire: decode XATransactionId: %w", err)
		}
		return xid, true, nil
	default:
		return nil, false, fmt.Errorf("openwire: %w: transaction id discriminator %d", ErrMalformedFrame, kind)
	}
}
