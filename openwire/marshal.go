package openwire

import (
	"bytes"
	"fmt"

	"github.com/corvidmq/ommq/wire"
)

// maxFramingDepth bounds nested-command recursion. Exceeding it fails
// with ErrFramingDepthExceeded rather than overflowing the Go stack on a
// pathological or corrupt command graph.
const maxFramingDepth = 100

// marshalCtx accumulates one command's tight- or loose-encoded body.
//
// Tight mode buffers field bytes into body while booleans accumulate into
// bs; the BooleanStream is only serialized (via flushBoolStream) once the
// whole body has been produced, so that it precedes the packed fields on
// the wire. This single buffered pass stands in for a two-pass
// tight_marshal_1/tight_marshal_2 split seen in other OpenWire
// implementations: byte-for-byte compatibility with any particular
// broker's marshaller is out of scope, and a single pass is the more
// idiomatic Go shape for the same invariant.
type marshalCtx struct {
	tight        bool
	cacheEnabled bool
	cache        *cacheTable
	depth        int

	bs   *wire.BooleanStream // tight mode only
	body *bytes.Buffer
	bw   *wire.Writer // wraps body
}

func newMarshalCtx(f *Format) *marshalCtx {
	body := &bytes.Buffer{}
	ctx := &marshalCtx{
		tight:        f.Tight,
		cacheEnabled: f.CacheEnabled,
		cache:        f.encodeCache,
		body:         body,
		bw:           wire.NewWriter(body),
	}
	if ctx.tight {
		ctx.bs = wire.NewBooleanStream()
	}
	return ctx
}

func (c *marshalCtx) enter() error {
	c.depth++
	if c.depth > maxFramingDepth {
		return ErrFramingDepthExceeded
	}
	return nil
}

func (c *marshalCtx) leave() { c.depth-- }

// writeBool writes a plain (non-optional) boolean field.
func (c *marshalCtx) writeBool(v bool) error {
	if c.tight {
		c.bs.WriteBoolean(v)
		return nil
	}
	return c.bw.WriteBool(v)
}

// writeOptionalString writes an optional string field per the tight/loose
// encoding table: tight is a presence bit plus bytes if present; loose is
// a presence bool plus bytes if present.
func (c *marshalCtx) writeOptionalString(s string, present bool) error {
	if err := c.writeBool(present); err != nil {
		return err
	}
	if !present {
		return nil
	}
	return c.bw.WriteUTF8String(s)
}

// writeLong writes an i64 field. Tight mode selects among {zero, 1-byte,
// 2-byte, 8-byte} via two bits in the BooleanStream; loose mode always
// writes the full 8 bytes.
func (c *marshalCtx) writeLong(v int64) error {
	if !c.tight {
		return c.bw.WriteI64(v)
	}
	switch {
	case v == 0:
		c.bs.WriteBoolean(false)
		c.bs.WriteBoolean(false)
		return nil
	case v >= -128 && v <= 127:
		c.bs.WriteBoolean(false)
		c.bs.WriteBoolean(true)
		return c.bw.WriteI8(int8(v))
	case v >= -32768 && v <= 32767:
		c.bs.WriteBoolean(true)
		c.bs.WriteBoolean(false)
		return c.bw.WriteI16(int16(v))
	default:
		c.bs.WriteBoolean(true)
		c.bs.WriteBoolean(true)
		return c.bw.WriteI64(v)
	}
}

// flushBoolStream writes the BooleanStream followed by the buffered body
// into w, for tight-mode frames.
func (c *marshalCtx) flushBoolStream(w *wire.Writer) error {
	if c.tight {
		if err := c.bs.Marshal(w); err != nil {
			return err
		}
	}
	return w.WriteRaw(c.body.Bytes())
}

// unmarshalCtx is the read-side counterpart of marshalCtx. In tight mode
// the BooleanStream has already been read off the wire in its entirety
// before any field is decoded, matching how it was written.
type unmarshalCtx struct {
	tight        bool
	cacheEnabled bool
	cache        *cacheTable
	depth        int

	bs *wire.BooleanStream // tight mode only
	br *wire.Reader
}

func newUnmarshalCtx(f *Format, br *wire.Reader) (*unmarshalCtx, error) {
	ctx := &unmarshalCtx{
		tight:        f.Tight,
		cacheEnabled: f.CacheEnabled,
		cache:        f.decodeCache,
		br:           br,
	}
	if ctx.tight {
		bs, err := wire.UnmarshalBooleanStream(br)
		if err != nil {
			return nil, fmt.Errorf("openwire: read boolean stream: %w", err)
		}
		ctx.bs = bs
	}
	return ctx, nil
}

func (c *unmarshalCtx) enter() error {
	c.depth++
	if c.depth > maxFramingDepth {
		return ErrFramingDepthExceeded
	}
	return nil
}

func (c *unmarshalCtx) leave() { c.depth-- }

func (c *unmarshalCtx) readBool() (bool, error) {
	if c.tight {
		return c.bs.ReadBoolean(), nil
	}
	return c.br.ReadBool()
}

func (c *unmarshalCtx) readOptionalString() (string, error) {
	present, err := c.readBool()
	if err != nil {
		return "", err
	}
	if !present {
		return "", nil
	}
	return c.br.ReadUTF8String()
}

func (c *unmarshalCtx) readLong() (int64, error) {
	if !c.tight {
		return c.br.ReadI64()
	}
	hi := c.bs.ReadBoolean()
	lo := c.bs.ReadBoolean()
	switch {
	case !hi && !lo:
		return 0, nil
	case !hi && lo:
		v, err := c.br.ReadI8()
		return int64(v), err
	case hi && !lo:
		v, err := c.br.ReadI16()
		return int64(v), err
	default:
		return c.br.ReadI64()
	}
}
