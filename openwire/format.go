// Package openwire implements OpenWireFormat: the binary wire format that
// marshals command.Command values to and from a framed byte stream, in
// both tight and loose encodings, with the cached-object slot protocol and
// the handshake negotiation it requires.
package openwire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/wire"
)

// MaxSupportedVersion is the highest OpenWire protocol version this
// package negotiates.
const MaxSupportedVersion = 12

// Format holds one direction-pair's negotiated wire-format options plus
// the per-direction cached-object tables. A Format is not safe for
// concurrent Marshal/Unmarshal calls from multiple goroutines without
// external synchronization — that serialization is the responsibility of
// the transport/mutex filter for writes and the single-reader read loop for
// reads.
type Format struct {
	Version                           int32
	Tight                             bool
	CacheEnabled                      bool
	CacheSize                         int
	SizePrefixDisabled                bool
	StackTraceEnabled                 bool
	MaxInactivityDuration             int64
	MaxInactivityDurationInitalDelay  int64
	MaxFrameSize                      int64

	negotiated bool

	encodeCache *cacheTable
	decodeCache *cacheTable
}

// NewFormat returns a Format with ommq's default local options, prior to
// negotiation with a peer.
func NewFormat(version int32) *Format {
	f := &Format{
		Version:               version,
		Tight:                 true,
		CacheEnabled:          true,
		CacheSize:             1024,
		StackTraceEnabled:     true,
		MaxInactivityDuration: 30000,
		MaxFrameSize:          1 << 20,
	}
	f.resetCaches()
	return f
}

func (f *Format) resetCaches() {
	f.encodeCache = newCacheTable(f.CacheSize)
	f.decodeCache = newCacheTable(f.CacheSize)
}

// LocalWireFormatInfo returns the WireFormatInfo this Format would send to
// advertise its current local options.
func (f *Format) LocalWireFormatInfo() *command.WireFormatInfo {
	wfi := command.NewWireFormatInfo(f.Version)
	wfi.TightEncodingEnabled = f.Tight
	wfi.CacheEnabled = f.CacheEnabled
	wfi.CacheSize = int32(f.CacheSize)
	wfi.SizePrefixDisabled = f.SizePrefixDisabled
	wfi.StackTraceEnabled = f.StackTraceEnabled
	wfi.MaxInactivityDuration = f.MaxInactivityDuration
	wfi.MaxInactivityDurationInitalDelay = f.MaxInactivityDurationInitalDelay
	wfi.MaxFrameSize = f.MaxFrameSize
	return wfi
}

// Negotiate applies the handshake negotiation formula given the local
// WireFormatInfo this Format previously sent and the remote
// WireFormatInfo just received, and resets the cached-object tables
// (negotiation only happens once, before any other command flows).
func (f *Format) Negotiate(local, remote *command.WireFormatInfo) {
	f.Tight = local.TightEncodingEnabled && remote.TightEncodingEnabled
	f.CacheEnabled = local.CacheEnabled && remote.CacheEnabled
	if remote.Version < local.Version {
		f.Version = remote.Version
	} else {
		f.Version = local.Version
	}
	f.SizePrefixDisabled = local.SizePrefixDisabled || remote.SizePrefixDisabled
	f.StackTraceEnabled = local.StackTraceEnabled && remote.StackTraceEnabled

	cacheSize := local.CacheSize
	if remote.CacheSize > 0 && (cacheSize == 0 || remote.CacheSize < cacheSize) {
		cacheSize = remote.CacheSize
	}
	if cacheSize > 0 {
		f.CacheSize = int(cacheSize)
	}

	f.negotiated = true
	f.resetCaches()
}

// Negotiated reports whether Negotiate has run.
func (f *Format) Negotiated() bool { return f.negotiated }

// Marshal encodes cmd as one complete OpenWire frame.
func (f *Format) Marshal(cmd command.Command) ([]byte, error) {
	if !f.negotiated && !command.IsWireFormatInfo(cmd) {
		return nil, ErrHandshakeRequired
	}

	ctx := newMarshalCtx(f)
	if err := ctx.writeBool(cmd.ResponseRequired()); err != nil {
		return nil, err
	}
	if err := marshalCommandBody(ctx, cmd); err != nil {
		return nil, fmt.Errorf("openwire: marshal %T: %w", cmd, err)
	}

	content := &bytes.Buffer{}
	cw := wire.NewWriter(content)
	if err := cw.WriteI32(cmd.CommandId()); err != nil {
		return nil, err
	}
	if err := ctx.flushBoolStream(cw); err != nil {
		return nil, err
	}

	out := &bytes.Buffer{}
	ow := wire.NewWriter(out)
	if !f.SizePrefixDisabled {
		total := int32(1 + content.Len())
		if err := ow.WriteI32(total); err != nil {
			return nil, err
		}
	}
	if err := ow.WriteU8(cmd.TypeCode()); err != nil {
		return nil, err
	}
	if err := ow.WriteRaw(content.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Unmarshal decodes exactly one OpenWire frame from r.
func (f *Format) Unmarshal(r io.Reader) (command.Command, error) {
	br := wire.NewReader(r)

	if !f.SizePrefixDisabled {
		if _, err := br.ReadI32(); err != nil {
			return nil, fmt.Errorf("openwire: read frame length: %w", err)
		}
	}
	typeCode, err := br.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("openwire: read type code: %w", err)
	}
	commandId, err := br.ReadI32()
	if err != nil {
		return nil, fmt.Errorf("openwire: read command id: %w", err)
	}

	ctx, err := newUnmarshalCtx(f, br)
	if err != nil {
		return nil, err
	}
	responseRequired, err := ctx.readBool()
	if err != nil {
		return nil, err
	}

	cmd, err := unmarshalCommandBody(ctx, typeCode)
	if err != nil {
		return nil, fmt.Errorf("openwire: unmarshal type %d: %w", typeCode, err)
	}
	cmd.SetCommandId(commandId)
	cmd.SetResponseRequired(responseRequired)

	if !f.negotiated && !command.IsWireFormatInfo(cmd) {
		return nil, ErrHandshakeRequired
	}
	return cmd, nil
}
