package openwire

import "errors"

// ErrFramingDepthExceeded is returned when nested-command recursion during
// marshal or unmarshal exceeds the configured stack guard.
var ErrFramingDepthExceeded = errors.New("openwire: framing depth exceeded")

// ErrMalformedFrame is returned when a frame's length prefix, type code, or
// body cannot be decoded.
var ErrMalformedFrame = errors.New("openwire: malformed frame")

// ErrUnknownTypeCode is returned when a frame's type code has no registered
// command constructor.
var ErrUnknownTypeCode = errors.New("openwire: unknown type code")

// ErrHandshakeRequired is returned when a non-WireFormatInfo command is
// marshalled or unmarshalled before negotiation has completed.
var ErrHandshakeRequired = errors.New("openwire: handshake not complete")

// ErrCacheMiss is returned when a cached-object slot reference has no
// corresponding entry in the per-direction decode table.
var ErrCacheMiss = errors.New("openwire: cache slot miss")
