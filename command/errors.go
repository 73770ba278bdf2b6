package command

import "errors"

// Caller-level errors raised by the command/message model. None of these
// have any effect on a transport: they are returned synchronously to
// whichever caller made the offending call.
var (
	// ErrInvalid covers malformed arguments: an empty property name, an
	// out-of-range id part, and similar caller mistakes.
	ErrInvalid = errors.New("command: invalid argument")

	// ErrMessageNotWritable is returned when a mutating call is made
	// against a message whose relevant read-only bit is set.
	ErrMessageNotWritable = errors.New("command: message is not writable")

	// ErrMessageNotReadable is returned when a body read is attempted in
	// the wrong mode (for example, reading a stream message that is still
	// being written).
	ErrMessageNotReadable = errors.New("command: message is not readable")

	// ErrMessageFormat is returned when a property get/set uses a
	// conversion the primitive-type lattice does not permit.
	ErrMessageFormat = errors.New("command: invalid message property conversion")
)
