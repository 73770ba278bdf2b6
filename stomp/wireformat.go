package stomp

import (
	"bufio"
	"fmt"
	"io"

	"github.com/corvidmq/ommq/command"
)

// WireFormat adapts Format to the transport.WireFormat contract
// (Marshal(Command) ([]byte, error) / Unmarshal(io.Reader) (Command,
// error)), so an IOTransport can drive either stomp or openwire
// interchangeably without transport importing either package.
type WireFormat struct {
	Format *Format
}

// NewWireFormat wraps f, or a fresh NewFormat() if f is nil.
func NewWireFormat(f *Format) *WireFormat {
	if f == nil {
		f = NewFormat()
	}
	return &WireFormat{Format: f}
}

func (w *WireFormat) Marshal(cmd command.Command) ([]byte, error) {
	fr, err := w.Format.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("stomp: marshal: %w", err)
	}
	return fr.Marshal(), nil
}

// Unmarshal reads exactly one frame from r. If r is not already a
// *bufio.Reader it is wrapped in one; ReadFrame's line-oriented parsing
// needs buffering, and wrapping an already-buffered reader is harmless
// (reads simply delegate through).
func (w *WireFormat) Unmarshal(r io.Reader) (command.Command, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	fr, err := ReadFrame(br)
	if err != nil {
		return nil, fmt.Errorf("stomp: unmarshal: %w", err)
	}
	return w.Format.Unmarshal(fr)
}
