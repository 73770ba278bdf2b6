// Package wire implements the primitive byte-level codec shared by the
// OpenWire and STOMP wire formats: big-endian integer and float I/O, the
// BooleanStream bit-packing scheme, and the modified-UTF-8 string codec.
//
// Nothing in this package knows about commands; it only knows how to move
// primitive values on and off a byte stream, the same separation
// activemq-cpp draws between decaf::io::DataInputStream/DataOutputStream
// and the marshaller layer above them.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader reads big-endian primitives from an underlying io.Reader.
type Reader struct {
	r   io.Reader
	buf [8]byte
}

// NewReader wraps r for primitive reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) fill(n int) ([]byte, error) {
	b := r.buf[:n]
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, fmt.Errorf("wire: read %d bytes: %w", n, err)
	}
	return b, nil
}

// ReadBool reads a single byte and reports it as a boolean (non-zero is true).
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.fill(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (byte, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads one signed byte.
func (r *Reader) ReadI8() (int8, error) {
	b, err := r.ReadU8()
	return int8(b), err
}

// ReadI16 reads a big-endian 16-bit signed integer.
func (r *Reader) ReadI16() (int16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

// ReadU16 reads a big-endian 16-bit unsigned integer.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadI32 reads a big-endian 32-bit signed integer.
func (r *Reader) ReadI32() (int32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadU32 reads a big-endian 32-bit unsigned integer.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadI64 reads a big-endian 64-bit signed integer.
func (r *Reader) ReadI64() (int64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// ReadU64 reads a big-endian 64-bit unsigned integer.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadF32 reads an IEEE-754 single-precision float.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads an IEEE-754 double-precision float.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadFull reads exactly len(p) bytes into p.
func (r *Reader) ReadFull(p []byte) error {
	if _, err := io.ReadFull(r.r, p); err != nil {
		return fmt.Errorf("wire: read %d bytes: %w", len(p), err)
	}
	return nil
}

// ReadBytes reads a length-prefixed (u32) byte array.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Writer writes big-endian primitives to an underlying io.Writer.
type Writer struct {
	w   io.Writer
	buf [8]byte
}

// NewWriter wraps w for primitive writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) write(b []byte) error {
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("wire: write %d bytes: %w", len(b), err)
	}
	return nil
}

// WriteBool writes a boolean as a single byte (1 or 0).
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteU8(1)
	}
	return w.WriteU8(0)
}

// WriteU8 writes one unsigned byte.
func (w *Writer) WriteU8(v byte) error {
	w.buf[0] = v
	return w.write(w.buf[:1])
}

// WriteI8 writes one signed byte.
func (w *Writer) WriteI8(v int8) error {
	return w.WriteU8(byte(v))
}

// WriteI16 writes a big-endian 16-bit signed integer.
func (w *Writer) WriteI16(v int16) error {
	return w.WriteU16(uint16(v))
}

// WriteU16 writes a big-endian 16-bit unsigned integer.
func (w *Writer) WriteU16(v uint16) error {
	binary.BigEndian.PutUint16(w.buf[:2], v)
	return w.write(w.buf[:2])
}

// WriteI32 writes a big-endian 32-bit signed integer.
func (w *Writer) WriteI32(v int32) error {
	return w.WriteU32(uint32(v))
}

// WriteU32 writes a big-endian 32-bit unsigned integer.
func (w *Writer) WriteU32(v uint32) error {
	binary.BigEndian.PutUint32(w.buf[:4], v)
	return w.write(w.buf[:4])
}

// WriteI64 writes a big-endian 64-bit signed integer.
func (w *Writer) WriteI64(v int64) error {
	return w.WriteU64(uint64(v))
}

// WriteU64 writes a big-endian 64-bit unsigned integer.
func (w *Writer) WriteU64(v uint64) error {
	binary.BigEndian.PutUint64(w.buf[:8], v)
	return w.write(w.buf[:8])
}

// WriteF32 writes an IEEE-754 single-precision float.
func (w *Writer) WriteF32(v float32) error {
	return w.WriteU32(math.Float32bits(v))
}

// WriteF64 writes an IEEE-754 double-precision float.
func (w *Writer) WriteF64(v float64) error {
	return w.WriteU64(math.Float64bits(v))
}

// WriteRaw writes p unmodified.
func (w *Writer) WriteRaw(p []byte) error {
	return w.write(p)
}

// WriteBytes writes a length-prefixed (u32) byte array.
func (w *Writer) WriteBytes(p []byte) error {
	if err := w.WriteU32(uint32(len(p))); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.write(p)
}
