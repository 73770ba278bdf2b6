package command

import (
	"fmt"
	"io"
)

// PayloadKind tags which Message subtype a Payload implements.
type PayloadKind byte

const (
	PayloadText PayloadKind = iota
	PayloadBytes
	PayloadMap
	PayloadStream
	PayloadObject
)

// Payload is the variant body carried by a Message: Text, Bytes, Map,
// Stream, or Object. Common fields (destination, ids, priority, ...) live
// on Message itself; only the body shape varies per subtype.
type Payload interface {
	Kind() PayloadKind
}

// TextPayload carries a UTF-8 text body (ActiveMQTextMessage).
type TextPayload struct {
	Text string
}

func (TextPayload) Kind() PayloadKind { return PayloadText }

// BytesPayload carries an opaque byte body (ActiveMQBytesMessage), with a
// read cursor so the body can be consumed incrementally like a stream.
type BytesPayload struct {
	Content []byte
	readPos int
}

func (BytesPayload) Kind() PayloadKind { return PayloadBytes }

// Read consumes up to len(p) bytes from the current cursor position.
func (b *BytesPayload) Read(p []byte) (int, error) {
	if b.readPos >= len(b.Content) {
		return 0, io.EOF
	}
	n := copy(p, b.Content[b.readPos:])
	b.readPos += n
	return n, nil
}

// Reset seeks the read cursor back to zero without altering Content or
// otherwise changing read/write mode.
func (b *BytesPayload) Reset() {
	b.readPos = 0
}

// MapPayload carries a name/value property set as its body
// (ActiveMQMapMessage), reusing the same primitive lattice as properties.
type MapPayload struct {
	Values PropertyMap
}

func (MapPayload) Kind() PayloadKind { return PayloadMap }

// StreamPayload carries an ordered sequence of primitive values as its
// body (ActiveMQStreamMessage), read back in write order.
type StreamPayload struct {
	Items   []any
	readPos int
}

func (StreamPayload) Kind() PayloadKind { return PayloadStream }

// ReadNext returns the next item in the stream, advancing the cursor.
func (s *StreamPayload) ReadNext() (any, error) {
	if s.readPos >= len(s.Items) {
		return nil, io.EOF
	}
	v := s.Items[s.readPos]
	s.readPos++
	return v, nil
}

// Reset seeks the stream read cursor back to the first item.
func (s *StreamPayload) Reset() {
	s.readPos = 0
}

// ObjectPayload carries an opaque serialized object body
// (ActiveMQObjectMessage). ommq does not interpret the bytes.
type ObjectPayload struct {
	Content []byte
}

func (ObjectPayload) Kind() PayloadKind { return PayloadObject }

// Message is the common envelope shared by every message subtype: a
// destination, identity, delivery metadata, a typed property map, and a
// Payload variant body.
type Message struct {
	Base

	ProducerId        ProducerId
	MessageId         MessageId
	Destination       *Destination
	TransactionId     TransactionId
	CorrelationId     string
	ReplyTo           *Destination
	Persistent        bool
	Expiration        int64
	Priority          byte
	Timestamp         int64
	RedeliveryCounter int32
	GroupId           string
	GroupSequence     int32
	Type              string

	Properties PropertyMap
	Payload    Payload

	readOnlyBody       bool
	readOnlyProperties bool
}

// NewMessage returns a Message with an initialized property map.
func NewMessage(payload Payload) *Message {
	return &Message{
		Properties: make(PropertyMap),
		Payload:    payload,
	}
}

// ReadOnlyBody reports whether the body is currently immutable.
func (m *Message) ReadOnlyBody() bool { return m.readOnlyBody }

// ReadOnlyProperties reports whether the property map is currently immutable.
func (m *Message) ReadOnlyProperties() bool { return m.readOnlyProperties }

// OnSend is invoked by a producer immediately before handing the message
// to the transport. It freezes both the body and the properties.
func (m *Message) OnSend() {
	m.readOnlyBody = true
	m.readOnlyProperties = true
}

// ClearBody unfreezes the body for another round of writes, as happens
// when an application reuses a message object after receiving it.
func (m *Message) ClearBody() {
	m.readOnlyBody = false
}

// ClearProperties unfreezes the property map for another round of writes.
func (m *Message) ClearProperties() {
	m.readOnlyProperties = false
	m.Properties = make(PropertyMap)
}

func (m *Message) checkWritableProperties() error {
	if m.readOnlyProperties {
		return fmt.Errorf("command: set property: %w", ErrMessageNotWritable)
	}
	return nil
}

func (m *Message) checkWritableBody() error {
	if m.readOnlyBody {
		return fmt.Errorf("command: set body: %w", ErrMessageNotWritable)
	}
	return nil
}

// SetProperty stores an arbitrary primitive property, honoring the
// read-only-properties bit.
func (m *Message) SetProperty(name string, value any) error {
	if err := m.checkWritableProperties(); err != nil {
		return err
	}
	return m.Properties.Set(name, value)
}

// SetText replaces the body with a TextPayload, honoring the
// read-only-body bit. Returns ErrMessageNotWritable if the body is frozen.
func (m *Message) SetText(text string) error {
	if err := m.checkWritableBody(); err != nil {
		return err
	}
	m.Payload = TextPayload{Text: text}
	return nil
}

// Text returns the body as text if the payload is a TextPayload.
func (m *Message) Text() (string, error) {
	tp, ok := m.Payload.(TextPayload)
	if !ok {
		return "", fmt.Errorf("command: %w: payload is not text", ErrMessageNotReadable)
	}
	return tp.Text, nil
}

// SetBytes replaces the body with a BytesPayload.
func (m *Message) SetBytes(content []byte) error {
	if err := m.checkWritableBody(); err != nil {
		return err
	}
	m.Payload = &BytesPayload{Content: content}
	return nil
}
