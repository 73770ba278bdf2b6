package stomp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corvidmq/ommq/command"
)

// Format translates between the command model and STOMP frames. A
// zero Format is usable; NewFormat just fills in the conventional
// destination-prefix defaults.
type Format struct {
	// ClientId is this connection's STOMP client-id, required to validate
	// that a durable ConsumerInfo's SubscriptionName matches it (STOMP has
	// no separate durable-subscription-name header; ActiveMQ's STOMP
	// adapter requires they be equal).
	ClientId string

	QueuePrefix     string
	TopicPrefix     string
	TempQueuePrefix string
	TempTopicPrefix string
}

// NewFormat returns a Format with ActiveMQ's conventional destination
// prefixes.
func NewFormat() *Format {
	return &Format{
		QueuePrefix:     "/queue/",
		TopicPrefix:     "/topic/",
		TempQueuePrefix: "/temp-queue/",
		TempTopicPrefix: "/temp-topic/",
	}
}

func (f *Format) destinationPrefix(kind command.DestinationKind) string {
	switch kind {
	case command.DestinationTopic:
		return f.TopicPrefix
	case command.DestinationTempQueue:
		return f.TempQueuePrefix
	case command.DestinationTempTopic:
		return f.TempTopicPrefix
	default:
		return f.QueuePrefix
	}
}

func (f *Format) encodeDestination(d *command.Destination) string {
	if d == nil {
		return ""
	}
	return f.destinationPrefix(d.Kind) + d.Name
}

// decodeDestination maps a STOMP destination header back to a Destination.
// Temporary prefixes are tried first since a queue/topic prefix could
// otherwise be a leading substring of a customized temp prefix.
func (f *Format) decodeDestination(s string) (*command.Destination, error) {
	candidates := []struct {
		prefix string
		kind   command.DestinationKind
	}{
		{f.TempQueuePrefix, command.DestinationTempQueue},
		{f.TempTopicPrefix, command.DestinationTempTopic},
		{f.QueuePrefix, command.DestinationQueue},
		{f.TopicPrefix, command.DestinationTopic},
	}
	for _, c := range candidates {
		if c.prefix != "" && strings.HasPrefix(s, c.prefix) {
			return &command.Destination{Kind: c.kind, Name: strings.TrimPrefix(s, c.prefix)}, nil
		}
	}
	return nil, fmt.Errorf("stomp: %w: unrecognized destination %q", ErrMalformedFrame, s)
}

func headerValue(frame *Frame, name string) (string, error) {
	v, ok := frame.Get(name)
	if !ok {
		return "", fmt.Errorf("stomp: %w: %s frame missing %q header", ErrMalformedFrame, frame.Command, name)
	}
	return v, nil
}

// receiptHeader sets the "receipt" header to the command's id when a
// response was requested, so the broker's RECEIPT frame can round-trip
// back to the originating command.
func receiptHeader(f *Frame, cmd command.Command) {
	if cmd.ResponseRequired() {
		f.Set("receipt", strconv.Itoa(int(cmd.CommandId())))
	}
}

// Marshal renders a command as an outbound STOMP frame.
func (f *Format) Marshal(cmd command.Command) (*Frame, error) {
	switch v := cmd.(type) {
	case *command.ConnectionInfo:
		return f.marshalConnect(v)
	case *command.ConsumerInfo:
		return f.marshalSubscribe(v)
	case *command.RemoveInfo:
		return f.marshalUnsubscribe(v)
	case *command.MessageAck:
		return f.marshalAck(v)
	case *command.TransactionInfo:
		return f.marshalTransaction(v)
	case *command.Message:
		return f.marshalSend(v)
	case *command.ShutdownInfo:
		fr := NewFrame("DISCONNECT")
		receiptHeader(fr, v)
		return fr, nil
	default:
		return nil, fmt.Errorf("stomp: %w: command type %T has no STOMP mapping", ErrUnsupported, cmd)
	}
}

func (f *Format) marshalConnect(v *command.ConnectionInfo) (*Frame, error) {
	fr := NewFrame("CONNECT")
	if v.ClientId != "" {
		fr.Set("client-id", v.ClientId)
	}
	if v.UserName != "" {
		fr.Set("login", v.UserName)
	}
	if v.Password != "" {
		fr.Set("passcode", v.Password)
	}
	receiptHeader(fr, v)
	return fr, nil
}

func (f *Format) marshalSubscribe(v *command.ConsumerInfo) (*Frame, error) {
	fr := NewFrame("SUBSCRIBE")
	fr.Set("destination", f.encodeDestination(v.Destination))
	fr.Set("id", consumerIdString(v.ConsumerId))
	fr.Set("ack", "client")
	if v.Selector != "" {
		fr.Set("selector", v.Selector)
	}
	if v.NoLocal {
		fr.Set("no-local", "true")
	}
	if v.Exclusive {
		fr.Set("activemq.exclusive", "true")
	}
	if v.Retroactive {
		fr.Set("activemq.retroactive", "true")
	}
	if v.Priority != 0 {
		fr.Set("activemq.priority", strconv.Itoa(int(v.Priority)))
	}
	if v.PrefetchSize != 0 {
		fr.Set("activemq.prefetchSize", strconv.Itoa(int(v.PrefetchSize)))
	}
	if v.IsDurable() {
		if f.ClientId == "" || v.SubscriptionName != f.ClientId {
			return nil, fmt.Errorf("stomp: %w: durable subscription name %q must equal client id %q", ErrUnsupported, v.SubscriptionName, f.ClientId)
		}
		fr.Set("activemq.subscriptionName", v.SubscriptionName)
	}
	receiptHeader(fr, v)
	return fr, nil
}

func (f *Format) marshalUnsubscribe(v *command.RemoveInfo) (*Frame, error) {
	fr := NewFrame("UNSUBSCRIBE")
	switch id := v.ObjectId.(type) {
	case command.ConsumerId:
		fr.Set("id", consumerIdString(id))
	case string:
		fr.Set("id", id)
	default:
		return nil, fmt.Errorf("stomp: %w: RemoveInfo.ObjectId %T has no STOMP mapping", ErrUnsupported, v.ObjectId)
	}
	receiptHeader(fr, v)
	return fr, nil
}

func (f *Format) marshalAck(v *command.MessageAck) (*Frame, error) {
	fr := NewFrame("ACK")
	fr.Set("message-id", messageIdString(v.FirstMessageId))
	if v.TransactionId != nil {
		fr.Set("transaction", v.TransactionId.String())
	}
	receiptHeader(fr, v)
	return fr, nil
}

func (f *Format) marshalTransaction(v *command.TransactionInfo) (*Frame, error) {
	var name string
	switch v.Type {
	case command.TransactionInfoBegin:
		name = "BEGIN"
	case command.TransactionInfoCommitOnePhase, command.TransactionInfoCommitTwoPhase:
		name = "COMMIT"
	case command.TransactionInfoRollback:
		name = "ABORT"
	default:
		return nil, fmt.Errorf("stomp: %w: transaction kind %v has no STOMP mapping", ErrUnsupported, v.Type)
	}
	fr := NewFrame(name)
	if v.TransactionId != nil {
		fr.Set("transaction", v.TransactionId.String())
	}
	receiptHeader(fr, v)
	return fr, nil
}

func (f *Format) marshalSend(v *command.Message) (*Frame, error) {
	fr := NewFrame("SEND")
	fr.Set("destination", f.encodeDestination(v.Destination))
	if v.ReplyTo != nil {
		fr.Set("reply-to", f.encodeDestination(v.ReplyTo))
	}
	if v.CorrelationId != "" {
		fr.Set("correlation-id", v.CorrelationId)
	}
	if v.Persistent {
		fr.Set("persistent", "true")
	}
	for _, name := range v.Properties.Names() {
		s, err := v.Properties.GetString(name)
		if err != nil {
			return nil, fmt.Errorf("stomp: marshal SEND: %w", err)
		}
		fr.Set(name, s)
	}
	switch p := v.Payload.(type) {
	case command.TextPayload:
		fr.Body = []byte(p.Text)
	case *command.BytesPayload:
		fr.Body = p.Content
		fr.Set("content-length", strconv.Itoa(len(p.Content)))
	default:
		return nil, fmt.Errorf("stomp: %w: payload type %T has no STOMP mapping", ErrUnsupported, v.Payload)
	}
	receiptHeader(fr, v)
	return fr, nil
}

// Unmarshal parses an inbound frame into a command. CONNECTED and RECEIPT
// frames carry no intrinsic correlation beyond the receipt-id/stored-id
// that a higher layer (the pending-request table a ResponseCorrelator-like
// filter keeps) must match against; Unmarshal fills CorrelationId from the
// receipt-id header whenever one is present and leaves it zero for a bare
// CONNECTED with none. The correlator filter has no pending request under
// id zero, so it forwards such a Response to its listener rather than
// matching it to the most recent pending CONNECT.
func (f *Format) Unmarshal(frame *Frame) (command.Command, error) {
	switch frame.Command {
	case "CONNECTED":
		return f.unmarshalConnected(frame)
	case "RECEIPT":
		return f.unmarshalReceipt(frame)
	case "ERROR":
		return f.unmarshalError(frame)
	case "MESSAGE":
		return f.unmarshalMessage(frame)
	default:
		return nil, fmt.Errorf("stomp: %w: inbound frame command %q has no mapping", ErrUnsupported, frame.Command)
	}
}

func correlationFromReceiptId(frame *Frame) int32 {
	raw, ok := frame.Get("receipt-id")
	if !ok {
		return 0
	}
	raw = strings.TrimPrefix(raw, "ignore:")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return int32(n)
}

func (f *Format) unmarshalConnected(frame *Frame) (command.Command, error) {
	resp := &command.Response{CorrelationId: correlationFromReceiptId(frame)}
	return resp, nil
}

func (f *Format) unmarshalReceipt(frame *Frame) (command.Command, error) {
	raw, err := headerValue(frame, "receipt-id")
	if err != nil {
		return nil, err
	}
	raw = strings.TrimPrefix(raw, "ignore:")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("stomp: bad receipt-id %q: %w", raw, ErrMalformedFrame)
	}
	return &command.Response{CorrelationId: int32(n)}, nil
}

func (f *Format) unmarshalError(frame *Frame) (command.Command, error) {
	msg, _ := frame.Get("message")
	return &command.ExceptionResponse{
		CorrelationId: correlationFromReceiptId(frame),
		Message:       msg,
		StackTrace:    string(frame.Body),
	}, nil
}

func (f *Format) unmarshalMessage(frame *Frame) (command.Command, error) {
	destHeader, err := headerValue(frame, "destination")
	if err != nil {
		return nil, err
	}
	dest, err := f.decodeDestination(destHeader)
	if err != nil {
		return nil, err
	}

	m := command.NewMessage(command.TextPayload{Text: string(frame.Body)})
	m.Destination = dest
	if mid, ok := frame.Get("message-id"); ok {
		m.MessageId = messageIdFromString(mid)
	}
	if corrId, ok := frame.Get("correlation-id"); ok {
		m.CorrelationId = corrId
	}
	if replyTo, ok := frame.Get("reply-to"); ok {
		rt, err := f.decodeDestination(replyTo)
		if err == nil {
			m.ReplyTo = rt
		}
	}
	for _, h := range frame.Headers {
		switch h.Name {
		case "destination", "message-id", "correlation-id", "reply-to", "subscription", "content-length", "expires", "priority", "timestamp", "persistent":
			continue
		}
		if err := m.SetProperty(h.Name, h.Value); err != nil {
			return nil, fmt.Errorf("stomp: unmarshal MESSAGE: %w", err)
		}
	}
	m.OnSend()

	var consumerId command.ConsumerId
	if sub, ok := frame.Get("subscription"); ok {
		consumerId = consumerIdFromString(sub)
	}
	return &command.MessageDispatch{
		ConsumerId:  consumerId,
		Destination: dest,
		Message:     m,
	}, nil
}
