package stomp

import "github.com/corvidmq/ommq/command"

// STOMP exposes consumer ids, producer/message ids, and transaction ids as
// opaque header strings; it never reveals the structured connection/
// session/sequence triad OpenWire uses internally. These helpers round-trip
// that opaque string through the one command-model field that doesn't
// otherwise participate in STOMP framing (ConsumerId.ConnectionId, or
// ProducerId.ConnectionId inside a MessageId), rather
// than inventing a parallel id representation. This loses the structured
// identity on the STOMP side, which is fine: STOMP callers only ever need
// to echo the string back (e.g. ACK's message-id, UNSUBSCRIBE's id),
// never decompose it.

func consumerIdFromString(s string) command.ConsumerId {
	return command.ConsumerId{ConnectionId: s}
}

func consumerIdString(id command.ConsumerId) string {
	return id.ConnectionId
}

func messageIdFromString(s string) command.MessageId {
	return command.MessageId{ProducerId: command.ProducerId{ConnectionId: s}}
}

func messageIdString(id command.MessageId) string {
	if id.ProducerId.ConnectionId != "" && id.ProducerId.SessionValue == 0 && id.ProducerId.ProducerValue == 0 && id.ProducerSeqId == 0 {
		return id.ProducerId.ConnectionId
	}
	return id.String()
}
