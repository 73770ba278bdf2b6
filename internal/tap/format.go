package tap

import (
	"fmt"
	"strings"

	"github.com/corvidmq/ommq/command"
)

// typeName strips the command package qualifier bubbletea views don't
// need repeated on every row.
func typeName(cmd command.Command) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", cmd), "*command.")
}

// Summary renders a one-line description of e, the row text list.go
// puts in the capture list.
func Summary(e Entry) string {
	if e.Err != nil {
		return fmt.Sprintf("[%04d] %-4s !! %v", e.Seq, "err", e.Err)
	}
	line := fmt.Sprintf("[%04d] %-3s %-20s %s", e.Seq, e.Direction, typeName(e.Command), summarizeFields(e.Command))
	if e.Storm != nil {
		line += fmt.Sprintf("  ⚠ storm: %d redeliveries to %q in the last second", e.Storm.Count, e.Storm.Key)
	}
	return line
}

func summarizeFields(cmd command.Command) string {
	switch c := cmd.(type) {
	case *command.ConnectionInfo:
		return fmt.Sprintf("client-id=%s user=%s", c.ClientId, c.UserName)
	case *command.SessionInfo:
		return fmt.Sprintf("session=%s", c.SessionId)
	case *command.ConsumerInfo:
		return fmt.Sprintf("consumer=%s dest=%s", c.ConsumerId, destString(c.Destination))
	case *command.ProducerInfo:
		return fmt.Sprintf("producer=%s dest=%s", c.ProducerId, destString(c.Destination))
	case *command.Message:
		return fmt.Sprintf("msg=%s dest=%s", c.MessageId, destString(c.Destination))
	case *command.MessageDispatch:
		return fmt.Sprintf("consumer=%s dest=%s", c.ConsumerId, destString(c.Destination))
	case *command.MessageAck:
		return fmt.Sprintf("consumer=%s count=%d", c.ConsumerId, c.MessageCount)
	case *command.TransactionInfo:
		return fmt.Sprintf("tx=%s type=%d", c.TransactionId, c.Type)
	case *command.Response:
		return fmt.Sprintf("correlates=%d", c.CorrelationId)
	case *command.ExceptionResponse:
		return fmt.Sprintf("correlates=%d class=%s msg=%s", c.CorrelationId, c.ExceptionClass, c.Message)
	case *command.ConnectionControl:
		return fmt.Sprintf("reconnectTo=%s rebalance=%t", c.ReconnectTo, c.Rebalance)
	case *command.RemoveInfo:
		return fmt.Sprintf("object=%v", c.ObjectId)
	default:
		return ""
	}
}

func destString(d *command.Destination) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

// Detail renders a full multi-line dump of e for the inspector pane.
func Detail(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "seq:       %d\n", e.Seq)
	fmt.Fprintf(&b, "at:        %s\n", e.At.Format("15:04:05.000"))
	if e.Err != nil {
		fmt.Fprintf(&b, "exception: %v\n", e.Err)
		return b.String()
	}
	fmt.Fprintf(&b, "direction: %s\n", e.Direction)
	fmt.Fprintf(&b, "type:      %s\n", typeName(e.Command))
	fmt.Fprintf(&b, "command-id: %d\n", e.Command.CommandId())
	fmt.Fprintf(&b, "resp-req:  %t\n", e.Command.ResponseRequired())
	if e.Storm != nil {
		fmt.Fprintf(&b, "storm:     %d redeliveries to %q in the last second\n", e.Storm.Count, e.Storm.Key)
	}

	if msg, ok := e.Command.(*command.Message); ok {
		fmt.Fprintf(&b, "correlation-id: %s\n", msg.CorrelationId)
		if text, err := msg.Text(); err == nil {
			fmt.Fprintf(&b, "body:\n%s\n", text)
		}
		for k, v := range msg.Properties {
			fmt.Fprintf(&b, "property[%s]: %v\n", k, v)
		}
	}
	return b.String()
}
