package client

import (
	"sync"

	"github.com/corvidmq/ommq/command"
)

// dispatcher is the Connection's transport.Listener: it demultiplexes
// inbound MessageDispatch commands to the Consumer they're addressed to
// by ConsumerId, and surfaces transport-level exceptions on a buffered
// channel. Response/ExceptionResponse never reach here — the correlator
// filter intercepts those before they're delivered to the outer listener.
type dispatcher struct {
	mu        sync.Mutex
	consumers map[string]*Consumer
	errCh     chan error
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		consumers: make(map[string]*Consumer),
		errCh:     make(chan error, 16),
	}
}

func (d *dispatcher) register(id string, c *Consumer) {
	d.mu.Lock()
	d.consumers[id] = c
	d.mu.Unlock()
}

func (d *dispatcher) unregister(id string) {
	d.mu.Lock()
	delete(d.consumers, id)
	d.mu.Unlock()
}

// OnCommand implements transport.Listener.
func (d *dispatcher) OnCommand(cmd command.Command) {
	md, ok := cmd.(*command.MessageDispatch)
	if !ok {
		return
	}
	d.mu.Lock()
	c := d.consumers[md.ConsumerId.String()]
	d.mu.Unlock()
	if c != nil {
		c.deliver(md.Message)
	}
}

// OnException implements transport.Listener. A full errCh never blocks
// the transport's read loop; the oldest unread error is dropped instead.
func (d *dispatcher) OnException(err error) {
	select {
	case d.errCh <- err:
	default:
		select {
		case <-d.errCh:
		default:
		}
		select {
		case d.errCh <- err:
		default:
		}
	}
}
