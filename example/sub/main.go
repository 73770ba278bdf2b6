// Command sub is a minimal subscriber: it dials a broker, subscribes to
// a destination, and prints every message it receives until
// interrupted, acknowledging each one after printing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/corvidmq/ommq/client"
	"github.com/corvidmq/ommq/command"
)

func main() {
	fs := flag.NewFlagSet("sub", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "sub — receive messages from an ommq broker\n\nUsage:\n  sub [flags] <broker-uri> <destination>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	topic := fs.Bool("topic", false, "subscribe to a topic instead of a queue")
	selectorExpr := fs.String("selector", "", "JMS-style selector expression")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() < 2 {
		fs.Usage()
		os.Exit(1)
	}

	if err := run(fs.Arg(0), fs.Arg(1), *topic, *selectorExpr); err != nil {
		fmt.Fprintf(os.Stderr, "sub: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, destName string, topic bool, selectorExpr string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := client.Dial(ctx, addr, client.Options{})
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	sess, err := conn.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer sess.Close(ctx)

	kind := command.DestinationQueue
	if topic {
		kind = command.DestinationTopic
	}
	dest := &command.Destination{Kind: kind, Name: destName}

	cons, err := sess.CreateConsumer(ctx, dest, client.ConsumerOptions{Selector: selectorExpr})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	defer cons.Close(ctx)

	fmt.Printf("listening on %s\n", dest)
	for {
		msg, err := cons.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		text, _ := msg.Text()
		fmt.Printf("received: %s\n", text)
		if err := cons.Ack(ctx, msg); err != nil {
			return fmt.Errorf("ack: %w", err)
		}
	}
}
