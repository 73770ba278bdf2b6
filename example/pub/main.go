// Command pub is a minimal publisher: it dials a broker, opens a
// session and producer, and sends one text message per message argument
// (or a single default message if none are given).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/corvidmq/ommq/client"
	"github.com/corvidmq/ommq/command"
)

func main() {
	fs := flag.NewFlagSet("pub", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "pub — send messages to an ommq broker\n\nUsage:\n  pub [flags] <broker-uri> <destination> [message...]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	topic := fs.Bool("topic", false, "publish to a topic instead of a queue")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() < 2 {
		fs.Usage()
		os.Exit(1)
	}

	addr, destName := fs.Arg(0), fs.Arg(1)
	bodies := fs.Args()[2:]
	if len(bodies) == 0 {
		bodies = []string{"hello from ommq"}
	}

	if err := run(addr, destName, *topic, bodies); err != nil {
		fmt.Fprintf(os.Stderr, "pub: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, destName string, topic bool, bodies []string) error {
	ctx := context.Background()

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

	prod, err := sess.CreateProducer(ctx, dest)
	if err != nil {
		return fmt.Errorf("create producer: %w", err)
	}
	defer prod.Close()

	for _, body := range bodies {
		msg := command.NewMessage(command.TextPayload{Text: body})
		if err := prod.Send(ctx, msg); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		fmt.Printf("sent: %s\n", body)
	}
	return nil
}
