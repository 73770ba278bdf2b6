// Command ommtap is a debug viewer: it dials a broker address, taps the
// connection's live traffic, and shows it in a terminal UI, reading
// directly off an in-process tap rather than a separate daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/corvidmq/ommq/client"
	"github.com/corvidmq/ommq/internal/tap"
	"github.com/corvidmq/ommq/transport"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("ommtap", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "ommtap — watch ommq broker traffic live\n\nUsage:\n  ommtap [flags] <broker-uri>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	clientId := fs.String("client-id", "", "client id to present to the broker (default: random)")
	userName := fs.String("user", "", "broker username")
	password := fs.String("password", "", "broker password")
	ringSize := fs.Int("ring", 1000, "capture ring buffer size")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("ommtap %s\n", version)
		return
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	if err := run(fs.Arg(0), *clientId, *userName, *password, *ringSize); err != nil {
		fmt.Fprintf(os.Stderr, "ommtap: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, clientId, userName, password string, ringSize int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := client.Options{ClientId: clientId, UserName: userName, Password: password}
	conn, err := dialTapped(ctx, addr, opts, ringSize)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.conn.Close()

	p := tea.NewProgram(tap.NewModel(conn.tap), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// tappedConnection bundles a client.Connection with the Tap wrapping its
// transport, so main can both drive the application (dial/close) and
// feed the TUI from the same capture point.
type tappedConnection struct {
	conn *client.Connection
	tap  *tap.Tap
}

// dialTapped builds the same stack client.Dial would, except it inserts
// a tap.Tap directly under the client facade so every command the
// Connection emits or receives is visible to the TUI.
func dialTapped(ctx context.Context, addr string, opts client.Options, ringSize int) (*tappedConnection, error) {
	top, err := client.BuildTransport(addr, opts)
	if err != nil {
		return nil, err
	}
	tapped := tap.New(top, ringSize)

	var tappedTop transport.Transport = tapped
	conn, err := client.Connect(ctx, tappedTop, opts)
	if err != nil {
		return nil, err
	}
	return &tappedConnection{conn: conn, tap: tapped}, nil
}
