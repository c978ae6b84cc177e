// Command pipe sends stdin lines as messages to a discovered peer: each
// line becomes one message on a socket of the given kind, connected to
// peers advertised under peerType. Mirrors original_source/main_pipe.c's
// non-blocking stdin reader and signal-driven stop.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/jabolina/go-fabric/internal/env"
	"github.com/jabolina/go-fabric/internal/kind"
)

// isTransientReadErr reports whether err is the stdin read simply having
// no data available yet (EAGAIN/EWOULDBLOCK on the non-blocking fd),
// which the fd poller will just retry rather than a real stop condition.
func isTransientReadErr(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

func main() {
	var zkAddr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "pipe KIND PEERTYPE",
		Short: "Send stdin lines as messages to a discovered peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kind.Resolve(args[0])
			if err != nil {
				return fmt.Errorf("invalid socket kind %q: %w", args[0], err)
			}
			peerType := args[1]

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
			defer cancel()

			ce, err := env.NewClient(zkAddr, k, peerType, debug)
			if err != nil {
				return fmt.Errorf("starting client: %w", err)
			}
			defer ce.Close()

			stdinFd := int(os.Stdin.Fd())
			if err := unix.SetNonblock(stdinFd, true); err != nil {
				return fmt.Errorf("setting stdin non-blocking: %w", err)
			}
			reader := bufio.NewReader(os.Stdin)

			sendNextLine := func() error {
				if !ce.Socket.Ready() {
					return nil
				}
				line, readErr := reader.ReadString('\n')
				if line != "" {
					trimmed := strings.TrimRight(line, " \t\r\n")
					if sendErr := ce.Socket.Send([]byte(trimmed)); sendErr != nil {
						ce.Log.Errorf("pipe: send failed: %v", sendErr)
					}
				}
				if readErr != nil {
					if readErr == io.EOF {
						ce.Reactor.Stop()
						return nil
					}
					if isTransientReadErr(readErr) {
						return nil
					}
					ce.Reactor.Stop()
					return readErr
				}
				return nil
			}

			ce.Reactor.AddFD(stdinFd, sendNextLine)

			code := ce.Reactor.Run(ctx)
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&zkAddr, "zk", "127.0.0.1:2181", "coordinator connect string")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
