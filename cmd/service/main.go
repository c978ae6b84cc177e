// Command service runs one standalone fabric service: it loads its
// manifest from the coordinator under /services/<srvtype> and keeps its
// sockets reconciled against peer listings until stopped.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jabolina/go-fabric/internal/env"
)

func main() {
	var zkAddr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "service SRVTYPE",
		Short: "Run a fabric service that loads its sockets from the coordinator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srvtype := args[0]

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
			defer cancel()

			se, err := env.NewService(zkAddr, srvtype, debug)
			if err != nil {
				return fmt.Errorf("starting service %q: %w", srvtype, err)
			}
			defer se.Close()

			code := se.Reactor.Run(ctx)
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
