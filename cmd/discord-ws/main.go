package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "discord-ws",
		Short: "Discord gateway client over WebSocket",
		Long: `discord-ws maintains a browser-fingerprinted WebSocket connection to the
Discord gateway. It decodes the JSON payload stream (plain text or
zlib-compressed binary frames), answers heartbeats and redials with backoff
when the connection dies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		probeCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
