package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"discord-cli-ws/internal/config"
	"discord-cli-ws/internal/gateway"
)

func probeCmd() *cobra.Command {
	var (
		timeout time.Duration
		fwmark  uint32
	)

	cmd := &cobra.Command{
		Use:   "probe [url]",
		Short: "Check that the gateway handshake succeeds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawurl := config.DefaultGatewayURL
			if len(args) == 1 {
				rawurl = args[0]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			d := &gateway.Dialer{Fwmark: fwmark}
			rtt, err := d.Probe(ctx, rawurl)
			if err != nil {
				return err
			}
			fmt.Printf("handshake ok: %s (%s)\n", rawurl, rtt.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "probe timeout")
	cmd.Flags().Uint32Var(&fwmark, "fwmark", 0, "linux socket fwmark (0 disables)")
	return cmd
}
