package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Check the health status of the xmppcore server",
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext(cmd)
	defer cancel()

	health, err := client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	out := cmd.OutOrStdout()
	if health.Healthy {
		fmt.Fprintf(out, "Server %s is healthy\n", health.Domain)
	} else {
		fmt.Fprintf(out, "Server %s is NOT healthy\n", health.Domain)
	}
	fmt.Fprintf(out, "Started: %t\n", health.Started)
	fmt.Fprintf(out, "Delivery available: %t\n", health.DeliveryAvailable)
	fmt.Fprintf(out, "Routes: %d\n", health.Routes)
	fmt.Fprintf(out, "Connected sessions: %d\n", health.ConnectedSessions)
	fmt.Fprintf(out, "Connected peers: %d\n", health.ConnectedPeers)
	if health.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", health.Message)
	}
	return nil
}
