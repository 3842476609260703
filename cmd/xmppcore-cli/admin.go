package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/httpclient"
)

func newRoutesCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "routes [jid]",
		Short: "List routes at or below an address",
		Long: `List every route registered at or below the given address.
Without an address the routes of the server domain are listed; --all lists
the whole routing table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := ""
			if len(args) == 1 {
				address = args[0]
			}
			if all {
				if address != "" {
					return fmt.Errorf("--all cannot be combined with an address")
				}
				address = httpclient.AllRoutes
			}
			return runRoutes(cmd, address)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every route in the table")
	cmd.AddCommand(newLookupCommand())
	return cmd
}

func newLookupCommand() *cobra.Command {
	var best bool
	cmd := &cobra.Command{
		Use:   "lookup <jid>",
		Short: "Resolve a single address",
		Long: `Resolve the route for exactly one address.
With --best a full address falls back to the route of its bare address.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, args[0], best)
		},
	}
	cmd.Flags().BoolVar(&best, "best", false, "Fall back to the bare address")
	return cmd
}

func newSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List live client sessions",
		RunE:  runSessions,
	}
}

func newHandlersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "handlers",
		Short: "List registered namespace handlers",
		RunE:  runHandlers,
	}
}

func newPeersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "List connected peer servers",
		RunE:  runPeers,
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show routing statistics",
		RunE:  runStats,
	}
}

func runRoutes(cmd *cobra.Command, address string) error {
	if err := requireAuthentication(cmd); err != nil {
		return err
	}
	ctx, cancel := newContext(cmd)
	defer cancel()

	resp, err := client.ListRoutes(ctx, address)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(resp.Routes) == 0 {
		fmt.Fprintf(out, "No routes at or below %s\n", resp.Query)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tADDRESS")
	for _, route := range resp.Routes {
		fmt.Fprintf(w, "%s\t%s\n", route.Kind, route.Address)
	}
	return w.Flush()
}

func runLookup(cmd *cobra.Command, address string, best bool) error {
	if err := requireAuthentication(cmd); err != nil {
		return err
	}
	ctx, cancel := newContext(cmd)
	defer cancel()

	resp, err := client.LookupRoute(ctx, address, best)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s %s\n", resp.Query, resp.Route.Kind, resp.Route.Address)
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(cmd); err != nil {
		return err
	}
	ctx, cancel := newContext(cmd)
	defer cancel()

	resp, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(resp.Sessions) == 0 {
		fmt.Fprintln(out, "No sessions")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tSTATUS\tCONNECTED")
	for _, s := range resp.Sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Address, s.Status, s.ConnectedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runHandlers(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(cmd); err != nil {
		return err
	}
	ctx, cancel := newContext(cmd)
	defer cancel()

	resp, err := client.ListHandlers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tTYPE")
	for _, h := range resp.Handlers {
		fmt.Fprintf(w, "%s\t%s\n", h.Namespace, h.Type)
	}
	return w.Flush()
}

func runPeers(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(cmd); err != nil {
		return err
	}
	ctx, cancel := newContext(cmd)
	defer cancel()

	resp, err := client.ListPeers(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(resp.Peers) == 0 {
		fmt.Fprintln(out, "No connected peers")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tADDRESS\tHEALTH\tCONNECTED")
	for _, p := range resp.Peers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Domain, p.Address, p.Health, p.ConnectedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(cmd); err != nil {
		return err
	}
	ctx, cancel := newContext(cmd)
	defer cancel()

	stats, err := client.GetStats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Domain:   %s\n", stats.Domain)
	fmt.Fprintf(out, "Routed:   %d\n", stats.Routed)
	fmt.Fprintf(out, "Bounced:  %d\n", stats.Bounced)
	fmt.Fprintf(out, "Dropped:  %d\n", stats.Dropped)
	fmt.Fprintf(out, "Failures: %d\n", stats.Failures)
	fmt.Fprintf(out, "Routes:   %d in %d domain(s)\n", stats.Routes, stats.Domains)
	fmt.Fprintf(out, "Sessions: %d\n", stats.Sessions)
	fmt.Fprintf(out, "Handlers: %d\n", stats.Handlers)
	fmt.Fprintf(out, "Peers:    %d\n", stats.Peers)
	return nil
}
