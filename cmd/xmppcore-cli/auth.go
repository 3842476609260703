package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Log in to the admin API",
		Long: `Log in with --username and --password.
The printed token can be exported as ` + tokenEnv + ` for later commands.`,
		RunE: runAuth,
	}
}

func newContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}

func runAuth(cmd *cobra.Command, args []string) error {
	if password == "" {
		return fmt.Errorf("--password is required")
	}

	ctx, cancel := newContext(cmd)
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Authenticating with %s as %s...\n", serverURL, username)

	if err := client.Authenticate(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "Authentication successful\n")
	fmt.Fprintf(out, "Token: %s\n", client.GetToken())
	fmt.Fprintf(out, "\n  export %s=\"%s\"\n", tokenEnv, client.GetToken())
	return nil
}
