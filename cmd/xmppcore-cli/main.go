package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/httpclient"
)

// tokenEnv names the environment variable consulted when --token is not given
const tokenEnv = "XMPPCORE_TOKEN"

var (
	// Global flags
	serverURL string
	username  string
	password  string
	token     string
	timeout   time.Duration

	// Global client instance
	client *httpclient.Client
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xmppcore-cli",
		Short: "xmppcore admin API command line interface",
		Long: `xmppcore-cli talks to the admin HTTP API of an xmppcore server.
It can log in, check health and inspect routes, sessions, handlers, peers and
routing statistics.`,
		PersistentPreRunE: initializeClient,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8081", "Admin API URL")
	rootCmd.PersistentFlags().StringVar(&username, "username", "admin", "Admin username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Admin password")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT token (defaults to $"+tokenEnv+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newHealthCommand())
	rootCmd.AddCommand(newRoutesCommand())
	rootCmd.AddCommand(newSessionsCommand())
	rootCmd.AddCommand(newHandlersCommand())
	rootCmd.AddCommand(newPeersCommand())
	rootCmd.AddCommand(newStatsCommand())

	return rootCmd
}

// initializeClient sets up the HTTP client with global configuration
func initializeClient(cmd *cobra.Command, args []string) error {
	// Skip client initialization for help commands
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	var err error
	client, err = httpclient.NewClient(httpclient.Config{
		ServerURL: serverURL,
		Username:  username,
		Password:  password,
		Timeout:   timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if token == "" {
		token = os.Getenv(tokenEnv)
	}
	if token != "" {
		client.SetToken(token)
	}
	return nil
}

// requireAuthentication logs in with --password when no token is available
func requireAuthentication(cmd *cobra.Command) error {
	if client == nil {
		return fmt.Errorf("client not initialized")
	}
	if client.IsAuthenticated() {
		return nil
	}
	if password == "" {
		return fmt.Errorf("not authenticated - run 'xmppcore-cli auth' first, or provide --token or --password")
	}

	ctx, cancel := newContext(cmd)
	defer cancel()
	return client.Authenticate(ctx)
}
