package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rmacdonaldsmith/xmppcore-go/internal/httpapi"
	"github.com/rmacdonaldsmith/xmppcore-go/internal/peerlink"
	"github.com/rmacdonaldsmith/xmppcore-go/internal/server"
)

const (
	// Application info
	appName    = "xmppcore"
	appVersion = "0.1.0"

	shutdownTimeout = 30 * time.Second
)

// options are the command-line settings; non-empty values override the config file
type options struct {
	configPath    string
	domain        string
	peerListen    string
	peers         string
	httpPort      string
	adminPassword string
	logLevel      string
	jsonLogs      bool
	noHTTP        bool
	showVersion   bool
	showHealth    bool
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&opts.domain, "domain", "", "XMPP domain served by this process")
	fs.StringVar(&opts.peerListen, "peer-listen", "", "Listen address for server-to-server links (e.g. :5270)")
	fs.StringVar(&opts.peers, "peers", "", "Comma-separated peer servers as domain=address")
	fs.StringVar(&opts.httpPort, "http-port", "", "Port for the admin HTTP API")
	fs.StringVar(&opts.adminPassword, "admin-password", "", "Password for the admin HTTP API")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.jsonLogs, "json-logs", false, "Write logs as JSON instead of console output")
	fs.BoolVar(&opts.noHTTP, "no-http", false, "Disable the admin HTTP API")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	fs.BoolVar(&opts.showHealth, "health", false, "Show health status and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// buildConfig layers flags on top of the optional config file
func buildConfig(opts options) (*server.Config, error) {
	cfg := &server.Config{}
	if opts.configPath != "" {
		loaded, err := server.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.domain != "" {
		cfg.Domain = opts.domain
	}
	if opts.peerListen != "" {
		if cfg.PeerLink == nil {
			cfg.PeerLink = &peerlink.Config{}
		}
		cfg.PeerLink.ListenAddress = opts.peerListen
	}
	if opts.peers != "" {
		cfg.Peers = nil
		for _, peer := range strings.Split(opts.peers, ",") {
			if peer = strings.TrimSpace(peer); peer != "" {
				cfg.Peers = append(cfg.Peers, peer)
			}
		}
	}
	if opts.httpPort != "" {
		cfg.Admin.Port = opts.httpPort
	}
	if opts.adminPassword != "" {
		cfg.Admin.Password = opts.adminPassword
	}
	if cfg.Version == "" {
		cfg.Version = appVersion
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(opts options, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
	}
	if !opts.jsonLogs {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", appName).Logger(), nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		return
	}

	logger, err := newLogger(opts, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not load configuration")
	}

	if opts.showHealth {
		os.Exit(showHealthStatus(cfg, os.Stdout))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, opts, logger, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server exited with error")
	}
}

// run starts the server with its peer listener and admin API and blocks until
// ctx is cancelled. ready, when non-nil, receives the server once it is started.
func run(ctx context.Context, cfg *server.Config, opts options, logger zerolog.Logger, ready chan<- *server.Server) error {
	logger.Info().Str("domain", cfg.Domain).Str("version", appVersion).Msg("Starting server")

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing server")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.PeerLink != nil {
		lis, err := net.Listen("tcp", cfg.PeerLink.ListenAddress)
		if err != nil {
			return fmt.Errorf("failed to listen for peers on %s: %w", cfg.PeerLink.ListenAddress, err)
		}
		g.Go(func() error { return srv.ServePeers(lis) })
	}

	if err := srv.Start(gctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	var api *httpapi.Server
	if !opts.noHTTP {
		admin := cfg.Admin
		if admin.SecretKey == "" {
			admin.SecretKey = uuid.NewString()
			logger.Warn().Msg("No admin secret key configured, tokens will not survive a restart")
		}
		if admin.Password == "" {
			logger.Warn().Msg("No admin password configured, admin login is disabled")
		}
		api, err = httpapi.NewServer(srv, httpapi.Config{
			Port:      admin.Port,
			SecretKey: admin.SecretKey,
			Username:  admin.Username,
			Password:  admin.Password,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create HTTP API: %w", err)
		}
		g.Go(api.Start)
	}

	logStartupInfo(srv, logger)
	if ready != nil {
		ready <- srv
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if api != nil {
			errs = append(errs, api.Stop(shutdownCtx))
		}
		errs = append(errs, srv.Stop(shutdownCtx), srv.Close())
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Str("domain", cfg.Domain).Msg("Server stopped")
	return nil
}

// logStartupInfo logs the server state after a successful start
func logStartupInfo(srv *server.Server, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := srv.GetHealth(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not get health status")
		return
	}

	handlers := make([]string, 0)
	for _, h := range srv.GetHandlers() {
		handlers = append(handlers, h.Namespace())
	}

	logger.Info().
		Bool("healthy", health.Healthy).
		Bool("delivery_available", health.DeliveryAvailable).
		Int("routes", health.Routes).
		Int("peers", health.ConnectedPeers).
		Strs("handlers", handlers).
		Msg("Startup summary")
}

// showHealthStatus builds a server without starting it, prints its health
// and returns the process exit code
func showHealthStatus(cfg *server.Config, w io.Writer) int {
	srv, err := server.New(cfg, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(w, "Failed to create server: %v\n", err)
		return 1
	}
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := srv.GetHealth(ctx)
	if err != nil {
		fmt.Fprintf(w, "Failed to get health status: %v\n", err)
		return 1
	}

	fmt.Fprintf(w, "%s Health Status (%s):\n", appName, srv.Domain())
	fmt.Fprintf(w, "  Overall: %s\n", healthStatus(health.Healthy))
	fmt.Fprintf(w, "  Handlers: %d\n", len(srv.GetHandlers()))
	fmt.Fprintf(w, "  Routes: %d\n", health.Routes)
	fmt.Fprintf(w, "  Peer link: %s\n", enabled(cfg.PeerLink != nil))
	fmt.Fprintf(w, "  Message: %s\n", health.Message)

	if health.Healthy {
		return 0
	}
	return 1
}

func healthStatus(healthy bool) string {
	if healthy {
		return "Healthy"
	}
	return "Unhealthy"
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
