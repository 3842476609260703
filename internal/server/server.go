package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/xmppcore-go/internal/delivery"
	"github.com/rmacdonaldsmith/xmppcore-go/internal/discovery"
	"github.com/rmacdonaldsmith/xmppcore-go/internal/iqhandler"
	"github.com/rmacdonaldsmith/xmppcore-go/internal/peerlink"
	"github.com/rmacdonaldsmith/xmppcore-go/internal/router"
	"github.com/rmacdonaldsmith/xmppcore-go/internal/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/internal/session"
	iqhandlerpkg "github.com/rmacdonaldsmith/xmppcore-go/pkg/iqhandler"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	peerlinkpkg "github.com/rmacdonaldsmith/xmppcore-go/pkg/peerlink"
	routingtablepkg "github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	serverpkg "github.com/rmacdonaldsmith/xmppcore-go/pkg/server"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

var (
	// ErrServerClosed is returned by operations on a closed server
	ErrServerClosed = errors.New("server is closed")
	// ErrPeerLinkDisabled is returned when serving peers without a peer link
	ErrPeerLinkDisabled = errors.New("peer link is not configured")
)

// Server implements the serverpkg.Server interface.
// It owns the routing table, the handler registry, the delivery gateway, the
// session directory, the IQ router and, when configured, the peer link.
type Server struct {
	mu     sync.RWMutex
	config *Config
	logger zerolog.Logger

	// Core components
	routes    *routingtable.InMemoryRoutingTable
	handlers  *iqhandler.HandlerRegistry
	gateway   *delivery.PacketGateway
	sessions  *session.Manager
	router    *router.IQRouter
	peerLink  *peerlink.GRPCPeerLink
	discovery discovery.Discovery

	// State management
	started bool
	closed  bool
}

// New creates a server with the given configuration.
// It constructs every component and registers the built-in handlers but does
// not start anything. Call Start() to begin delivering packets.
func New(config *Config, logger zerolog.Logger) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	cfg := *config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger = logger.With().Str("server", cfg.Domain).Logger()

	routes := routingtable.NewInMemoryRoutingTable()
	handlers, err := iqhandler.NewHandlerRegistry(cfg.HandlerCacheSize)
	if err != nil {
		return nil, err
	}
	gateway := delivery.NewPacketGateway(logger)
	sessions := session.NewManager(cfg.Domain, routes, logger)

	iqRouter, err := router.NewIQRouter(cfg.Domain, sessions, handlers, routes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create IQ router: %w", err)
	}

	disc, err := discovery.NewStaticDiscovery(cfg.Peers)
	if err != nil {
		return nil, fmt.Errorf("invalid peers: %w", err)
	}

	s := &Server{
		config:    &cfg,
		logger:    logger.With().Str("component", "Server").Logger(),
		routes:    routes,
		handlers:  handlers,
		gateway:   gateway,
		sessions:  sessions,
		router:    iqRouter,
		discovery: disc,
	}

	if cfg.PeerLink != nil {
		link, err := peerlink.NewGRPCPeerLink(cfg.PeerLink, routes, iqRouter, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create PeerLink: %w", err)
		}
		s.peerLink = link
	}

	if err := s.registerBuiltins(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) registerBuiltins() error {
	address := s.Address()
	builtins := []iqhandlerpkg.Handler{
		iqhandler.NewPingHandler(s.gateway, address),
		iqhandler.NewVersionHandler(s.gateway, address, s.config.ServerName, s.config.Version),
		iqhandler.NewTimeHandler(s.gateway, address, nil),
		iqhandler.NewDiscoInfoHandler(s.gateway, address, s.handlers, s.config.ServerName),
	}
	for _, h := range builtins {
		if err := s.handlers.AddHandler(h); err != nil {
			return fmt.Errorf("failed to register %s handler: %w", h.Namespace(), err)
		}
	}
	return nil
}

// Start installs the routing transport into the delivery gateway and
// connects every discovered peer. A peer that cannot be connected is logged
// and skipped.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.started {
		return nil // Already started, idempotent
	}

	s.gateway.SetTransportHandler(delivery.NewRouteTransport(s.routes))

	if s.peerLink != nil {
		peers, err := s.discovery.FindPeers(ctx)
		if err != nil {
			return fmt.Errorf("failed to discover peers: %w", err)
		}
		for _, peer := range peers {
			if err := s.peerLink.Connect(ctx, peer); err != nil {
				s.logger.Warn().Str("peer", peer.Domain()).Err(err).Msg("Failed to connect peer")
			}
		}
	}

	s.started = true
	s.logger.Info().Msg("Server started")
	return nil
}

// Stop removes the transport handler. Packets handed to the gateway fail
// until the server is started again.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil // Not started, idempotent
	}

	s.gateway.ClearTransportHandler()
	s.started = false
	s.logger.Info().Msg("Server stopped")
	return nil
}

// Close stops the server and releases all resources.
func (s *Server) Close() error {
	if err := s.Stop(context.Background()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // Already closed, idempotent
	}
	s.closed = true

	var errs []error
	if s.peerLink != nil {
		if err := s.peerLink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close PeerLink: %w", err))
		}
	}
	if err := s.sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close sessions: %w", err))
	}
	if err := s.routes.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close RoutingTable: %w", err))
	}
	return errors.Join(errs...)
}

// ServePeers accepts peer links on lis until the server is closed
func (s *Server) ServePeers(lis net.Listener) error {
	if s.peerLink == nil {
		return ErrPeerLinkDisabled
	}
	return s.peerLink.Serve(lis)
}

// Receive routes an IQ read from a client session. The sender address is
// stamped from the session so clients cannot spoof it.
func (s *Server) Receive(ctx context.Context, sess *session.ClientSession, iq *stanza.IQ) error {
	if iq != nil && sess != nil {
		from := sess.Address()
		iq.From = &from
	}
	return s.router.Route(ctx, iq)
}

// AddService registers route as the handler for a service address, such as
// a component domain or a room.
func (s *Server) AddService(address jid.JID, route routingtablepkg.Route) error {
	previous, err := s.routes.AddRoute(address, route)
	if err != nil {
		return fmt.Errorf("failed to register service %s: %w", address, err)
	}
	if previous != nil {
		s.logger.Warn().Str("address", address.String()).Msg("Service route replaced")
	}
	return nil
}

// AddHandler registers a namespace handler
func (s *Server) AddHandler(handler iqhandlerpkg.Handler) error {
	return s.handlers.AddHandler(handler)
}

// Domain returns the server domain
func (s *Server) Domain() string {
	return s.config.Domain
}

// Address returns the server's own address
func (s *Server) Address() jid.JID {
	return jid.Domainpart(s.config.Domain)
}

// Config returns a copy of the effective configuration
func (s *Server) Config() Config {
	return *s.config
}

// GetRoutingTable returns the server's routing table
func (s *Server) GetRoutingTable() routingtablepkg.RoutingTable {
	return s.routes
}

// GetRouter returns the IQ router
func (s *Server) GetRouter() *router.IQRouter {
	return s.router
}

// GetGateway returns the delivery gateway
func (s *Server) GetGateway() *delivery.PacketGateway {
	return s.gateway
}

// GetSessionManager returns the session directory
func (s *Server) GetSessionManager() *session.Manager {
	return s.sessions
}

// GetPeerLink returns the peer link, nil when not configured
func (s *Server) GetPeerLink() *peerlink.GRPCPeerLink {
	return s.peerLink
}

// GetHandlers returns the registered namespace handlers
func (s *Server) GetHandlers() []iqhandlerpkg.Handler {
	return s.handlers.Handlers()
}

// GetSessions returns the live sessions sorted by address
func (s *Server) GetSessions() []serverpkg.SessionInfo {
	sessions := s.sessions.Sessions()
	infos := make([]serverpkg.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, serverpkg.SessionInfo{
			Address:     sess.Address().String(),
			StreamID:    sess.StreamID(),
			Status:      sess.Status().String(),
			ConnectedAt: sess.ConnectedAt(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Address < infos[j].Address })
	return infos
}

// GetConnectedPeers returns the connected peer servers
func (s *Server) GetConnectedPeers(ctx context.Context) ([]peerlinkpkg.PeerInfo, error) {
	if s.peerLink == nil {
		return []peerlinkpkg.PeerInfo{}, nil
	}
	return s.peerLink.GetConnectedPeers(ctx)
}

// GetStats returns routing counters and table sizes
func (s *Server) GetStats() serverpkg.Stats {
	routerStats := s.router.Stats()
	peers, _ := s.GetConnectedPeers(context.Background())
	return serverpkg.Stats{
		Routed:   routerStats.Routed,
		Bounced:  routerStats.Bounced,
		Dropped:  routerStats.Dropped,
		Failures: routerStats.Failures,
		Routes:   s.routes.RouteCount(),
		Domains:  s.routes.DomainCount(),
		Sessions: s.sessions.Count(),
		Handlers: len(s.handlers.Handlers()),
		Peers:    len(peers),
	}
}

// GetHealth returns the overall health status of this server
func (s *Server) GetHealth(ctx context.Context) (serverpkg.HealthStatus, error) {
	s.mu.RLock()
	started, closed := s.started, s.closed
	s.mu.RUnlock()

	peers, err := s.GetConnectedPeers(ctx)
	if err != nil {
		peers = nil
	}

	status := serverpkg.HealthStatus{
		Healthy:           !closed,
		Started:           started,
		DeliveryAvailable: s.gateway.HasTransportHandler(),
		Routes:            s.routes.RouteCount(),
		ConnectedSessions: s.sessions.Count(),
		ConnectedPeers:    len(peers),
	}
	switch {
	case closed:
		status.Message = "server is closed"
	case !started:
		status.Message = "server is not started"
	default:
		status.Message = "ok"
	}
	return status, nil
}

// Verify that Server implements the Server interface at compile time
var _ serverpkg.Server = (*Server)(nil)
