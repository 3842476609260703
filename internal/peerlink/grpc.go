package peerlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/peerlink"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// peerConn is an open link to one remote domain
type peerConn struct {
	peer        peerlink.Peer
	conn        *grpc.ClientConn
	route       *PeerRoute
	connectedAt time.Time
}

// GRPCPeerLink implements the PeerLink interface using gRPC unary calls
type GRPCPeerLink struct {
	config  *Config
	routes  routingtable.RoutingTable
	inbound peerlink.InboundHandler
	server  *grpc.Server
	logger  zerolog.Logger

	mu     sync.RWMutex
	peers  map[string]*peerConn
	closed bool
}

// NewGRPCPeerLink creates a new GRPCPeerLink with the given configuration.
// Connected peers are registered in routes; IQs received from peers are
// handed to inbound.
func NewGRPCPeerLink(config *Config, routes routingtable.RoutingTable, inbound peerlink.InboundHandler, logger zerolog.Logger) (*GRPCPeerLink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if routes == nil {
		return nil, errors.New("routing table cannot be nil")
	}

	// Make a copy and set defaults
	configCopy := *config
	configCopy.SetDefaults()

	g := &GRPCPeerLink{
		config:  &configCopy,
		routes:  routes,
		inbound: inbound,
		logger:  logger.With().Str("component", "PeerLink").Str("domain", configCopy.Domain).Logger(),
		peers:   make(map[string]*peerConn),
	}
	g.server = grpc.NewServer(grpc.MaxRecvMsgSize(configCopy.MaxMessageSize))
	g.server.RegisterService(&peerLinkServiceDesc, g)
	return g, nil
}

// Serve accepts peer connections on lis until Close is called
func (g *GRPCPeerLink) Serve(lis net.Listener) error {
	g.logger.Info().Str("address", lis.Addr().String()).Msg("Peer link listening")
	if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("peer link server failed: %w", err)
	}
	return nil
}

// Connect establishes a connection to the peer and registers it as the
// route for the peer's domain
func (g *GRPCPeerLink) Connect(ctx context.Context, peer peerlink.Peer) error {
	domain := strings.ToLower(strings.TrimSpace(peer.Domain()))
	if domain == "" {
		return fmt.Errorf("cannot connect peer at %s: %w", peer.Address(), jid.ErrEmptyDomain)
	}
	if domain == g.config.Domain {
		return peerlink.ErrLocalDomain
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return peerlink.ErrPeerLinkClosed
	}
	if _, exists := g.peers[domain]; exists {
		return fmt.Errorf("%w: %s", peerlink.ErrPeerAlreadyConnected, domain)
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(g.config.MaxMessageSize)),
	}
	opts = append(opts, g.config.DialOptions...)

	conn, err := grpc.NewClient(peer.Address(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create client for peer %s: %w", domain, err)
	}

	route := &PeerRoute{domain: domain, link: g}
	previous, err := g.routes.AddRoute(jid.Domainpart(domain), route)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to register route for peer %s: %w", domain, err)
	}
	if previous != nil {
		g.logger.Warn().
			Str("peer", domain).
			Str("replaced", string(routingtable.Describe(previous).Kind)).
			Msg("Peer route replaced an existing domain route")
	}

	g.peers[domain] = &peerConn{
		peer:        peer,
		conn:        conn,
		route:       route,
		connectedAt: time.Now(),
	}
	g.logger.Info().Str("peer", domain).Str("address", peer.Address()).Msg("Peer connected")
	return nil
}

// Disconnect closes the connection to the peer serving domain
func (g *GRPCPeerLink) Disconnect(ctx context.Context, domain string) error {
	domain = strings.ToLower(domain)

	g.mu.Lock()
	pc, ok := g.peers[domain]
	if ok {
		delete(g.peers, domain)
	}
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", peerlink.ErrPeerNotConnected, domain)
	}
	return g.release(pc)
}

// release retires the peer's route, unless something else replaced it, and
// closes its connection
func (g *GRPCPeerLink) release(pc *peerConn) error {
	address := jid.Domainpart(pc.route.domain)
	if current, err := g.routes.GetRoute(address); err == nil && current == routingtable.Route(pc.route) {
		g.routes.RemoveRoute(address)
	}
	if err := pc.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection to %s: %w", pc.route.domain, err)
	}
	g.logger.Info().Str("peer", pc.route.domain).Msg("Peer disconnected")
	return nil
}

// Send delivers an IQ to the peer serving domain. An unreachable peer is
// reported as a missing route for the recipient.
func (g *GRPCPeerLink) Send(ctx context.Context, domain string, iq *stanza.IQ) error {
	if iq == nil {
		return errors.New("iq cannot be nil")
	}

	g.mu.RLock()
	closed := g.closed
	pc, ok := g.peers[strings.ToLower(domain)]
	g.mu.RUnlock()

	if closed {
		return peerlink.ErrPeerLinkClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s: %w", peerlink.ErrPeerNotConnected, domain, routingtable.NewNoRouteError(recipientOf(iq, domain)))
	}

	payload, err := json.Marshal(iq)
	if err != nil {
		return fmt.Errorf("failed to encode iq %q: %w", iq.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.SendTimeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, OriginDomainKey, g.config.Domain)

	if err := pc.conn.Invoke(ctx, deliverMethod, wrapperspb.Bytes(payload), &emptypb.Empty{}); err != nil {
		switch status.Code(err) {
		case codes.Unavailable, codes.DeadlineExceeded:
			g.logger.Info().Str("peer", domain).Str("id", iq.ID).Err(err).Msg("Peer unreachable")
			return fmt.Errorf("peer %s unreachable (%v): %w", domain, err, routingtable.NewNoRouteError(recipientOf(iq, domain)))
		default:
			return fmt.Errorf("failed to deliver iq %q to %s: %w", iq.ID, domain, err)
		}
	}
	return nil
}

func recipientOf(iq *stanza.IQ, domain string) jid.JID {
	if iq.To != nil {
		return *iq.To
	}
	return jid.Domainpart(domain)
}

// Deliver is the server side of the Deliver call. The packet's sender must
// belong to the domain named in the call metadata.
func (g *GRPCPeerLink) Deliver(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	origin := strings.ToLower(originFrom(ctx))
	if origin == "" {
		return nil, status.Error(codes.Unauthenticated, "missing origin domain")
	}

	var iq stanza.IQ
	if err := json.Unmarshal(req.GetValue(), &iq); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed iq: %v", err)
	}
	if iq.From == nil || iq.From.Domain != origin {
		g.logger.Warn().
			Str("origin", origin).
			Str("id", iq.ID).
			Msg("Rejecting peer packet with spoofed sender")
		return nil, status.Errorf(codes.PermissionDenied, "sender does not belong to %s", origin)
	}
	if g.inbound == nil {
		return nil, status.Error(codes.Unavailable, "no inbound handler")
	}

	if err := g.inbound.Route(ctx, &iq); err != nil {
		// the router already bounced or dropped the packet
		g.logger.Debug().Str("origin", origin).Str("id", iq.ID).Err(err).Msg("Peer packet not handed off")
	}
	return &emptypb.Empty{}, nil
}

// GetConnectedPeers returns all currently connected peers sorted by domain
func (g *GRPCPeerLink) GetConnectedPeers(ctx context.Context) ([]peerlink.PeerInfo, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return nil, peerlink.ErrPeerLinkClosed
	}

	peers := make([]peerlink.PeerInfo, 0, len(g.peers))
	for domain, pc := range g.peers {
		peers = append(peers, peerlink.PeerInfo{
			Domain:      domain,
			Address:     pc.peer.Address(),
			Health:      healthOf(pc.conn.GetState()),
			ConnectedAt: pc.connectedAt,
		})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Domain < peers[j].Domain })
	return peers, nil
}

// GetPeerHealth returns health status for the peer serving domain
func (g *GRPCPeerLink) GetPeerHealth(ctx context.Context, domain string) (peerlink.PeerHealthState, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pc, ok := g.peers[strings.ToLower(domain)]
	if !ok {
		return peerlink.PeerDisconnected, nil
	}
	return healthOf(pc.conn.GetState()), nil
}

func healthOf(state connectivity.State) peerlink.PeerHealthState {
	switch state {
	case connectivity.TransientFailure:
		return peerlink.PeerUnhealthy
	case connectivity.Shutdown:
		return peerlink.PeerDisconnected
	default:
		return peerlink.PeerHealthy
	}
}

// Close disconnects every peer and stops the server
func (g *GRPCPeerLink) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil // Already closed, safe to call multiple times
	}
	g.closed = true
	peers := g.peers
	g.peers = make(map[string]*peerConn)
	g.mu.Unlock()

	var errs []error
	for _, pc := range peers {
		if err := g.release(pc); err != nil {
			errs = append(errs, err)
		}
	}
	g.server.Stop()
	return errors.Join(errs...)
}

// Verify that GRPCPeerLink implements the PeerLink interface at compile time
var _ peerlink.PeerLink = (*GRPCPeerLink)(nil)
