package peerlink

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

var (
	// ErrPeerNotConnected is returned when addressing a domain with no link
	ErrPeerNotConnected = errors.New("peer not connected")
	// ErrPeerAlreadyConnected is returned when connecting a domain twice
	ErrPeerAlreadyConnected = errors.New("peer already connected")
	// ErrPeerLinkClosed is returned by operations on a closed link
	ErrPeerLinkClosed = errors.New("peer link is closed")
	// ErrLocalDomain is returned when asked to connect to the server's own domain
	ErrLocalDomain = errors.New("cannot link to the local domain")
)

// PeerHealthState represents the health state of a peer
type PeerHealthState int

const (
	PeerHealthy PeerHealthState = iota
	PeerUnhealthy
	PeerDisconnected
)

func (s PeerHealthState) String() string {
	switch s {
	case PeerHealthy:
		return "Healthy"
	case PeerUnhealthy:
		return "Unhealthy"
	case PeerDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Peer is a remote server reachable over a peer link
type Peer interface {
	// Domain returns the XMPP domain served by the peer
	Domain() string

	// Address returns the network address of the peer's link endpoint
	Address() string
}

// PeerInfo describes a connected peer
type PeerInfo struct {
	Domain      string          `json:"domain"`
	Address     string          `json:"address"`
	Health      PeerHealthState `json:"-"`
	ConnectedAt time.Time       `json:"connected_at"`
}

// InboundHandler receives IQs delivered by remote peers
type InboundHandler interface {
	Route(ctx context.Context, iq *stanza.IQ) error
}

// PeerLink manages server-to-server links. Each connected peer is registered
// as the route for its domain, so stanzas for remote users reach it through
// ordinary routing.
type PeerLink interface {
	io.Closer

	// Connect opens a link to peer and registers it as the route for its domain.
	Connect(ctx context.Context, peer Peer) error

	// Disconnect closes the link to domain and retires its route.
	Disconnect(ctx context.Context, domain string) error

	// Send delivers an IQ to the peer serving domain.
	Send(ctx context.Context, domain string, iq *stanza.IQ) error

	// GetConnectedPeers returns all currently connected peers.
	GetConnectedPeers(ctx context.Context) ([]PeerInfo, error)

	// GetPeerHealth returns health status for the peer serving domain.
	GetPeerHealth(ctx context.Context, domain string) (PeerHealthState, error)
}
