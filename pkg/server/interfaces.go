package server

import (
	"context"
	"io"
	"time"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/iqhandler"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/peerlink"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
)

// Server is the context object owning the routing core
type Server interface {
	io.Closer

	// Start installs the transport handler and connects peers.
	Start(ctx context.Context) error

	// Stop removes the transport handler.
	Stop(ctx context.Context) error

	// Domain returns the domain this server is authoritative for.
	Domain() string

	// GetRoutingTable returns the server's routing table.
	GetRoutingTable() routingtable.RoutingTable

	// GetHandlers returns the registered namespace handlers in registration order.
	GetHandlers() []iqhandler.Handler

	// GetSessions returns a snapshot of the live client sessions.
	GetSessions() []SessionInfo

	// GetConnectedPeers returns the connected peer servers.
	GetConnectedPeers(ctx context.Context) ([]peerlink.PeerInfo, error)

	// GetStats returns routing counters and table sizes.
	GetStats() Stats

	// GetHealth returns the overall health status of the server.
	GetHealth(ctx context.Context) (HealthStatus, error)
}

// SessionInfo describes a live client session
type SessionInfo struct {
	Address     string    `json:"address"`
	StreamID    string    `json:"stream_id"`
	Status      string    `json:"status"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Stats aggregates routing counters
type Stats struct {
	Routed   uint64 `json:"routed"`
	Bounced  uint64 `json:"bounced"`
	Dropped  uint64 `json:"dropped"`
	Failures uint64 `json:"failures"`

	Routes   int `json:"routes"`
	Domains  int `json:"domains"`
	Sessions int `json:"sessions"`
	Handlers int `json:"handlers"`
	Peers    int `json:"peers"`
}

// HealthStatus represents the overall health of a server
type HealthStatus struct {
	// Healthy indicates if the server is functioning properly
	Healthy bool `json:"healthy"`

	// Started indicates if the transport handler is installed
	Started bool `json:"started"`

	// DeliveryAvailable indicates if packets can currently be delivered
	DeliveryAvailable bool `json:"delivery_available"`

	// Routes is the number of routes in the routing table
	Routes int `json:"routes"`

	// ConnectedSessions is the number of live client sessions
	ConnectedSessions int `json:"connected_sessions"`

	// ConnectedPeers is the number of connected peer servers
	ConnectedPeers int `json:"connected_peers"`

	// Message provides additional health information
	Message string `json:"message"`
}
