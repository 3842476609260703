package httpapi

import (
	"time"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/peerlink"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/server"
)

// Request/Response types for the admin API

// LoginRequest represents an operator login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RouteEntry describes one route in the routing table
type RouteEntry struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
}

// AllRoutes is the jid query value that lists every route in the table
const AllRoutes = "*"

// RoutesResponse lists the routes at or below an address
type RoutesResponse struct {
	Query  string       `json:"query"`
	Routes []RouteEntry `json:"routes"`
}

// LookupResponse is the result of resolving a single address
type LookupResponse struct {
	Query string     `json:"query"`
	Best  bool       `json:"best"`
	Route RouteEntry `json:"route"`
}

// HandlerEntry describes a registered namespace handler
type HandlerEntry struct {
	Namespace string `json:"namespace"`
	Type      string `json:"type"`
}

// HandlersResponse lists namespace handlers in registration order
type HandlersResponse struct {
	Handlers []HandlerEntry `json:"handlers"`
}

// SessionsResponse lists live client sessions
type SessionsResponse struct {
	Sessions []server.SessionInfo `json:"sessions"`
}

// PeerEntry describes a connected peer server
type PeerEntry struct {
	peerlink.PeerInfo
	Health string `json:"health"`
}

// PeersResponse lists connected peer servers
type PeersResponse struct {
	Peers []PeerEntry `json:"peers"`
}

// StatsResponse wraps routing counters with the server domain
type StatsResponse struct {
	Domain string `json:"domain"`
	server.Stats
}

// HealthResponse represents health check response
type HealthResponse struct {
	Domain string `json:"domain"`
	server.HealthStatus
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
