package httpclient

import (
	"time"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/server"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the admin API (e.g., "http://localhost:8081")
	ServerURL string

	// Username and Password identify the operator
	Username string
	Password string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Username == "" {
		c.Username = "admin"
	}
}

// LoginRequest is the body of a login call
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the response from authentication
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Route describes one routing table entry
type Route struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
}

// AllRoutes is the jid query value that lists every route in the table
const AllRoutes = "*"

// RoutesResponse lists the routes at or below an address
type RoutesResponse struct {
	Query  string  `json:"query"`
	Routes []Route `json:"routes"`
}

// LookupResponse is the result of resolving a single address
type LookupResponse struct {
	Query string `json:"query"`
	Best  bool   `json:"best"`
	Route Route  `json:"route"`
}

// Handler describes a registered namespace handler
type Handler struct {
	Namespace string `json:"namespace"`
	Type      string `json:"type"`
}

// HandlersResponse lists namespace handlers
type HandlersResponse struct {
	Handlers []Handler `json:"handlers"`
}

// SessionsResponse lists live client sessions
type SessionsResponse struct {
	Sessions []server.SessionInfo `json:"sessions"`
}

// Peer describes a connected peer server
type Peer struct {
	Domain      string    `json:"domain"`
	Address     string    `json:"address"`
	Health      string    `json:"health"`
	ConnectedAt time.Time `json:"connected_at"`
}

// PeersResponse lists connected peer servers
type PeersResponse struct {
	Peers []Peer `json:"peers"`
}

// StatsResponse carries routing counters
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
