package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/server"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	server      server.Server
	jwtAuth     *JWTAuth
	credentials Credentials
	logger      zerolog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(srv server.Server, jwtAuth *JWTAuth, credentials Credentials, logger zerolog.Logger) *Handlers {
	return &Handlers{
		server:      srv,
		jwtAuth:     jwtAuth,
		credentials: credentials,
		logger:      logger,
	}
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := validateJSON(r); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		writeError(w, "username is required", http.StatusBadRequest)
		return
	}

	if err := h.credentials.Check(req.Username, req.Password); err != nil {
		h.logger.Warn().Str("username", req.Username).Err(err).Msg("Rejected admin login")
		if errors.Is(err, ErrAdminDisabled) {
			writeError(w, err.Error(), http.StatusForbidden)
			return
		}
		writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.jwtAuth.GenerateToken(req.Username, true)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("username", req.Username).Msg("Admin logged in")
	writeJSON(w, LoginResponse{
		Token:     token,
		Username:  req.Username,
		ExpiresAt: expiresAt,
	}, http.StatusOK)
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health, err := h.server.GetHealth(r.Context())
	if err != nil {
		writeError(w, "Failed to get health status", http.StatusInternalServerError)
		return
	}

	statusCode := http.StatusOK
	if !health.Healthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, HealthResponse{Domain: h.server.Domain(), HealthStatus: health}, statusCode)
}

// ListRoutes handles GET /api/v1/admin/routes?jid={address}.
// Without a jid every route of the server domain is listed; jid=* lists the whole table.
func (h *Handlers) ListRoutes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("jid")
	if query == AllRoutes {
		writeJSON(w, RoutesResponse{Query: AllRoutes, Routes: h.routeEntries(jid.JID{})}, http.StatusOK)
		return
	}
	if query == "" {
		query = h.server.Domain()
	}

	address, err := jid.Parse(query)
	if err != nil {
		writeError(w, fmt.Sprintf("invalid jid %q: %v", query, err), http.StatusBadRequest)
		return
	}
	writeJSON(w, RoutesResponse{Query: address.String(), Routes: h.routeEntries(address)}, http.StatusOK)
}

func (h *Handlers) routeEntries(address jid.JID) []RouteEntry {
	routes := h.server.GetRoutingTable().GetRoutes(address)
	entries := make([]RouteEntry, 0, len(routes))
	for _, route := range routes {
		entries = append(entries, entryOf(route))
	}
	return entries
}

// LookupRoute handles GET /api/v1/admin/routes/lookup?jid={address}&best={bool}
func (h *Handlers) LookupRoute(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("jid")
	if query == "" {
		writeError(w, "jid is required", http.StatusBadRequest)
		return
	}
	address, err := jid.Parse(query)
	if err != nil {
		writeError(w, fmt.Sprintf("invalid jid %q: %v", query, err), http.StatusBadRequest)
		return
	}

	best := false
	if raw := r.URL.Query().Get("best"); raw != "" {
		if best, err = strconv.ParseBool(raw); err != nil {
			writeError(w, "best must be a boolean", http.StatusBadRequest)
			return
		}
	}

	table := h.server.GetRoutingTable()
	var route routingtable.Route
	if best {
		route, err = table.GetBestRoute(address)
	} else {
		route, err = table.GetRoute(address)
	}
	if errors.Is(err, routingtable.ErrNoRouteFound) {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, LookupResponse{Query: address.String(), Best: best, Route: entryOf(route)}, http.StatusOK)
}

// ListSessions handles GET /api/v1/admin/sessions
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SessionsResponse{Sessions: h.server.GetSessions()}, http.StatusOK)
}

// ListHandlers handles GET /api/v1/admin/handlers
func (h *Handlers) ListHandlers(w http.ResponseWriter, r *http.Request) {
	handlers := h.server.GetHandlers()
	entries := make([]HandlerEntry, 0, len(handlers))
	for _, handler := range handlers {
		entries = append(entries, HandlerEntry{
			Namespace: handler.Namespace(),
			Type:      fmt.Sprintf("%T", handler),
		})
	}
	writeJSON(w, HandlersResponse{Handlers: entries}, http.StatusOK)
}

// ListPeers handles GET /api/v1/admin/peers
func (h *Handlers) ListPeers(w http.ResponseWriter, r *http.Request) {
	peers, err := h.server.GetConnectedPeers(r.Context())
	if err != nil {
		writeError(w, "Failed to list peers: "+err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]PeerEntry, 0, len(peers))
	for _, peer := range peers {
		entries = append(entries, PeerEntry{PeerInfo: peer, Health: peer.Health.String()})
	}
	writeJSON(w, PeersResponse{Peers: entries}, http.StatusOK)
}

// GetStats handles GET /api/v1/admin/stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatsResponse{Domain: h.server.Domain(), Stats: h.server.GetStats()}, http.StatusOK)
}

func entryOf(route routingtable.Route) RouteEntry {
	info := routingtable.Describe(route)
	return RouteEntry{Kind: string(info.Kind), Address: info.Address}
}

func validateJSON(r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.New("Content-Type must be application/json")
	}
	return nil
}
