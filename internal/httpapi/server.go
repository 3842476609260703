// Package httpapi serves the operator API of a server: login, health and
// read-only views of routes, sessions, handlers and peers.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/server"
)

// Server represents the HTTP API server
type Server struct {
	jwtAuth    *JWTAuth
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
	logger     zerolog.Logger
}

// Config holds server configuration
type Config struct {
	Port      string
	SecretKey string
	Username  string
	Password  string
	TokenTTL  time.Duration
}

// NewServer creates a new HTTP API server for srv
func NewServer(srv server.Server, config Config, logger zerolog.Logger) (*Server, error) {
	if srv == nil {
		return nil, errors.New("server cannot be nil")
	}
	if config.SecretKey == "" {
		return nil, errors.New("secret key is required")
	}

	logger = logger.With().Str("component", "HTTPAPI").Logger()
	jwtAuth := NewJWTAuth(config.SecretKey, srv.Domain(), config.TokenTTL)
	credentials := Credentials{Username: config.Username, Password: config.Password}

	s := &Server{
		jwtAuth:    jwtAuth,
		handlers:   NewHandlers(srv, jwtAuth, credentials, logger),
		middleware: NewMiddleware(jwtAuth, logger),
		logger:     logger,
	}

	s.server = &http.Server{
		Addr:              ":" + config.Port,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
	return s, nil
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured port and serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve accepts connections on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	withMiddleware := func(handler http.HandlerFunc) http.Handler {
		return s.middleware.Recovery(
			s.middleware.Logging(
				s.middleware.CORS(
					s.middleware.ContentType(handler))))
	}
	admin := func(handler http.HandlerFunc) http.Handler {
		return withMiddleware(s.middleware.AdminRequired(getOnly(handler)))
	}

	mux.Handle("/api/v1/auth/login", withMiddleware(s.handlers.Login))
	mux.Handle("/api/v1/health", withMiddleware(getOnly(s.handlers.Health)))

	mux.Handle("/api/v1/admin/routes", admin(s.handlers.ListRoutes))
	mux.Handle("/api/v1/admin/routes/lookup", admin(s.handlers.LookupRoute))
	mux.Handle("/api/v1/admin/sessions", admin(s.handlers.ListSessions))
	mux.Handle("/api/v1/admin/handlers", admin(s.handlers.ListHandlers))
	mux.Handle("/api/v1/admin/peers", admin(s.handlers.ListPeers))
	mux.Handle("/api/v1/admin/stats", admin(s.handlers.GetStats))

	mux.Handle("/", withMiddleware(s.handleRoot))
	return mux
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, "Not found", http.StatusNotFound)
		return
	}

	info := map[string]interface{}{
		"service": "xmppcore admin API",
		"endpoints": map[string]interface{}{
			"login":  "POST /api/v1/auth/login",
			"health": "GET /api/v1/health",
			"admin": map[string]string{
				"routes":   "GET /api/v1/admin/routes?jid={address}",
				"lookup":   "GET /api/v1/admin/routes/lookup?jid={address}&best={bool}",
				"sessions": "GET /api/v1/admin/sessions",
				"handlers": "GET /api/v1/admin/handlers",
				"peers":    "GET /api/v1/admin/peers",
				"stats":    "GET /api/v1/admin/stats",
			},
		},
		"authentication": "Bearer JWT token required for admin endpoints",
	}
	writeJSON(w, info, http.StatusOK)
}
