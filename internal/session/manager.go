package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/session"
)

var (
	// ErrNilConnection is returned when creating a session without a connection
	ErrNilConnection = errors.New("connection cannot be nil")
	// ErrNotFullAddress is returned when authenticating with an address lacking node or resource
	ErrNotFullAddress = errors.New("authenticated address must have node and resource")
	// ErrForeignDomain is returned when authenticating a user of another domain
	ErrForeignDomain = errors.New("address does not belong to this server")
	// ErrManagerClosed is returned when creating sessions on a closed manager
	ErrManagerClosed = errors.New("session manager is closed")
)

// Manager is the in-memory session directory.
type Manager struct {
	mu        sync.RWMutex
	domain    string
	routes    routingtable.RoutingTable
	byAddress map[jid.JID]*ClientSession
	byStream  map[string]*ClientSession
	closed    bool
	logger    zerolog.Logger
}

// NewManager creates a session manager for the server domain that registers
// authenticated sessions in routes.
func NewManager(domain string, routes routingtable.RoutingTable, logger zerolog.Logger) *Manager {
	return &Manager{
		domain:    domain,
		routes:    routes,
		byAddress: make(map[jid.JID]*ClientSession),
		byStream:  make(map[string]*ClientSession),
		logger:    logger.With().Str("component", "SessionManager").Logger(),
	}
}

// CreateSession registers a new, unauthenticated session addressed as domain/streamID.
func (m *Manager) CreateSession(conn Connection) (*ClientSession, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}

	streamID := uuid.NewString()
	s := &ClientSession{
		address:     jid.JID{Domain: m.domain, Resource: streamID},
		streamID:    streamID,
		status:      session.Connected,
		conn:        conn,
		connectedAt: time.Now(),
		manager:     m,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	m.byAddress[s.address] = s
	m.byStream[streamID] = s

	m.logger.Debug().Str("stream", streamID).Msg("Session created")
	return s, nil
}

// Authenticate marks the session authenticated under address and registers it
// as the route for that address. A session already bound to the same address
// is closed. Re-authenticating under a new address retires the old route.
func (m *Manager) Authenticate(s *ClientSession, address jid.JID) error {
	if address.Node == "" || address.Resource == "" {
		return fmt.Errorf("%w: %s", ErrNotFullAddress, address)
	}
	if address.Domain != m.domain {
		return fmt.Errorf("%w: %s", ErrForeignDomain, address)
	}

	conflict, err := m.bind(s, address)
	if err != nil {
		return err
	}

	if conflict != nil {
		m.logger.Info().Str("address", address.String()).Msg("Replacing session bound to the same resource")
		if err := m.closeSession(conflict, false); err != nil {
			m.logger.Warn().Err(err).Str("address", address.String()).Msg("Failed to close replaced session")
		}
	}

	m.logger.Info().Str("address", address.String()).Str("stream", s.StreamID()).Msg("Session authenticated")
	return nil
}

// bind re-keys s under address and registers its route. Status changes and
// route updates both happen under m.mu so a concurrent close cannot leave a
// closed session in the routing table.
func (m *Manager) bind(s *ClientSession, address jid.JID) (*ClientSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.mu.RLock()
	status, previous := s.status, s.address
	s.mu.RUnlock()

	if status == session.Closed {
		return nil, session.ErrSessionClosed
	}

	if _, err := m.routes.AddRoute(address, s); err != nil {
		return nil, fmt.Errorf("failed to register session route: %w", err)
	}
	if status == session.Authenticated && previous != address {
		m.removeRouteOf(s, previous)
	}

	conflict := m.byAddress[address]
	if conflict == s {
		conflict = nil
	}
	if m.byAddress[previous] == s {
		delete(m.byAddress, previous)
	}

	s.mu.Lock()
	s.address = address
	s.status = session.Authenticated
	s.mu.Unlock()

	m.byAddress[address] = s
	return conflict, nil
}

// removeRouteOf retires the route at address only if it still belongs to s.
// Callers hold m.mu.
func (m *Manager) removeRouteOf(s *ClientSession, address jid.JID) {
	if route, err := m.routes.GetRoute(address); err == nil && route == routingtable.Route(s) {
		m.routes.RemoveRoute(address)
	}
}

// Session implements session.Directory
func (m *Manager) Session(address jid.JID) (session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byAddress[address]
	if !ok {
		return nil, false
	}
	return s, true
}

// SessionByStream returns the session for a stream id
func (m *Manager) SessionByStream(streamID string) (*ClientSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byStream[streamID]
	return s, ok
}

// CloseSession closes s, removes its route and closes its connection
func (m *Manager) CloseSession(s *ClientSession) error {
	return m.closeSession(s, true)
}

func (m *Manager) closeSession(s *ClientSession, unindexAddress bool) error {
	m.mu.Lock()
	s.mu.Lock()
	if s.status == session.Closed {
		s.mu.Unlock()
		m.mu.Unlock()
		return nil
	}
	wasAuthenticated := s.status == session.Authenticated
	address := s.address
	s.status = session.Closed
	s.mu.Unlock()

	if unindexAddress && m.byAddress[address] == s {
		delete(m.byAddress, address)
	}
	delete(m.byStream, s.streamID)
	if wasAuthenticated {
		m.removeRouteOf(s, address)
	}
	m.mu.Unlock()

	m.logger.Debug().Str("address", address.String()).Str("stream", s.streamID).Msg("Session closed")
	return s.conn.Close()
}

// Sessions returns a snapshot of all live sessions
func (m *Manager) Sessions() []*ClientSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*ClientSession, 0, len(m.byStream))
	for _, s := range m.byStream {
		sessions = append(sessions, s)
	}
	return sessions
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byStream)
}

// Close closes every session; no new sessions are accepted afterwards
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	var errs []error
	for _, s := range m.Sessions() {
		if err := m.CloseSession(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Verify that Manager implements the Directory interface at compile time
var _ session.Directory = (*Manager)(nil)
