package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/session"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// ClientSession is a client connection known to the Manager.
// Once authenticated it doubles as the route for its full address.
type ClientSession struct {
	mu          sync.RWMutex
	address     jid.JID
	streamID    string
	status      session.Status
	conn        Connection
	connectedAt time.Time
	manager     *Manager
}

// Address returns the address the session is currently known by
func (s *ClientSession) Address() jid.JID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// StreamID returns the stream identifier
func (s *ClientSession) StreamID() string {
	return s.streamID
}

// Status returns the lifecycle state
func (s *ClientSession) Status() session.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// ConnectedAt returns when the session was created
func (s *ClientSession) ConnectedAt() time.Time {
	return s.connectedAt
}

// Deliver writes the packet to the session's connection.
// A closed session reports a stale route.
func (s *ClientSession) Deliver(ctx context.Context, packet stanza.Packet) error {
	s.mu.RLock()
	status, address := s.status, s.address
	s.mu.RUnlock()

	if status == session.Closed {
		return fmt.Errorf("%w: %w", session.ErrSessionClosed, routingtable.NewNoRouteError(address))
	}
	return s.conn.Deliver(packet)
}

// Process implements routingtable.Route
func (s *ClientSession) Process(ctx context.Context, packet stanza.Packet) error {
	return s.Deliver(ctx, packet)
}

// RouteInfo implements routingtable.Describer
func (s *ClientSession) RouteInfo() routingtable.RouteInfo {
	return routingtable.RouteInfo{Kind: routingtable.KindSession, Address: s.Address().String()}
}

// Close terminates the session through its manager
func (s *ClientSession) Close() error {
	return s.manager.CloseSession(s)
}

// Verify that ClientSession implements both Session and Route interfaces at compile time
var _ session.Session = (*ClientSession)(nil)
var _ routingtable.Route = (*ClientSession)(nil)
