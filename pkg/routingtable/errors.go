package routingtable

import (
	"errors"
	"fmt"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
)

var (
	// ErrNoRouteFound is returned when no route is registered for an address
	ErrNoRouteFound = errors.New("no route found")
	// ErrNilRoute is returned when registering a nil route
	ErrNilRoute = errors.New("route cannot be nil")
	// ErrRoutingTableClosed is returned when registering into a closed table
	ErrRoutingTableClosed = errors.New("routing table is closed")
)

// NoRouteError reports the address that could not be resolved.
// It matches ErrNoRouteFound with errors.Is.
type NoRouteError struct {
	Address jid.JID
}

// NewNoRouteError creates a NoRouteError for the address
func NewNoRouteError(address jid.JID) *NoRouteError {
	return &NoRouteError{Address: address}
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("%s for %s", ErrNoRouteFound, e.Address)
}

// Unwrap returns ErrNoRouteFound
func (e *NoRouteError) Unwrap() error {
	return ErrNoRouteFound
}
