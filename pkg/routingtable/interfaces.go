package routingtable

import (
	"context"
	"io"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// Route is a live handler that can accept packets addressed to the JID it is
// registered under.
//
// Implementations must be comparable (pointer types in practice); the table
// uses route identity to deduplicate enumeration results.
type Route interface {
	// Process hands a packet to the route. Returning an error that wraps
	// ErrNoRouteFound signals that the route went away before it could accept
	// the packet.
	Process(ctx context.Context, packet stanza.Packet) error
}

// RouteKind classifies routes for inspection
type RouteKind string

const (
	KindSession   RouteKind = "session"
	KindService   RouteKind = "service"
	KindComponent RouteKind = "component"
	KindPeer      RouteKind = "peer"
)

// RouteInfo describes a route for admin tooling
type RouteInfo struct {
	Kind    RouteKind
	Address string
}

// Describer is optionally implemented by routes that can describe themselves
type Describer interface {
	RouteInfo() RouteInfo
}

// RoutingTable manages JID-to-route mappings.
//
// All methods are safe for concurrent use. Lookups share a read lock; AddRoute
// and RemoveRoute take the write lock. No method blocks on anything but that lock.
type RoutingTable interface {
	io.Closer

	// AddRoute registers a route under the exact address and returns the route
	// that previously occupied that slot, if any.
	AddRoute(address jid.JID, route Route) (Route, error)

	// GetRoute returns the route registered under the exact address.
	// Returns an error wrapping ErrNoRouteFound otherwise.
	GetRoute(address jid.JID) (Route, error)

	// GetBestRoute returns the exact route, falling back to the bare address.
	GetBestRoute(address jid.JID) (Route, error)

	// GetRoutes enumerates every route at or below a partial address.
	// The result never contains the same route twice.
	GetRoutes(address jid.JID) []Route

	// RemoveRoute removes the route registered under the exact address and
	// returns it, or nil if there was none.
	RemoveRoute(address jid.JID) Route

	// RouteCount returns the number of terminal routes in the table.
	RouteCount() int

	// DomainCount returns the number of domains with at least one route.
	DomainCount() int
}

// Describe returns RouteInfo for any route, falling back to an unknown kind.
func Describe(route Route) RouteInfo {
	if d, ok := route.(Describer); ok {
		return d.RouteInfo()
	}
	return RouteInfo{Kind: "unknown"}
}
