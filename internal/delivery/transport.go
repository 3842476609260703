package delivery

import (
	"context"
	"fmt"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/delivery"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// RouteTransport is the standard transport handler: it resolves the
// recipient through the routing table with bare-address fallback and hands
// the packet to the resulting route.
type RouteTransport struct {
	routes routingtable.RoutingTable
}

// NewRouteTransport creates a transport handler backed by the routing table
func NewRouteTransport(routes routingtable.RoutingTable) *RouteTransport {
	return &RouteTransport{routes: routes}
}

// Process delivers packet to the best route for its recipient
func (t *RouteTransport) Process(ctx context.Context, packet stanza.Packet) error {
	to := packet.Recipient()
	if to == nil {
		return fmt.Errorf("packet %q has no recipient", packet.StanzaID())
	}

	route, err := t.routes.GetBestRoute(*to)
	if err != nil {
		return err
	}
	return route.Process(ctx, packet)
}

// Verify that RouteTransport implements the TransportHandler interface at compile time
var _ delivery.TransportHandler = (*RouteTransport)(nil)
