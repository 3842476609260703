package peerlink

import (
	"context"
	"fmt"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/peerlink"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// PeerRoute is the routing table entry for a remote domain
type PeerRoute struct {
	domain string
	link   peerlink.PeerLink
}

// Domain returns the remote domain served by this route
func (r *PeerRoute) Domain() string {
	return r.domain
}

// Process implements routingtable.Route by sending the packet over the link
func (r *PeerRoute) Process(ctx context.Context, packet stanza.Packet) error {
	iq, ok := packet.(*stanza.IQ)
	if !ok {
		return fmt.Errorf("peer route for %s cannot carry %T", r.domain, packet)
	}
	return r.link.Send(ctx, r.domain, iq)
}

// RouteInfo implements routingtable.Describer
func (r *PeerRoute) RouteInfo() routingtable.RouteInfo {
	return routingtable.RouteInfo{Kind: routingtable.KindPeer, Address: jid.Domainpart(r.domain).String()}
}

var _ routingtable.Route = (*PeerRoute)(nil)
var _ routingtable.Describer = (*PeerRoute)(nil)
