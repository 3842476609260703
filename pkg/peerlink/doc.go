// Package peerlink provides interfaces for server-to-server links.
//
// A peer link carries IQ stanzas between servers serving different domains:
//   - Peer: a remote server, identified by its domain and link address
//   - PeerLink: connects peers and registers each one as the route for its domain
//   - InboundHandler: receives the IQs remote peers deliver
//
// The gRPC implementation lives in internal/peerlink. Each packet travels as a
// unary call whose metadata names the sending domain; the receiving side
// refuses packets whose from address does not belong to that domain.
//
// Example usage:
//
//	err := link.Connect(ctx, peer)
//	if err != nil {
//		return err
//	}
//
//	// stanzas for users of peer.Domain() now route over the link
//	route, err := routes.GetRoute(jid.Domainpart(peer.Domain()))
package peerlink
