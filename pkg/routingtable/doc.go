// Package routingtable provides interfaces for address-to-route dispatch.
//
// This package defines the core abstractions for the routing table component:
//   - Route: anything that can accept a packet (client sessions, components, services, peer links)
//   - RoutingTable: the process-wide mapping from JIDs to routes
//
// The table is organized in three nested levels keyed by domain, node and
// resource. A slot holds either a terminal route or a nested table, never both.
// Registering a deeper address below a slot that holds a route demotes that
// route into the new nested table under the empty key, so the shorter address
// keeps resolving to it.
//
// Example usage:
//
//	// A multi-user chat service registers its room
//	prev, err := table.AddRoute(jid.MustParse("room@conference.example.com"), roomRoute)
//	if err != nil {
//		return err
//	}
//
//	// A participant joins; the bare room route is preserved
//	_, _ = table.AddRoute(jid.MustParse("room@conference.example.com/nick"), occupantRoute)
//
//	// Exact lookup
//	route, err := table.GetRoute(jid.MustParse("room@conference.example.com"))
//	if errors.Is(err, routingtable.ErrNoRouteFound) {
//		// bounce service-unavailable
//	}
//
//	// Broadcast to every session of one user
//	for _, r := range table.GetRoutes(jid.MustParse("alice@example.com")) {
//		_ = r.Process(ctx, packet)
//	}
//
// Wildcard enumeration with GetRoutes:
//   - zero JID: every route in the table
//   - "example.com": every route nested under the domain
//   - "alice@example.com": every route under every resource of alice
package routingtable
