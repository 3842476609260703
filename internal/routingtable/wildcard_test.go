package routingtable

import (
	"testing"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
)

func routeNames(routes []routingtable.Route) map[string]int {
	names := make(map[string]int, len(routes))
	for _, r := range routes {
		names[r.(*testRoute).name]++
	}
	return names
}

func seedWildcardTable(t *testing.T) *InMemoryRoutingTable {
	t.Helper()
	rt := NewInMemoryRoutingTable()

	mustAdd(t, rt, "example.com", newTestRoute("server"))
	mustAdd(t, rt, "alice@example.com/phone", newTestRoute("alice-phone"))
	mustAdd(t, rt, "alice@example.com/laptop", newTestRoute("alice-laptop"))
	mustAdd(t, rt, "bob@example.com/home", newTestRoute("bob-home"))
	mustAdd(t, rt, "room@conference.example.com", newTestRoute("room"))
	mustAdd(t, rt, "room@conference.example.com/nick", newTestRoute("room-nick"))
	mustAdd(t, rt, "remote.org", newTestRoute("peer"))
	return rt
}

func TestInMemoryRoutingTable_GetRoutes_All(t *testing.T) {
	rt := seedWildcardTable(t)
	defer rt.Close()

	routes := rt.GetRoutes(jid.JID{})
	if len(routes) != 7 {
		t.Fatalf("Expected 7 routes, got %d: %v", len(routes), routeNames(routes))
	}
}

func TestInMemoryRoutingTable_GetRoutes_Domain(t *testing.T) {
	rt := seedWildcardTable(t)
	defer rt.Close()

	names := routeNames(rt.GetRoutes(jid.Domainpart("example.com")))
	expected := []string{"server", "alice-phone", "alice-laptop", "bob-home"}
	if len(names) != len(expected) {
		t.Fatalf("Expected %d routes under example.com, got %v", len(expected), names)
	}
	for _, name := range expected {
		if names[name] != 1 {
			t.Errorf("Expected route %s exactly once, got %d", name, names[name])
		}
	}

	// a domain route alone
	names = routeNames(rt.GetRoutes(jid.Domainpart("remote.org")))
	if len(names) != 1 || names["peer"] != 1 {
		t.Errorf("Expected only the peer route, got %v", names)
	}

	if routes := rt.GetRoutes(jid.Domainpart("unknown.net")); len(routes) != 0 {
		t.Errorf("Expected no routes for unknown domain, got %d", len(routes))
	}
}

func TestInMemoryRoutingTable_GetRoutes_Node(t *testing.T) {
	rt := seedWildcardTable(t)
	defer rt.Close()

	names := routeNames(rt.GetRoutes(jid.MustParse("alice@example.com")))
	if len(names) != 2 || names["alice-phone"] != 1 || names["alice-laptop"] != 1 {
		t.Errorf("Expected both of alice's sessions, got %v", names)
	}

	// the bare room route and its occupant are both under the node
	names = routeNames(rt.GetRoutes(jid.MustParse("room@conference.example.com")))
	if len(names) != 2 || names["room"] != 1 || names["room-nick"] != 1 {
		t.Errorf("Expected room and occupant, got %v", names)
	}

	// node under a domain that only has a domain route
	if routes := rt.GetRoutes(jid.MustParse("bob@remote.org")); len(routes) != 0 {
		t.Errorf("Expected no routes under remote.org nodes, got %d", len(routes))
	}
}

func TestInMemoryRoutingTable_GetRoutes_FullAddress(t *testing.T) {
	rt := seedWildcardTable(t)
	defer rt.Close()

	names := routeNames(rt.GetRoutes(jid.MustParse("alice@example.com/phone")))
	if len(names) != 1 || names["alice-phone"] != 1 {
		t.Errorf("Expected exactly alice's phone, got %v", names)
	}

	if routes := rt.GetRoutes(jid.MustParse("alice@example.com/tablet")); len(routes) != 0 {
		t.Errorf("Expected no routes for unknown resource, got %d", len(routes))
	}
}

func TestInMemoryRoutingTable_GetRoutes_NoDuplicates(t *testing.T) {
	rt := NewInMemoryRoutingTable()
	defer rt.Close()

	// one route reachable through the bare slot and a resource slot
	shared := newTestRoute("shared")
	mustAdd(t, rt, "alice@example.com", shared)
	mustAdd(t, rt, "alice@example.com/phone", shared)
	mustAdd(t, rt, "bob@example.com/home", shared)
	mustAdd(t, rt, "carol@example.com/home", newTestRoute("carol"))

	routes := rt.GetRoutes(jid.Domainpart("example.com"))
	names := routeNames(routes)
	if names["shared"] != 1 {
		t.Errorf("Expected shared route once, got %d", names["shared"])
	}
	if len(routes) != 2 {
		t.Errorf("Expected 2 distinct routes, got %d", len(routes))
	}

	routes = rt.GetRoutes(jid.MustParse("alice@example.com"))
	if len(routes) != 1 || routes[0] != shared {
		t.Errorf("Expected shared route once under alice, got %v", routes)
	}

	if all := rt.GetRoutes(jid.JID{}); len(all) != 2 {
		t.Errorf("Expected 2 distinct routes in the whole table, got %d", len(all))
	}
	if rt.RouteCount() != 4 {
		t.Errorf("Expected 4 slots occupied, got %d", rt.RouteCount())
	}
}
