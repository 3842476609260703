package routingtable

import (
	"fmt"
	"sync"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
)

// depth of the table: domain, node, resource
const levels = 3

type slotKind uint8

const (
	routeSlot slotKind = iota + 1
	tableSlot
)

// slot holds either a terminal route or a nested table keyed by the next
// address part. The empty key of a nested table stands for "no part at this
// level", which is where a demoted route ends up.
type slot struct {
	kind  slotKind
	route routingtable.Route
	table map[string]*slot
}

func newRouteSlot(route routingtable.Route) *slot {
	return &slot{kind: routeSlot, route: route}
}

func newTableSlot() *slot {
	return &slot{kind: tableSlot, table: make(map[string]*slot)}
}

// demote turns a route slot into a table slot whose empty key holds the route.
func (s *slot) demote() {
	route := s.route
	s.kind = tableSlot
	s.route = nil
	s.table = map[string]*slot{"": newRouteSlot(route)}
}

// InMemoryRoutingTable implements routingtable.RoutingTable with nested maps
// guarded by a single RWMutex.
type InMemoryRoutingTable struct {
	mu      sync.RWMutex
	domains map[string]*slot
	routes  int
	closed  bool
}

// NewInMemoryRoutingTable creates an empty routing table
func NewInMemoryRoutingTable() *InMemoryRoutingTable {
	return &InMemoryRoutingTable{
		domains: make(map[string]*slot),
	}
}

func keysOf(address jid.JID) [levels]string {
	return [levels]string{address.Domain, address.Node, address.Resource}
}

// restEmpty reports whether every key from depth onwards is empty.
func restEmpty(keys [levels]string, depth int) bool {
	for i := depth; i < levels; i++ {
		if keys[i] != "" {
			return false
		}
	}
	return true
}

// AddRoute registers route under the exact address and returns the previous
// occupant of that slot.
func (t *InMemoryRoutingTable) AddRoute(address jid.JID, route routingtable.Route) (routingtable.Route, error) {
	if route == nil {
		return nil, routingtable.ErrNilRoute
	}
	if address.Domain == "" {
		return nil, fmt.Errorf("cannot add route: %w", jid.ErrEmptyDomain)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, routingtable.ErrRoutingTableClosed
	}

	keys := keysOf(address)
	table := t.domains
	for depth := 0; depth < levels; depth++ {
		key := keys[depth]
		s, ok := table[key]

		if restEmpty(keys, depth+1) {
			if !ok {
				table[key] = newRouteSlot(route)
				t.routes++
				return nil, nil
			}
			switch s.kind {
			case routeSlot:
				previous := s.route
				s.route = route
				return previous, nil
			case tableSlot:
				// the address is shorter than what is already registered here;
				// its route lives under the empty key one level down
				table = s.table
				continue
			}
		}

		if !ok {
			s = newTableSlot()
			table[key] = s
		} else if s.kind == routeSlot {
			s.demote()
		}
		table = s.table
	}

	// unreachable: the resource level always satisfies restEmpty
	return nil, fmt.Errorf("cannot add route for %s: table depth exceeded", address)
}

// GetRoute returns the route registered under the exact address.
func (t *InMemoryRoutingTable) GetRoute(address jid.JID) (routingtable.Route, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if route := t.find(keysOf(address)); route != nil {
		return route, nil
	}
	return nil, routingtable.NewNoRouteError(address)
}

// GetBestRoute tries the exact address first and then its bare form.
func (t *InMemoryRoutingTable) GetBestRoute(address jid.JID) (routingtable.Route, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if route := t.find(keysOf(address)); route != nil {
		return route, nil
	}
	if address.Resource != "" {
		if route := t.find(keysOf(address.Bare())); route != nil {
			return route, nil
		}
	}
	return nil, routingtable.NewNoRouteError(address)
}

// find must be called with the lock held.
func (t *InMemoryRoutingTable) find(keys [levels]string) routingtable.Route {
	table := t.domains
	for depth := 0; depth < levels; depth++ {
		s, ok := table[keys[depth]]
		if !ok {
			return nil
		}
		switch s.kind {
		case routeSlot:
			if restEmpty(keys, depth+1) {
				return s.route
			}
			return nil
		case tableSlot:
			table = s.table
		}
	}
	return nil
}

// GetRoutes enumerates the routes at or below a partial address.
func (t *InMemoryRoutingTable) GetRoutes(address jid.JID) []routingtable.Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := newCollector()

	switch {
	case address.Domain == "":
		for _, s := range t.domains {
			c.collect(s)
		}
	case address.Resource != "":
		if route := t.find(keysOf(address)); route != nil {
			c.add(route)
		}
	case address.Node != "":
		s, ok := t.domains[address.Domain]
		if !ok {
			break
		}
		switch s.kind {
		case routeSlot:
			// a domain route is not under any node
		case tableSlot:
			if nodeSlot, ok := s.table[address.Node]; ok {
				c.collect(nodeSlot)
			}
		}
	default:
		if s, ok := t.domains[address.Domain]; ok {
			c.collect(s)
		}
	}

	return c.routes
}

// RemoveRoute removes the route registered under the exact address and prunes
// any table left empty by the removal.
func (t *InMemoryRoutingTable) RemoveRoute(address jid.JID) routingtable.Route {
	t.mu.Lock()
	defer t.mu.Unlock()

	type step struct {
		table map[string]*slot
		key   string
	}

	keys := keysOf(address)
	path := make([]step, 0, levels)
	table := t.domains
	for depth := 0; depth < levels; depth++ {
		key := keys[depth]
		s, ok := table[key]
		if !ok {
			return nil
		}
		switch s.kind {
		case routeSlot:
			if !restEmpty(keys, depth+1) {
				return nil
			}
			delete(table, key)
			t.routes--

			for i := len(path) - 1; i >= 0; i-- {
				parent := path[i].table[path[i].key]
				if len(parent.table) > 0 {
					break
				}
				delete(path[i].table, path[i].key)
			}
			return s.route
		case tableSlot:
			path = append(path, step{table: table, key: key})
			table = s.table
		}
	}
	return nil
}

// RouteCount returns the number of terminal routes
func (t *InMemoryRoutingTable) RouteCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.routes
}

// DomainCount returns the number of domains holding routes
func (t *InMemoryRoutingTable) DomainCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.domains)
}

// Close drops every route. Subsequent AddRoute calls fail.
func (t *InMemoryRoutingTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.domains = make(map[string]*slot)
	t.routes = 0
	t.closed = true
	return nil
}

// collector accumulates routes without duplicates
type collector struct {
	seen   map[routingtable.Route]struct{}
	routes []routingtable.Route
}

func newCollector() *collector {
	return &collector{seen: make(map[routingtable.Route]struct{})}
}

func (c *collector) add(route routingtable.Route) {
	if _, dup := c.seen[route]; dup {
		return
	}
	c.seen[route] = struct{}{}
	c.routes = append(c.routes, route)
}

func (c *collector) collect(s *slot) {
	switch s.kind {
	case routeSlot:
		c.add(s.route)
	case tableSlot:
		for _, child := range s.table {
			c.collect(child)
		}
	}
}

// Verify that InMemoryRoutingTable implements the RoutingTable interface at compile time
var _ routingtable.RoutingTable = (*InMemoryRoutingTable)(nil)
