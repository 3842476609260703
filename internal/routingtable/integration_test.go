package routingtable

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
)

// randomAddress builds one of the four address shapes from a small key space so
// that demotions and shared prefixes happen often.
func randomAddress(rng *rand.Rand) jid.JID {
	domain := fmt.Sprintf("d%d.example", rng.Intn(3))
	node := ""
	if rng.Intn(3) > 0 {
		node = fmt.Sprintf("n%d", rng.Intn(4))
	}
	resource := ""
	if rng.Intn(2) > 0 {
		resource = fmt.Sprintf("r%d", rng.Intn(4))
	}
	return jid.JID{Node: node, Domain: domain, Resource: resource}
}

func TestInMemoryRoutingTable_RegisteredRoutesResolve(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		rt := NewInMemoryRoutingTable()
		expected := make(map[jid.JID]routingtable.Route)

		for i := 0; i < 40; i++ {
			address := randomAddress(rng)
			if rng.Intn(4) == 0 {
				removed := rt.RemoveRoute(address)
				if removed != expected[address] {
					t.Fatalf("round %d: RemoveRoute(%s) returned %v, expected %v", round, address, removed, expected[address])
				}
				delete(expected, address)
				continue
			}

			route := newTestRoute(address.String())
			previous, err := rt.AddRoute(address, route)
			if err != nil {
				t.Fatalf("AddRoute failed: %v", err)
			}
			if previous != expected[address] {
				t.Fatalf("round %d: AddRoute(%s) returned previous %v, expected %v", round, address, previous, expected[address])
			}
			expected[address] = route
		}

		for address, route := range expected {
			got, err := rt.GetRoute(address)
			if err != nil {
				t.Fatalf("round %d: GetRoute(%s) failed: %v", round, address, err)
			}
			if got != route {
				t.Fatalf("round %d: GetRoute(%s) returned wrong route", round, address)
			}
		}

		if rt.RouteCount() != len(expected) {
			t.Fatalf("round %d: RouteCount %d, expected %d", round, rt.RouteCount(), len(expected))
		}
		if all := rt.GetRoutes(jid.JID{}); len(all) != len(expected) {
			t.Fatalf("round %d: GetRoutes returned %d routes, expected %d", round, len(all), len(expected))
		}

		// removing everything leaves no empty levels behind
		for address := range expected {
			rt.RemoveRoute(address)
			if _, err := rt.GetRoute(address); !errors.Is(err, routingtable.ErrNoRouteFound) {
				t.Fatalf("round %d: route %s still resolves after removal", round, address)
			}
		}
		if len(rt.domains) != 0 {
			t.Fatalf("round %d: expected empty table, %d domains left", round, len(rt.domains))
		}
		rt.Close()
	}
}

func TestInMemoryRoutingTable_ConcurrentAccess(t *testing.T) {
	rt := NewInMemoryRoutingTable()
	defer rt.Close()

	const numWorkers = 10
	const numOperations = 200

	// a stable route that every reader must always observe
	stable := newTestRoute("stable")
	mustAdd(t, rt, "stable@example.com", stable)

	var wg sync.WaitGroup
	errCh := make(chan error, numWorkers*2)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < numOperations; i++ {
				address := jid.JID{
					Node:     "stable",
					Domain:   "example.com",
					Resource: fmt.Sprintf("w%d-%d", workerID, i),
				}
				if _, err := rt.AddRoute(address, newTestRoute(address.String())); err != nil {
					errCh <- err
					return
				}
				if i%2 == 0 {
					rt.RemoveRoute(address)
				}
			}
		}(w)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < numOperations; i++ {
				route, err := rt.GetRoute(jid.MustParse("stable@example.com"))
				if err != nil || route != stable {
					errCh <- fmt.Errorf("stable route not observed: %v", err)
					return
				}
				rt.GetRoutes(jid.Domainpart("example.com"))
				rt.GetBestRoute(jid.MustParse("stable@example.com/missing"))
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}

	// stable bare route plus the odd-numbered resources of every worker
	expected := 1 + numWorkers*numOperations/2
	if rt.RouteCount() != expected {
		t.Errorf("Expected %d routes, got %d", expected, rt.RouteCount())
	}
}
