package routingtable

import (
	"fmt"
	"testing"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
)

// BenchmarkInMemoryRoutingTable_AddRoute measures registration performance
func BenchmarkInMemoryRoutingTable_AddRoute(b *testing.B) {
	rt := NewInMemoryRoutingTable()
	defer rt.Close()

	addresses := make([]jid.JID, b.N)
	routes := make([]*testRoute, b.N)
	for i := 0; i < b.N; i++ {
		addresses[i] = jid.JID{Node: fmt.Sprintf("user%d", i%1000), Domain: "example.com", Resource: fmt.Sprintf("r%d", i)}
		routes[i] = newTestRoute(addresses[i].String())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rt.AddRoute(addresses[i], routes[i]); err != nil {
			b.Fatalf("AddRoute failed: %v", err)
		}
	}
}

// BenchmarkInMemoryRoutingTable_GetRoute measures exact lookup performance
func BenchmarkInMemoryRoutingTable_GetRoute(b *testing.B) {
	rt := NewInMemoryRoutingTable()
	defer rt.Close()

	const numRoutes = 1000
	addresses := make([]jid.JID, numRoutes)
	for i := 0; i < numRoutes; i++ {
		addresses[i] = jid.JID{Node: fmt.Sprintf("user%d", i), Domain: "example.com", Resource: "phone"}
		rt.AddRoute(addresses[i], newTestRoute(addresses[i].String()))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rt.GetRoute(addresses[i%numRoutes]); err != nil {
			b.Fatalf("GetRoute failed: %v", err)
		}
	}
}

// BenchmarkInMemoryRoutingTable_GetBestRoute_Fallback measures the bare fallback path
func BenchmarkInMemoryRoutingTable_GetBestRoute_Fallback(b *testing.B) {
	rt := NewInMemoryRoutingTable()
	defer rt.Close()

	rt.AddRoute(jid.MustParse("room@conference.example.com"), newTestRoute("room"))
	target := jid.MustParse("room@conference.example.com/unknown")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rt.GetBestRoute(target); err != nil {
			b.Fatalf("GetBestRoute failed: %v", err)
		}
	}
}

// BenchmarkInMemoryRoutingTable_ParallelReads measures read-lock contention
func BenchmarkInMemoryRoutingTable_ParallelReads(b *testing.B) {
	rt := NewInMemoryRoutingTable()
	defer rt.Close()

	target := jid.MustParse("alice@example.com/phone")
	rt.AddRoute(target, newTestRoute("phone"))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rt.GetRoute(target)
		}
	})
}

// BenchmarkInMemoryRoutingTable_MixedOperations measures a mixed workload
func BenchmarkInMemoryRoutingTable_MixedOperations(b *testing.B) {
	rt := NewInMemoryRoutingTable()
	defer rt.Close()

	const numUsers = 100
	users := make([]jid.JID, numUsers)
	for i := 0; i < numUsers; i++ {
		users[i] = jid.JID{Node: fmt.Sprintf("user%d", i), Domain: "example.com", Resource: "phone"}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		address := users[i%numUsers]

		// 20% add, 10% remove, 70% lookup
		switch i % 10 {
		case 0:
			rt.RemoveRoute(address)
		case 1, 2:
			rt.AddRoute(address, newTestRoute(address.String()))
		default:
			rt.GetBestRoute(address)
		}
	}
}
