package discovery

import (
	"context"
	"errors"
	"testing"
)

// TestStaticDiscovery_FindPeers tests the discovery interface contract
func TestStaticDiscovery_FindPeers(t *testing.T) {
	discovery, err := NewStaticDiscovery([]string{"verona.lit=verona.lit:5269", " Capulet.LIT = 10.0.0.7:5269 "})
	if err != nil {
		t.Fatalf("Expected no error creating discovery, got %v", err)
	}

	peers, err := discovery.FindPeers(context.Background())
	if err != nil {
		t.Errorf("Expected no error from FindPeers, got %v", err)
	}

	if len(peers) != 2 {
		t.Fatalf("Expected 2 peers, got %d", len(peers))
	}

	if peers[0].Domain() != "verona.lit" {
		t.Errorf("Expected first peer domain 'verona.lit', got '%s'", peers[0].Domain())
	}
	if peers[0].Address() != "verona.lit:5269" {
		t.Errorf("Expected first peer address 'verona.lit:5269', got '%s'", peers[0].Address())
	}

	if peers[1].Domain() != "capulet.lit" {
		t.Errorf("Expected second peer domain 'capulet.lit', got '%s'", peers[1].Domain())
	}
	if peers[1].Address() != "10.0.0.7:5269" {
		t.Errorf("Expected second peer address '10.0.0.7:5269', got '%s'", peers[1].Address())
	}
}

// TestStaticDiscovery_EmptyPeers tests discovery with no configured peers
func TestStaticDiscovery_EmptyPeers(t *testing.T) {
	discovery, err := NewStaticDiscovery(nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	peers, err := discovery.FindPeers(context.Background())
	if err != nil {
		t.Errorf("Expected no error from FindPeers with no peers, got %v", err)
	}
	if len(peers) != 0 {
		t.Errorf("Expected 0 peers, got %d", len(peers))
	}
}

// TestStaticDiscovery_MalformedEntries tests that bad entries are rejected
func TestStaticDiscovery_MalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
	}{
		{name: "missing separator", entries: []string{"verona.lit:5269"}},
		{name: "empty domain", entries: []string{"=verona.lit:5269"}},
		{name: "empty address", entries: []string{"verona.lit="}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStaticDiscovery(tt.entries)
			if !errors.Is(err, ErrMalformedPeer) {
				t.Errorf("Expected ErrMalformedPeer, got %v", err)
			}
		})
	}
}

// TestStaticDiscovery_DuplicateDomain tests that a domain may be listed once
func TestStaticDiscovery_DuplicateDomain(t *testing.T) {
	_, err := NewStaticDiscovery([]string{"verona.lit=a:5269", "VERONA.LIT=b:5269"})
	if err == nil {
		t.Fatal("Expected error for duplicate domain, got nil")
	}
}

// TestStaticDiscovery_InterfaceCompliance tests that StaticDiscovery implements Discovery
func TestStaticDiscovery_InterfaceCompliance(t *testing.T) {
	var _ Discovery = (*StaticDiscovery)(nil)
}
