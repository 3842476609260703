package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/peerlink"
)

// ErrMalformedPeer is returned for a peer entry not of the form domain=address
var ErrMalformedPeer = errors.New("peer entry must be domain=address")

// StaticDiscovery implements Discovery using a static list of peers
type StaticDiscovery struct {
	peers []peerlink.Peer
}

// staticPeer implements peerlink.Peer for configured peers
type staticPeer struct {
	domain  string
	address string
}

func (p *staticPeer) Domain() string  { return p.domain }
func (p *staticPeer) Address() string { return p.address }

// NewStaticDiscovery creates a static discovery service from entries of the
// form "domain=address", e.g. "verona.lit=verona.lit:5269"
func NewStaticDiscovery(entries []string) (*StaticDiscovery, error) {
	peers := make([]peerlink.Peer, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		domain, address, ok := strings.Cut(strings.TrimSpace(entry), "=")
		domain = strings.ToLower(strings.TrimSpace(domain))
		address = strings.TrimSpace(address)
		if !ok || domain == "" || address == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedPeer, entry)
		}
		if _, dup := seen[domain]; dup {
			return nil, fmt.Errorf("duplicate peer domain %q", domain)
		}
		seen[domain] = struct{}{}
		peers = append(peers, &staticPeer{domain: domain, address: address})
	}
	return &StaticDiscovery{peers: peers}, nil
}

// FindPeers returns the configured peers in configuration order
func (s *StaticDiscovery) FindPeers(ctx context.Context) ([]peerlink.Peer, error) {
	return append([]peerlink.Peer(nil), s.peers...), nil
}
