package discovery

import (
	"context"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/peerlink"
)

// Discovery defines the interface for peer discovery mechanisms
type Discovery interface {
	// FindPeers discovers and returns available peer servers
	FindPeers(ctx context.Context) ([]peerlink.Peer, error)
}
