package delivery

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/delivery"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// handlerBox lets atomic.Pointer hold an interface value
type handlerBox struct {
	handler delivery.TransportHandler
}

// PacketGateway implements delivery.Gateway with a swappable transport handler.
type PacketGateway struct {
	current atomic.Pointer[handlerBox]
	logger  zerolog.Logger
}

// NewPacketGateway creates a gateway with no transport handler installed
func NewPacketGateway(logger zerolog.Logger) *PacketGateway {
	return &PacketGateway{
		logger: logger.With().Str("component", "DeliveryGateway").Logger(),
	}
}

// SetTransportHandler installs handler, replacing any previous one.
// Passing nil is equivalent to ClearTransportHandler.
func (g *PacketGateway) SetTransportHandler(handler delivery.TransportHandler) {
	if handler == nil {
		g.ClearTransportHandler()
		return
	}
	g.current.Store(&handlerBox{handler: handler})
	g.logger.Info().Str("handler", fmt.Sprintf("%T", handler)).Msg("Transport handler installed")
}

// ClearTransportHandler uninstalls the current transport handler
func (g *PacketGateway) ClearTransportHandler() {
	if g.current.Swap(nil) != nil {
		g.logger.Info().Msg("Transport handler removed")
	}
}

// HasTransportHandler reports whether a transport handler is installed
func (g *PacketGateway) HasTransportHandler() bool {
	return g.current.Load() != nil
}

// Deliver hands packet to the transport handler installed at call time.
func (g *PacketGateway) Deliver(ctx context.Context, packet stanza.Packet) error {
	if isNil(packet) {
		return delivery.ErrNilPacket
	}

	box := g.current.Load()
	if box == nil {
		return &delivery.DeliveryUnavailableError{PacketID: packet.StanzaID()}
	}

	if err := box.handler.Process(ctx, packet); err != nil {
		return fmt.Errorf("failed to deliver packet %q: %w", packet.StanzaID(), err)
	}
	return nil
}

// isNil catches both a nil interface and a typed nil IQ pointer.
func isNil(packet stanza.Packet) bool {
	if packet == nil {
		return true
	}
	iq, ok := packet.(*stanza.IQ)
	return ok && iq == nil
}

// Verify that PacketGateway implements the Gateway interface at compile time
var _ delivery.Gateway = (*PacketGateway)(nil)
