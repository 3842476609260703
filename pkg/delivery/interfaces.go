// Package delivery defines the final-mile delivery abstraction.
//
// A Gateway hands packets to whichever TransportHandler is currently
// installed. The handler is resolved at call time because the subsystems
// providing it are started and stopped independently of the gateway.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

var (
	// ErrNoTransportHandler is returned when no transport handler is installed
	ErrNoTransportHandler = errors.New("no transport handler installed")
	// ErrNilPacket is returned when asked to deliver a nil packet
	ErrNilPacket = errors.New("packet cannot be nil")
)

// TransportHandler performs the actual delivery of a packet.
type TransportHandler interface {
	Process(ctx context.Context, packet stanza.Packet) error
}

// Gateway delivers packets through the installed transport handler.
type Gateway interface {
	// Deliver hands the packet to the current transport handler.
	// Fails with a *DeliveryUnavailableError when none is installed.
	Deliver(ctx context.Context, packet stanza.Packet) error
}

// DeliveryUnavailableError is a configuration error: delivery was attempted
// while no transport handler was installed. It matches ErrNoTransportHandler.
type DeliveryUnavailableError struct {
	PacketID string
}

func (e *DeliveryUnavailableError) Error() string {
	return fmt.Sprintf("cannot deliver packet %q: %s", e.PacketID, ErrNoTransportHandler)
}

// Unwrap returns ErrNoTransportHandler
func (e *DeliveryUnavailableError) Unwrap() error {
	return ErrNoTransportHandler
}
