// Package session defines the session directory consumed by the stanza router.
//
// A session represents one live client connection. Before authentication it is
// addressed as domain/streamID; once authenticated it is addressed by the
// user's full JID and registered as a route in the routing table.
package session

import (
	"context"
	"errors"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// ErrSessionClosed is returned when delivering to a closed session
var ErrSessionClosed = errors.New("session is closed")

// Status is the lifecycle state of a session
type Status int

const (
	// Connected sessions have an open stream but have not authenticated
	Connected Status = iota
	// Authenticated sessions may route arbitrary stanzas
	Authenticated
	// Closed sessions no longer accept packets
	Closed
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is a live client connection
type Session interface {
	// Address returns the address the session is currently known by
	Address() jid.JID

	// StreamID returns the stream identifier assigned at connect time
	StreamID() string

	// Status returns the current lifecycle state
	Status() Status

	// Deliver writes a packet directly to the session's connection
	Deliver(ctx context.Context, packet stanza.Packet) error

	// Close terminates the session and its connection
	Close() error
}

// Directory finds the live session for a sender address
type Directory interface {
	Session(address jid.JID) (Session, bool)
}
