package session

import (
	"errors"
	"sync"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// ErrConnectionClosed is returned when writing to a closed connection
var ErrConnectionClosed = errors.New("connection closed")

// Connection is the transport-level link a session writes to.
// Socket handling lives outside the core; implementations adapt it.
type Connection interface {
	Deliver(packet stanza.Packet) error
	Close() error
}

// ChannelConnection is an in-memory Connection backed by a buffered channel.
// Used for embedding the core and for tests.
type ChannelConnection struct {
	mu      sync.Mutex
	packets chan stanza.Packet
	closed  bool
}

// NewChannelConnection creates a connection buffering up to size packets
func NewChannelConnection(size int) *ChannelConnection {
	if size <= 0 {
		size = 100
	}
	return &ChannelConnection{
		packets: make(chan stanza.Packet, size),
	}
}

// Deliver enqueues the packet; it never blocks and drops when the buffer is full
func (c *ChannelConnection) Deliver(packet stanza.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.packets <- packet:
		return nil
	default:
		return errors.New("connection buffer full")
	}
}

// Packets returns the channel delivered packets are read from
func (c *ChannelConnection) Packets() <-chan stanza.Packet {
	return c.packets
}

// Close closes the connection; it is safe to call more than once
func (c *ChannelConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.packets)
	return nil
}

// IsClosed reports whether Close has been called
func (c *ChannelConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ Connection = (*ChannelConnection)(nil)
