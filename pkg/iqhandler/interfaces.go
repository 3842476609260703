// Package iqhandler defines per-namespace IQ handlers.
//
// The stanza router selects a handler by the namespace of the IQ's child
// element. Handlers are kept in registration order; the first handler
// declaring a namespace wins.
package iqhandler

import (
	"context"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// Well-known namespaces
const (
	NamespaceAuth      = "jabber:iq:auth"
	NamespaceRegister  = "jabber:iq:register"
	NamespacePing      = "urn:xmpp:ping"
	NamespaceVersion   = "jabber:iq:version"
	NamespaceTime      = "urn:xmpp:time"
	NamespaceDiscoInfo = "http://jabber.org/protocol/disco#info"
)

// Handler processes IQs whose child element carries its namespace.
type Handler interface {
	// Namespace returns the child-element namespace this handler serves
	Namespace() string

	// HandleIQ processes the IQ. Replies are sent by the handler itself.
	HandleIQ(ctx context.Context, iq *stanza.IQ) error
}

// Registry resolves handlers by namespace
type Registry interface {
	// Lookup returns the handler for a namespace, matched case-insensitively
	Lookup(namespace string) (Handler, bool)

	// Handlers returns the registered handlers in order
	Handlers() []Handler
}
