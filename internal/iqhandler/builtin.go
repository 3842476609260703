package iqhandler

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"runtime"
	"time"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/delivery"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/iqhandler"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// replier sends replies for built-in handlers through the delivery gateway
type replier struct {
	gateway delivery.Gateway
	server  jid.JID
}

func (r replier) result(ctx context.Context, iq *stanza.IQ, child *stanza.Element) error {
	if iq.From == nil {
		return nil
	}
	reply := iq.ResultReply()
	if reply.From == nil {
		server := r.server
		reply.From = &server
	}
	reply.Child = child
	return r.gateway.Deliver(ctx, reply)
}

func (r replier) fail(ctx context.Context, iq *stanza.IQ, condition stanza.Condition) error {
	if iq.From == nil {
		return nil
	}
	return r.gateway.Deliver(ctx, iq.ErrorReply(condition))
}

// PingHandler answers XEP-0199 pings with an empty result
type PingHandler struct {
	replier
}

// NewPingHandler creates a ping handler replying through gateway
func NewPingHandler(gateway delivery.Gateway, server jid.JID) *PingHandler {
	return &PingHandler{replier{gateway: gateway, server: server}}
}

// Namespace implements iqhandler.Handler
func (h *PingHandler) Namespace() string { return iqhandler.NamespacePing }

// HandleIQ implements iqhandler.Handler
func (h *PingHandler) HandleIQ(ctx context.Context, iq *stanza.IQ) error {
	if iq.Type != stanza.TypeGet {
		return h.fail(ctx, iq, stanza.ConditionBadRequest)
	}
	return h.result(ctx, iq, nil)
}

// VersionHandler answers jabber:iq:version queries about the server software
type VersionHandler struct {
	replier
	name    string
	version string
}

// NewVersionHandler creates a version handler advertising name and version
func NewVersionHandler(gateway delivery.Gateway, server jid.JID, name, version string) *VersionHandler {
	return &VersionHandler{
		replier: replier{gateway: gateway, server: server},
		name:    name,
		version: version,
	}
}

// Namespace implements iqhandler.Handler
func (h *VersionHandler) Namespace() string { return iqhandler.NamespaceVersion }

// HandleIQ implements iqhandler.Handler
func (h *VersionHandler) HandleIQ(ctx context.Context, iq *stanza.IQ) error {
	if iq.Type != stanza.TypeGet {
		return h.fail(ctx, iq, stanza.ConditionBadRequest)
	}

	payload, err := encodeElements(
		textElement{"name", h.name},
		textElement{"version", h.version},
		textElement{"os", runtime.GOOS},
	)
	if err != nil {
		return err
	}
	return h.result(ctx, iq, &stanza.Element{Name: "query", Namespace: iqhandler.NamespaceVersion, Payload: payload})
}

// TimeHandler answers XEP-0202 entity time requests
type TimeHandler struct {
	replier
	now func() time.Time
}

// NewTimeHandler creates a time handler. now defaults to time.Now.
func NewTimeHandler(gateway delivery.Gateway, server jid.JID, now func() time.Time) *TimeHandler {
	if now == nil {
		now = time.Now
	}
	return &TimeHandler{replier: replier{gateway: gateway, server: server}, now: now}
}

// Namespace implements iqhandler.Handler
func (h *TimeHandler) Namespace() string { return iqhandler.NamespaceTime }

// HandleIQ implements iqhandler.Handler
func (h *TimeHandler) HandleIQ(ctx context.Context, iq *stanza.IQ) error {
	if iq.Type != stanza.TypeGet {
		return h.fail(ctx, iq, stanza.ConditionBadRequest)
	}

	now := h.now()
	payload, err := encodeElements(
		textElement{"tzo", now.Format("-07:00")},
		textElement{"utc", now.UTC().Format(time.RFC3339)},
	)
	if err != nil {
		return err
	}
	return h.result(ctx, iq, &stanza.Element{Name: "time", Namespace: iqhandler.NamespaceTime, Payload: payload})
}

// DiscoInfoHandler answers XEP-0030 info queries with the server identity and
// the namespaces currently registered.
type DiscoInfoHandler struct {
	replier
	registry iqhandler.Registry
	name     string
}

// NewDiscoInfoHandler creates a disco#info handler listing registry's namespaces
func NewDiscoInfoHandler(gateway delivery.Gateway, server jid.JID, registry iqhandler.Registry, name string) *DiscoInfoHandler {
	return &DiscoInfoHandler{
		replier:  replier{gateway: gateway, server: server},
		registry: registry,
		name:     name,
	}
}

// Namespace implements iqhandler.Handler
func (h *DiscoInfoHandler) Namespace() string { return iqhandler.NamespaceDiscoInfo }

type discoIdentity struct {
	XMLName  xml.Name `xml:"identity"`
	Category string   `xml:"category,attr"`
	Type     string   `xml:"type,attr"`
	Name     string   `xml:"name,attr,omitempty"`
}

type discoFeature struct {
	XMLName xml.Name `xml:"feature"`
	Var     string   `xml:"var,attr"`
}

// HandleIQ implements iqhandler.Handler
func (h *DiscoInfoHandler) HandleIQ(ctx context.Context, iq *stanza.IQ) error {
	if iq.Type != stanza.TypeGet {
		return h.fail(ctx, iq, stanza.ConditionBadRequest)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(discoIdentity{Category: "server", Type: "im", Name: h.name}); err != nil {
		return fmt.Errorf("failed to encode disco identity: %w", err)
	}
	advertised := make(map[string]struct{})
	for _, handler := range h.registry.Handlers() {
		ns := handler.Namespace()
		if _, dup := advertised[ns]; dup {
			continue
		}
		advertised[ns] = struct{}{}
		if err := enc.Encode(discoFeature{Var: ns}); err != nil {
			return fmt.Errorf("failed to encode disco feature: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return err
	}

	return h.result(ctx, iq, &stanza.Element{Name: "query", Namespace: iqhandler.NamespaceDiscoInfo, Payload: buf.Bytes()})
}

type textElement struct {
	name  string
	value string
}

func encodeElements(elements ...textElement) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for _, e := range elements {
		if err := enc.EncodeElement(e.value, xml.StartElement{Name: xml.Name{Local: e.name}}); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", e.name, err)
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Verify that the built-in handlers implement the Handler interface at compile time
var (
	_ iqhandler.Handler = (*PingHandler)(nil)
	_ iqhandler.Handler = (*VersionHandler)(nil)
	_ iqhandler.Handler = (*TimeHandler)(nil)
	_ iqhandler.Handler = (*DiscoInfoHandler)(nil)
)
