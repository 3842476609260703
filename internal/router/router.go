// Package router implements the IQ dispatcher: the authorization gate, target
// classification, handler resolution and error bounce applied to every IQ the
// server receives.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/iqhandler"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/jid"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/routingtable"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/session"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

var (
	// ErrEmptyDomain is returned when the router is created without a server domain
	ErrEmptyDomain = errors.New("server domain cannot be empty")
	// ErrMissingDependency is returned when a collaborator is nil
	ErrMissingDependency = errors.New("router dependency cannot be nil")
)

// Stats counts dispatch outcomes since the router was created
type Stats struct {
	Routed   uint64 `json:"routed"`
	Bounced  uint64 `json:"bounced"`
	Dropped  uint64 `json:"dropped"`
	Failures uint64 `json:"failures"`
}

// IQRouter dispatches IQ stanzas to namespace handlers or routes.
type IQRouter struct {
	domain   string
	sessions session.Directory
	handlers iqhandler.Registry
	routes   routingtable.RoutingTable
	logger   zerolog.Logger

	listenersMu sync.Mutex
	listeners   map[string]ResultListener

	routed   atomic.Uint64
	bounced  atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Uint64
}

// NewIQRouter creates a router for the given server domain
func NewIQRouter(domain string, sessions session.Directory, handlers iqhandler.Registry, routes routingtable.RoutingTable, logger zerolog.Logger) (*IQRouter, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, ErrEmptyDomain
	}
	if sessions == nil || handlers == nil || routes == nil {
		return nil, ErrMissingDependency
	}

	return &IQRouter{
		domain:    domain,
		sessions:  sessions,
		handlers:  handlers,
		routes:    routes,
		logger:    logger.With().Str("component", "IQRouter").Str("domain", domain).Logger(),
		listeners: make(map[string]ResultListener),
	}, nil
}

// Domain returns the server domain the router treats as local
func (r *IQRouter) Domain() string {
	return r.domain
}

// Stats returns a snapshot of the dispatch counters
func (r *IQRouter) Stats() Stats {
	return Stats{
		Routed:   r.routed.Load(),
		Bounced:  r.bounced.Load(),
		Dropped:  r.dropped.Load(),
		Failures: r.failures.Load(),
	}
}

// Route is the entry point for every inbound IQ.
//
// It returns nil once the IQ has been handed to a handler or route. Any other
// outcome has already been dealt with (a bounce sent, the stanza dropped or
// the session closed) and is described by the returned *DispatchError.
func (r *IQRouter) Route(ctx context.Context, iq *stanza.IQ) error {
	if iq == nil {
		r.dropped.Add(1)
		r.logger.Warn().Msg("Dropping nil IQ")
		return &DispatchError{Kind: MalformedStanza, Err: ErrNilIQ}
	}

	sess := r.originatingSession(iq)
	if sess != nil && sess.Status() != session.Authenticated && !r.isBootstrap(iq) {
		r.logger.Debug().
			Str("id", iq.ID).
			Str("stream", sess.StreamID()).
			Msg("Rejecting IQ from unauthenticated session")
		r.bounce(ctx, iq, stanza.ConditionUnauthorized)
		return &DispatchError{Kind: AuthorizationRequired, StanzaID: iq.ID, Err: ErrNotAuthenticated}
	}

	return r.dispatch(ctx, iq)
}

// isBootstrap reports whether an unauthenticated session may send iq:
// authentication and registration requests addressed to the server.
func (r *IQRouter) isBootstrap(iq *stanza.IQ) bool {
	if !r.isLocalTarget(iq.To) {
		return false
	}
	ns := iq.Namespace()
	return strings.EqualFold(ns, iqhandler.NamespaceAuth) || strings.EqualFold(ns, iqhandler.NamespaceRegister)
}

// isLocalTarget reports whether the server itself must answer an IQ sent to to.
// A bare user address counts as local so that the server answers on behalf
// of the account.
func (r *IQRouter) isLocalTarget(to *jid.JID) bool {
	switch {
	case to == nil:
		return true
	case to.Domain == "":
		return true
	case to.Node != "" && to.Resource == "":
		return true
	case to.Node == "" && to.Resource == "" && to.Domain == r.domain:
		return true
	default:
		return false
	}
}

func (r *IQRouter) dispatch(ctx context.Context, iq *stanza.IQ) error {
	if !r.isLocalTarget(iq.To) {
		route, err := r.resolveRoute(*iq.To)
		if err != nil {
			return r.fail(ctx, iq, err)
		}
		return r.process(ctx, iq, route)
	}

	if !iq.Type.IsRequest() {
		if listener, ok := r.takeResultListener(iq.ID); ok {
			return r.invoke(ctx, iq, func() error {
				listener.ReceivedAnswer(ctx, iq)
				return nil
			})
		}
	}

	ns := iq.Namespace()
	if ns == "" {
		r.dropped.Add(1)
		r.logger.Warn().
			Str("id", iq.ID).
			Str("from", addressOf(iq.From)).
			Str("type", string(iq.Type)).
			Msg("Dropping IQ without child namespace")
		return &DispatchError{Kind: MalformedStanza, StanzaID: iq.ID, Err: ErrMissingNamespace}
	}

	if handler, ok := r.handlers.Lookup(ns); ok {
		return r.invoke(ctx, iq, func() error {
			return handler.HandleIQ(ctx, iq)
		})
	}

	if iq.To == nil || iq.To.Node == "" {
		r.logger.Info().
			Str("id", iq.ID).
			Str("namespace", ns).
			Msg("No handler for namespace")
		r.bounce(ctx, iq, stanza.ConditionFeatureNotImplemented)
		return &DispatchError{Kind: UnknownNamespace, StanzaID: iq.ID, Err: fmt.Errorf("no handler for namespace %q", ns)}
	}

	route, err := r.resolveRoute(*iq.To)
	if err != nil {
		return r.fail(ctx, iq, err)
	}
	return r.process(ctx, iq, route)
}

// resolveRoute looks up the exact address and, for foreign domains, falls
// back to the domain route (a component or peer link).
func (r *IQRouter) resolveRoute(to jid.JID) (routingtable.Route, error) {
	route, err := r.routes.GetRoute(to)
	if err == nil {
		return route, nil
	}
	if to.Domain == r.domain || to.IsDomainOnly() {
		return nil, err
	}
	if domainRoute, domainErr := r.routes.GetRoute(jid.Domainpart(to.Domain)); domainErr == nil {
		return domainRoute, nil
	}
	return nil, err
}

func (r *IQRouter) process(ctx context.Context, iq *stanza.IQ, route routingtable.Route) error {
	return r.invoke(ctx, iq, func() error {
		return route.Process(ctx, iq)
	})
}

// invoke runs fn, turning panics into errors and errors into dispatch outcomes
func (r *IQRouter) invoke(ctx context.Context, iq *stanza.IQ, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = r.fail(ctx, iq, fmt.Errorf("%w: %v", ErrHandlerPanic, p))
		}
	}()

	if err := fn(); err != nil {
		return r.fail(ctx, iq, err)
	}
	r.routed.Add(1)
	r.logger.Debug().
		Str("id", iq.ID).
		Str("to", addressOf(iq.To)).
		Msg("IQ handed off")
	return nil
}

// fail handles a resolution or processing error. A missing route is bounced
// to the sender with service-unavailable; anything else closes the sender's
// session.
func (r *IQRouter) fail(ctx context.Context, iq *stanza.IQ, err error) error {
	if errors.Is(err, routingtable.ErrNoRouteFound) {
		r.logger.Info().
			Str("id", iq.ID).
			Str("from", addressOf(iq.From)).
			Str("to", addressOf(iq.To)).
			Err(err).
			Msg("No route for IQ")
		r.bounce(ctx, iq, stanza.ConditionServiceUnavailable)
		return &DispatchError{Kind: NoRouteFound, StanzaID: iq.ID, Err: err}
	}

	r.failures.Add(1)
	r.logger.Error().
		Str("id", iq.ID).
		Str("from", addressOf(iq.From)).
		Str("to", addressOf(iq.To)).
		Str("namespace", iq.Namespace()).
		Err(err).
		Msg("Could not route IQ")

	if sess := r.originatingSession(iq); sess != nil {
		if closeErr := sess.Close(); closeErr != nil {
			r.logger.Warn().Str("stream", sess.StreamID()).Err(closeErr).Msg("Failed to close session")
		}
	}
	return &DispatchError{Kind: UnexpectedFailure, StanzaID: iq.ID, Err: err}
}

// bounce sends an error reply for iq to the session that sent it.
// Results and errors are never answered.
func (r *IQRouter) bounce(ctx context.Context, iq *stanza.IQ, condition stanza.Condition) {
	if !iq.Type.IsRequest() {
		r.dropped.Add(1)
		r.logger.Debug().
			Str("id", iq.ID).
			Str("type", string(iq.Type)).
			Str("condition", string(condition)).
			Msg("Not answering non-request IQ with an error")
		return
	}

	sess := r.originatingSession(iq)
	if sess == nil || sess.Status() == session.Closed {
		r.dropped.Add(1)
		r.logger.Warn().
			Str("id", iq.ID).
			Str("from", addressOf(iq.From)).
			Str("condition", string(condition)).
			Msg("Error reply undeliverable, sender has no live session")
		return
	}

	if err := sess.Deliver(ctx, iq.ErrorReply(condition)); err != nil {
		r.dropped.Add(1)
		r.logger.Warn().
			Str("id", iq.ID).
			Str("stream", sess.StreamID()).
			Str("condition", string(condition)).
			Err(err).
			Msg("Error reply undeliverable")
		return
	}
	r.bounced.Add(1)
}

func (r *IQRouter) originatingSession(iq *stanza.IQ) session.Session {
	if iq.From == nil {
		return nil
	}
	sess, ok := r.sessions.Session(*iq.From)
	if !ok {
		return nil
	}
	return sess
}

func addressOf(address *jid.JID) string {
	if address == nil {
		return ""
	}
	return address.String()
}
