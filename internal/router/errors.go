package router

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the outcome of a failed dispatch
type ErrorKind int

const (
	// AuthorizationRequired means an unauthenticated session sent a stanza outside the bootstrap exception
	AuthorizationRequired ErrorKind = iota + 1
	// NoRouteFound means no route exists for the target address
	NoRouteFound
	// UnknownNamespace means no handler serves the child namespace of a server-addressed IQ
	UnknownNamespace
	// MalformedStanza means the IQ lacked the parts needed to dispatch it
	MalformedStanza
	// UnexpectedFailure covers every other handler or route failure
	UnexpectedFailure
)

func (k ErrorKind) String() string {
	switch k {
	case AuthorizationRequired:
		return "authorization-required"
	case NoRouteFound:
		return "no-route-found"
	case UnknownNamespace:
		return "unknown-namespace"
	case MalformedStanza:
		return "malformed-stanza"
	case UnexpectedFailure:
		return "unexpected-failure"
	default:
		return "unknown"
	}
}

var (
	// ErrMissingNamespace is the cause of a MalformedStanza for an IQ without child namespace
	ErrMissingNamespace = errors.New("iq has no child namespace")
	// ErrNilIQ is the cause of a MalformedStanza for a nil IQ
	ErrNilIQ = errors.New("iq cannot be nil")
	// ErrNotAuthenticated is the cause of an AuthorizationRequired outcome
	ErrNotAuthenticated = errors.New("session is not authenticated")
	// ErrHandlerPanic wraps a recovered handler or route panic
	ErrHandlerPanic = errors.New("handler panicked")
)

// DispatchError describes a dispatch outcome that has already been handled:
// the bounce was sent or the stanza was dropped and logged.
type DispatchError struct {
	Kind     ErrorKind
	StanzaID string
	Err      error
}

func (e *DispatchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dispatch of %q failed: %s", e.StanzaID, e.Kind)
	}
	return fmt.Sprintf("dispatch of %q failed: %s: %v", e.StanzaID, e.Kind, e.Err)
}

// Unwrap returns the underlying cause
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a *DispatchError anywhere in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr.Kind
	}
	return 0
}
