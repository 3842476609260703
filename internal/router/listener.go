package router

import (
	"context"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

// ResultListener receives the answer to an IQ the server sent itself
type ResultListener interface {
	ReceivedAnswer(ctx context.Context, iq *stanza.IQ)
}

// ResultListenerFunc adapts a function to ResultListener
type ResultListenerFunc func(ctx context.Context, iq *stanza.IQ)

// ReceivedAnswer calls f(ctx, iq)
func (f ResultListenerFunc) ReceivedAnswer(ctx context.Context, iq *stanza.IQ) {
	f(ctx, iq)
}

// AddResultListener registers a one-shot listener for the result or error IQ
// answering the request with the given id. A listener already registered
// for id is replaced.
func (r *IQRouter) AddResultListener(id string, listener ResultListener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners[id] = listener
}

// RemoveResultListener drops the listener for id, if any
func (r *IQRouter) RemoveResultListener(id string) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	delete(r.listeners, id)
}

// takeResultListener removes and returns the listener for id
func (r *IQRouter) takeResultListener(id string) (ResultListener, bool) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	listener, ok := r.listeners[id]
	if ok {
		delete(r.listeners, id)
	}
	return listener, ok
}
