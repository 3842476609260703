package iqhandler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/iqhandler"
	"github.com/rmacdonaldsmith/xmppcore-go/pkg/stanza"
)

type stubHandler struct {
	namespace string
	name      string
}

func (h *stubHandler) Namespace() string { return h.namespace }

func (h *stubHandler) HandleIQ(ctx context.Context, iq *stanza.IQ) error { return nil }

func newRegistry(t *testing.T) *HandlerRegistry {
	t.Helper()
	registry, err := NewHandlerRegistry(0)
	require.NoError(t, err)
	return registry
}

func TestHandlerRegistry_Lookup(t *testing.T) {
	registry := newRegistry(t)
	ping := &stubHandler{namespace: iqhandler.NamespacePing}
	version := &stubHandler{namespace: iqhandler.NamespaceVersion}

	require.NoError(t, registry.AddHandler(ping))
	require.NoError(t, registry.AddHandler(version))

	got, ok := registry.Lookup(iqhandler.NamespacePing)
	require.True(t, ok)
	assert.Same(t, ping, got)

	got, ok = registry.Lookup("JABBER:IQ:VERSION")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Same(t, version, got)

	_, ok = registry.Lookup("urn:example:unknown")
	assert.False(t, ok)

	_, ok = registry.Lookup("")
	assert.False(t, ok)
}

func TestHandlerRegistry_FirstRegisteredWins(t *testing.T) {
	registry := newRegistry(t)
	first := &stubHandler{namespace: "urn:example:dup", name: "first"}
	second := &stubHandler{namespace: "urn:example:dup", name: "second"}

	require.NoError(t, registry.AddHandler(first))
	require.NoError(t, registry.AddHandler(second))

	for i := 0; i < 3; i++ {
		got, ok := registry.Lookup("urn:example:dup")
		require.True(t, ok)
		assert.Same(t, first, got)
	}
	assert.Equal(t, []string{"urn:example:dup"}, registry.Namespaces())
}

func TestHandlerRegistry_AddInvalidatesCachedMiss(t *testing.T) {
	registry := newRegistry(t)

	_, ok := registry.Lookup(iqhandler.NamespaceTime)
	require.False(t, ok)

	timeHandler := &stubHandler{namespace: iqhandler.NamespaceTime}
	require.NoError(t, registry.AddHandler(timeHandler))

	got, ok := registry.Lookup(iqhandler.NamespaceTime)
	require.True(t, ok)
	assert.Same(t, timeHandler, got)
}

func TestHandlerRegistry_RemoveHandler(t *testing.T) {
	registry := newRegistry(t)
	ping := &stubHandler{namespace: iqhandler.NamespacePing}
	require.NoError(t, registry.AddHandler(ping))
	require.NoError(t, registry.AddHandler(&stubHandler{namespace: iqhandler.NamespaceVersion}))

	// warm the cache
	_, ok := registry.Lookup(iqhandler.NamespacePing)
	require.True(t, ok)

	assert.Equal(t, 1, registry.RemoveHandler("URN:XMPP:PING"))

	_, ok = registry.Lookup(iqhandler.NamespacePing)
	assert.False(t, ok, "removed handler must not be served from the cache")
	assert.Len(t, registry.Handlers(), 1)
	assert.Equal(t, 0, registry.RemoveHandler(iqhandler.NamespacePing))
}

func TestHandlerRegistry_InvalidHandlers(t *testing.T) {
	registry := newRegistry(t)
	assert.ErrorIs(t, registry.AddHandler(nil), ErrNilHandler)
	assert.ErrorIs(t, registry.AddHandler(&stubHandler{}), ErrEmptyNamespace)
}

func TestHandlerRegistry_HandlersPreservesOrder(t *testing.T) {
	registry := newRegistry(t)
	namespaces := []string{"urn:a", "urn:b", "urn:c"}
	for _, ns := range namespaces {
		require.NoError(t, registry.AddHandler(&stubHandler{namespace: ns}))
	}

	handlers := registry.Handlers()
	require.Len(t, handlers, 3)
	for i, h := range handlers {
		assert.Equal(t, namespaces[i], h.Namespace())
	}
}

func TestHandlerRegistry_ConcurrentLookup(t *testing.T) {
	registry, err := NewHandlerRegistry(2)
	require.NoError(t, err)

	handlers := map[string]*stubHandler{}
	for _, ns := range []string{"urn:a", "urn:b", "urn:c", "urn:d"} {
		h := &stubHandler{namespace: ns}
		handlers[ns] = h
		require.NoError(t, registry.AddHandler(h))
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				for ns, expected := range handlers {
					got, ok := registry.Lookup(ns)
					if !ok || got != iqhandler.Handler(expected) {
						t.Errorf("lookup of %s returned %v", ns, got)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
