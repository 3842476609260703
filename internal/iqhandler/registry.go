package iqhandler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/rmacdonaldsmith/xmppcore-go/pkg/iqhandler"
)

// DefaultCacheSize bounds the namespace cache
const DefaultCacheSize = 256

var (
	// ErrNilHandler is returned when registering a nil handler
	ErrNilHandler = errors.New("handler cannot be nil")
	// ErrEmptyNamespace is returned when a handler declares no namespace
	ErrEmptyNamespace = errors.New("handler namespace cannot be empty")
)

// HandlerRegistry keeps handlers in registration order and caches namespace lookups.
//
// The cache is filled lazily. Two goroutines missing the cache for the same
// namespace both scan the list and store the same handler.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers []iqhandler.Handler
	cache    *lru.Cache
}

// NewHandlerRegistry creates an empty registry with a cache of cacheSize
// namespaces (DefaultCacheSize when cacheSize <= 0).
func NewHandlerRegistry(cacheSize int) (*HandlerRegistry, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create namespace cache: %w", err)
	}
	return &HandlerRegistry{cache: cache}, nil
}

// AddHandler appends a handler to the ordered list
func (r *HandlerRegistry) AddHandler(handler iqhandler.Handler) error {
	if handler == nil {
		return ErrNilHandler
	}
	if handler.Namespace() == "" {
		return ErrEmptyNamespace
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = append(r.handlers, handler)
	// a cached miss or an earlier handler choice may be stale now
	r.cache.Purge()
	return nil
}

// RemoveHandler removes every handler declaring namespace and returns how many were removed
func (r *HandlerRegistry) RemoveHandler(namespace string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.handlers[:0]
	removed := 0
	for _, h := range r.handlers {
		if strings.EqualFold(h.Namespace(), namespace) {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	for i := len(kept); i < len(r.handlers); i++ {
		r.handlers[i] = nil
	}
	r.handlers = kept
	r.cache.Purge()
	return removed
}

// Lookup returns the first handler declaring namespace, ignoring case
func (r *HandlerRegistry) Lookup(namespace string) (iqhandler.Handler, bool) {
	if namespace == "" {
		return nil, false
	}
	key := strings.ToLower(namespace)

	if cached, ok := r.cache.Get(key); ok {
		return cached.(iqhandler.Handler), true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.handlers {
		if strings.EqualFold(h.Namespace(), namespace) {
			r.cache.Add(key, h)
			return h, true
		}
	}
	return nil, false
}

// Handlers returns the handlers in registration order
func (r *HandlerRegistry) Handlers() []iqhandler.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]iqhandler.Handler(nil), r.handlers...)
}

// Namespaces returns the distinct namespaces served, in registration order
func (r *HandlerRegistry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.handlers))
	namespaces := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		ns := h.Namespace()
		if _, ok := seen[ns]; ok {
			continue
		}
		seen[ns] = struct{}{}
		namespaces = append(namespaces, ns)
	}
	return namespaces
}

// Verify that HandlerRegistry implements the Registry interface at compile time
var _ iqhandler.Registry = (*HandlerRegistry)(nil)
