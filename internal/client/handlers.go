package client

import (
	"sync"

	"github.com/plankhq/plank/internal/realtime"
)

// Meta accompanies every handler invocation.
type Meta struct {
	Op       realtime.Operation
	Previous realtime.Record
}

// Handler receives the reconciled record for one entity change.
type Handler func(rec realtime.Record, meta Meta)

// HandlerSet is a consumer's bundle of per-entity callbacks with a stable
// identity. The identity is the replacement key: when a consumer's
// dependencies change it re-subscribes under the same identity, and the
// registry swaps the old set for the new one instead of accumulating both.
// Contents are swappable in place (slot pattern), so a stale reference held
// during dispatch still resolves to the current callbacks.
type HandlerSet struct {
	identity string

	mu       sync.RWMutex
	handlers map[realtime.EntityType]Handler
}

func NewHandlerSet(identity string) *HandlerSet {
	return &HandlerSet{
		identity: identity,
		handlers: make(map[realtime.EntityType]Handler),
	}
}

func (hs *HandlerSet) Identity() string { return hs.identity }

// On registers (or replaces) the callback for one entity type. Chainable.
func (hs *HandlerSet) On(entity realtime.EntityType, fn Handler) *HandlerSet {
	hs.mu.Lock()
	hs.handlers[entity] = fn
	hs.mu.Unlock()
	return hs
}

// ReplaceAll swaps the entire callback table atomically.
func (hs *HandlerSet) ReplaceAll(handlers map[realtime.EntityType]Handler) {
	next := make(map[realtime.EntityType]Handler, len(handlers))
	for k, v := range handlers {
		next[k] = v
	}
	hs.mu.Lock()
	hs.handlers = next
	hs.mu.Unlock()
}

func (hs *HandlerSet) invoke(entity realtime.EntityType, rec realtime.Record, meta Meta) {
	hs.mu.RLock()
	fn := hs.handlers[entity]
	hs.mu.RUnlock()

	if fn != nil {
		fn(rec, meta)
	}
}
