package client

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/plankhq/plank/internal/realtime"
)

// ScopeState is the per-scope subscription lifecycle.
type ScopeState int

const (
	ScopeUnsubscribed ScopeState = iota
	ScopeConnecting
	ScopeSubscribed
)

// Transport is one live scope connection. The registry, not the consumers,
// owns its lifetime.
type Transport interface {
	Close() error
}

// TransportFactory opens the underlying connection for a scope. onEvent is
// invoked for every received event; onRefetch signals that a reconnect
// happened and the scope needs a full-state refresh.
type TransportFactory func(scope string, onEvent func(*realtime.ChangeEvent), onRefetch func()) (Transport, error)

// Registry is the process-wide table of active scope subscriptions. Multiple
// independent consumers share one underlying connection per scope via
// reference counting; a consumer re-subscribing under the same HandlerSet
// identity replaces its prior set instead of double-registering it.
type Registry struct {
	cfg  Config
	dial TransportFactory
	log  zerolog.Logger

	mu     sync.Mutex
	scopes map[string]*scopeSub
}

type scopeSub struct {
	state     ScopeState
	dialing   bool
	session   *session
	transport Transport
	consumers []*consumerSlot
}

type consumerSlot struct {
	identity string
	gen      uint64
	set      *HandlerSet
}

func NewRegistry(cfg Config, dial TransportFactory, log zerolog.Logger) *Registry {
	return &Registry{
		cfg:    cfg,
		dial:   dial,
		log:    log.With().Str("component", "registry").Logger(),
		scopes: make(map[string]*scopeSub),
	}
}

// Subscribe attaches a consumer's HandlerSet to a scope and returns a
// cleanup func. The transport opens only on the scope's first consumer and
// closes only when the last one leaves. Re-subscribing with the same
// identity swaps the HandlerSet; the superseded cleanup becomes a no-op, so
// exactly one handler fires per event, never zero and never two.
func (r *Registry) Subscribe(scope string, hs *HandlerSet) (func(), error) {
	if hs == nil {
		return nil, fmt.Errorf("registry.Subscribe: nil handler set")
	}

	r.mu.Lock()

	sub, ok := r.scopes[scope]
	if !ok {
		sub = &scopeSub{state: ScopeConnecting}
		sub.session = newSession(scope, r.cfg, func(entity realtime.EntityType, rec realtime.Record, meta Meta) {
			r.dispatch(scope, entity, rec, meta)
		}, r.log)
		r.scopes[scope] = sub
	}

	var slot *consumerSlot
	for _, s := range sub.consumers {
		if s.identity == hs.Identity() {
			slot = s
			break
		}
	}
	if slot != nil {
		slot.set = hs
		slot.gen++
	} else {
		slot = &consumerSlot{identity: hs.Identity(), gen: 1, set: hs}
		sub.consumers = append(sub.consumers, slot)
	}
	gen := slot.gen

	// Exactly one caller performs the 0->1 dial; concurrent subscribers
	// arriving while it is in flight attach to the same pending transport.
	needDial := sub.transport == nil && !sub.dialing
	if needDial {
		sub.dialing = true
	}
	session := sub.session
	r.mu.Unlock()

	if needDial {
		transport, err := r.dial(scope, session.ingest, func() {
			if r.cfg.OnRefetch != nil {
				r.cfg.OnRefetch(scope)
			}
		})
		if err != nil {
			r.abandon(scope)
			return nil, fmt.Errorf("registry.Subscribe: %w", err)
		}

		r.mu.Lock()
		if cur, still := r.scopes[scope]; still && cur == sub {
			sub.dialing = false
			sub.transport = transport
			sub.state = ScopeSubscribed
			r.mu.Unlock()
		} else {
			// Every consumer left while we were dialing.
			r.mu.Unlock()
			_ = transport.Close()
		}
	}

	identity := hs.Identity()
	return func() { r.unsubscribe(scope, identity, gen) }, nil
}

// unsubscribe removes one consumer slot; the transport is torn down only on
// the last-consumer transition, never while other handler sets remain.
func (r *Registry) unsubscribe(scope, identity string, gen uint64) {
	r.mu.Lock()

	sub, ok := r.scopes[scope]
	if !ok {
		r.mu.Unlock()
		return
	}

	for i, slot := range sub.consumers {
		if slot.identity != identity {
			continue
		}
		if slot.gen != gen {
			// This cleanup was superseded by a re-subscribe; the fresh
			// registration owns the slot now.
			r.mu.Unlock()
			return
		}
		sub.consumers = append(sub.consumers[:i], sub.consumers[i+1:]...)
		break
	}

	if len(sub.consumers) > 0 {
		r.mu.Unlock()
		return
	}

	delete(r.scopes, scope)
	transport := sub.transport
	session := sub.session
	r.mu.Unlock()

	if transport != nil {
		_ = transport.Close()
	}
	// Flush buffered events synchronously before the pipeline goes away.
	session.close()
}

func (r *Registry) abandon(scope string) {
	r.mu.Lock()
	sub, ok := r.scopes[scope]
	if ok {
		delete(r.scopes, scope)
	}
	r.mu.Unlock()

	if ok {
		sub.session.close()
	}
}

// dispatch snapshots the consumer list before iterating, so a handler that
// subscribes or unsubscribes during dispatch cannot corrupt the in-progress
// iteration.
func (r *Registry) dispatch(scope string, entity realtime.EntityType, rec realtime.Record, meta Meta) {
	r.mu.Lock()
	sub, ok := r.scopes[scope]
	if !ok {
		r.mu.Unlock()
		return
	}
	snapshot := make([]*HandlerSet, len(sub.consumers))
	for i, slot := range sub.consumers {
		snapshot[i] = slot.set
	}
	r.mu.Unlock()

	for _, hs := range snapshot {
		hs.invoke(entity, rec, meta)
	}
}

// State returns the local replica for a subscribed scope, or nil.
func (r *Registry) State(scope string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.scopes[scope]; ok {
		return sub.session.state
	}
	return nil
}

// ScopeState reports the lifecycle state of a scope.
func (r *Registry) ScopeState(scope string) ScopeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.scopes[scope]; ok {
		return sub.state
	}
	return ScopeUnsubscribed
}

func (r *Registry) sessionFor(scope string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.scopes[scope]; ok {
		return sub.session
	}
	return nil
}

// Close tears down every scope.
func (r *Registry) Close() {
	r.mu.Lock()
	subs := make([]*scopeSub, 0, len(r.scopes))
	for scope, sub := range r.scopes {
		subs = append(subs, sub)
		delete(r.scopes, scope)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		if sub.transport != nil {
			_ = sub.transport.Close()
		}
		sub.session.close()
	}
}
