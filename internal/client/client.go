package client

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plankhq/plank/internal/realtime"
)

// Config tunes the client engine. Zero values fall back to defaults that
// match the server's expectations; the tolerance and TTL constants are
// deliberately configuration, not magic numbers, because timestamp-based
// conflict resolution is best-effort.
type Config struct {
	// URL is the server's WebSocket endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// Token is the JWT presented at the connection handshake.
	Token string

	// FlushDelays overrides the per-entity-type batch flush delay.
	FlushDelays map[realtime.EntityType]time.Duration
	// DefaultFlushDelay applies to entity types without an override.
	DefaultFlushDelay time.Duration
	// MaxBatch flushes a bucket immediately once this many distinct entities
	// are buffered.
	MaxBatch int

	// DependencyTTL bounds how long an event waits for its missing parent.
	DependencyTTL time.Duration
	// DependencySweep is the buffer re-evaluation interval.
	DependencySweep time.Duration

	// PendingTimeout expires unconfirmed optimistic updates.
	PendingTimeout time.Duration
	// Tolerance absorbs clock skew in timestamp comparison.
	Tolerance time.Duration
	// BatchGrace is the straggler window for bulk-operation echoes.
	BatchGrace time.Duration

	// OnRefetch is invoked with a scope id whenever the engine has missed
	// state (reconnect, expired optimistic update) and the application
	// should refetch through the normal read path.
	OnRefetch func(scope string)

	// Dial overrides the transport; defaults to the WebSocket transport.
	Dial TransportFactory

	Logger zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.FlushDelays == nil {
		c.FlushDelays = map[realtime.EntityType]time.Duration{
			realtime.EntityCard:    20 * time.Millisecond,
			realtime.EntityColumn:  20 * time.Millisecond,
			realtime.EntityLabel:   50 * time.Millisecond,
			realtime.EntitySubtask: 50 * time.Millisecond,
			realtime.EntityBoard:   250 * time.Millisecond,
			realtime.EntityMember:  250 * time.Millisecond,
		}
	}
	if c.DefaultFlushDelay <= 0 {
		c.DefaultFlushDelay = 50 * time.Millisecond
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 64
	}
	if c.DependencyTTL <= 0 {
		c.DependencyTTL = 5 * time.Second
	}
	if c.DependencySweep <= 0 {
		c.DependencySweep = 500 * time.Millisecond
	}
	if c.PendingTimeout <= 0 {
		c.PendingTimeout = 10 * time.Second
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 1500 * time.Millisecond
	}
	if c.BatchGrace <= 0 {
		c.BatchGrace = 400 * time.Millisecond
	}
	return c
}

// Client is the application-facing entry point: an explicitly-owned engine
// instance with lifecycle tied to the application, not ambient package
// state.
type Client struct {
	cfg      Config
	log      zerolog.Logger
	registry *Registry
}

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()

	dial := cfg.Dial
	if dial == nil {
		dial = DialWebSocket(cfg.URL, cfg.Token, cfg.Logger)
	}

	return &Client{
		cfg:      cfg,
		log:      cfg.Logger,
		registry: NewRegistry(cfg, dial, cfg.Logger),
	}
}

// Subscribe attaches a HandlerSet to a scope. See Registry.Subscribe.
func (c *Client) Subscribe(scope string, hs *HandlerSet) (func(), error) {
	return c.registry.Subscribe(scope, hs)
}

// State returns the local replica for a subscribed scope, nil otherwise.
func (c *Client) State(scope string) *State {
	return c.registry.State(scope)
}

// ScopeState reports a scope's subscription lifecycle state.
func (c *Client) ScopeState(scope string) ScopeState {
	return c.registry.ScopeState(scope)
}

// ApplyOptimistic applies a local mutation before server confirmation: the
// partial record (which must carry its identity) is merged into local state
// immediately and tracked until a matching or superseding event arrives, or
// until the pending timeout signals a refetch.
func (c *Client) ApplyOptimistic(scope string, entity realtime.EntityType, partial realtime.Record) error {
	key, ok := partial.Key()
	if !ok {
		return fmt.Errorf("client.ApplyOptimistic: record has no identity")
	}

	s := c.registry.sessionFor(scope)
	if s == nil {
		return fmt.Errorf("client.ApplyOptimistic: not subscribed to %s", scope)
	}

	s.state.Set(entity, partial)
	s.recon.TrackOptimistic(key, partial, time.Now().UTC())
	return nil
}

// TrackBatch registers a client-issued bulk mutation (e.g. one color applied
// to many cards) so its echo events are released as a single unit.
func (c *Client) TrackBatch(scope, field string, value any, ids []uuid.UUID) error {
	s := c.registry.sessionFor(scope)
	if s == nil {
		return fmt.Errorf("client.TrackBatch: not subscribed to %s", scope)
	}
	s.recon.TrackBatch(field, value, ids, time.Now().UTC())
	return nil
}

// Hydrate seeds a scope's local replica from a full-state fetch, the
// backstop recovery path after reconnects and missed updates.
func (c *Client) Hydrate(scope string, entity realtime.EntityType, records []realtime.Record) error {
	s := c.registry.sessionFor(scope)
	if s == nil {
		return fmt.Errorf("client.Hydrate: not subscribed to %s", scope)
	}
	for _, rec := range records {
		s.state.Set(entity, rec)
	}
	return nil
}

// Close tears down every subscription and flushes buffered events.
func (c *Client) Close() {
	c.registry.Close()
}
