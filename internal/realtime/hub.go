package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Broker is the cross-node fanout backend. *redis.PubSub satisfies it; a nil
// Broker means single-node operation.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	PSubscribe(ctx context.Context, patterns ...string) (<-chan BrokerMessage, func(), error)
}

// BrokerMessage is one message received from a pattern subscription.
type BrokerMessage struct {
	Channel string
	Payload []byte
}

// sendBuffer is the per-connection outbound queue depth. Delivery is
// fire-and-forget: a connection that cannot drain its queue loses events and
// recovers through the client's full-refetch backstop.
const sendBuffer = 256

// Conn is one live, authenticated connection registered with the Hub.
type Conn struct {
	ID     uuid.UUID
	UserID uuid.UUID

	send chan []byte
}

// Send returns the channel the transport writer drains.
func (c *Conn) Send() <-chan []byte { return c.send }

// Hub maintains live connections and their scope memberships, and fans
// published events out to every connection subscribed to a matching scope.
// Authorization is decided before a scope subscription reaches the Hub.
type Hub struct {
	nodeID uuid.UUID
	broker Broker
	log    zerolog.Logger

	mu     sync.RWMutex
	conns  map[uuid.UUID]*Conn
	scopes map[string]map[uuid.UUID]*Conn
}

func NewHub(broker Broker, log zerolog.Logger) *Hub {
	return &Hub{
		nodeID: uuid.New(),
		broker: broker,
		log:    log.With().Str("component", "hub").Logger(),
		conns:  make(map[uuid.UUID]*Conn),
		scopes: make(map[string]map[uuid.UUID]*Conn),
	}
}

// Run consumes scope channels published by other nodes until ctx is done.
// Events this node published are filtered out by origin. No-op without a
// broker.
func (h *Hub) Run(ctx context.Context) error {
	if h.broker == nil {
		<-ctx.Done()
		return nil
	}

	messages, cleanup, err := h.broker.PSubscribe(ctx, "workspace:*", "board:*")
	if err != nil {
		return fmt.Errorf("hub.Run: %w", err)
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				h.log.Warn().Err(err).Str("channel", msg.Channel).Msg("malformed envelope from broker")
				continue
			}
			if env.Origin == h.nodeID {
				continue
			}
			h.deliverLocal(env.Scope, msg.Payload)
		}
	}
}

// Register adds an authenticated connection. Identity is fixed at handshake;
// later subscription changes do not re-authenticate.
func (h *Hub) Register(userID uuid.UUID) *Conn {
	c := &Conn{
		ID:     uuid.New(),
		UserID: userID,
		send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()

	return c
}

// Unregister removes a connection and its scope memberships.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c.ID)
	for scope, members := range h.scopes {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.scopes, scope)
		}
	}
}

// Subscribe adds the connection to a scope's delivery set.
func (h *Hub) Subscribe(c *Conn, scope string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.scopes[scope]
	if !ok {
		members = make(map[uuid.UUID]*Conn)
		h.scopes[scope] = members
	}
	members[c.ID] = c
}

// Unsubscribe removes the connection from a scope's delivery set. A scope
// left with zero subscribers is plain map cleanup, nothing more; subscription
// bookkeeping is client-driven.
func (h *Hub) Unsubscribe(c *Conn, scope string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.scopes[scope]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.scopes, scope)
		}
	}
}

// Publish delivers an event to every local connection subscribed to the
// scope and forwards it to the broker for other nodes. Fire-and-forget: no
// acknowledgement, no retry.
func (h *Hub) Publish(ctx context.Context, scope string, ev *ChangeEvent) {
	payload, err := json.Marshal(Envelope{Origin: h.nodeID, Scope: scope, Event: ev})
	if err != nil {
		h.log.Error().Err(err).Str("scope", scope).Msg("marshal envelope")
		return
	}

	h.deliverLocal(scope, payload)

	if h.broker != nil {
		if err := h.broker.Publish(ctx, scope, payload); err != nil {
			h.log.Warn().Err(err).Str("scope", scope).Msg("broker publish failed")
		}
	}
}

// deliverLocal sends to a snapshot of the scope's subscriber set, so a
// subscriber joining or leaving mid-publish never sees a partial or
// duplicated delivery for the in-flight event.
func (h *Hub) deliverLocal(scope string, payload []byte) {
	h.mu.RLock()
	members := h.scopes[scope]
	snapshot := make([]*Conn, 0, len(members))
	for _, c := range members {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		select {
		case c.send <- payload:
		default:
			h.log.Warn().
				Str("scope", scope).
				Str("conn", c.ID.String()).
				Msg("send buffer full, dropping event")
		}
	}
}
