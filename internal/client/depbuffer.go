package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plankhq/plank/internal/realtime"
)

// DependencyBuffer holds events whose structurally required parent entity is
// not yet present locally (a card event naming an unknown column), keyed by
// the missing parent id. It is a passive expiring queue: the owning session
// drives both the TTL sweep and the replay triggers, so termination stays
// obviously bounded instead of hiding in retry callbacks.
type DependencyBuffer struct {
	ttl time.Duration
	log zerolog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID][]bufferedEvent
}

type bufferedEvent struct {
	event      *realtime.ChangeEvent
	enqueuedAt time.Time
}

func NewDependencyBuffer(ttl time.Duration, log zerolog.Logger) *DependencyBuffer {
	return &DependencyBuffer{
		ttl:     ttl,
		log:     log.With().Str("component", "depbuffer").Logger(),
		entries: make(map[uuid.UUID][]bufferedEvent),
	}
}

// Hold enqueues an event under the parent id it is waiting for.
func (b *DependencyBuffer) Hold(parentID uuid.UUID, ev *realtime.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[parentID] = append(b.entries[parentID], bufferedEvent{event: ev, enqueuedAt: time.Now()})
}

// Take removes and returns all events waiting on the parent, in original
// enqueue order.
func (b *DependencyBuffer) Take(parentID uuid.UUID) []*realtime.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	held, ok := b.entries[parentID]
	if !ok {
		return nil
	}
	delete(b.entries, parentID)

	out := make([]*realtime.ChangeEvent, len(held))
	for i, be := range held {
		out[i] = be.event
	}
	return out
}

// Parents returns the ids currently being waited on.
func (b *DependencyBuffer) Parents() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]uuid.UUID, 0, len(b.entries))
	for id := range b.entries {
		out = append(out, id)
	}
	return out
}

// Len reports the total number of buffered events.
func (b *DependencyBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, held := range b.entries {
		n += len(held)
	}
	return n
}

// Sweep drops entries older than the TTL with a diagnostic log and returns
// how many were dropped. An indefinitely missing parent means either a race
// the full-refetch fallback will resolve, or a genuinely orphaned event;
// neither is worth retrying forever.
func (b *DependencyBuffer) Sweep(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-b.ttl)
	dropped := 0
	for parentID, held := range b.entries {
		kept := held[:0]
		for _, be := range held {
			if be.enqueuedAt.Before(cutoff) {
				dropped++
				b.log.Warn().
					Str("parent", parentID.String()).
					Str("entity", string(be.event.Entity)).
					Str("op", string(be.event.Op)).
					Msg("buffered event expired waiting for parent")
				continue
			}
			kept = append(kept, be)
		}
		if len(kept) == 0 {
			delete(b.entries, parentID)
		} else {
			b.entries[parentID] = kept
		}
	}
	return dropped
}
