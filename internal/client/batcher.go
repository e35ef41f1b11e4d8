package client

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/plankhq/plank/internal/realtime"
)

// BatcherConfig tunes flush behavior per entity type. High-frequency
// entities (cards, columns) flush on a sub-frame delay; low-frequency ones
// (members, boards) can wait longer and coalesce more.
type BatcherConfig struct {
	Delays       map[realtime.EntityType]time.Duration
	DefaultDelay time.Duration
	MaxBatch     int
}

// batchAbsorber is the Batcher's view of the Reconciler's batch-operation
// tracking: events matching an in-flight bulk mutation bypass the normal
// dedup path and release together as one unit.
type batchAbsorber interface {
	AbsorbBatched(ev *realtime.ChangeEvent) bool
}

// Batcher buffers bursts of events per entity type, collapsing repeated
// events for the same entity id to the latest state, and flushes on a delay
// or size threshold.
type Batcher struct {
	cfg      BatcherConfig
	absorber batchAbsorber
	flush    func(events []*realtime.ChangeEvent)
	log      zerolog.Logger

	mu      sync.Mutex
	buckets map[realtime.EntityType]*bucket
	closed  bool
}

type bucket struct {
	order []string
	byKey map[string]*realtime.ChangeEvent
	timer *time.Timer
}

// NewBatcher creates a Batcher. absorber may be nil; flush receives each
// deduplicated set and must tolerate being called from a timer goroutine.
func NewBatcher(cfg BatcherConfig, absorber batchAbsorber, flush func([]*realtime.ChangeEvent), log zerolog.Logger) *Batcher {
	return &Batcher{
		cfg:      cfg,
		absorber: absorber,
		flush:    flush,
		log:      log.With().Str("component", "batcher").Logger(),
		buckets:  make(map[realtime.EntityType]*bucket),
	}
}

// Offer enqueues one event. Later events for the same entity id overwrite
// earlier buffered ones (latest wins). Events recognized as echoes of an
// in-flight batch operation are absorbed and released by that path instead.
func (b *Batcher) Offer(ev *realtime.ChangeEvent) {
	if b.absorber != nil && b.absorber.AbsorbBatched(ev) {
		return
	}

	key, ok := ev.Current().Key()
	if !ok {
		// No identity to dedup on; pass straight through.
		b.flush([]*realtime.ChangeEvent{ev})
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.flush([]*realtime.ChangeEvent{ev})
		return
	}

	bk, exists := b.buckets[ev.Entity]
	if !exists {
		bk = &bucket{byKey: make(map[string]*realtime.ChangeEvent)}
		b.buckets[ev.Entity] = bk
	}

	if _, seen := bk.byKey[key]; !seen {
		bk.order = append(bk.order, key)
	}
	bk.byKey[key] = ev

	if b.cfg.MaxBatch > 0 && len(bk.order) >= b.cfg.MaxBatch {
		events := b.drainLocked(ev.Entity)
		b.mu.Unlock()
		b.flush(events)
		return
	}

	if bk.timer == nil {
		entity := ev.Entity
		bk.timer = time.AfterFunc(b.delayFor(entity), func() { b.flushEntity(entity) })
	}
	b.mu.Unlock()
}

// Flush synchronously drains every bucket. Called on teardown so the last
// buffered event for an entity is delivered rather than discarded.
func (b *Batcher) Flush() {
	b.mu.Lock()
	var all [][]*realtime.ChangeEvent
	for entity := range b.buckets {
		if events := b.drainLocked(entity); len(events) > 0 {
			all = append(all, events)
		}
	}
	b.mu.Unlock()

	for _, events := range all {
		b.flush(events)
	}
}

// Close flushes outstanding events and rejects further buffering.
func (b *Batcher) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.Flush()
}

func (b *Batcher) flushEntity(entity realtime.EntityType) {
	b.mu.Lock()
	events := b.drainLocked(entity)
	b.mu.Unlock()

	if len(events) > 0 {
		b.flush(events)
	}
}

// drainLocked empties one bucket preserving first-arrival order per entity
// id. Caller holds b.mu.
func (b *Batcher) drainLocked(entity realtime.EntityType) []*realtime.ChangeEvent {
	bk, ok := b.buckets[entity]
	if !ok {
		return nil
	}
	if bk.timer != nil {
		bk.timer.Stop()
		bk.timer = nil
	}

	events := make([]*realtime.ChangeEvent, 0, len(bk.order))
	for _, key := range bk.order {
		if ev, present := bk.byKey[key]; present {
			events = append(events, ev)
		}
	}
	bk.order = bk.order[:0]
	clear(bk.byKey)
	return events
}

func (b *Batcher) delayFor(entity realtime.EntityType) time.Duration {
	if d, ok := b.cfg.Delays[entity]; ok {
		return d
	}
	return b.cfg.DefaultDelay
}
