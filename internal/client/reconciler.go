// Package client implements the client half of the change-distribution
// engine: scope subscriptions, event batching, dependency buffering, and
// optimistic reconciliation against server-confirmed state.
//
// Conflict resolution is last-write-wins on a per-record logical timestamp.
// Concurrent edits to different fields of the same record are not merged
// field by field; a full-record overwrite can discard an unrelated concurrent
// field change. That is a documented limitation of the protocol, carried
// deliberately.
package client

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plankhq/plank/internal/realtime"
)

// Decision is the reconciler's verdict for one incoming event.
type Decision int

const (
	// DecisionApply means the event must be written to local state.
	DecisionApply Decision = iota
	// DecisionDiscard means local state already supersedes the event.
	DecisionDiscard
)

// PendingUpdate tracks one locally-applied, not-yet-confirmed mutation.
type PendingUpdate struct {
	Key       string
	Proposed  realtime.Record
	LocalTime time.Time

	timer *time.Timer
}

// BatchOperation represents one client-issued bulk mutation whose N echo
// events should surface as a single unit instead of N independent edits.
type BatchOperation struct {
	Field     string
	Value     any
	StartedAt time.Time

	expected map[string]struct{}
	seen     []*realtime.ChangeEvent
	seenKeys map[string]struct{}
	released bool
	timer    *time.Timer
}

// ReconcilerConfig carries the conflict-resolution tuning constants. The
// tolerance window is best-effort clock-skew absorption, not a correctness
// guarantee.
type ReconcilerConfig struct {
	// Tolerance bounds how much newer a local record may be before a remote
	// update without a pending entry is treated as stale and discarded.
	Tolerance time.Duration
	// PendingTimeout expires unconfirmed optimistic updates; expiry is a
	// failure that requires a refetch.
	PendingTimeout time.Duration
	// BatchGrace is how long a tracked batch operation waits for stragglers
	// before releasing whatever subset arrived.
	BatchGrace time.Duration
}

// Reconciler arbitrates between locally-applied optimistic edits and
// incoming server-confirmed events using logical timestamps.
type Reconciler struct {
	cfg ReconcilerConfig
	log zerolog.Logger

	mu      sync.Mutex
	pending map[string]*PendingUpdate
	batches []*BatchOperation

	// onBatchRelease receives each tracked batch exactly once.
	onBatchRelease func(events []*realtime.ChangeEvent)
	// onPendingExpired signals that an optimistic update went unconfirmed
	// and the entity needs a refetch.
	onPendingExpired func(key string)
}

func NewReconciler(cfg ReconcilerConfig, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		cfg:     cfg,
		log:     log.With().Str("component", "reconciler").Logger(),
		pending: make(map[string]*PendingUpdate),
	}
}

// OnBatchRelease sets the single release path for tracked batch operations.
func (r *Reconciler) OnBatchRelease(fn func(events []*realtime.ChangeEvent)) {
	r.mu.Lock()
	r.onBatchRelease = fn
	r.mu.Unlock()
}

// OnPendingExpired sets the refetch signal for timed-out optimistic updates.
func (r *Reconciler) OnPendingExpired(fn func(key string)) {
	r.mu.Lock()
	r.onPendingExpired = fn
	r.mu.Unlock()
}

// TrackOptimistic records a locally-applied mutation awaiting confirmation.
// A second call for the same key supersedes the first.
func (r *Reconciler) TrackOptimistic(key string, proposed realtime.Record, localTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.pending[key]; ok && prior.timer != nil {
		prior.timer.Stop()
	}

	p := &PendingUpdate{Key: key, Proposed: proposed, LocalTime: localTime}
	if r.cfg.PendingTimeout > 0 {
		p.timer = time.AfterFunc(r.cfg.PendingTimeout, func() { r.expirePending(key, p) })
	}
	r.pending[key] = p
}

// Pending reports whether an optimistic update is outstanding for the key.
func (r *Reconciler) Pending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[key]
	return ok
}

func (r *Reconciler) expirePending(key string, p *PendingUpdate) {
	r.mu.Lock()
	cur, ok := r.pending[key]
	if !ok || cur != p {
		r.mu.Unlock()
		return
	}
	delete(r.pending, key)
	signal := r.onPendingExpired
	r.mu.Unlock()

	r.log.Warn().Str("key", key).Msg("optimistic update unconfirmed, refetch required")
	if signal != nil {
		signal(key)
	}
}

// TrackBatch registers a client-issued bulk mutation so that the forthcoming
// per-record echo events are recognized as one logical unit. The batch is
// released exactly once: when every expected id has been seen, or when the
// grace period elapses with whatever subset arrived.
func (r *Reconciler) TrackBatch(field string, value any, ids []uuid.UUID, startedAt time.Time) *BatchOperation {
	op := &BatchOperation{
		Field:     field,
		Value:     value,
		StartedAt: startedAt,
		expected:  make(map[string]struct{}, len(ids)),
		seenKeys:  make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		op.expected[id.String()] = struct{}{}
	}

	r.mu.Lock()
	r.batches = append(r.batches, op)
	r.mu.Unlock()

	if r.cfg.BatchGrace > 0 {
		op.timer = time.AfterFunc(r.cfg.BatchGrace, func() { r.releaseBatch(op) })
	}

	return op
}

// AbsorbBatched checks whether an event is an echo of a tracked batch
// operation. If so the event is withheld from the normal dedup path; the
// reconciler owns it until the batch releases. Returns true when absorbed.
func (r *Reconciler) AbsorbBatched(ev *realtime.ChangeEvent) bool {
	if ev.Op != realtime.OpUpdate || ev.New == nil {
		return false
	}
	key, ok := ev.New.Key()
	if !ok {
		return false
	}

	r.mu.Lock()

	var matched *BatchOperation
	for _, op := range r.batches {
		if op.released {
			continue
		}
		if _, expected := op.expected[key]; !expected {
			continue
		}
		if _, already := op.seenKeys[key]; already {
			continue
		}
		if !valueEqual(ev.New[op.Field], op.Value) {
			continue
		}
		if ts, tok := ev.New.UpdatedAt(); tok && ts.Before(op.StartedAt.Add(-r.cfg.Tolerance)) {
			// Predates the bulk write; an unrelated earlier edit.
			continue
		}
		matched = op
		break
	}

	if matched == nil {
		r.mu.Unlock()
		return false
	}

	matched.seenKeys[key] = struct{}{}
	matched.seen = append(matched.seen, ev)
	complete := len(matched.seenKeys) == len(matched.expected)
	r.mu.Unlock()

	if complete {
		r.releaseBatch(matched)
	}
	return true
}

func (r *Reconciler) releaseBatch(op *BatchOperation) {
	r.mu.Lock()
	if op.released {
		r.mu.Unlock()
		return
	}
	op.released = true
	if op.timer != nil {
		op.timer.Stop()
	}
	events := op.seen
	release := r.onBatchRelease

	// Drop the batch from the active list.
	for i, b := range r.batches {
		if b == op {
			r.batches = append(r.batches[:i], r.batches[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if release != nil && len(events) > 0 {
		release(events)
	}
}

// Decide applies the conflict decision table to one incoming event against
// the locally held record. Inserts and deletes always apply; UPDATE events
// are arbitrated by logical timestamp.
func (r *Reconciler) Decide(ev *realtime.ChangeEvent, local realtime.Record) Decision {
	if ev.Op != realtime.OpUpdate {
		r.clearPendingFor(ev)
		return DecisionApply
	}

	key, ok := ev.Current().Key()
	if !ok {
		return DecisionApply
	}

	remoteTS, hasRemoteTS := ev.Current().UpdatedAt()

	r.mu.Lock()
	p, hasPending := r.pending[key]
	r.mu.Unlock()

	if hasPending {
		switch {
		case r.isEcho(p, ev, remoteTS, hasRemoteTS):
			// The server confirmed our own write. Nothing to do locally.
			r.clearPending(key)
			return DecisionDiscard
		case hasRemoteTS && p.LocalTime.After(remoteTS):
			// Local optimistic state is newer; keep waiting for our echo.
			return DecisionDiscard
		case hasRemoteTS && remoteTS.After(p.LocalTime):
			// A genuinely newer remote edit wins over our unconfirmed one.
			r.clearPending(key)
			return DecisionApply
		default:
			// Equal timestamps with differing state, or no usable remote
			// timestamp: the server is the tiebreak authority.
			r.clearPending(key)
			return DecisionApply
		}
	}

	localTS, hasLocalTS := local.UpdatedAt()
	if hasRemoteTS && hasLocalTS && localTS.After(remoteTS.Add(r.cfg.Tolerance)) {
		// The local record is newer by more than clock skew could explain;
		// the remote event is stale.
		return DecisionDiscard
	}

	// Missing timestamps on either side: prefer the incoming event. Silently
	// accepting server state is safer than silently diverging from it.
	return DecisionApply
}

// isEcho reports whether the event merely reflects the client's own
// just-applied optimistic update: proposed state matches and the server
// timestamp lands within the tolerance window of the local write.
func (r *Reconciler) isEcho(p *PendingUpdate, ev *realtime.ChangeEvent, remoteTS time.Time, hasRemoteTS bool) bool {
	if ev.New == nil {
		return false
	}
	for k, v := range p.Proposed {
		if k == "updated_at" {
			continue
		}
		if !valueEqual(ev.New[k], v) {
			return false
		}
	}
	if !hasRemoteTS {
		return true
	}
	delta := remoteTS.Sub(p.LocalTime)
	if delta < 0 {
		delta = -delta
	}
	return delta <= r.cfg.Tolerance
}

// valueEqual compares two record field values by their canonical JSON
// encoding. Incoming events are JSON-decoded (every number a float64, every
// array a []any) while locally tracked values keep their Go types, so a
// direct != would mismatch equivalent numbers and panic on slice-valued
// fields such as a card's label_ids.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

func (r *Reconciler) clearPendingFor(ev *realtime.ChangeEvent) {
	if key, ok := ev.Current().Key(); ok {
		r.clearPending(key)
	}
}

func (r *Reconciler) clearPending(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[key]; ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(r.pending, key)
	}
}

// Close stops all outstanding timers.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	for _, op := range r.batches {
		if op.timer != nil {
			op.timer.Stop()
		}
	}
}
