package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/plankhq/plank/internal/realtime"
)

// session owns one scope's processing pipeline: batcher -> dependency
// buffer -> reconciler -> local state -> consumer dispatch.
type session struct {
	scope    string
	log      zerolog.Logger
	state    *State
	recon    *Reconciler
	buffer   *DependencyBuffer
	batcher  *Batcher
	dispatch func(entity realtime.EntityType, rec realtime.Record, meta Meta)

	cancelSweep context.CancelFunc
}

func newSession(scope string, cfg Config, dispatch func(realtime.EntityType, realtime.Record, Meta), log zerolog.Logger) *session {
	s := &session{
		scope:    scope,
		log:      log.With().Str("scope", scope).Logger(),
		state:    NewState(),
		dispatch: dispatch,
	}

	s.recon = NewReconciler(ReconcilerConfig{
		Tolerance:      cfg.Tolerance,
		PendingTimeout: cfg.PendingTimeout,
		BatchGrace:     cfg.BatchGrace,
	}, s.log)
	s.recon.OnBatchRelease(s.processBatchRelease)
	s.recon.OnPendingExpired(func(string) {
		if cfg.OnRefetch != nil {
			cfg.OnRefetch(scope)
		}
	})

	s.buffer = NewDependencyBuffer(cfg.DependencyTTL, s.log)
	s.batcher = NewBatcher(BatcherConfig{
		Delays:       cfg.FlushDelays,
		DefaultDelay: cfg.DefaultFlushDelay,
		MaxBatch:     cfg.MaxBatch,
	}, s.recon, s.processFlush, s.log)

	sweepCtx, cancel := context.WithCancel(context.Background())
	s.cancelSweep = cancel
	go s.sweepLoop(sweepCtx, cfg.DependencySweep)

	return s
}

// ingest is the transport's entry point into the pipeline.
func (s *session) ingest(ev *realtime.ChangeEvent) {
	if ev == nil {
		return
	}
	s.batcher.Offer(ev)
}

func (s *session) processFlush(events []*realtime.ChangeEvent) {
	for _, ev := range events {
		s.process(ev)
	}
}

// process runs one deduplicated event through dependency buffering,
// reconciliation, state application, and consumer dispatch.
func (s *session) process(ev *realtime.ChangeEvent) {
	// A card event naming a column we have not seen yet is held rather than
	// dropped or misapplied.
	if ev.Entity == realtime.EntityCard && ev.Op != realtime.OpDelete {
		if col, ok := ev.Current().ColumnID(); ok && !s.state.Has(realtime.EntityColumn, col.String()) {
			s.buffer.Hold(col, ev)
			return
		}
	}

	key, _ := ev.Current().Key()
	local, _ := s.state.Get(ev.Entity, key)

	if s.recon.Decide(ev, local) == DecisionDiscard {
		return
	}

	s.apply(ev)
}

// apply writes the event and notifies consumers, then replays any events
// that were waiting on a column this event just inserted.
func (s *session) apply(ev *realtime.ChangeEvent) {
	prev, cascaded := s.state.Apply(ev)

	s.dispatch(ev.Entity, ev.Current(), Meta{Op: ev.Op, Previous: prev})
	for _, rec := range cascaded {
		s.dispatch(realtime.EntityCard, rec, Meta{Op: realtime.OpDelete, Previous: rec})
	}

	if ev.Entity == realtime.EntityColumn && ev.Op == realtime.OpInsert {
		if id, ok := ev.Current().ID(); ok {
			for _, held := range s.buffer.Take(id) {
				s.process(held)
			}
		}
	}
}

// processBatchRelease applies a released batch operation as one unit: every
// record is written to state before any consumer sees the first callback, so
// a bulk action renders once instead of N times.
func (s *session) processBatchRelease(events []*realtime.ChangeEvent) {
	type appliedEvent struct {
		ev   *realtime.ChangeEvent
		prev realtime.Record
	}

	applied := make([]appliedEvent, 0, len(events))
	for _, ev := range events {
		key, _ := ev.Current().Key()
		s.recon.clearPending(key)
		prev, _ := s.state.Apply(ev)
		applied = append(applied, appliedEvent{ev: ev, prev: prev})
	}

	for _, ae := range applied {
		s.dispatch(ae.ev.Entity, ae.ev.Current(), Meta{Op: ae.ev.Op, Previous: ae.prev})
	}
}

// sweepLoop expires stale dependency-buffer entries and retries parents that
// have since appeared (the timer-driven half of re-evaluation; the explicit
// half runs on column INSERT in apply).
func (s *session) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.buffer.Sweep(time.Now())
			for _, parentID := range s.buffer.Parents() {
				if s.state.Has(realtime.EntityColumn, parentID.String()) {
					for _, held := range s.buffer.Take(parentID) {
						s.process(held)
					}
				}
			}
		}
	}
}

// close flushes buffered events synchronously and stops all timers.
func (s *session) close() {
	s.cancelSweep()
	s.batcher.Close()
	s.recon.Close()
}
