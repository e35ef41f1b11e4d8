package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher is the Emitter's view of the Hub.
type Publisher interface {
	Publish(ctx context.Context, scope string, ev *ChangeEvent)
}

// Emitter turns a committed mutation into a ChangeEvent and hands it to the
// distribution plane. It is called synchronously on the response path of
// every mutating handler and must never unwind the caller's success: every
// failure here is logged and swallowed.
type Emitter struct {
	resolver *Resolver
	hub      Publisher
	log      zerolog.Logger
}

func NewEmitter(resolver *Resolver, hub Publisher, log zerolog.Logger) *Emitter {
	return &Emitter{
		resolver: resolver,
		hub:      hub,
		log:      log.With().Str("component", "emitter").Logger(),
	}
}

// Emit builds and publishes one ChangeEvent. newV and oldV are domain
// structs (either may be nil, not both). The event goes to the workspace
// scope and, redundantly, to the narrower board scope; if only one scope
// resolves, partial delivery proceeds.
func (e *Emitter) Emit(ctx context.Context, entity EntityType, op Operation, newV, oldV any) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Any("panic", r).Str("entity", string(entity)).Msg("emit panicked")
		}
	}()

	ev := &ChangeEvent{
		Entity:     entity,
		Op:         op,
		OccurredAt: time.Now().UTC(),
	}

	if newV != nil {
		rec, err := ToRecord(newV)
		if err != nil {
			e.log.Error().Err(err).Str("entity", string(entity)).Msg("encode new record")
			return
		}
		ev.New = rec
	}
	if oldV != nil {
		rec, err := ToRecord(oldV)
		if err != nil {
			e.log.Error().Err(err).Str("entity", string(entity)).Msg("encode old record")
			return
		}
		ev.Old = rec
	}
	if ev.New == nil && ev.Old == nil {
		e.log.Error().Str("entity", string(entity)).Msg("emit called without records")
		return
	}

	boardID, workspaceID, err := e.resolver.Resolve(ctx, entity, ev.Current())
	if err != nil {
		// Partial delivery to whichever scope did resolve beats losing the
		// event outright.
		e.log.Warn().Err(err).
			Str("entity", string(entity)).
			Str("op", string(op)).
			Msg("scope resolution incomplete")
	}
	e.resolver.Observe(ev)

	if boardID != uuid.Nil {
		id := boardID
		ev.BoardID = &id
	}
	if workspaceID != uuid.Nil {
		id := workspaceID
		ev.WorkspaceID = &id
	}

	if workspaceID != uuid.Nil {
		e.hub.Publish(ctx, WorkspaceScope(workspaceID), ev)
	}
	if boardID != uuid.Nil {
		e.hub.Publish(ctx, BoardScope(boardID), ev)
	}
	if workspaceID == uuid.Nil && boardID == uuid.Nil {
		e.log.Warn().Str("entity", string(entity)).Str("op", string(op)).Msg("event dropped, no scope")
	}
}

// EmitEach emits one event per record of a bulk mutation, keeping the wire
// contract uniform. Ordering among the per-record events is not guaranteed.
func (e *Emitter) EmitEach(ctx context.Context, entity EntityType, op Operation, records []any) {
	for _, rec := range records {
		e.Emit(ctx, entity, op, rec, nil)
	}
}
