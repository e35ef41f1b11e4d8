package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ParentLookup answers single-hop parent queries for the entity chain
// card -> column -> board -> workspace. *postgres.Store satisfies it.
type ParentLookup interface {
	CardColumn(ctx context.Context, cardID uuid.UUID) (uuid.UUID, error)
	ColumnBoard(ctx context.Context, columnID uuid.UUID) (uuid.UUID, error)
	BoardWorkspace(ctx context.Context, boardID uuid.UUID) (uuid.UUID, error)
}

// ErrUnresolvedScope is returned when a scope cannot be fully determined.
// A partially resolved board scope may still accompany this error: partial
// delivery beats silent loss.
var ErrUnresolvedScope = errors.New("realtime: scope not resolved")

// Resolver maps a mutated record to its broadcast scopes, caching parent
// lookups keyed by the immediate foreign key so bursts of card events do not
// turn into a database round-trip per event.
type Resolver struct {
	lookup ParentLookup

	mu             sync.Mutex
	cardColumn     map[uuid.UUID]uuid.UUID
	columnBoard    map[uuid.UUID]uuid.UUID
	boardWorkspace map[uuid.UUID]uuid.UUID
}

func NewResolver(lookup ParentLookup) *Resolver {
	return &Resolver{
		lookup:         lookup,
		cardColumn:     make(map[uuid.UUID]uuid.UUID),
		columnBoard:    make(map[uuid.UUID]uuid.UUID),
		boardWorkspace: make(map[uuid.UUID]uuid.UUID),
	}
}

// Resolve determines the board and workspace scope for a record. Either
// returned id may be uuid.Nil when that scope could not be determined; err
// is non-nil whenever resolution is incomplete.
func (r *Resolver) Resolve(ctx context.Context, entity EntityType, rec Record) (boardID, workspaceID uuid.UUID, err error) {
	if rec == nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("resolver.Resolve: nil record: %w", ErrUnresolvedScope)
	}

	switch entity {
	case EntityWorkspace:
		if id, ok := rec.ID(); ok {
			return uuid.Nil, id, nil
		}

	case EntityMember:
		if id, ok := rec.WorkspaceID(); ok {
			return uuid.Nil, id, nil
		}

	case EntityBoard:
		id, ok := rec.ID()
		if !ok {
			break
		}
		if wid, wok := rec.WorkspaceID(); wok {
			r.put(r.boardWorkspace, id, wid)
			return id, wid, nil
		}
		wid, werr := r.workspaceOf(ctx, id)
		return id, wid, werr

	case EntityColumn, EntityLabel:
		bid, ok := rec.BoardID()
		if !ok {
			break
		}
		wid, werr := r.workspaceOf(ctx, bid)
		return bid, wid, werr

	case EntityCard:
		cid, ok := rec.ColumnID()
		if !ok {
			break
		}
		bid, berr := r.boardOf(ctx, cid)
		if berr != nil {
			return uuid.Nil, uuid.Nil, berr
		}
		wid, werr := r.workspaceOf(ctx, bid)
		return bid, wid, werr

	case EntitySubtask:
		cardID, ok := rec.CardID()
		if !ok {
			break
		}
		colID, cerr := r.columnOf(ctx, cardID)
		if cerr != nil {
			return uuid.Nil, uuid.Nil, cerr
		}
		bid, berr := r.boardOf(ctx, colID)
		if berr != nil {
			return uuid.Nil, uuid.Nil, berr
		}
		wid, werr := r.workspaceOf(ctx, bid)
		return bid, wid, werr
	}

	return uuid.Nil, uuid.Nil, fmt.Errorf("resolver.Resolve: %s record missing parent reference: %w", entity, ErrUnresolvedScope)
}

// Observe updates the parent-chain cache from an event that has already been
// resolved: deletes evict the owning record's entry, and parent reassignment
// (a card moved to another column, a column moved to another board)
// overwrites the stale mapping.
func (r *Resolver) Observe(ev *ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := ev.Current().ID()
	if !ok {
		return
	}

	switch ev.Entity {
	case EntityCard:
		if ev.Op == OpDelete {
			delete(r.cardColumn, id)
			return
		}
		if col, cok := ev.Current().ColumnID(); cok {
			r.cardColumn[id] = col
		}
	case EntityColumn:
		if ev.Op == OpDelete {
			delete(r.columnBoard, id)
			return
		}
		if bid, bok := ev.Current().BoardID(); bok {
			r.columnBoard[id] = bid
		}
	case EntityBoard:
		if ev.Op == OpDelete {
			delete(r.boardWorkspace, id)
			return
		}
		if wid, wok := ev.Current().WorkspaceID(); wok {
			r.boardWorkspace[id] = wid
		}
	case EntityWorkspace, EntityLabel, EntitySubtask, EntityMember:
		// No cached chain entries keyed by these.
	}
}

func (r *Resolver) columnOf(ctx context.Context, cardID uuid.UUID) (uuid.UUID, error) {
	if id, ok := r.get(r.cardColumn, cardID); ok {
		return id, nil
	}
	id, err := r.lookup.CardColumn(ctx, cardID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolver: card %s: %w", cardID, errors.Join(err, ErrUnresolvedScope))
	}
	r.put(r.cardColumn, cardID, id)
	return id, nil
}

func (r *Resolver) boardOf(ctx context.Context, columnID uuid.UUID) (uuid.UUID, error) {
	if id, ok := r.get(r.columnBoard, columnID); ok {
		return id, nil
	}
	id, err := r.lookup.ColumnBoard(ctx, columnID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolver: column %s: %w", columnID, errors.Join(err, ErrUnresolvedScope))
	}
	r.put(r.columnBoard, columnID, id)
	return id, nil
}

func (r *Resolver) workspaceOf(ctx context.Context, boardID uuid.UUID) (uuid.UUID, error) {
	if id, ok := r.get(r.boardWorkspace, boardID); ok {
		return id, nil
	}
	id, err := r.lookup.BoardWorkspace(ctx, boardID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolver: board %s: %w", boardID, errors.Join(err, ErrUnresolvedScope))
	}
	r.put(r.boardWorkspace, boardID, id)
	return id, nil
}

func (r *Resolver) get(m map[uuid.UUID]uuid.UUID, k uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := m[k]
	return v, ok
}

func (r *Resolver) put(m map[uuid.UUID]uuid.UUID, k, v uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m[k] = v
}
