package client

import (
	"sync"

	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/realtime"
)

// State is the client's local replica for one scope: record maps per entity
// type, applied to by the reconciler and read by consumers.
type State struct {
	mu      sync.RWMutex
	records map[realtime.EntityType]map[string]realtime.Record
}

func NewState() *State {
	return &State{records: make(map[realtime.EntityType]map[string]realtime.Record)}
}

func (s *State) Get(entity realtime.EntityType, key string) (realtime.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[entity][key]
	return rec, ok
}

func (s *State) Has(entity realtime.EntityType, key string) bool {
	_, ok := s.Get(entity, key)
	return ok
}

// Snapshot returns a copy of all records of one entity type.
func (s *State) Snapshot(entity realtime.EntityType) []realtime.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]realtime.Record, 0, len(s.records[entity]))
	for _, rec := range s.records[entity] {
		out = append(out, rec)
	}
	return out
}

func (s *State) Len(entity realtime.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[entity])
}

// Apply writes one reconciled event into the replica. It returns the prior
// record (nil for inserts) and, for a column delete, the card records that
// were removed in the same step: a column and its cards disappear atomically.
func (s *State) Apply(ev *realtime.ChangeEvent) (prev realtime.Record, cascaded []realtime.Record) {
	key, ok := ev.Current().Key()
	if !ok {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.records[ev.Entity]
	if !ok {
		bucket = make(map[string]realtime.Record)
		s.records[ev.Entity] = bucket
	}
	prev = bucket[key]

	if ev.Op == realtime.OpDelete {
		delete(bucket, key)
		if ev.Entity == realtime.EntityColumn {
			cascaded = s.dropCardsOfColumnLocked(key)
		}
		return prev, cascaded
	}

	bucket[key] = ev.Current()
	return prev, nil
}

// Set merges a partial record into the replica outside the event path; used
// for optimistic local application and refetch hydration. Returns the prior
// record.
func (s *State) Set(entity realtime.EntityType, rec realtime.Record) realtime.Record {
	key, ok := rec.Key()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, bok := s.records[entity]
	if !bok {
		bucket = make(map[string]realtime.Record)
		s.records[entity] = bucket
	}

	prev := bucket[key]
	merged := make(realtime.Record, len(prev)+len(rec))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range rec {
		merged[k] = v
	}
	bucket[key] = merged
	return prev
}

func (s *State) dropCardsOfColumnLocked(columnKey string) []realtime.Record {
	columnID, err := uuid.Parse(columnKey)
	if err != nil {
		return nil
	}

	cards := s.records[realtime.EntityCard]
	var removed []realtime.Record
	for key, rec := range cards {
		if col, ok := rec.ColumnID(); ok && col == columnID {
			removed = append(removed, rec)
			delete(cards, key)
		}
	}
	return removed
}
