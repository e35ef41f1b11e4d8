package client_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plankhq/plank/internal/client"
	"github.com/plankhq/plank/internal/realtime"
)

func testReconciler(cfg client.ReconcilerConfig) *client.Reconciler {
	if cfg.Tolerance == 0 {
		cfg.Tolerance = 1500 * time.Millisecond
	}
	return client.NewReconciler(cfg, zerolog.Nop())
}

func updateEvent(id uuid.UUID, ts time.Time, fields realtime.Record) *realtime.ChangeEvent {
	rec := realtime.Record{"id": id.String(), "updated_at": ts.UTC().Format(time.RFC3339Nano)}
	for k, v := range fields {
		rec[k] = v
	}
	return &realtime.ChangeEvent{Entity: realtime.EntityCard, Op: realtime.OpUpdate, New: rec, OccurredAt: ts}
}

func TestReconcilerDecide(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	cardID := uuid.New()
	columnX := uuid.New()

	t.Run("echo of own write is discarded and pending cleared", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{})
		proposed := realtime.Record{"id": cardID.String(), "column_id": columnX.String()}
		r.TrackOptimistic(cardID.String(), proposed, t0)

		ev := updateEvent(cardID, t0, realtime.Record{"column_id": columnX.String()})
		assert.Equal(t, client.DecisionDiscard, r.Decide(ev, nil))
		assert.False(t, r.Pending(cardID.String()), "echo must clear the pending entry")
	})

	t.Run("echo carrying an array field is recognized", func(t *testing.T) {
		t.Parallel()

		// The wire decodes label_ids as []any while the optimistic record
		// kept []string; the comparison must match them, not panic.
		r := testReconciler(client.ReconcilerConfig{})
		labelA, labelB := uuid.New().String(), uuid.New().String()
		proposed := realtime.Record{"id": cardID.String(), "label_ids": []string{labelA, labelB}}
		r.TrackOptimistic(cardID.String(), proposed, t0)

		ev := updateEvent(cardID, t0, realtime.Record{"label_ids": []any{labelA, labelB}})
		assert.Equal(t, client.DecisionDiscard, r.Decide(ev, nil))
		assert.False(t, r.Pending(cardID.String()))
	})

	t.Run("differing array field is not an echo", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{})
		proposed := realtime.Record{"id": cardID.String(), "label_ids": []string{uuid.New().String()}}
		r.TrackOptimistic(cardID.String(), proposed, t0)

		ev := updateEvent(cardID, t0.Add(10*time.Second), realtime.Record{"label_ids": []any{uuid.New().String()}})
		assert.Equal(t, client.DecisionApply, r.Decide(ev, nil), "a newer remote label change must apply")
		assert.False(t, r.Pending(cardID.String()))
	})

	t.Run("newer pending wins over older remote", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{})
		r.TrackOptimistic(cardID.String(), realtime.Record{"id": cardID.String(), "title": "mine"}, t0.Add(10*time.Second))

		ev := updateEvent(cardID, t0, realtime.Record{"title": "theirs"})
		assert.Equal(t, client.DecisionDiscard, r.Decide(ev, nil))
		assert.True(t, r.Pending(cardID.String()), "pending entry must survive")
	})

	t.Run("newer remote wins over pending", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{})
		r.TrackOptimistic(cardID.String(), realtime.Record{"id": cardID.String(), "title": "mine"}, t0)

		ev := updateEvent(cardID, t0.Add(10*time.Second), realtime.Record{"title": "theirs"})
		assert.Equal(t, client.DecisionApply, r.Decide(ev, nil))
		assert.False(t, r.Pending(cardID.String()))
	})

	t.Run("equal timestamps with differing state: server wins", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{Tolerance: time.Nanosecond})
		r.TrackOptimistic(cardID.String(), realtime.Record{"id": cardID.String(), "title": "mine"}, t0)

		ev := updateEvent(cardID, t0, realtime.Record{"title": "theirs"})
		assert.Equal(t, client.DecisionApply, r.Decide(ev, nil))
		assert.False(t, r.Pending(cardID.String()))
	})

	t.Run("no pending, remote applies", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{})
		local := realtime.Record{"id": cardID.String(), "updated_at": t0.Format(time.RFC3339Nano)}
		ev := updateEvent(cardID, t0.Add(time.Second), nil)
		assert.Equal(t, client.DecisionApply, r.Decide(ev, local))
	})

	t.Run("no pending, much newer local record rejects stale remote", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{Tolerance: 1500 * time.Millisecond})
		local := realtime.Record{"id": cardID.String(), "updated_at": t0.Add(time.Minute).Format(time.RFC3339Nano)}
		ev := updateEvent(cardID, t0, nil)
		assert.Equal(t, client.DecisionDiscard, r.Decide(ev, local))
	})

	t.Run("local newer within tolerance still applies remote", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{Tolerance: 1500 * time.Millisecond})
		local := realtime.Record{"id": cardID.String(), "updated_at": t0.Add(time.Second).Format(time.RFC3339Nano)}
		ev := updateEvent(cardID, t0, nil)
		assert.Equal(t, client.DecisionApply, r.Decide(ev, local))
	})

	t.Run("missing timestamps on both sides prefer remote", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{})
		ev := &realtime.ChangeEvent{
			Entity: realtime.EntityCard,
			Op:     realtime.OpUpdate,
			New:    realtime.Record{"id": cardID.String(), "title": "x"},
		}
		assert.Equal(t, client.DecisionApply, r.Decide(ev, realtime.Record{"id": cardID.String()}))
	})

	t.Run("inserts and deletes always apply", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{})
		ins := &realtime.ChangeEvent{Entity: realtime.EntityCard, Op: realtime.OpInsert, New: realtime.Record{"id": cardID.String()}}
		del := &realtime.ChangeEvent{Entity: realtime.EntityCard, Op: realtime.OpDelete, Old: realtime.Record{"id": cardID.String()}}
		assert.Equal(t, client.DecisionApply, r.Decide(ins, nil))
		assert.Equal(t, client.DecisionApply, r.Decide(del, nil))
	})
}

func TestReconcilerPendingTimeout(t *testing.T) {
	t.Parallel()

	r := testReconciler(client.ReconcilerConfig{PendingTimeout: 20 * time.Millisecond})
	defer r.Close()

	var mu sync.Mutex
	var expired []string
	r.OnPendingExpired(func(key string) {
		mu.Lock()
		expired = append(expired, key)
		mu.Unlock()
	})

	id := uuid.New()
	r.TrackOptimistic(id.String(), realtime.Record{"id": id.String()}, time.Now())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(expired) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, r.Pending(id.String()))
}

func TestReconcilerBatchOperations(t *testing.T) {
	t.Parallel()

	t0 := time.Now().UTC()

	batchEvent := func(id uuid.UUID, color string, ts time.Time) *realtime.ChangeEvent {
		return updateEvent(id, ts, realtime.Record{"color": color})
	}

	t.Run("releases once when all expected ids are seen", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{BatchGrace: time.Minute})
		defer r.Close()

		var mu sync.Mutex
		var releases [][]*realtime.ChangeEvent
		r.OnBatchRelease(func(events []*realtime.ChangeEvent) {
			mu.Lock()
			releases = append(releases, events)
			mu.Unlock()
		})

		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		r.TrackBatch("color", "#aa00ff", ids, t0)

		for _, id := range ids {
			assert.True(t, r.AbsorbBatched(batchEvent(id, "#aa00ff", t0.Add(time.Millisecond))))
		}

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, releases, 1, "exactly one release per batch operation")
		assert.Len(t, releases[0], len(ids))
	})

	t.Run("grace period releases the arrived subset", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{BatchGrace: 20 * time.Millisecond})
		defer r.Close()

		var mu sync.Mutex
		var releases [][]*realtime.ChangeEvent
		r.OnBatchRelease(func(events []*realtime.ChangeEvent) {
			mu.Lock()
			releases = append(releases, events)
			mu.Unlock()
		})

		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		r.TrackBatch("color", "#aa00ff", ids, t0)
		assert.True(t, r.AbsorbBatched(batchEvent(ids[0], "#aa00ff", time.Now())))

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(releases) == 1
		}, time.Second, 5*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Len(t, releases[0], 1)

		// Stragglers after release rejoin the normal path.
		assert.False(t, r.AbsorbBatched(batchEvent(ids[1], "#aa00ff", time.Now())))
	})

	t.Run("numeric value matches its JSON-decoded echo", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{BatchGrace: time.Minute})
		defer r.Close()
		r.OnBatchRelease(func([]*realtime.ChangeEvent) {})

		ids := []uuid.UUID{uuid.New()}
		r.TrackBatch("position", 3, ids, t0)

		// Wire decoding turns every JSON number into float64.
		assert.True(t, r.AbsorbBatched(updateEvent(ids[0], time.Now(), realtime.Record{"position": float64(3)})))
	})

	t.Run("unrelated updates are not absorbed", func(t *testing.T) {
		t.Parallel()

		r := testReconciler(client.ReconcilerConfig{BatchGrace: time.Minute})
		defer r.Close()
		r.OnBatchRelease(func([]*realtime.ChangeEvent) {})

		ids := []uuid.UUID{uuid.New()}
		r.TrackBatch("color", "#aa00ff", ids, t0)

		// Different value.
		assert.False(t, r.AbsorbBatched(batchEvent(ids[0], "#000000", time.Now())))
		// Different entity id.
		assert.False(t, r.AbsorbBatched(batchEvent(uuid.New(), "#aa00ff", time.Now())))
		// Event predating the bulk write.
		assert.False(t, r.AbsorbBatched(batchEvent(ids[0], "#aa00ff", t0.Add(-time.Minute))))
	})
}
