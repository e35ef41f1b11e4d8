package client_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plankhq/plank/internal/client"
	"github.com/plankhq/plank/internal/realtime"
)

func TestDependencyBuffer(t *testing.T) {
	t.Parallel()

	t.Run("take returns events in enqueue order", func(t *testing.T) {
		t.Parallel()

		b := client.NewDependencyBuffer(time.Minute, zerolog.Nop())
		column := uuid.New()

		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		for _, id := range ids {
			b.Hold(column, updateEvent(id, time.Now().UTC(), realtime.Record{"column_id": column.String()}))
		}

		events := b.Take(column)
		require.Len(t, events, 3)
		for i, ev := range events {
			got, _ := ev.New.ID()
			assert.Equal(t, ids[i], got, "replay must preserve enqueue order")
		}

		assert.Nil(t, b.Take(column), "take drains the parent's queue")
		assert.Zero(t, b.Len())
	})

	t.Run("parents lists waited-on ids", func(t *testing.T) {
		t.Parallel()

		b := client.NewDependencyBuffer(time.Minute, zerolog.Nop())
		colA, colB := uuid.New(), uuid.New()
		b.Hold(colA, updateEvent(uuid.New(), time.Now().UTC(), nil))
		b.Hold(colB, updateEvent(uuid.New(), time.Now().UTC(), nil))

		parents := b.Parents()
		assert.ElementsMatch(t, []uuid.UUID{colA, colB}, parents)
	})

	t.Run("sweep drops only expired entries", func(t *testing.T) {
		t.Parallel()

		b := client.NewDependencyBuffer(50*time.Millisecond, zerolog.Nop())
		column := uuid.New()
		b.Hold(column, updateEvent(uuid.New(), time.Now().UTC(), nil))

		assert.Zero(t, b.Sweep(time.Now()), "fresh entries survive")
		assert.Equal(t, 1, b.Len())

		dropped := b.Sweep(time.Now().Add(time.Second))
		assert.Equal(t, 1, dropped)
		assert.Zero(t, b.Len())
		assert.Empty(t, b.Parents())
	})
}
