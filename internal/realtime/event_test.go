package realtime_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/realtime"
)

func TestToRecord(t *testing.T) {
	t.Parallel()

	t.Run("card round trip", func(t *testing.T) {
		t.Parallel()

		card := &domain.Card{
			ID:        uuid.MustParse("11111111-2222-3333-4444-555555555555"),
			ColumnID:  uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
			Title:     "write docs",
			UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}

		rec, err := realtime.ToRecord(card)
		require.NoError(t, err)

		id, ok := rec.ID()
		require.True(t, ok)
		assert.Equal(t, card.ID, id)

		col, ok := rec.ColumnID()
		require.True(t, ok)
		assert.Equal(t, card.ColumnID, col)

		ts, ok := rec.UpdatedAt()
		require.True(t, ok)
		assert.True(t, ts.Equal(card.UpdatedAt))
	})

	t.Run("missing fields report absent", func(t *testing.T) {
		t.Parallel()

		rec := realtime.Record{"title": "no id here"}

		_, ok := rec.ID()
		assert.False(t, ok)
		_, ok = rec.UpdatedAt()
		assert.False(t, ok)
	})

	t.Run("member key is composite", func(t *testing.T) {
		t.Parallel()

		rec := realtime.Record{
			"workspace_id": "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
			"user_id":      "11111111-2222-3333-4444-555555555555",
		}

		key, ok := rec.Key()
		require.True(t, ok)
		assert.Equal(t, "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee/11111111-2222-3333-4444-555555555555", key)
	})
}

func TestChangeEventCurrent(t *testing.T) {
	t.Parallel()

	t.Run("prefers new record", func(t *testing.T) {
		t.Parallel()

		ev := &realtime.ChangeEvent{
			New: realtime.Record{"id": "new"},
			Old: realtime.Record{"id": "old"},
		}
		assert.Equal(t, "new", ev.Current()["id"])
	})

	t.Run("falls back to old on delete", func(t *testing.T) {
		t.Parallel()

		ev := &realtime.ChangeEvent{Op: realtime.OpDelete, Old: realtime.Record{"id": "old"}}
		assert.Equal(t, "old", ev.Current()["id"])
	})
}

func TestScopeNames(t *testing.T) {
	t.Parallel()

	wsID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
	boardID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	t.Run("construction", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "workspace:aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", realtime.WorkspaceScope(wsID))
		assert.Equal(t, "board:11111111-2222-3333-4444-555555555555", realtime.BoardScope(boardID))
	})

	t.Run("no collision across kinds", func(t *testing.T) {
		t.Parallel()

		assert.NotEqual(t, realtime.WorkspaceScope(wsID), realtime.BoardScope(wsID))
	})

	t.Run("parse round trip", func(t *testing.T) {
		t.Parallel()

		kind, id, err := realtime.ParseScope(realtime.WorkspaceScope(wsID))
		require.NoError(t, err)
		assert.Equal(t, "workspace", kind)
		assert.Equal(t, wsID, id)

		kind, id, err = realtime.ParseScope(realtime.BoardScope(boardID))
		require.NoError(t, err)
		assert.Equal(t, "board", kind)
		assert.Equal(t, boardID, id)
	})

	t.Run("rejects malformed scopes", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []string{"", "workspace", "card:" + wsID.String(), "workspace:not-a-uuid"} {
			_, _, err := realtime.ParseScope(bad)
			assert.Error(t, err, "scope %q should not parse", bad)
		}
	})
}
