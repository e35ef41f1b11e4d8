package v1_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/plankhq/plank/internal/api/v1"
	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/realtime"
)

// chainFixture wires column and board lookups so handlers can walk
// card -> column -> board -> workspace. Every column resolves to boardID,
// every board to wsID.
func chainFixture(wsID, boardID uuid.UUID) (*mockColumnRepo, *mockBoardRepo) {
	now := time.Now().Truncate(time.Second)
	columns := &mockColumnRepo{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Column, error) {
			return &domain.Column{ID: id, BoardID: boardID, Name: "col", CreatedAt: now, UpdatedAt: now}, nil
		},
	}
	boards := &mockBoardRepo{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Board, error) {
			return &domain.Board{ID: id, WorkspaceID: wsID, Name: "board", CreatedAt: now, UpdatedAt: now}, nil
		},
	}
	return columns, boards
}

func TestMoveCard(t *testing.T) {
	t.Parallel()

	t.Run("move_updates_column_and_emits_update_with_old", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		wsID := uuid.New()
		boardID := uuid.New()
		cardID := uuid.New()
		sourceCol := uuid.New()
		targetCol := uuid.New()
		now := time.Now().Truncate(time.Second)

		card := &domain.Card{ID: cardID, ColumnID: sourceCol, Title: "fix login bug", Position: 1, CreatedAt: now, UpdatedAt: now}

		columns, boards := chainFixture(wsID, boardID)

		var updated *domain.Card
		_, api := humatest.New(t)
		emitter := &mockEmitter{}
		store := &mockDataStore{
			members: alwaysMember(),
			columns: columns,
			boards:  boards,
			cards: &mockCardRepo{
				getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Card, error) {
					assert.Equal(t, cardID, id)
					cp := *card
					return &cp, nil
				},
				updateFunc: func(_ context.Context, c *domain.Card) error {
					updated = c
					return nil
				},
			},
		}
		v1.RegisterCardRoutes(api, store, emitter)

		resp := api.PatchCtx(userCtx(userID), "/cards/"+cardID.String()+"/move", map[string]any{
			"column_id": targetCol.String(),
			"position":  3.5,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, updated)
		assert.Equal(t, targetCol, updated.ColumnID)
		assert.InDelta(t, 3.5, updated.Position, 1e-9)

		events := emitter.all()
		require.Len(t, events, 1)
		assert.Equal(t, realtime.EntityCard, events[0].entity)
		assert.Equal(t, realtime.OpUpdate, events[0].op)

		old, ok := events[0].oldV.(*domain.Card)
		require.True(t, ok)
		assert.Equal(t, sourceCol, old.ColumnID)
	})

	t.Run("cross_workspace_move_rejected", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		boardA := uuid.New()
		boardB := uuid.New()
		wsA := uuid.New()
		wsB := uuid.New()
		cardID := uuid.New()
		sourceCol := uuid.New()
		targetCol := uuid.New()
		now := time.Now().Truncate(time.Second)

		card := &domain.Card{ID: cardID, ColumnID: sourceCol, Title: "stray", CreatedAt: now, UpdatedAt: now}

		_, api := humatest.New(t)
		emitter := &mockEmitter{}
		store := &mockDataStore{
			members: alwaysMember(),
			columns: &mockColumnRepo{
				getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Column, error) {
					boardID := boardA
					if id == targetCol {
						boardID = boardB
					}
					return &domain.Column{ID: id, BoardID: boardID, CreatedAt: now, UpdatedAt: now}, nil
				},
			},
			boards: &mockBoardRepo{
				getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Board, error) {
					wsID := wsA
					if id == boardB {
						wsID = wsB
					}
					return &domain.Board{ID: id, WorkspaceID: wsID, CreatedAt: now, UpdatedAt: now}, nil
				},
			},
			cards: &mockCardRepo{
				getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Card, error) {
					cp := *card
					return &cp, nil
				},
			},
		}
		v1.RegisterCardRoutes(api, store, emitter)

		resp := api.PatchCtx(userCtx(userID), "/cards/"+cardID.String()+"/move", map[string]any{
			"column_id": targetCol.String(),
			"position":  1.0,
		})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Empty(t, emitter.all())
	})
}

func TestBulkColorCards(t *testing.T) {
	t.Parallel()

	t.Run("one_event_per_updated_card", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		wsID := uuid.New()
		boardID := uuid.New()
		colID := uuid.New()
		now := time.Now().Truncate(time.Second)

		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

		columns, boards := chainFixture(wsID, boardID)

		_, api := humatest.New(t)
		emitter := &mockEmitter{}
		store := &mockDataStore{
			members: alwaysMember(),
			columns: columns,
			boards:  boards,
			cards: &mockCardRepo{
				getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Card, error) {
					return &domain.Card{ID: id, ColumnID: colID, CreatedAt: now, UpdatedAt: now}, nil
				},
				updateColorBulkFunc: func(_ context.Context, gotIDs []uuid.UUID, color string) ([]*domain.Card, error) {
					assert.Equal(t, ids, gotIDs)
					assert.Equal(t, "#aa00ff", color)
					out := make([]*domain.Card, len(gotIDs))
					for i, id := range gotIDs {
						out[i] = &domain.Card{ID: id, ColumnID: colID, Color: color, CreatedAt: now, UpdatedAt: now}
					}
					return out, nil
				},
			},
		}
		v1.RegisterCardRoutes(api, store, emitter)

		resp := api.PostCtx(userCtx(userID), "/cards/bulk-color", map[string]any{
			"ids":   []string{ids[0].String(), ids[1].String(), ids[2].String()},
			"color": "#aa00ff",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		events := emitter.all()
		require.Len(t, events, 3)
		for _, ev := range events {
			assert.Equal(t, realtime.EntityCard, ev.entity)
			assert.Equal(t, realtime.OpUpdate, ev.op)
			c, ok := ev.newV.(*domain.Card)
			require.True(t, ok)
			assert.Equal(t, "#aa00ff", c.Color)
		}
	})

	t.Run("empty_ids_rejected_by_validation", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()

		_, api := humatest.New(t)
		store := &mockDataStore{}
		v1.RegisterCardRoutes(api, store, &mockEmitter{})

		resp := api.PostCtx(userCtx(userID), "/cards/bulk-color", map[string]any{
			"ids":   []string{},
			"color": "#aa00ff",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

func TestDeleteCard(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	wsID := uuid.New()
	boardID := uuid.New()
	cardID := uuid.New()
	colID := uuid.New()
	now := time.Now().Truncate(time.Second)

	card := &domain.Card{ID: cardID, ColumnID: colID, Title: "done with this", CreatedAt: now, UpdatedAt: now}

	columns, boards := chainFixture(wsID, boardID)

	_, api := humatest.New(t)
	emitter := &mockEmitter{}
	store := &mockDataStore{
		members: alwaysMember(),
		columns: columns,
		boards:  boards,
		cards: &mockCardRepo{
			getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Card, error) {
				return card, nil
			},
			deleteFunc: func(_ context.Context, id uuid.UUID) error {
				assert.Equal(t, cardID, id)
				return nil
			},
		},
	}
	v1.RegisterCardRoutes(api, store, emitter)

	resp := api.DeleteCtx(userCtx(userID), "/cards/"+cardID.String())

	require.Equal(t, http.StatusNoContent, resp.Code)

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.OpDelete, events[0].op)
	assert.Nil(t, events[0].newV)
	assert.Equal(t, card, events[0].oldV)
}
