package v1_test

import (
	"context"
	"encoding/json"
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

func TestCreateBoard(t *testing.T) {
	t.Parallel()

	t.Run("member_creates_board_and_insert_is_emitted", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		wsID := uuid.New()

		var created *domain.Board
		_, api := humatest.New(t)
		emitter := &mockEmitter{}
		store := &mockDataStore{
			members: alwaysMember(),
			boards: &mockBoardRepo{
				createFunc: func(_ context.Context, b *domain.Board) error {
					created = b
					return nil
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, emitter)

		resp := api.PostCtx(userCtx(userID), "/boards", map[string]any{
			"workspace_id": wsID.String(),
			"name":         "Sprint 12",
			"position":     2.5,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, created)
		assert.Equal(t, wsID, created.WorkspaceID)
		assert.Equal(t, "Sprint 12", created.Name)
		assert.InDelta(t, 2.5, created.Position, 1e-9)

		events := emitter.all()
		require.Len(t, events, 1)
		assert.Equal(t, realtime.EntityBoard, events[0].entity)
		assert.Equal(t, realtime.OpInsert, events[0].op)
	})

	t.Run("non_member_gets_403_and_nothing_is_emitted", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		wsID := uuid.New()

		_, api := humatest.New(t)
		emitter := &mockEmitter{}
		store := &mockDataStore{
			members: &mockMemberRepo{
				isMemberFunc: func(_ context.Context, _, _ uuid.UUID) (bool, error) {
					return false, nil
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, emitter)

		resp := api.PostCtx(userCtx(userID), "/boards", map[string]any{
			"workspace_id": wsID.String(),
			"name":         "Sprint 12",
		})

		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Empty(t, emitter.all())
	})
}

func TestListBoards(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	wsID := uuid.New()
	now := time.Now().Truncate(time.Second)

	boards := []*domain.Board{
		{ID: uuid.New(), WorkspaceID: wsID, Name: "Sprint 12", Position: 1, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), WorkspaceID: wsID, Name: "Backlog", Position: 2, CreatedAt: now, UpdatedAt: now},
	}

	_, api := humatest.New(t)
	store := &mockDataStore{
		members: alwaysMember(),
		boards: &mockBoardRepo{
			listByWorkspaceFunc: func(_ context.Context, workspaceID uuid.UUID) ([]*domain.Board, error) {
				assert.Equal(t, wsID, workspaceID)
				return boards, nil
			},
		},
	}
	v1.RegisterBoardRoutes(api, store, &mockEmitter{})

	resp := api.GetCtx(userCtx(userID), "/boards?workspace_id="+wsID.String())

	require.Equal(t, http.StatusOK, resp.Code)

	var got []domain.Board
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestDeleteBoard(t *testing.T) {
	t.Parallel()

	t.Run("delete_emits_old_record", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		wsID := uuid.New()
		boardID := uuid.New()
		now := time.Now().Truncate(time.Second)
		board := &domain.Board{ID: boardID, WorkspaceID: wsID, Name: "Sprint 12", CreatedAt: now, UpdatedAt: now}

		_, api := humatest.New(t)
		emitter := &mockEmitter{}
		store := &mockDataStore{
			members: alwaysMember(),
			boards: &mockBoardRepo{
				getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Board, error) {
					assert.Equal(t, boardID, id)
					return board, nil
				},
				deleteFunc: func(_ context.Context, id uuid.UUID) error {
					assert.Equal(t, boardID, id)
					return nil
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, emitter)

		resp := api.DeleteCtx(userCtx(userID), "/boards/"+boardID.String())

		require.Equal(t, http.StatusNoContent, resp.Code)

		events := emitter.all()
		require.Len(t, events, 1)
		assert.Equal(t, realtime.EntityBoard, events[0].entity)
		assert.Equal(t, realtime.OpDelete, events[0].op)
		assert.Nil(t, events[0].newV)
		assert.Equal(t, board, events[0].oldV)
	})

	t.Run("missing_board_returns_404", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()

		_, api := humatest.New(t)
		store := &mockDataStore{
			boards: &mockBoardRepo{
				getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Board, error) {
					return nil, domain.ErrNotFound
				},
			},
		}
		v1.RegisterBoardRoutes(api, store, &mockEmitter{})

		resp := api.DeleteCtx(userCtx(userID), "/boards/"+uuid.New().String())

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
