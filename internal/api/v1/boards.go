package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/realtime"
)

type CreateBoardInput struct {
	Body struct {
		WorkspaceID uuid.UUID `json:"workspace_id" doc:"Workspace ID"`
		Name        string    `json:"name" minLength:"1" maxLength:"255" doc:"Board name"`
		Position    float64   `json:"position,omitempty" doc:"Sort position"`
	}
}

type CreateBoardOutput struct {
	Body *domain.Board
}

type ListBoardsInput struct {
	WorkspaceID uuid.UUID `query:"workspace_id" required:"true" doc:"Workspace ID"`
}

type ListBoardsOutput struct {
	Body []*domain.Board
}

type GetBoardInput struct {
	ID uuid.UUID `path:"id" doc:"Board ID"`
}

type GetBoardOutput struct {
	Body *domain.Board
}

type UpdateBoardInput struct {
	ID   uuid.UUID `path:"id" doc:"Board ID"`
	Body struct {
		Name     string   `json:"name,omitempty" maxLength:"255" doc:"Board name"`
		Position *float64 `json:"position,omitempty" doc:"Sort position"`
	}
}

type UpdateBoardOutput struct {
	Body *domain.Board
}

type DeleteBoardInput struct {
	ID uuid.UUID `path:"id" doc:"Board ID"`
}

func RegisterBoardRoutes(api huma.API, store DataStore, emitter ChangeEmitter) {
	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/boards",
		Summary:     "Create a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*CreateBoardOutput, error) {
		if _, err := requireMember(ctx, store, input.Body.WorkspaceID); err != nil {
			return nil, err
		}

		now := time.Now()
		b := &domain.Board{
			ID:          uuid.New(),
			WorkspaceID: input.Body.WorkspaceID,
			Name:        input.Body.Name,
			Position:    input.Body.Position,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Boards().Create(ctx, b); err != nil {
			return nil, huma.Error500InternalServerError("failed to create board", err)
		}

		emitter.Emit(ctx, realtime.EntityBoard, realtime.OpInsert, b, nil)

		return &CreateBoardOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards in a workspace",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ListBoardsInput) (*ListBoardsOutput, error) {
		if _, err := requireMember(ctx, store, input.WorkspaceID); err != nil {
			return nil, err
		}

		boards, err := store.Boards().ListByWorkspace(ctx, input.WorkspaceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list boards", err)
		}

		return &ListBoardsOutput{Body: boards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{id}",
		Summary:     "Get a board by ID",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		b, err := store.Boards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		if _, err := requireMember(ctx, store, b.WorkspaceID); err != nil {
			return nil, err
		}

		return &GetBoardOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-board",
		Method:      http.MethodPut,
		Path:        "/boards/{id}",
		Summary:     "Update a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *UpdateBoardInput) (*UpdateBoardOutput, error) {
		existing, err := store.Boards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		if _, err := requireMember(ctx, store, existing.WorkspaceID); err != nil {
			return nil, err
		}

		old := *existing
		if input.Body.Name != "" {
			existing.Name = input.Body.Name
		}
		if input.Body.Position != nil {
			existing.Position = *input.Body.Position
		}
		existing.UpdatedAt = time.Now()

		if err := store.Boards().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update board", err)
		}

		emitter.Emit(ctx, realtime.EntityBoard, realtime.OpUpdate, existing, &old)

		return &UpdateBoardOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-board",
		Method:      http.MethodDelete,
		Path:        "/boards/{id}",
		Summary:     "Delete a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *DeleteBoardInput) (*struct{}, error) {
		existing, err := store.Boards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		if _, err := requireMember(ctx, store, existing.WorkspaceID); err != nil {
			return nil, err
		}

		if err := store.Boards().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete board", err)
		}

		emitter.Emit(ctx, realtime.EntityBoard, realtime.OpDelete, nil, existing)

		return nil, nil
	})
}
