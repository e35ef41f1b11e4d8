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

type CreateColumnInput struct {
	Body struct {
		BoardID  uuid.UUID `json:"board_id" doc:"Board ID"`
		Name     string    `json:"name" minLength:"1" maxLength:"255" doc:"Column name"`
		Position float64   `json:"position,omitempty" doc:"Sort position"`
	}
}

type CreateColumnOutput struct {
	Body *domain.Column
}

type ListColumnsInput struct {
	BoardID uuid.UUID `query:"board_id" required:"true" doc:"Board ID"`
}

type ListColumnsOutput struct {
	Body []*domain.Column
}

type UpdateColumnInput struct {
	ID   uuid.UUID `path:"id" doc:"Column ID"`
	Body struct {
		Name     string   `json:"name,omitempty" maxLength:"255" doc:"Column name"`
		Position *float64 `json:"position,omitempty" doc:"Sort position"`
	}
}

type UpdateColumnOutput struct {
	Body *domain.Column
}

type DeleteColumnInput struct {
	ID uuid.UUID `path:"id" doc:"Column ID"`
}

func RegisterColumnRoutes(api huma.API, store DataStore, emitter ChangeEmitter) {
	huma.Register(api, huma.Operation{
		OperationID: "create-column",
		Method:      http.MethodPost,
		Path:        "/columns",
		Summary:     "Create a column",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *CreateColumnInput) (*CreateColumnOutput, error) {
		workspaceID, err := workspaceForBoard(ctx, store, input.Body.BoardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to resolve board", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		now := time.Now()
		c := &domain.Column{
			ID:        uuid.New(),
			BoardID:   input.Body.BoardID,
			Name:      input.Body.Name,
			Position:  input.Body.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Columns().Create(ctx, c); err != nil {
			return nil, huma.Error500InternalServerError("failed to create column", err)
		}

		emitter.Emit(ctx, realtime.EntityColumn, realtime.OpInsert, c, nil)

		return &CreateColumnOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-columns",
		Method:      http.MethodGet,
		Path:        "/columns",
		Summary:     "List columns on a board",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *ListColumnsInput) (*ListColumnsOutput, error) {
		workspaceID, err := workspaceForBoard(ctx, store, input.BoardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to resolve board", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		columns, err := store.Columns().ListByBoard(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list columns", err)
		}

		return &ListColumnsOutput{Body: columns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-column",
		Method:      http.MethodPut,
		Path:        "/columns/{id}",
		Summary:     "Update a column",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *UpdateColumnInput) (*UpdateColumnOutput, error) {
		existing, err := store.Columns().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("column not found")
			}
			return nil, huma.Error500InternalServerError("failed to get column", err)
		}

		workspaceID, err := workspaceForBoard(ctx, store, existing.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve board", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
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

		if err := store.Columns().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update column", err)
		}

		emitter.Emit(ctx, realtime.EntityColumn, realtime.OpUpdate, existing, &old)

		return &UpdateColumnOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-column",
		Method:      http.MethodDelete,
		Path:        "/columns/{id}",
		Summary:     "Delete a column and its cards",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *DeleteColumnInput) (*struct{}, error) {
		existing, err := store.Columns().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("column not found")
			}
			return nil, huma.Error500InternalServerError("failed to get column", err)
		}

		workspaceID, err := workspaceForBoard(ctx, store, existing.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve board", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		// Cards go with the column (ON DELETE CASCADE). Only the column
		// delete is emitted; clients cascade the contained cards locally.
		if err := store.Columns().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete column", err)
		}

		emitter.Emit(ctx, realtime.EntityColumn, realtime.OpDelete, nil, existing)

		return nil, nil
	})
}
