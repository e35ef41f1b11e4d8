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

type CreateSubtaskInput struct {
	Body struct {
		CardID   uuid.UUID `json:"card_id" doc:"Card ID"`
		Title    string    `json:"title" minLength:"1" maxLength:"500" doc:"Subtask title"`
		Position float64   `json:"position,omitempty" doc:"Sort position"`
	}
}

type CreateSubtaskOutput struct {
	Body *domain.Subtask
}

type ListSubtasksInput struct {
	CardID uuid.UUID `query:"card_id" required:"true" doc:"Card ID"`
}

type ListSubtasksOutput struct {
	Body []*domain.Subtask
}

type UpdateSubtaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Subtask ID"`
	Body struct {
		Title    string   `json:"title,omitempty" maxLength:"500" doc:"Subtask title"`
		Done     *bool    `json:"done,omitempty" doc:"Completion state"`
		Position *float64 `json:"position,omitempty" doc:"Sort position"`
	}
}

type UpdateSubtaskOutput struct {
	Body *domain.Subtask
}

type DeleteSubtaskInput struct {
	ID uuid.UUID `path:"id" doc:"Subtask ID"`
}

func RegisterSubtaskRoutes(api huma.API, store DataStore, emitter ChangeEmitter) {
	huma.Register(api, huma.Operation{
		OperationID: "create-subtask",
		Method:      http.MethodPost,
		Path:        "/subtasks",
		Summary:     "Create a subtask",
		Tags:        []string{"Subtasks"},
	}, func(ctx context.Context, input *CreateSubtaskInput) (*CreateSubtaskOutput, error) {
		workspaceID, err := workspaceForCard(ctx, store, input.Body.CardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to resolve card", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		now := time.Now()
		s := &domain.Subtask{
			ID:        uuid.New(),
			CardID:    input.Body.CardID,
			Title:     input.Body.Title,
			Position:  input.Body.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Subtasks().Create(ctx, s); err != nil {
			return nil, huma.Error500InternalServerError("failed to create subtask", err)
		}

		emitter.Emit(ctx, realtime.EntitySubtask, realtime.OpInsert, s, nil)

		return &CreateSubtaskOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-subtasks",
		Method:      http.MethodGet,
		Path:        "/subtasks",
		Summary:     "List subtasks of a card",
		Tags:        []string{"Subtasks"},
	}, func(ctx context.Context, input *ListSubtasksInput) (*ListSubtasksOutput, error) {
		workspaceID, err := workspaceForCard(ctx, store, input.CardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to resolve card", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		subtasks, err := store.Subtasks().ListByCard(ctx, input.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list subtasks", err)
		}

		return &ListSubtasksOutput{Body: subtasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-subtask",
		Method:      http.MethodPut,
		Path:        "/subtasks/{id}",
		Summary:     "Update a subtask",
		Tags:        []string{"Subtasks"},
	}, func(ctx context.Context, input *UpdateSubtaskInput) (*UpdateSubtaskOutput, error) {
		existing, err := store.Subtasks().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("subtask not found")
			}
			return nil, huma.Error500InternalServerError("failed to get subtask", err)
		}

		workspaceID, err := workspaceForCard(ctx, store, existing.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve card", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		old := *existing
		if input.Body.Title != "" {
			existing.Title = input.Body.Title
		}
		if input.Body.Done != nil {
			existing.Done = *input.Body.Done
		}
		if input.Body.Position != nil {
			existing.Position = *input.Body.Position
		}
		existing.UpdatedAt = time.Now()

		if err := store.Subtasks().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update subtask", err)
		}

		emitter.Emit(ctx, realtime.EntitySubtask, realtime.OpUpdate, existing, &old)

		return &UpdateSubtaskOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-subtask",
		Method:      http.MethodDelete,
		Path:        "/subtasks/{id}",
		Summary:     "Delete a subtask",
		Tags:        []string{"Subtasks"},
	}, func(ctx context.Context, input *DeleteSubtaskInput) (*struct{}, error) {
		existing, err := store.Subtasks().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("subtask not found")
			}
			return nil, huma.Error500InternalServerError("failed to get subtask", err)
		}

		workspaceID, err := workspaceForCard(ctx, store, existing.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve card", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		if err := store.Subtasks().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete subtask", err)
		}

		emitter.Emit(ctx, realtime.EntitySubtask, realtime.OpDelete, nil, existing)

		return nil, nil
	})
}
