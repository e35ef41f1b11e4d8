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

type CreateCardInput struct {
	Body struct {
		ColumnID    uuid.UUID  `json:"column_id" doc:"Column ID"`
		Title       string     `json:"title" minLength:"1" maxLength:"500" doc:"Card title"`
		Description string     `json:"description,omitempty" doc:"Card description"`
		Color       string     `json:"color,omitempty" maxLength:"32" doc:"Card color"`
		Position    float64    `json:"position,omitempty" doc:"Sort position"`
		AssignedTo  *uuid.UUID `json:"assigned_to,omitempty" doc:"Assigned user ID"`
		DueAt       *time.Time `json:"due_at,omitempty" doc:"Due date"`
	}
}

type CreateCardOutput struct {
	Body *domain.Card
}

type ListCardsInput struct {
	ColumnID uuid.UUID `query:"column_id" doc:"Column ID"`
	BoardID  uuid.UUID `query:"board_id" doc:"Board ID"`
}

type ListCardsOutput struct {
	Body []*domain.Card
}

type GetCardInput struct {
	ID uuid.UUID `path:"id" doc:"Card ID"`
}

type GetCardOutput struct {
	Body *domain.Card
}

type UpdateCardInput struct {
	ID   uuid.UUID `path:"id" doc:"Card ID"`
	Body struct {
		Title       string     `json:"title,omitempty" maxLength:"500" doc:"Card title"`
		Description *string    `json:"description,omitempty" doc:"Card description"`
		Color       *string    `json:"color,omitempty" maxLength:"32" doc:"Card color"`
		Position    *float64   `json:"position,omitempty" doc:"Sort position"`
		AssignedTo  *uuid.UUID `json:"assigned_to,omitempty" doc:"Assigned user ID"`
		DueAt       *time.Time `json:"due_at,omitempty" doc:"Due date"`
	}
}

type UpdateCardOutput struct {
	Body *domain.Card
}

type MoveCardInput struct {
	ID   uuid.UUID `path:"id" doc:"Card ID"`
	Body struct {
		ColumnID uuid.UUID `json:"column_id" doc:"Target column ID"`
		Position float64   `json:"position" doc:"Position within the target column"`
	}
}

type MoveCardOutput struct {
	Body *domain.Card
}

type BulkColorInput struct {
	Body struct {
		IDs   []uuid.UUID `json:"ids" minItems:"1" maxItems:"500" doc:"Card IDs"`
		Color string      `json:"color" minLength:"1" maxLength:"32" doc:"Color to apply"`
	}
}

type BulkColorOutput struct {
	Body []*domain.Card
}

type DeleteCardInput struct {
	ID uuid.UUID `path:"id" doc:"Card ID"`
}

func RegisterCardRoutes(api huma.API, store DataStore, emitter ChangeEmitter) {
	huma.Register(api, huma.Operation{
		OperationID: "create-card",
		Method:      http.MethodPost,
		Path:        "/cards",
		Summary:     "Create a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CreateCardInput) (*CreateCardOutput, error) {
		workspaceID, err := workspaceForColumn(ctx, store, input.Body.ColumnID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("column not found")
			}
			return nil, huma.Error500InternalServerError("failed to resolve column", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		now := time.Now()
		c := &domain.Card{
			ID:          uuid.New(),
			ColumnID:    input.Body.ColumnID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Color:       input.Body.Color,
			Position:    input.Body.Position,
			AssignedTo:  input.Body.AssignedTo,
			DueAt:       input.Body.DueAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Cards().Create(ctx, c); err != nil {
			return nil, huma.Error500InternalServerError("failed to create card", err)
		}

		emitter.Emit(ctx, realtime.EntityCard, realtime.OpInsert, c, nil)

		return &CreateCardOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cards",
		Method:      http.MethodGet,
		Path:        "/cards",
		Summary:     "List cards by column or board",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *ListCardsInput) (*ListCardsOutput, error) {
		switch {
		case input.ColumnID != uuid.Nil:
			workspaceID, err := workspaceForColumn(ctx, store, input.ColumnID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, huma.Error404NotFound("column not found")
				}
				return nil, huma.Error500InternalServerError("failed to resolve column", err)
			}
			if _, err := requireMember(ctx, store, workspaceID); err != nil {
				return nil, err
			}

			cards, err := store.Cards().ListByColumn(ctx, input.ColumnID)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to list cards", err)
			}
			return &ListCardsOutput{Body: cards}, nil

		case input.BoardID != uuid.Nil:
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

			cards, err := store.Cards().ListByBoard(ctx, input.BoardID)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to list cards", err)
			}
			return &ListCardsOutput{Body: cards}, nil

		default:
			return nil, huma.Error400BadRequest("either column_id or board_id is required")
		}
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-card",
		Method:      http.MethodGet,
		Path:        "/cards/{id}",
		Summary:     "Get a card by ID",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *GetCardInput) (*GetCardOutput, error) {
		c, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		workspaceID, err := workspaceForColumn(ctx, store, c.ColumnID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve column", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		return &GetCardOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-card",
		Method:      http.MethodPut,
		Path:        "/cards/{id}",
		Summary:     "Update a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *UpdateCardInput) (*UpdateCardOutput, error) {
		existing, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		workspaceID, err := workspaceForColumn(ctx, store, existing.ColumnID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve column", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		old := *existing
		if input.Body.Title != "" {
			existing.Title = input.Body.Title
		}
		if input.Body.Description != nil {
			existing.Description = *input.Body.Description
		}
		if input.Body.Color != nil {
			existing.Color = *input.Body.Color
		}
		if input.Body.Position != nil {
			existing.Position = *input.Body.Position
		}
		if input.Body.AssignedTo != nil {
			existing.AssignedTo = input.Body.AssignedTo
		}
		if input.Body.DueAt != nil {
			existing.DueAt = input.Body.DueAt
		}
		existing.UpdatedAt = time.Now()

		if err := store.Cards().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update card", err)
		}

		emitter.Emit(ctx, realtime.EntityCard, realtime.OpUpdate, existing, &old)

		return &UpdateCardOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-card",
		Method:      http.MethodPatch,
		Path:        "/cards/{id}/move",
		Summary:     "Move a card to another column",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *MoveCardInput) (*MoveCardOutput, error) {
		existing, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		sourceWS, err := workspaceForColumn(ctx, store, existing.ColumnID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve column", err)
		}
		if _, err := requireMember(ctx, store, sourceWS); err != nil {
			return nil, err
		}

		if input.Body.ColumnID != existing.ColumnID {
			targetWS, err := workspaceForColumn(ctx, store, input.Body.ColumnID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, huma.Error404NotFound("target column not found")
				}
				return nil, huma.Error500InternalServerError("failed to resolve target column", err)
			}
			// Cross-workspace moves would strand subscribers of the source
			// workspace with a card that silently vanished.
			if targetWS != sourceWS {
				return nil, huma.Error400BadRequest("target column belongs to another workspace")
			}
		}

		old := *existing
		existing.ColumnID = input.Body.ColumnID
		existing.Position = input.Body.Position
		existing.UpdatedAt = time.Now()

		if err := store.Cards().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to move card", err)
		}

		emitter.Emit(ctx, realtime.EntityCard, realtime.OpUpdate, existing, &old)

		return &MoveCardOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bulk-color-cards",
		Method:      http.MethodPost,
		Path:        "/cards/bulk-color",
		Summary:     "Apply one color to many cards",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *BulkColorInput) (*BulkColorOutput, error) {
		// Membership is checked against the first card's workspace; the
		// single-statement update below only touches cards that exist, and
		// cross-workspace batches are rejected.
		workspaceID, err := workspaceForCard(ctx, store, input.Body.IDs[0])
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to resolve card", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}
		for _, id := range input.Body.IDs[1:] {
			ws, err := workspaceForCard(ctx, store, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, huma.Error404NotFound("card not found: " + id.String())
				}
				return nil, huma.Error500InternalServerError("failed to resolve card", err)
			}
			if ws != workspaceID {
				return nil, huma.Error400BadRequest("cards span multiple workspaces")
			}
		}

		updated, err := store.Cards().UpdateColorBulk(ctx, input.Body.IDs, input.Body.Color)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to update card colors", err)
		}

		// One event per card keeps the wire contract uniform; clients that
		// tracked the batch locally regroup the echoes themselves.
		records := make([]any, len(updated))
		for i, c := range updated {
			records[i] = c
		}
		emitter.EmitEach(ctx, realtime.EntityCard, realtime.OpUpdate, records)

		return &BulkColorOutput{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-card",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}",
		Summary:     "Delete a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *DeleteCardInput) (*struct{}, error) {
		existing, err := store.Cards().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		workspaceID, err := workspaceForColumn(ctx, store, existing.ColumnID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve column", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		if err := store.Cards().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete card", err)
		}

		emitter.Emit(ctx, realtime.EntityCard, realtime.OpDelete, nil, existing)

		return nil, nil
	})
}
