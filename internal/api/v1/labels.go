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

type CreateLabelInput struct {
	Body struct {
		BoardID uuid.UUID `json:"board_id" doc:"Board ID"`
		Name    string    `json:"name" minLength:"1" maxLength:"255" doc:"Label name"`
		Color   string    `json:"color" minLength:"1" maxLength:"32" doc:"Label color"`
	}
}

type CreateLabelOutput struct {
	Body *domain.Label
}

type ListLabelsInput struct {
	BoardID uuid.UUID `query:"board_id" required:"true" doc:"Board ID"`
}

type ListLabelsOutput struct {
	Body []*domain.Label
}

type UpdateLabelInput struct {
	ID   uuid.UUID `path:"id" doc:"Label ID"`
	Body struct {
		Name  string `json:"name,omitempty" maxLength:"255" doc:"Label name"`
		Color string `json:"color,omitempty" maxLength:"32" doc:"Label color"`
	}
}

type UpdateLabelOutput struct {
	Body *domain.Label
}

type DeleteLabelInput struct {
	ID uuid.UUID `path:"id" doc:"Label ID"`
}

type AttachLabelInput struct {
	CardID  uuid.UUID `path:"cardID" doc:"Card ID"`
	LabelID uuid.UUID `path:"labelID" doc:"Label ID"`
}

type AttachLabelOutput struct {
	Body *domain.Card
}

type DetachLabelInput struct {
	CardID  uuid.UUID `path:"cardID" doc:"Card ID"`
	LabelID uuid.UUID `path:"labelID" doc:"Label ID"`
}

type DetachLabelOutput struct {
	Body *domain.Card
}

type ListCardLabelsInput struct {
	CardID uuid.UUID `path:"cardID" doc:"Card ID"`
}

type ListCardLabelsOutput struct {
	Body []*domain.Label
}

func RegisterLabelRoutes(api huma.API, store DataStore, emitter ChangeEmitter) {
	huma.Register(api, huma.Operation{
		OperationID: "create-label",
		Method:      http.MethodPost,
		Path:        "/labels",
		Summary:     "Create a label",
		Tags:        []string{"Labels"},
	}, func(ctx context.Context, input *CreateLabelInput) (*CreateLabelOutput, error) {
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
		l := &domain.Label{
			ID:        uuid.New(),
			BoardID:   input.Body.BoardID,
			Name:      input.Body.Name,
			Color:     input.Body.Color,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Labels().Create(ctx, l); err != nil {
			return nil, huma.Error500InternalServerError("failed to create label", err)
		}

		emitter.Emit(ctx, realtime.EntityLabel, realtime.OpInsert, l, nil)

		return &CreateLabelOutput{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-labels",
		Method:      http.MethodGet,
		Path:        "/labels",
		Summary:     "List labels on a board",
		Tags:        []string{"Labels"},
	}, func(ctx context.Context, input *ListLabelsInput) (*ListLabelsOutput, error) {
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

		labels, err := store.Labels().ListByBoard(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list labels", err)
		}

		return &ListLabelsOutput{Body: labels}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-label",
		Method:      http.MethodPut,
		Path:        "/labels/{id}",
		Summary:     "Update a label",
		Tags:        []string{"Labels"},
	}, func(ctx context.Context, input *UpdateLabelInput) (*UpdateLabelOutput, error) {
		existing, err := store.Labels().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("label not found")
			}
			return nil, huma.Error500InternalServerError("failed to get label", err)
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
		if input.Body.Color != "" {
			existing.Color = input.Body.Color
		}
		existing.UpdatedAt = time.Now()

		if err := store.Labels().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update label", err)
		}

		emitter.Emit(ctx, realtime.EntityLabel, realtime.OpUpdate, existing, &old)

		return &UpdateLabelOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-label",
		Method:      http.MethodDelete,
		Path:        "/labels/{id}",
		Summary:     "Delete a label",
		Tags:        []string{"Labels"},
	}, func(ctx context.Context, input *DeleteLabelInput) (*struct{}, error) {
		existing, err := store.Labels().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("label not found")
			}
			return nil, huma.Error500InternalServerError("failed to get label", err)
		}

		workspaceID, err := workspaceForBoard(ctx, store, existing.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve board", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		if err := store.Labels().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete label", err)
		}

		emitter.Emit(ctx, realtime.EntityLabel, realtime.OpDelete, nil, existing)

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-label",
		Method:      http.MethodPost,
		Path:        "/cards/{cardID}/labels/{labelID}",
		Summary:     "Attach a label to a card",
		Tags:        []string{"Labels"},
	}, func(ctx context.Context, input *AttachLabelInput) (*AttachLabelOutput, error) {
		card, err := store.Cards().GetByID(ctx, input.CardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		workspaceID, err := workspaceForColumn(ctx, store, card.ColumnID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve column", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		if _, err := store.Labels().GetByID(ctx, input.LabelID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("label not found")
			}
			return nil, huma.Error500InternalServerError("failed to get label", err)
		}

		if err := store.Labels().Attach(ctx, input.CardID, input.LabelID); err != nil {
			return nil, huma.Error500InternalServerError("failed to attach label", err)
		}

		// Attachment changes the card's label set, so the change propagates
		// as a card update carrying the refreshed label_ids.
		updated, err := store.Cards().GetByID(ctx, input.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to reload card", err)
		}

		emitter.Emit(ctx, realtime.EntityCard, realtime.OpUpdate, updated, card)

		return &AttachLabelOutput{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "detach-label",
		Method:      http.MethodDelete,
		Path:        "/cards/{cardID}/labels/{labelID}",
		Summary:     "Detach a label from a card",
		Tags:        []string{"Labels"},
	}, func(ctx context.Context, input *DetachLabelInput) (*DetachLabelOutput, error) {
		card, err := store.Cards().GetByID(ctx, input.CardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		workspaceID, err := workspaceForColumn(ctx, store, card.ColumnID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve column", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		if err := store.Labels().Detach(ctx, input.CardID, input.LabelID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("label not attached")
			}
			return nil, huma.Error500InternalServerError("failed to detach label", err)
		}

		updated, err := store.Cards().GetByID(ctx, input.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to reload card", err)
		}

		emitter.Emit(ctx, realtime.EntityCard, realtime.OpUpdate, updated, card)

		return &DetachLabelOutput{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-card-labels",
		Method:      http.MethodGet,
		Path:        "/cards/{cardID}/labels",
		Summary:     "List labels attached to a card",
		Tags:        []string{"Labels"},
	}, func(ctx context.Context, input *ListCardLabelsInput) (*ListCardLabelsOutput, error) {
		card, err := store.Cards().GetByID(ctx, input.CardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		workspaceID, err := workspaceForColumn(ctx, store, card.ColumnID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to resolve column", err)
		}
		if _, err := requireMember(ctx, store, workspaceID); err != nil {
			return nil, err
		}

		labels, err := store.Labels().ListByCard(ctx, input.CardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list labels", err)
		}

		return &ListCardLabelsOutput{Body: labels}, nil
	})
}
