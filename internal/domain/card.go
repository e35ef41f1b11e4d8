package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Card carries only its column reference. Board and workspace scope are
// resolved by walking the parent chain (card -> column -> board -> workspace).
type Card struct {
	ID          uuid.UUID   `json:"id"`
	ColumnID    uuid.UUID   `json:"column_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Color       string      `json:"color"`
	Position    float64     `json:"position"`
	AssignedTo  *uuid.UUID  `json:"assigned_to,omitempty"`
	DueAt       *time.Time  `json:"due_at,omitempty"`
	LabelIDs    []uuid.UUID `json:"label_ids,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type CardRepository interface {
	Create(ctx context.Context, c *Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*Card, error)
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*Card, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*Card, error)
	Update(ctx context.Context, c *Card) error
	// UpdateColorBulk sets one color on many cards in a single statement and
	// returns the updated rows so the caller can emit one event per card.
	UpdateColorBulk(ctx context.Context, ids []uuid.UUID, color string) ([]*Card, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
