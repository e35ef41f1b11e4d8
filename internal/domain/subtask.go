package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Subtask nests two levels below a board: subtask -> card -> column -> board.
type Subtask struct {
	ID        uuid.UUID `json:"id"`
	CardID    uuid.UUID `json:"card_id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	Position  float64   `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SubtaskRepository interface {
	Create(ctx context.Context, s *Subtask) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subtask, error)
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*Subtask, error)
	Update(ctx context.Context, s *Subtask) error
	Delete(ctx context.Context, id uuid.UUID) error
}
