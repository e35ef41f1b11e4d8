package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plankhq/plank/internal/domain"
)

type SubtaskRepo struct {
	pool *pgxpool.Pool
}

func NewSubtaskRepo(pool *pgxpool.Pool) *SubtaskRepo {
	return &SubtaskRepo{pool: pool}
}

func (r *SubtaskRepo) Create(ctx context.Context, s *domain.Subtask) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subtasks (id, card_id, title, done, position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.CardID, s.Title, s.Done, s.Position, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("subtaskRepo.Create: %w", err)
	}

	return nil
}

func (r *SubtaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subtask, error) {
	var s domain.Subtask

	err := r.pool.QueryRow(ctx,
		`SELECT id, card_id, title, done, position, created_at, updated_at
		 FROM subtasks WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.CardID, &s.Title, &s.Done, &s.Position, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subtaskRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("subtaskRepo.GetByID: %w", err)
	}

	return &s, nil
}

func (r *SubtaskRepo) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.Subtask, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, card_id, title, done, position, created_at, updated_at
		 FROM subtasks WHERE card_id = $1
		 ORDER BY position, created_at
		 LIMIT 1000`,
		cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("subtaskRepo.ListByCard: %w", err)
	}
	defer rows.Close()

	var subtasks []*domain.Subtask
	for rows.Next() {
		var s domain.Subtask
		if err := rows.Scan(&s.ID, &s.CardID, &s.Title, &s.Done, &s.Position, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("subtaskRepo.ListByCard: scan: %w", err)
		}
		subtasks = append(subtasks, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subtaskRepo.ListByCard: rows: %w", err)
	}

	return subtasks, nil
}

func (r *SubtaskRepo) Update(ctx context.Context, s *domain.Subtask) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subtasks SET card_id = $1, title = $2, done = $3, position = $4, updated_at = now()
		 WHERE id = $5`,
		s.CardID, s.Title, s.Done, s.Position, s.ID,
	)
	if err != nil {
		return fmt.Errorf("subtaskRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subtaskRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *SubtaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM subtasks WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("subtaskRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subtaskRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
