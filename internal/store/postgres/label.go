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

type LabelRepo struct {
	pool *pgxpool.Pool
}

func NewLabelRepo(pool *pgxpool.Pool) *LabelRepo {
	return &LabelRepo{pool: pool}
}

func (r *LabelRepo) Create(ctx context.Context, l *domain.Label) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO labels (id, board_id, name, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.BoardID, l.Name, l.Color, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("labelRepo.Create: %w", err)
	}

	return nil
}

func (r *LabelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Label, error) {
	var l domain.Label

	err := r.pool.QueryRow(ctx,
		`SELECT id, board_id, name, color, created_at, updated_at
		 FROM labels WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.BoardID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("labelRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("labelRepo.GetByID: %w", err)
	}

	return &l, nil
}

func (r *LabelRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Label, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, board_id, name, color, created_at, updated_at
		 FROM labels WHERE board_id = $1
		 ORDER BY created_at
		 LIMIT 1000`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("labelRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	return scanLabels(rows, "labelRepo.ListByBoard")
}

func (r *LabelRepo) Update(ctx context.Context, l *domain.Label) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE labels SET name = $1, color = $2, updated_at = now() WHERE id = $3`,
		l.Name, l.Color, l.ID,
	)
	if err != nil {
		return fmt.Errorf("labelRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("labelRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *LabelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM labels WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("labelRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("labelRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *LabelRepo) Attach(ctx context.Context, cardID, labelID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO card_labels (card_id, label_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		cardID, labelID,
	)
	if err != nil {
		return fmt.Errorf("labelRepo.Attach: %w", err)
	}

	return nil
}

func (r *LabelRepo) Detach(ctx context.Context, cardID, labelID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM card_labels WHERE card_id = $1 AND label_id = $2`,
		cardID, labelID,
	)
	if err != nil {
		return fmt.Errorf("labelRepo.Detach: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("labelRepo.Detach: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *LabelRepo) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.Label, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.board_id, l.name, l.color, l.created_at, l.updated_at
		 FROM labels l
		 JOIN card_labels cl ON cl.label_id = l.id
		 WHERE cl.card_id = $1
		 ORDER BY l.created_at
		 LIMIT 1000`,
		cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("labelRepo.ListByCard: %w", err)
	}
	defer rows.Close()

	return scanLabels(rows, "labelRepo.ListByCard")
}

func scanLabels(rows pgx.Rows, caller string) ([]*domain.Label, error) {
	var labels []*domain.Label
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		labels = append(labels, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return labels, nil
}
