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

type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// cardColumns is the SELECT list shared by card reads. Label ids are
// aggregated in the same query so a board load does not fan out into one
// query per card.
const cardColumns = `c.id, c.column_id, c.title, c.description, c.color, c.position,
	        c.assigned_to, c.due_at,
	        COALESCE(array_agg(cl.label_id) FILTER (WHERE cl.label_id IS NOT NULL), '{}'),
	        c.created_at, c.updated_at`

func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO cards (id, column_id, title, description, color, position, assigned_to, due_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.ColumnID, c.Title, c.Description, c.Color, c.Position,
		c.AssignedTo, c.DueAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}

	return nil
}

func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	var c domain.Card

	err := r.pool.QueryRow(ctx,
		`SELECT `+cardColumns+`
		 FROM cards c
		 LEFT JOIN card_labels cl ON cl.card_id = c.id
		 WHERE c.id = $1
		 GROUP BY c.id`,
		id,
	).Scan(
		&c.ID, &c.ColumnID, &c.Title, &c.Description, &c.Color, &c.Position,
		&c.AssignedTo, &c.DueAt, &c.LabelIDs, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *CardRepo) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cardColumns+`
		 FROM cards c
		 LEFT JOIN card_labels cl ON cl.card_id = c.id
		 WHERE c.column_id = $1
		 GROUP BY c.id
		 ORDER BY c.position, c.created_at
		 LIMIT 1000`,
		columnID,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListByColumn: %w", err)
	}
	defer rows.Close()

	return scanCards(rows, "cardRepo.ListByColumn")
}

func (r *CardRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cardColumns+`
		 FROM cards c
		 JOIN columns col ON col.id = c.column_id
		 LEFT JOIN card_labels cl ON cl.card_id = c.id
		 WHERE col.board_id = $1
		 GROUP BY c.id
		 ORDER BY c.position, c.created_at
		 LIMIT 1000`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	return scanCards(rows, "cardRepo.ListByBoard")
}

func (r *CardRepo) Update(ctx context.Context, c *domain.Card) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cards SET column_id = $1, title = $2, description = $3, color = $4,
		        position = $5, assigned_to = $6, due_at = $7, updated_at = now()
		 WHERE id = $8`,
		c.ColumnID, c.Title, c.Description, c.Color,
		c.Position, c.AssignedTo, c.DueAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

// UpdateColorBulk recolors many cards in one statement. The updated rows come
// back via RETURNING so the caller can emit one change event per card without
// a second read.
func (r *CardRepo) UpdateColorBulk(ctx context.Context, ids []uuid.UUID, color string) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE cards SET color = $1, updated_at = now()
		 WHERE id = ANY($2)
		 RETURNING id, column_id, title, description, color, position, assigned_to, due_at, created_at, updated_at`,
		color, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.UpdateColorBulk: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(
			&c.ID, &c.ColumnID, &c.Title, &c.Description, &c.Color, &c.Position,
			&c.AssignedTo, &c.DueAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("cardRepo.UpdateColorBulk: scan: %w", err)
		}
		cards = append(cards, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cardRepo.UpdateColorBulk: rows: %w", err)
	}

	return cards, nil
}

func (r *CardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM cards WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanCards(rows pgx.Rows, caller string) ([]*domain.Card, error) {
	var cards []*domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(
			&c.ID, &c.ColumnID, &c.Title, &c.Description, &c.Color, &c.Position,
			&c.AssignedTo, &c.DueAt, &c.LabelIDs, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		cards = append(cards, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return cards, nil
}
