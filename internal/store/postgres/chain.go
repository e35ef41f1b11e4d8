package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/plankhq/plank/internal/domain"
)

// Single-hop parent queries for broadcast-scope resolution. These satisfy
// realtime.ParentLookup; the resolver caches results, so each query body
// stays a bare foreign-key read.

func (s *Store) CardColumn(ctx context.Context, cardID uuid.UUID) (uuid.UUID, error) {
	var columnID uuid.UUID

	err := s.pool.QueryRow(ctx,
		`SELECT column_id FROM cards WHERE id = $1`,
		cardID,
	).Scan(&columnID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("store.CardColumn: %w", domain.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("store.CardColumn: %w", err)
	}

	return columnID, nil
}

func (s *Store) ColumnBoard(ctx context.Context, columnID uuid.UUID) (uuid.UUID, error) {
	var boardID uuid.UUID

	err := s.pool.QueryRow(ctx,
		`SELECT board_id FROM columns WHERE id = $1`,
		columnID,
	).Scan(&boardID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("store.ColumnBoard: %w", domain.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("store.ColumnBoard: %w", err)
	}

	return boardID, nil
}

func (s *Store) BoardWorkspace(ctx context.Context, boardID uuid.UUID) (uuid.UUID, error) {
	var workspaceID uuid.UUID

	err := s.pool.QueryRow(ctx,
		`SELECT workspace_id FROM boards WHERE id = $1`,
		boardID,
	).Scan(&workspaceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("store.BoardWorkspace: %w", domain.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("store.BoardWorkspace: %w", err)
	}

	return workspaceID, nil
}
