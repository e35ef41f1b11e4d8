package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/server/middleware"
)

// requireUser extracts the authenticated user id from the request context.
func requireUser(ctx context.Context) (uuid.UUID, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, huma.Error401Unauthorized("missing user context")
	}
	return userID, nil
}

// requireMember verifies the authenticated user belongs to the workspace.
// Authorization is membership data, checked per request, not token claims.
func requireMember(ctx context.Context, store DataStore, workspaceID uuid.UUID) (uuid.UUID, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	isMember, err := store.Members().IsMember(ctx, workspaceID, userID)
	if err != nil {
		return uuid.Nil, huma.Error500InternalServerError("failed to check membership", err)
	}
	if !isMember {
		return uuid.Nil, huma.Error403Forbidden("not a workspace member")
	}

	return userID, nil
}

// requireAdmin verifies the authenticated user holds the admin role in the
// workspace.
func requireAdmin(ctx context.Context, store DataStore, workspaceID uuid.UUID) (uuid.UUID, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	member, err := store.Members().Get(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, huma.Error403Forbidden("not a workspace member")
		}
		return uuid.Nil, huma.Error500InternalServerError("failed to check membership", err)
	}
	if member.Role != domain.MemberRoleAdmin {
		return uuid.Nil, huma.Error403Forbidden("workspace admin role required")
	}

	return userID, nil
}

// workspaceForBoard walks board -> workspace. Returns domain.ErrNotFound when
// the board does not exist.
func workspaceForBoard(ctx context.Context, store DataStore, boardID uuid.UUID) (uuid.UUID, error) {
	b, err := store.Boards().GetByID(ctx, boardID)
	if err != nil {
		return uuid.Nil, err
	}
	return b.WorkspaceID, nil
}

// workspaceForColumn walks column -> board -> workspace.
func workspaceForColumn(ctx context.Context, store DataStore, columnID uuid.UUID) (uuid.UUID, error) {
	col, err := store.Columns().GetByID(ctx, columnID)
	if err != nil {
		return uuid.Nil, err
	}
	return workspaceForBoard(ctx, store, col.BoardID)
}

// workspaceForCard walks card -> column -> board -> workspace.
func workspaceForCard(ctx context.Context, store DataStore, cardID uuid.UUID) (uuid.UUID, error) {
	card, err := store.Cards().GetByID(ctx, cardID)
	if err != nil {
		return uuid.Nil, err
	}
	return workspaceForColumn(ctx, store, card.ColumnID)
}
