package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Workspace is the broadcast scope unit: every entity beneath it (boards,
// columns, cards, labels, subtasks, members) fans out change events to
// subscribers of the workspace scope.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

type Member struct {
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Role        MemberRole `json:"role"`
	AddedAt     time.Time  `json:"added_at"`
}

type WorkspaceRepository interface {
	Create(ctx context.Context, w *Workspace) error
	GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Workspace, error)
	Update(ctx context.Context, w *Workspace) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type MemberRepository interface {
	Add(ctx context.Context, m *Member) error
	Remove(ctx context.Context, workspaceID, userID uuid.UUID) error
	Get(ctx context.Context, workspaceID, userID uuid.UUID) (*Member, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Member, error)
	IsMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error)
}
