package v1

import (
	"context"

	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/realtime"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Workspaces() domain.WorkspaceRepository
	Members() domain.MemberRepository
	Boards() domain.BoardRepository
	Columns() domain.ColumnRepository
	Cards() domain.CardRepository
	Labels() domain.LabelRepository
	Subtasks() domain.SubtaskRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// ChangeEmitter publishes change events on the response path of successful
// mutations. *realtime.Emitter satisfies this interface. Emission never
// fails the request: implementations log and swallow their own errors.
type ChangeEmitter interface {
	Emit(ctx context.Context, entity realtime.EntityType, op realtime.Operation, newV, oldV any)
	EmitEach(ctx context.Context, entity realtime.EntityType, op realtime.Operation, records []any)
}
