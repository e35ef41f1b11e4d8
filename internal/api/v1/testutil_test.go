package v1_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/realtime"
	"github.com/plankhq/plank/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the authenticated user into context for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyUserID, userID)
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	users      domain.UserRepository
	workspaces domain.WorkspaceRepository
	members    domain.MemberRepository
	boards     domain.BoardRepository
	columns    domain.ColumnRepository
	cards      domain.CardRepository
	labels     domain.LabelRepository
	subtasks   domain.SubtaskRepository
}

func (m *mockDataStore) Users() domain.UserRepository           { return m.users }
func (m *mockDataStore) Workspaces() domain.WorkspaceRepository { return m.workspaces }
func (m *mockDataStore) Members() domain.MemberRepository       { return m.members }
func (m *mockDataStore) Boards() domain.BoardRepository         { return m.boards }
func (m *mockDataStore) Columns() domain.ColumnRepository       { return m.columns }
func (m *mockDataStore) Cards() domain.CardRepository           { return m.cards }
func (m *mockDataStore) Labels() domain.LabelRepository         { return m.labels }
func (m *mockDataStore) Subtasks() domain.SubtaskRepository     { return m.subtasks }

// ---------------------------------------------------------------------------
// Mock ChangeEmitter recording every emission for assertion
// ---------------------------------------------------------------------------

type emitted struct {
	entity realtime.EntityType
	op     realtime.Operation
	newV   any
	oldV   any
}

type mockEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (m *mockEmitter) Emit(_ context.Context, entity realtime.EntityType, op realtime.Operation, newV, oldV any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, emitted{entity: entity, op: op, newV: newV, oldV: oldV})
}

func (m *mockEmitter) EmitEach(ctx context.Context, entity realtime.EntityType, op realtime.Operation, records []any) {
	for _, rec := range records {
		m.Emit(ctx, entity, op, rec, nil)
	}
}

func (m *mockEmitter) all() []emitted {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]emitted, len(m.events))
	copy(out, m.events)
	return out
}

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	createFunc     func(ctx context.Context, u *domain.User) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
	updateFunc     func(ctx context.Context, u *domain.User) error
	deleteFunc     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error { return m.createFunc(ctx, u) }

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockUserRepo) Update(ctx context.Context, u *domain.User) error { return m.updateFunc(ctx, u) }

func (m *mockUserRepo) Delete(ctx context.Context, id uuid.UUID) error { return m.deleteFunc(ctx, id) }

// ---------------------------------------------------------------------------
// Mock WorkspaceRepository
// ---------------------------------------------------------------------------

type mockWorkspaceRepo struct {
	createFunc     func(ctx context.Context, w *domain.Workspace) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*domain.Workspace, error)
	listByUserFunc func(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error)
	updateFunc     func(ctx context.Context, w *domain.Workspace) error
	deleteFunc     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockWorkspaceRepo) Create(ctx context.Context, w *domain.Workspace) error {
	return m.createFunc(ctx, w)
}

func (m *mockWorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockWorkspaceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error) {
	return m.listByUserFunc(ctx, userID)
}

func (m *mockWorkspaceRepo) Update(ctx context.Context, w *domain.Workspace) error {
	return m.updateFunc(ctx, w)
}

func (m *mockWorkspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock MemberRepository
// ---------------------------------------------------------------------------

type mockMemberRepo struct {
	addFunc             func(ctx context.Context, m *domain.Member) error
	removeFunc          func(ctx context.Context, workspaceID, userID uuid.UUID) error
	getFunc             func(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Member, error)
	listByWorkspaceFunc func(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Member, error)
	isMemberFunc        func(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error)
}

func (m *mockMemberRepo) Add(ctx context.Context, mem *domain.Member) error {
	return m.addFunc(ctx, mem)
}

func (m *mockMemberRepo) Remove(ctx context.Context, workspaceID, userID uuid.UUID) error {
	return m.removeFunc(ctx, workspaceID, userID)
}

func (m *mockMemberRepo) Get(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Member, error) {
	return m.getFunc(ctx, workspaceID, userID)
}

func (m *mockMemberRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Member, error) {
	return m.listByWorkspaceFunc(ctx, workspaceID)
}

func (m *mockMemberRepo) IsMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	return m.isMemberFunc(ctx, workspaceID, userID)
}

// alwaysMember returns a member repo that approves every membership check.
func alwaysMember() *mockMemberRepo {
	return &mockMemberRepo{
		isMemberFunc: func(_ context.Context, _, _ uuid.UUID) (bool, error) {
			return true, nil
		},
	}
}

// ---------------------------------------------------------------------------
// Mock BoardRepository
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	createFunc          func(ctx context.Context, b *domain.Board) error
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	listByWorkspaceFunc func(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Board, error)
	updateFunc          func(ctx context.Context, b *domain.Board) error
	deleteFunc          func(ctx context.Context, id uuid.UUID) error
}

func (m *mockBoardRepo) Create(ctx context.Context, b *domain.Board) error {
	return m.createFunc(ctx, b)
}

func (m *mockBoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBoardRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Board, error) {
	return m.listByWorkspaceFunc(ctx, workspaceID)
}

func (m *mockBoardRepo) Update(ctx context.Context, b *domain.Board) error {
	return m.updateFunc(ctx, b)
}

func (m *mockBoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock ColumnRepository
// ---------------------------------------------------------------------------

type mockColumnRepo struct {
	createFunc      func(ctx context.Context, c *domain.Column) error
	getByIDFunc     func(ctx context.Context, id uuid.UUID) (*domain.Column, error)
	listByBoardFunc func(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error)
	updateFunc      func(ctx context.Context, c *domain.Column) error
	deleteFunc      func(ctx context.Context, id uuid.UUID) error
}

func (m *mockColumnRepo) Create(ctx context.Context, c *domain.Column) error {
	return m.createFunc(ctx, c)
}

func (m *mockColumnRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Column, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockColumnRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockColumnRepo) Update(ctx context.Context, c *domain.Column) error {
	return m.updateFunc(ctx, c)
}

func (m *mockColumnRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock CardRepository
// ---------------------------------------------------------------------------

type mockCardRepo struct {
	createFunc          func(ctx context.Context, c *domain.Card) error
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	listByColumnFunc    func(ctx context.Context, columnID uuid.UUID) ([]*domain.Card, error)
	listByBoardFunc     func(ctx context.Context, boardID uuid.UUID) ([]*domain.Card, error)
	updateFunc          func(ctx context.Context, c *domain.Card) error
	updateColorBulkFunc func(ctx context.Context, ids []uuid.UUID, color string) ([]*domain.Card, error)
	deleteFunc          func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCardRepo) Create(ctx context.Context, c *domain.Card) error {
	return m.createFunc(ctx, c)
}

func (m *mockCardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCardRepo) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*domain.Card, error) {
	return m.listByColumnFunc(ctx, columnID)
}

func (m *mockCardRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Card, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockCardRepo) Update(ctx context.Context, c *domain.Card) error {
	return m.updateFunc(ctx, c)
}

func (m *mockCardRepo) UpdateColorBulk(ctx context.Context, ids []uuid.UUID, color string) ([]*domain.Card, error) {
	return m.updateColorBulkFunc(ctx, ids, color)
}

func (m *mockCardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock LabelRepository
// ---------------------------------------------------------------------------

type mockLabelRepo struct {
	createFunc      func(ctx context.Context, l *domain.Label) error
	getByIDFunc     func(ctx context.Context, id uuid.UUID) (*domain.Label, error)
	listByBoardFunc func(ctx context.Context, boardID uuid.UUID) ([]*domain.Label, error)
	updateFunc      func(ctx context.Context, l *domain.Label) error
	deleteFunc      func(ctx context.Context, id uuid.UUID) error
	attachFunc      func(ctx context.Context, cardID, labelID uuid.UUID) error
	detachFunc      func(ctx context.Context, cardID, labelID uuid.UUID) error
	listByCardFunc  func(ctx context.Context, cardID uuid.UUID) ([]*domain.Label, error)
}

func (m *mockLabelRepo) Create(ctx context.Context, l *domain.Label) error {
	return m.createFunc(ctx, l)
}

func (m *mockLabelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Label, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockLabelRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Label, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockLabelRepo) Update(ctx context.Context, l *domain.Label) error {
	return m.updateFunc(ctx, l)
}

func (m *mockLabelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockLabelRepo) Attach(ctx context.Context, cardID, labelID uuid.UUID) error {
	return m.attachFunc(ctx, cardID, labelID)
}

func (m *mockLabelRepo) Detach(ctx context.Context, cardID, labelID uuid.UUID) error {
	return m.detachFunc(ctx, cardID, labelID)
}

func (m *mockLabelRepo) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.Label, error) {
	return m.listByCardFunc(ctx, cardID)
}

// ---------------------------------------------------------------------------
// Mock SubtaskRepository
// ---------------------------------------------------------------------------

type mockSubtaskRepo struct {
	createFunc     func(ctx context.Context, s *domain.Subtask) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*domain.Subtask, error)
	listByCardFunc func(ctx context.Context, cardID uuid.UUID) ([]*domain.Subtask, error)
	updateFunc     func(ctx context.Context, s *domain.Subtask) error
	deleteFunc     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockSubtaskRepo) Create(ctx context.Context, s *domain.Subtask) error {
	return m.createFunc(ctx, s)
}

func (m *mockSubtaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subtask, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockSubtaskRepo) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.Subtask, error) {
	return m.listByCardFunc(ctx, cardID)
}

func (m *mockSubtaskRepo) Update(ctx context.Context, s *domain.Subtask) error {
	return m.updateFunc(ctx, s)
}

func (m *mockSubtaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, email, password, name string) (*domain.User, error)
	loginFunc        func(ctx context.Context, email, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	return m.registerFunc(ctx, email, password, name)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}
