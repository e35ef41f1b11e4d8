package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/realtime"
)

type CreateWorkspaceInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Workspace name"`
	}
}

type CreateWorkspaceOutput struct {
	Body *domain.Workspace
}

type ListWorkspacesOutput struct {
	Body []*domain.Workspace
}

type GetWorkspaceInput struct {
	ID uuid.UUID `path:"id" doc:"Workspace ID"`
}

type GetWorkspaceOutput struct {
	Body *domain.Workspace
}

type UpdateWorkspaceInput struct {
	ID   uuid.UUID `path:"id" doc:"Workspace ID"`
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Workspace name"`
	}
}

type UpdateWorkspaceOutput struct {
	Body *domain.Workspace
}

type DeleteWorkspaceInput struct {
	ID uuid.UUID `path:"id" doc:"Workspace ID"`
}

type ListMembersInput struct {
	ID uuid.UUID `path:"id" doc:"Workspace ID"`
}

type ListMembersOutput struct {
	Body []*domain.Member
}

type AddMemberInput struct {
	ID   uuid.UUID `path:"id" doc:"Workspace ID"`
	Body struct {
		UserID uuid.UUID `json:"user_id" doc:"User to add"`
		Role   string    `json:"role" enum:"admin,member" doc:"Workspace role"`
	}
}

type AddMemberOutput struct {
	Body *domain.Member
}

type RemoveMemberInput struct {
	ID     uuid.UUID `path:"id" doc:"Workspace ID"`
	UserID uuid.UUID `path:"userID" doc:"User to remove"`
}

func RegisterWorkspaceRoutes(api huma.API, store DataStore, emitter ChangeEmitter) {
	huma.Register(api, huma.Operation{
		OperationID: "create-workspace",
		Method:      http.MethodPost,
		Path:        "/workspaces",
		Summary:     "Create a workspace",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *CreateWorkspaceInput) (*CreateWorkspaceOutput, error) {
		userID, err := requireUser(ctx)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		w := &domain.Workspace{
			ID:        uuid.New(),
			Name:      input.Body.Name,
			OwnerID:   userID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Workspaces().Create(ctx, w); err != nil {
			return nil, huma.Error500InternalServerError("failed to create workspace", err)
		}

		// The creator becomes the first admin member.
		m := &domain.Member{
			WorkspaceID: w.ID,
			UserID:      userID,
			Role:        domain.MemberRoleAdmin,
			AddedAt:     now,
		}
		if err := store.Members().Add(ctx, m); err != nil {
			return nil, huma.Error500InternalServerError("failed to add creator as member", err)
		}

		emitter.Emit(ctx, realtime.EntityWorkspace, realtime.OpInsert, w, nil)
		emitter.Emit(ctx, realtime.EntityMember, realtime.OpInsert, m, nil)

		return &CreateWorkspaceOutput{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workspaces",
		Method:      http.MethodGet,
		Path:        "/workspaces",
		Summary:     "List workspaces the caller belongs to",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, _ *struct{}) (*ListWorkspacesOutput, error) {
		userID, err := requireUser(ctx)
		if err != nil {
			return nil, err
		}

		workspaces, err := store.Workspaces().ListByUser(ctx, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list workspaces", err)
		}

		return &ListWorkspacesOutput{Body: workspaces}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workspace",
		Method:      http.MethodGet,
		Path:        "/workspaces/{id}",
		Summary:     "Get a workspace by ID",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *GetWorkspaceInput) (*GetWorkspaceOutput, error) {
		if _, err := requireMember(ctx, store, input.ID); err != nil {
			return nil, err
		}

		w, err := store.Workspaces().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("workspace not found")
			}
			return nil, huma.Error500InternalServerError("failed to get workspace", err)
		}

		return &GetWorkspaceOutput{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-workspace",
		Method:      http.MethodPut,
		Path:        "/workspaces/{id}",
		Summary:     "Rename a workspace",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *UpdateWorkspaceInput) (*UpdateWorkspaceOutput, error) {
		if _, err := requireAdmin(ctx, store, input.ID); err != nil {
			return nil, err
		}

		existing, err := store.Workspaces().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("workspace not found")
			}
			return nil, huma.Error500InternalServerError("failed to get workspace", err)
		}

		old := *existing
		existing.Name = input.Body.Name
		existing.UpdatedAt = time.Now()

		if err := store.Workspaces().Update(ctx, existing); err != nil {
			return nil, huma.Error500InternalServerError("failed to update workspace", err)
		}

		emitter.Emit(ctx, realtime.EntityWorkspace, realtime.OpUpdate, existing, &old)

		return &UpdateWorkspaceOutput{Body: existing}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-workspace",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{id}",
		Summary:     "Delete a workspace",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *DeleteWorkspaceInput) (*struct{}, error) {
		if _, err := requireAdmin(ctx, store, input.ID); err != nil {
			return nil, err
		}

		existing, err := store.Workspaces().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("workspace not found")
			}
			return nil, huma.Error500InternalServerError("failed to get workspace", err)
		}

		if err := store.Workspaces().Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete workspace", err)
		}

		emitter.Emit(ctx, realtime.EntityWorkspace, realtime.OpDelete, nil, existing)

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-members",
		Method:      http.MethodGet,
		Path:        "/workspaces/{id}/members",
		Summary:     "List workspace members",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *ListMembersInput) (*ListMembersOutput, error) {
		if _, err := requireMember(ctx, store, input.ID); err != nil {
			return nil, err
		}

		members, err := store.Members().ListByWorkspace(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list members", err)
		}

		return &ListMembersOutput{Body: members}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-member",
		Method:      http.MethodPost,
		Path:        "/workspaces/{id}/members",
		Summary:     "Add a workspace member",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *AddMemberInput) (*AddMemberOutput, error) {
		if _, err := requireAdmin(ctx, store, input.ID); err != nil {
			return nil, err
		}

		if _, err := store.Users().GetByID(ctx, input.Body.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("user not found")
			}
			return nil, huma.Error500InternalServerError("failed to look up user", err)
		}

		m := &domain.Member{
			WorkspaceID: input.ID,
			UserID:      input.Body.UserID,
			Role:        domain.MemberRole(input.Body.Role),
			AddedAt:     time.Now(),
		}

		if err := store.Members().Add(ctx, m); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("user is already a member")
			}
			return nil, huma.Error500InternalServerError("failed to add member", err)
		}

		emitter.Emit(ctx, realtime.EntityMember, realtime.OpInsert, m, nil)

		return &AddMemberOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-member",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{id}/members/{userID}",
		Summary:     "Remove a workspace member",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *RemoveMemberInput) (*struct{}, error) {
		if _, err := requireAdmin(ctx, store, input.ID); err != nil {
			return nil, err
		}

		existing, err := store.Members().Get(ctx, input.ID, input.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("member not found")
			}
			return nil, huma.Error500InternalServerError("failed to get member", err)
		}

		if err := store.Members().Remove(ctx, input.ID, input.UserID); err != nil {
			return nil, huma.Error500InternalServerError("failed to remove member", err)
		}

		emitter.Emit(ctx, realtime.EntityMember, realtime.OpDelete, nil, existing)

		return nil, nil
	})
}
