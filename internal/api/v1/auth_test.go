package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/plankhq/plank/internal/api/v1"
	"github.com/plankhq/plank/internal/auth"
	"github.com/plankhq/plank/internal/domain"
)

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_returns_user_and_tokens", func(t *testing.T) {
		t.Parallel()

		now := time.Now().Truncate(time.Second)
		user := &domain.User{
			ID:        uuid.New(),
			Email:     "dev@example.com",
			Name:      "Dev",
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			registerFunc: func(_ context.Context, email, password, name string) (*domain.User, error) {
				assert.Equal(t, "dev@example.com", email)
				assert.Equal(t, "s3cretpass", password)
				assert.Equal(t, "Dev", name)
				return user, nil
			},
			loginFunc: func(_ context.Context, _, _ string) (string, string, error) {
				return "access-tok", "refresh-tok", nil
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/register", map[string]any{
			"email":    "dev@example.com",
			"password": "s3cretpass",
			"name":     "Dev",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			User         domain.User `json:"user"`
			AccessToken  string      `json:"access_token"`
			RefreshToken string      `json:"refresh_token"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, user.ID, body.User.ID)
		assert.Equal(t, "access-tok", body.AccessToken)
		assert.Equal(t, "refresh-tok", body.RefreshToken)
	})

	t.Run("duplicate_email_returns_409", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			registerFunc: func(_ context.Context, _, _, _ string) (*domain.User, error) {
				return nil, fmt.Errorf("auth.Register: %w", auth.ErrUserAlreadyExists)
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/register", map[string]any{
			"email":    "dev@example.com",
			"password": "s3cretpass",
			"name":     "Dev",
		})

		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("short_password_rejected_by_validation", func(t *testing.T) {
		t.Parallel()

		var called bool
		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			registerFunc: func(_ context.Context, _, _, _ string) (*domain.User, error) {
				called = true
				return nil, nil
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/register", map[string]any{
			"email":    "dev@example.com",
			"password": "short",
			"name":     "Dev",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.False(t, called, "service must not be reached on validation failure")
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			loginFunc: func(_ context.Context, email, password string) (string, string, error) {
				assert.Equal(t, "dev@example.com", email)
				assert.Equal(t, "s3cretpass", password)
				return "access-tok", "refresh-tok", nil
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/login", map[string]any{
			"email":    "dev@example.com",
			"password": "s3cretpass",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "access-tok", body.AccessToken)
		assert.Equal(t, "refresh-tok", body.RefreshToken)
	})

	t.Run("bad_credentials_return_401", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			loginFunc: func(_ context.Context, _, _ string) (string, string, error) {
				return "", "", fmt.Errorf("auth.Login: %w", auth.ErrInvalidCredentials)
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/login", map[string]any{
			"email":    "dev@example.com",
			"password": "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			refreshTokenFunc: func(_ context.Context, refreshToken string) (string, error) {
				assert.Equal(t, "refresh-tok", refreshToken)
				return "new-access", nil
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/refresh", map[string]any{
			"refresh_token": "refresh-tok",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			AccessToken string `json:"access_token"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "new-access", body.AccessToken)
	})

	t.Run("invalid_token_returns_401", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			refreshTokenFunc: func(_ context.Context, _ string) (string, error) {
				return "", fmt.Errorf("auth.RefreshToken: %w", auth.ErrInvalidToken)
			},
		}
		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/refresh", map[string]any{
			"refresh_token": "expired",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
