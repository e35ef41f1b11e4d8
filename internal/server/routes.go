package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/plankhq/plank/internal/api/v1"
	"github.com/plankhq/plank/internal/api/ws"
	"github.com/plankhq/plank/internal/auth"
	"github.com/plankhq/plank/internal/realtime"
	"github.com/plankhq/plank/internal/store/postgres"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store *postgres.Store, emitter *realtime.Emitter) {
	v1.RegisterWorkspaceRoutes(api, store, emitter)
	v1.RegisterBoardRoutes(api, store, emitter)
	v1.RegisterColumnRoutes(api, store, emitter)
	v1.RegisterCardRoutes(api, store, emitter)
	v1.RegisterLabelRoutes(api, store, emitter)
	v1.RegisterSubtaskRoutes(api, store, emitter)
}

func registerWSRoutes(r chi.Router, handler *ws.Handler) {
	r.Get("/", handler.Serve)
}
