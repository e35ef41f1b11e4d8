package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plankhq/plank/internal/domain"
	"github.com/plankhq/plank/internal/realtime"
	"github.com/plankhq/plank/internal/server/middleware"
)

// BoardLookup resolves a board's owning workspace for scope authorization.
// *postgres.Store satisfies it.
type BoardLookup interface {
	BoardWorkspace(ctx context.Context, boardID uuid.UUID) (uuid.UUID, error)
}

// Handler upgrades authenticated HTTP requests to WebSocket connections and
// bridges them into the Hub. One connection serves any number of scopes;
// subscription changes arrive as ScopeCommand frames and are authorized
// against workspace membership before they reach the Hub.
type Handler struct {
	hub     *realtime.Hub
	members domain.MemberRepository
	boards  BoardLookup
	log     zerolog.Logger
}

func NewHandler(hub *realtime.Hub, members domain.MemberRepository, boards BoardLookup, log zerolog.Logger) *Handler {
	return &Handler{
		hub:     hub,
		members: members,
		boards:  boards,
		log:     log.With().Str("component", "ws").Logger(),
	}
}

// Serve handles one WebSocket connection for its lifetime. Identity is fixed
// at handshake; a token expiring mid-connection does not tear it down.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer ws.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := h.hub.Register(userID)
	defer h.hub.Unregister(conn)

	// Writer drains the hub's per-connection queue; a write failure ends the
	// connection and with it the reader below.
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, open := <-conn.Send():
				if !open {
					return
				}
				if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
					if ctx.Err() == nil {
						h.log.Debug().Err(err).Msg("websocket write")
					}
					return
				}
			}
		}
	}()

	h.readLoop(ctx, ws, conn, userID)
	_ = ws.Close(websocket.StatusNormalClosure, "connection closed")
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, conn *realtime.Conn, userID uuid.UUID) {
	for {
		_, payload, err := ws.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				h.log.Debug().Err(err).Msg("websocket read")
			}
			return
		}

		var cmd realtime.ScopeCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.log.Warn().Err(err).Str("user", userID.String()).Msg("malformed scope command")
			continue
		}

		switch cmd.Action {
		case realtime.ActionSubscribe:
			if !h.authorize(ctx, userID, cmd.Scope) {
				h.log.Warn().Str("user", userID.String()).Str("scope", cmd.Scope).Msg("scope subscription denied")
				continue
			}
			h.hub.Subscribe(conn, cmd.Scope)

		case realtime.ActionUnsubscribe:
			h.hub.Unsubscribe(conn, cmd.Scope)

		default:
			h.log.Warn().Str("action", cmd.Action).Msg("unknown scope command action")
		}
	}
}

// authorize checks workspace membership for the requested scope. Board
// scopes are resolved to their workspace first.
func (h *Handler) authorize(ctx context.Context, userID uuid.UUID, scope string) bool {
	kind, id, err := realtime.ParseScope(scope)
	if err != nil {
		return false
	}

	workspaceID := id
	if kind == "board" {
		workspaceID, err = h.boards.BoardWorkspace(ctx, id)
		if err != nil {
			return false
		}
	}

	isMember, err := h.members.IsMember(ctx, workspaceID, userID)
	if err != nil {
		h.log.Error().Err(err).Str("scope", scope).Msg("membership check failed")
		return false
	}
	return isMember
}
