package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/plankhq/plank/internal/realtime"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// DialWebSocket returns the production TransportFactory: one WebSocket
// connection per scope, authenticated once at handshake, reconnecting with
// backoff. After every reconnect it re-subscribes and raises the refetch
// signal, because missed events are recovered by a full-state refresh, not
// replay.
func DialWebSocket(url, token string, log zerolog.Logger) TransportFactory {
	return func(scope string, onEvent func(*realtime.ChangeEvent), onRefetch func()) (Transport, error) {
		ctx, cancel := context.WithCancel(context.Background())
		t := &wsTransport{cancel: cancel, done: make(chan struct{})}

		go t.run(ctx, url, token, scope, onEvent, onRefetch, log.With().Str("component", "transport").Str("scope", scope).Logger())

		return t, nil
	}
}

type wsTransport struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *wsTransport) Close() error {
	t.cancel()
	<-t.done
	return nil
}

func (t *wsTransport) run(ctx context.Context, url, token, scope string, onEvent func(*realtime.ChangeEvent), onRefetch func(), log zerolog.Logger) {
	defer close(t.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		if attempt > 0 {
			delay := reconnectBase << min(attempt-1, 5)
			if delay > reconnectMax {
				delay = reconnectMax
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		conn, err := t.connect(ctx, url, token, scope)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("dial failed")
			attempt++
			continue
		}

		if attempt > 0 {
			// Events published while we were gone are lost; the application
			// recovers through the read path.
			onRefetch()
		}
		attempt = 1

		t.readLoop(ctx, conn, onEvent, log)
		_ = conn.CloseNow()
	}
}

func (t *wsTransport) connect(ctx context.Context, url, token, scope string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(realtime.ScopeCommand{Action: realtime.ActionSubscribe, Scope: scope})
	if err != nil {
		_ = conn.CloseNow()
		return nil, err
	}
	if err := conn.Write(dialCtx, websocket.MessageText, payload); err != nil {
		_ = conn.CloseNow()
		return nil, err
	}

	return conn, nil
}

func (t *wsTransport) readLoop(ctx context.Context, conn *websocket.Conn, onEvent func(*realtime.ChangeEvent), log zerolog.Logger) {
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Msg("read failed, reconnecting")
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Warn().Err(err).Msg("malformed event frame")
			continue
		}
		if env.Event != nil {
			onEvent(env.Event)
		}
	}
}
