// planktail is a headless client that subscribes to one scope and prints
// every reconciled change. Useful for watching a workspace or board from a
// terminal and for exercising the client engine against a live server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/plankhq/plank/internal/client"
	"github.com/plankhq/plank/internal/config"
	"github.com/plankhq/plank/internal/realtime"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("planktail failed")
	}
}

func run() error {
	var (
		url      = flag.String("url", "ws://localhost:8080/ws", "server WebSocket endpoint")
		apiURL   = flag.String("api", "http://localhost:8080/api/v1", "server REST endpoint, used to log in when no token is given")
		token    = flag.String("token", os.Getenv("PLANK_TOKEN"), "JWT access token")
		email    = flag.String("email", os.Getenv("PLANK_EMAIL"), "account email, used to log in when no token is given")
		password = flag.String("password", os.Getenv("PLANK_PASSWORD"), "account password")
		scope    = flag.String("scope", "", "scope to watch, e.g. workspace:<uuid> or board:<uuid>")
	)
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *scope == "" {
		return fmt.Errorf("-scope is required")
	}
	if _, _, err := realtime.ParseScope(*scope); err != nil {
		return err
	}
	if *token == "" {
		if *email == "" || *password == "" {
			return fmt.Errorf("either -token or -email and -password are required")
		}
		loggedIn, err := login(*apiURL, *email, *password)
		if err != nil {
			return err
		}
		*token = loggedIn
	}

	rc, err := config.LoadRealtime()
	if err != nil {
		return err
	}

	c := client.New(client.Config{
		URL:            *url,
		Token:          *token,
		Tolerance:      rc.ReconcileTolerance,
		PendingTimeout: rc.PendingTimeout,
		DependencyTTL:  rc.DependencyTTL,
		BatchGrace:     rc.BatchGrace,
		OnRefetch: func(scope string) {
			log.Warn().Str("scope", scope).Msg("state refetch required")
		},
		Logger: log.Logger,
	})
	defer c.Close()

	hs := client.NewHandlerSet("planktail")
	for _, entity := range []realtime.EntityType{
		realtime.EntityWorkspace,
		realtime.EntityBoard,
		realtime.EntityColumn,
		realtime.EntityCard,
		realtime.EntityLabel,
		realtime.EntitySubtask,
		realtime.EntityMember,
	} {
		hs.On(entity, printChange(entity))
	}

	unsubscribe, err := c.Subscribe(*scope, hs)
	if err != nil {
		return err
	}
	defer unsubscribe()

	log.Info().Str("scope", *scope).Msg("watching")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("stopped")
	return nil
}

// login exchanges credentials for an access token through the REST API.
func login(apiURL, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: server returned %s", resp.Status)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("login: decode response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login: response carried no access token")
	}

	return out.AccessToken, nil
}

func printChange(entity realtime.EntityType) client.Handler {
	return func(rec realtime.Record, meta client.Meta) {
		key, _ := rec.Key()
		ev := log.Info().
			Str("entity", string(entity)).
			Str("op", string(meta.Op)).
			Str("key", key)
		if title, ok := rec["title"].(string); ok {
			ev = ev.Str("title", title)
		}
		if name, ok := rec["name"].(string); ok {
			ev = ev.Str("name", name)
		}
		ev.Msg("change")
	}
}
