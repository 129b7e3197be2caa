package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lichtblick/internal/app"
	"lichtblick/internal/httputil"
	"lichtblick/internal/queue"
	"lichtblick/internal/store"
)

func main() {
	deps, err := app.BuildArchiver()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Store.Close()
	deps.Log.Info("archiver starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeTranscript, func(ctx context.Context, task queue.Task) error {
			return handleTranscript(ctx, deps, task)
		})
	})

	// Serve transcripts and health
	g.Go(func() error {
		return httputil.Serve(ctx, deps.Log, fmt.Sprintf(":%d", deps.Config.Port), routes(deps))
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil {
		deps.Log.Error("archiver stopped", "err", err)
	}
}

func routes(deps app.ArchiverDeps) http.Handler {
	r := httputil.NewRouter(deps.Log)
	r.Get("/api/sessions/{id}/transcript", transcriptHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	return r
}

// handleTranscript stores one finished turn. Undecodable payloads are
// dropped; store failures are returned so the queue retries them.
func handleTranscript(ctx context.Context, deps app.ArchiverDeps, task queue.Task) error {
	ev, err := queue.DecodeTurnEvent(task)
	if err != nil {
		deps.Log.Error("dropping transcript task", "id", task.ID, "err", err)
		return nil
	}

	turn := store.Turn{
		ID:           ev.TurnID,
		SessionID:    ev.SessionID,
		UserMessage:  ev.UserMessage,
		Reply:        ev.Reply,
		Capabilities: ev.Capabilities,
		Outcome:      store.Outcome(ev.Outcome),
		CreatedAt:    ev.CreatedAt,
	}
	if err := deps.Store.SaveTurn(ctx, turn); err != nil {
		return fmt.Errorf("save turn %s: %w", ev.TurnID, err)
	}
	deps.Log.Debug("turn archived", "turn_id", ev.TurnID, "session_id", ev.SessionID, "outcome", ev.Outcome)
	return nil
}

func transcriptHandler(deps app.ArchiverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid session id", err, http.StatusBadRequest)
			return
		}
		turns, err := deps.Store.ListTurns(r.Context(), sessionID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load transcript", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"session_id": sessionID,
			"turns":      turns,
		})
	}
}
