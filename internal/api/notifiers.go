package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// broadcastConcurrency bounds parallel notifier sends.
const broadcastConcurrency = 4

// broadcastRequest is the body of POST /notifiers/broadcast.
// An empty NotifierIDs targets every configured notifier.
type broadcastRequest struct {
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	NotifierIDs []string `json:"notifier_ids,omitempty"`
}

// handleBroadcast sends one notification through several notifiers.
// Notifiers that cannot be resolved are skipped by the registry; send
// failures are counted, not fatal.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req broadcastRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeBadRequest(w, "message is required")
		return
	}

	var notifiers []domain.Notifier
	if len(req.NotifierIDs) == 0 {
		notifiers = s.registry.AllNotifiers(ctx)
	} else {
		notifiers = s.registry.Notifiers(ctx, req.NotifierIDs)
	}
	if len(notifiers) == 0 {
		writeError(w, http.StatusNotFound, ErrCodeNotConfigured, "no notifiers available")
		return
	}

	var (
		mu     sync.Mutex
		failed []string
	)
	g := new(errgroup.Group)
	g.SetLimit(broadcastConcurrency)
	for _, n := range notifiers {
		g.Go(func() error {
			if err := n.SendNotification(ctx, req.Title, req.Message); err != nil {
				mu.Lock()
				failed = append(failed, err.Error())
				mu.Unlock()
				s.logger.Warn("notification failed", "error", err)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return an error

	status := http.StatusOK
	if len(failed) == len(notifiers) {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{
		"sent":   len(notifiers) - len(failed),
		"failed": len(failed),
		"errors": failed,
	})
}

// handleTestNotifier sends a fixed test message through one notifier.
func (s *Server) handleTestNotifier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	n, ok := resultValue(s, w, r, s.registry.Notifier(ctx, id), "notifier")
	if !ok {
		return
	}
	if err := n.SendNotification(ctx, testNotificationTitle, "Notifier "+id+" is configured correctly."); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifier_id": id, "sent": true})
}
