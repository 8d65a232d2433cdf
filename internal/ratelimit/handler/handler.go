package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shadow/internal/ratelimit/models"
	"shadow/pkg/platform/httputil"
	"shadow/pkg/requestcontext"
)

// Controller is the slice of the admission controller operators can reach.
type Controller interface {
	Peek(ctx context.Context, key string) (*models.RateLimitResult, bool)
	Reset(key string)
	Sweep(ctx context.Context) int
}

type Handler struct {
	controller Controller
	logger     *slog.Logger
}

func New(controller Controller, logger *slog.Logger) *Handler {
	return &Handler{controller: controller, logger: logger}
}

// RegisterAdmin mounts the operator routes. Callers guard them with the admin
// token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/rate-limit/windows/{key}", h.handleGetWindow)
	r.Delete("/admin/rate-limit/windows/{key}", h.handleResetWindow)
	r.Post("/admin/rate-limit/sweep", h.handleSweep)
}

func (h *Handler) handleGetWindow(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	result, ok := h.controller.Peek(r.Context(), key)
	httputil.WriteJSON(w, http.StatusOK, models.WindowResponse{Key: key, Tracked: ok, Window: result})
}

func (h *Handler) handleResetWindow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")
	h.controller.Reset(key)
	h.logger.InfoContext(ctx, "rate limit window reset",
		"client_key", key,
		"request_id", requestcontext.RequestID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	removed := h.controller.Sweep(ctx)
	h.logger.InfoContext(ctx, "rate limit sweep", "removed", removed)
	httputil.WriteJSON(w, http.StatusOK, models.SweepResponse{Removed: removed})
}
