package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shadow/internal/profile/models"
	"shadow/internal/validate"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/httputil"
	"shadow/pkg/platform/middleware/auth"
	"shadow/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context, wallet string) (*models.Profile, error)
	Save(ctx context.Context, wallet, profileCID string, isPublic bool) (*models.Profile, error)
	Update(ctx context.Context, wallet string, profileCID *string, isPublic *bool) (*models.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Profile, error)
}

var errNotSelf = dErrors.New(dErrors.CodeForbidden, "profiles can only be changed by their wallet")

type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator auth.JWTValidator
}

func New(service Service, logger *slog.Logger, jwtValidator auth.JWTValidator) *Handler {
	return &Handler{service: service, logger: logger, jwtValidator: jwtValidator}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/profiles/search", h.handleSearch)
	r.Get("/api/profiles/{wallet}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireWallet(h.jwtValidator, h.logger))
		r.Post("/api/profiles", h.handleCreate)
		r.Put("/api/profiles/{wallet}", h.handleUpdate)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet := chi.URLParam(r, "wallet")
	if err := validate.Pubkey("wallet", wallet); err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Get(ctx, wallet)
	if err != nil && !dErrors.Is(err, dErrors.CodeNotFound) {
		h.writeError(ctx, w, "get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewProfileResponse(wallet, p))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateProfileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.Wallet != requestcontext.Wallet(ctx) {
		h.writeError(ctx, w, "create", errNotSelf)
		return
	}
	p, err := h.service.Save(ctx, req.Wallet, req.ProfileCID, req.IsPublic)
	if err != nil {
		h.writeError(ctx, w, "create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewProfileResponse(req.Wallet, p))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet := chi.URLParam(r, "wallet")
	if wallet != requestcontext.Wallet(ctx) {
		h.writeError(ctx, w, "update", errNotSelf)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateProfileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Update(ctx, wallet, req.ProfileCID, req.IsPublic)
	if err != nil {
		h.writeError(ctx, w, "update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewProfileResponse(wallet, p))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	query := q.Get("q")
	if err := validate.SearchQuery(query); err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := validate.ParseLimit(q.Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profiles, err := h.service.Search(ctx, query, limit)
	if err != nil {
		h.writeError(ctx, w, "search", err)
		return
	}
	out := make([]models.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, models.NewProfileResponse(p.WalletPubkey, p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{
		"operation", op,
		"error", err,
		"wallet", requestcontext.Wallet(ctx),
		"request_id", requestcontext.RequestID(ctx),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "profile request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "profile request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
