package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shadow/internal/site/models"
	"shadow/internal/validate"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/httputil"
	"shadow/pkg/platform/middleware/auth"
	"shadow/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context, program string) (*models.Site, error)
	Register(ctx context.Context, site models.Site) (*models.Site, bool, error)
	Update(ctx context.Context, program, caller string, changes models.Changes) (*models.Site, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Site, error)
	Content(ctx context.Context, program string) ([]byte, error)
}

// ProgramChecker confirms a program account exists before a site is bound to it.
type ProgramChecker interface {
	ProgramExists(ctx context.Context, address string) (bool, error)
}

type Handler struct {
	service      Service
	programs     ProgramChecker
	logger       *slog.Logger
	jwtValidator auth.JWTValidator
}

func New(service Service, programs ProgramChecker, logger *slog.Logger, jwtValidator auth.JWTValidator) *Handler {
	return &Handler{
		service:      service,
		programs:     programs,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/sites/search", h.handleSearch)
	r.Get("/api/sites/{program}", h.handleGet)
	r.Get("/api/sites/{program}/content", h.handleContent)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireWallet(h.jwtValidator, h.logger))
		r.Post("/api/sites", h.handleRegister)
		r.Put("/api/sites/{program}", h.handleUpdate)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet := requestcontext.Wallet(ctx)
	req, ok := httputil.DecodeAndPrepare[models.RegisterSiteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.OwnerPubkey != wallet {
		h.writeError(ctx, w, "register", dErrors.New(dErrors.CodeForbidden, "owner_pubkey must match the authenticated wallet"))
		return
	}

	if h.programs != nil {
		exists, err := h.programs.ProgramExists(ctx, req.ProgramAddress)
		if err != nil {
			h.writeError(ctx, w, "register", dErrors.Wrap(err, dErrors.CodeUnavailable, "chain lookup failed"))
			return
		}
		if !exists {
			h.writeError(ctx, w, "register", dErrors.New(dErrors.CodeValidation, "program address not found on chain"))
			return
		}
	}

	site, created, err := h.service.Register(ctx, models.Site{
		ProgramAddress: req.ProgramAddress,
		OwnerPubkey:    req.OwnerPubkey,
		StorageRef:     req.StorageCID,
		Name:           req.Name,
		Description:    req.Description,
	})
	if err != nil {
		h.writeError(ctx, w, "register", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, models.SiteResponse{Success: true, Site: site})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	program := chi.URLParam(r, "program")
	if err := validate.Pubkey("program_address", program); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateSiteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	site, err := h.service.Update(ctx, program, requestcontext.Wallet(ctx), models.Changes{
		StorageRef:  req.StorageCID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(ctx, w, "update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SiteResponse{Success: true, Site: site})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	site, err := h.service.Get(ctx, chi.URLParam(r, "program"))
	if err != nil {
		h.writeError(ctx, w, "get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, site)
}

func (h *Handler) handleContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := h.service.Content(ctx, chi.URLParam(r, "program"))
	if err != nil {
		h.writeError(ctx, w, "content", err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
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
	sites, err := h.service.Search(ctx, query, limit)
	if err != nil {
		h.writeError(ctx, w, "search", err)
		return
	}
	if sites == nil {
		sites = []*models.Site{}
	}
	httputil.WriteJSON(w, http.StatusOK, sites)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{
		"operation", op,
		"error", err,
		"wallet", requestcontext.Wallet(ctx),
		"request_id", requestcontext.RequestID(ctx),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "site request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "site request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
