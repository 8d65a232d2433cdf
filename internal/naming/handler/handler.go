package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shadow/internal/naming/models"
	"shadow/internal/validate"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/httputil"
	"shadow/pkg/platform/middleware/auth"
	"shadow/pkg/requestcontext"
)

// Service is the naming authority as seen from HTTP.
type Service interface {
	Register(ctx context.Context, domain, owner, program string, expiresAt *time.Time) (*models.NameRecord, error)
	Verify(ctx context.Context, domain string) (*models.NameRecord, error)
	Transfer(ctx context.Context, domain, newOwner string) (*models.NameRecord, error)
	Lookup(ctx context.Context, domain string) (*models.NameRecord, error)
	LookupByProgram(ctx context.Context, program string) (*models.NameRecord, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.NameRecord, error)
	Search(ctx context.Context, query string, limit int) ([]*models.NameRecord, error)
}

// ProgramChecker confirms on chain that a program account exists before a
// domain pointing at it is marked verified.
type ProgramChecker interface {
	ProgramExists(ctx context.Context, address string) (bool, error)
}

type Handler struct {
	service      Service
	programs     ProgramChecker
	logger       *slog.Logger
	jwtValidator auth.JWTValidator
}

// New creates the domain handler. programs may be nil, in which case verify
// records the outcome without an on-chain lookup.
func New(service Service, programs ProgramChecker, logger *slog.Logger, jwtValidator auth.JWTValidator) *Handler {
	return &Handler{
		service:      service,
		programs:     programs,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the domain routes. Reads are public; writes need a wallet token.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/domains/search", h.handleSearch)
	r.Get("/api/domains/program/{program}", h.handleLookupByProgram)
	r.Get("/api/domains/owner/{wallet}", h.handleListByOwner)
	r.Get("/api/domains/{domain}", h.handleLookup)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireWallet(h.jwtValidator, h.logger))
		r.Post("/api/domains", h.handleRegister)
		r.Put("/api/domains/{domain}", h.handleUpdate)
		r.Post("/api/domains/{domain}/verify", h.handleVerify)
		r.Post("/api/domains/{domain}/transfer", h.handleTransfer)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	wallet := requestcontext.Wallet(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterDomainRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.OwnerPubkey != wallet {
		h.logger.WarnContext(ctx, "domain registration for another wallet",
			"domain", req.Domain,
			"wallet", wallet,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "owner_pubkey must match the authenticated wallet"))
		return
	}

	existing, err := h.service.Lookup(ctx, req.Domain)
	switch {
	case err == nil && !existing.OwnedBy(wallet):
		h.writeError(ctx, w, "register", models.ErrNotOwner)
		return
	case err != nil && !dErrors.Is(err, dErrors.CodeNotFound):
		h.writeError(ctx, w, "register", err)
		return
	}

	rec, err := h.service.Register(ctx, req.Domain, req.OwnerPubkey, req.ProgramAddress, req.ExpiresAt)
	if err != nil {
		h.writeError(ctx, w, "register", err)
		return
	}
	status := http.StatusCreated
	if existing != nil {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, models.DomainResponse{Success: true, Domain: rec})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")
	if err := validate.Domain(domain); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateDomainRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	existing, ok := h.ownedRecord(w, r, "update", domain)
	if !ok {
		return
	}
	rec, err := h.service.Register(ctx, domain, existing.OwnerPubkey, req.ProgramAddress, nil)
	if err != nil {
		h.writeError(ctx, w, "update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.DomainResponse{Success: true, Domain: rec})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	existing, ok := h.ownedRecord(w, r, "verify", domain)
	if !ok {
		return
	}
	if h.programs != nil {
		exists, err := h.programs.ProgramExists(ctx, existing.ProgramAddress)
		if err != nil {
			h.writeError(ctx, w, "verify", dErrors.Wrap(err, dErrors.CodeUnavailable, "chain lookup failed"))
			return
		}
		if !exists {
			h.writeError(ctx, w, "verify", dErrors.New(dErrors.CodeValidation, "program account not found on chain"))
			return
		}
	}

	rec, err := h.service.Verify(ctx, domain)
	if err != nil {
		h.writeError(ctx, w, "verify", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.DomainResponse{Success: true, Domain: rec})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")
	req, ok := httputil.DecodeAndPrepare[models.TransferDomainRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if _, ok := h.ownedRecord(w, r, "transfer", domain); !ok {
		return
	}
	rec, err := h.service.Transfer(ctx, domain, req.NewOwner)
	if err != nil {
		h.writeError(ctx, w, "transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.DomainResponse{Success: true, Domain: rec})
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.service.Lookup(ctx, chi.URLParam(r, "domain"))
	if err != nil {
		h.writeError(ctx, w, "lookup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleLookupByProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	program := chi.URLParam(r, "program")
	if err := validate.Pubkey("program_address", program); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.LookupByProgram(ctx, program)
	if err != nil {
		h.writeError(ctx, w, "lookup_by_program", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet := chi.URLParam(r, "wallet")
	if err := validate.Pubkey("wallet", wallet); err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.ListByOwner(ctx, wallet)
	if err != nil {
		h.writeError(ctx, w, "list_by_owner", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nonNil(records))
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

	records, err := h.service.Search(ctx, query, limit)
	if err != nil {
		h.writeError(ctx, w, "search", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nonNil(records))
}

// ownedRecord loads domain and checks the caller owns it. On failure the
// response is already written.
func (h *Handler) ownedRecord(w http.ResponseWriter, r *http.Request, op, domain string) (*models.NameRecord, bool) {
	ctx := r.Context()
	rec, err := h.service.Lookup(ctx, domain)
	if err != nil {
		h.writeError(ctx, w, op, err)
		return nil, false
	}
	if !rec.OwnedBy(requestcontext.Wallet(ctx)) {
		h.writeError(ctx, w, op, models.ErrNotOwner)
		return nil, false
	}
	return rec, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{
		"operation", op,
		"error", err,
		"wallet", requestcontext.Wallet(ctx),
		"request_id", requestcontext.RequestID(ctx),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "domain request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "domain request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func nonNil(records []*models.NameRecord) []*models.NameRecord {
	if records == nil {
		return []*models.NameRecord{}
	}
	return records
}
