package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shadow/internal/solana"
	"shadow/internal/validate"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/httputil"
	"shadow/pkg/requestcontext"
)

type AccountReader interface {
	GetAccount(ctx context.Context, address string) (*solana.AccountInfo, error)
}

const (
	resultAccount = "account"
	resultProgram = "program"
	resultNone    = "none"
)

// SearchResponse classifies what lives at the searched address.
type SearchResponse struct {
	Type string              `json:"type"`
	Data *solana.AccountInfo `json:"data"`
}

type Handler struct {
	accounts AccountReader
	logger   *slog.Logger
}

func New(accounts AccountReader, logger *slog.Logger) *Handler {
	return &Handler{accounts: accounts, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/solana/search", h.handleSearch)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := r.URL.Query().Get("q")
	if err := validate.Pubkey("q", address); err != nil {
		// Anything that is not an address cannot be on chain.
		httputil.WriteJSON(w, http.StatusOK, SearchResponse{Type: resultNone})
		return
	}

	acc, err := h.accounts.GetAccount(ctx, address)
	if err != nil {
		h.logger.ErrorContext(ctx, "solana search failed",
			"address", address,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "solana rpc unavailable"))
		return
	}

	resp := SearchResponse{Type: resultNone}
	switch {
	case acc == nil:
	case acc.Executable:
		resp = SearchResponse{Type: resultProgram, Data: acc}
	default:
		resp = SearchResponse{Type: resultAccount, Data: acc}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
