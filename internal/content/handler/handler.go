package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shadow/internal/content"
	"shadow/internal/validate"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/httputil"
	"shadow/pkg/requestcontext"
)

type Service interface {
	Store(ctx context.Context, scheme content.Scheme, data []byte, name string) (content.Ref, error)
}

type UploadResponse struct {
	Ref  string `json:"ref"`
	CID  string `json:"cid,omitempty"`
	TxID string `json:"tx_id,omitempty"`
	Key  string `json:"key,omitempty"`
	Size int    `json:"size"`
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/upload/{backend}", h.handleUpload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scheme, err := content.ParseScheme(chi.URLParam(r, "backend"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown upload backend"))
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	if name, err = validate.Sanitize("name", name, 128); err != nil {
		httputil.WriteError(w, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, content.MaxObjectBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "upload too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read upload body"))
		return
	}

	ref, err := h.service.Store(ctx, scheme, data, name)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	resp := UploadResponse{Ref: ref.String(), Size: len(data)}
	switch ref.Scheme {
	case content.SchemeIPFS:
		resp.CID = ref.ID
	case content.SchemeArweave:
		resp.TxID = ref.ID
	case content.SchemeS3:
		resp.Key = ref.ID
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "upload failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
