package httputil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "shadow/pkg/domain-errors"
)

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder, bool) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rr := httptest.NewRecorder()
		out, ok := DecodeAndPrepare[sampleRequest](rr, req, logger, context.Background(), "req-1")
		return out, rr, ok
	}

	t.Run("valid body is normalized", func(t *testing.T) {
		out, _, ok := decode(`{"name":"  alice "}`)
		require.True(t, ok)
		assert.Equal(t, "alice", out.Name)
	})

	t.Run("malformed json answers 400", func(t *testing.T) {
		_, rr, ok := decode(`{"name":`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "bad_request")
	})

	t.Run("validation failure answers 400 with description", func(t *testing.T) {
		_, rr, ok := decode(`{"name":"  "}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "name is required")
	})
}
