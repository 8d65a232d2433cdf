// Package httptransport assembles the public HTTP surface: the shared
// middleware chain, health and metrics endpoints, and every bounded context's
// routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shadow/pkg/platform/httputil"
	"shadow/pkg/platform/middleware/admin"
	"shadow/pkg/platform/middleware/auth"
	"shadow/pkg/platform/middleware/metadata"
	"shadow/pkg/platform/middleware/request"
	"shadow/pkg/platform/middleware/requesttime"
)

// Registrar mounts a bounded context's public routes.
type Registrar interface {
	Register(r chi.Router)
}

// AdminRegistrar mounts operator routes behind the admin token.
type AdminRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger   *slog.Logger
	Observer request.Observer
	Gatherer prometheus.Gatherer
	Tokens   auth.JWTValidator
	// TrustedProxies may set forwarding headers; nil trusts only the peer.
	TrustedProxies metadata.TrustedProxies
	// Admission gates mutating requests; nil admits everything.
	Admission  func(http.Handler) http.Handler
	AdminToken string
	Routes     []Registrar
	Admin      []AdminRegistrar
	Checks     map[string]HealthCheck
}

func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata(cfg.TrustedProxies))
	r.Use(requesttime.Middleware)
	r.Use(request.AccessLog(cfg.Logger, cfg.Observer))
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.SecurityHeaders)
	if cfg.Tokens != nil {
		r.Use(auth.OptionalWallet(cfg.Tokens))
	}
	if cfg.Admission != nil {
		r.Use(cfg.Admission)
	}

	r.Get("/api/health", healthHandler(cfg.Checks, cfg.Logger))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, reg := range cfg.Routes {
		reg.Register(r)
	}

	if cfg.AdminToken != "" && len(cfg.Admin) > 0 {
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
			for _, reg := range cfg.Admin {
				reg.RegisterAdmin(r)
			}
		})
	}
	return r
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler answers 200 when every check passes and 503 otherwise.
func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := HealthResponse{Status: "ok"}
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
