package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"shadow/internal/ratelimit/models"
	dErrors "shadow/pkg/domain-errors"
	audit "shadow/pkg/platform/audit"
	"shadow/pkg/platform/httputil"
	"shadow/pkg/requestcontext"
)

// Admitter decides whether one request for a client key may proceed.
type Admitter interface {
	Check(ctx context.Context, key string) (*models.RateLimitResult, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Middleware struct {
	admitter Admitter
	auditor  AuditPublisher
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for local development).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithAuditPublisher records every rejection as a security event.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(m *Middleware) {
		m.auditor = p
	}
}

func New(admitter Admitter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		admitter: admitter,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Admit gates mutating requests. Reads pass through uncounted.
func (m *Middleware) Admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := models.ClientKey(requestcontext.Wallet(ctx), requestcontext.ClientIP(ctx))

		result, err := m.admitter.Check(ctx, key)
		addRateLimitHeaders(w, result)

		if err != nil {
			var exceeded *models.ExceededError
			if !errors.As(err, &exceeded) {
				m.logger.ErrorContext(ctx, "admission check failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "admission check failed"))
				return
			}
			m.logger.InfoContext(ctx, "request rejected by rate limit",
				"client_key", key,
				"retry_after", exceeded.RetryAfterSeconds(),
				"request_id", requestcontext.RequestID(ctx),
			)
			m.emitRejection(r, key, exceeded)
			writeRateLimitExceeded(w, exceeded)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) emitRejection(r *http.Request, key string, exceeded *models.ExceededError) {
	if m.auditor == nil {
		return
	}
	ctx := r.Context()
	err := m.auditor.Emit(ctx, audit.Event{
		Subject: key,
		Action:  string(audit.EventRateLimitExceeded),
		Actor:   requestcontext.Wallet(ctx),
		Detail: map[string]string{
			"method":      r.Method,
			"path":        r.URL.Path,
			"retry_after": strconv.Itoa(exceeded.RetryAfterSeconds()),
		},
	})
	if err != nil {
		m.logger.WarnContext(ctx, "failed to emit audit event", "action", audit.EventRateLimitExceeded, "error", err)
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, exceeded *models.ExceededError) {
	retryAfter := exceeded.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      string(dErrors.CodeRateLimited),
		Message:    "Rate limit exceeded. Please try again later.",
		RetryAfter: retryAfter,
	})
}
