package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"shadow/internal/ratelimit/config"
	"shadow/internal/ratelimit/metrics"
	"shadow/internal/ratelimit/models"
	"shadow/pkg/requestcontext"
)

// Controller admits or rejects requests per client key using a fixed window.
// It owns its window table exclusively and performs no I/O.
type Controller struct {
	windows  WindowStore
	config   config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	sweeping atomic.Bool
	// sweepAsync is false in tests that need deterministic housekeeping.
	sweepAsync bool
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithSyncSweep runs housekeeping on the calling goroutine instead of in the background.
func WithSyncSweep() Option {
	return func(c *Controller) {
		c.sweepAsync = false
	}
}

// New builds a controller. The configuration is copied and never changes afterwards.
func New(windows WindowStore, cfg config.Config, opts ...Option) (*Controller, error) {
	if windows == nil {
		return nil, fmt.Errorf("window store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}

	c := &Controller{
		windows:    windows,
		config:     cfg,
		logger:     slog.Default(),
		sweepAsync: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check counts one request against key.
//
// The result is always returned so callers can emit limit headers. When the window
// is exhausted the error is a *models.ExceededError and the counter is left untouched.
func (c *Controller) Check(ctx context.Context, key string) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)
	limit := c.config.RequestsPerWindow

	if c.windows.Len() > c.config.CleanupThreshold {
		if c.sweepAsync {
			go c.sweep(context.WithoutCancel(ctx))
		} else {
			c.sweep(ctx)
		}
	}

	result := &models.RateLimitResult{Limit: limit}
	c.windows.Update(key, func(w *models.RateWindow) {
		if w.ResetAt.IsZero() || w.Expired(now) {
			w.Restart(now, c.config.Window)
		}
		result.ResetAt = w.ResetAt

		if w.Count >= limit {
			result.RetryAfter = w.ResetAt.Sub(now)
			return
		}
		w.Count++
		result.Allowed = true
		result.Remaining = limit - w.Count
	})

	if !result.Allowed {
		c.recordRejected()
		c.logger.DebugContext(ctx, "rate limit exceeded",
			"client_key", key,
			"limit", limit,
			"retry_after_ms", result.RetryAfter.Milliseconds(),
		)
		return result, &models.ExceededError{
			Limit:      limit,
			ResetAt:    result.ResetAt,
			RetryAfter: result.RetryAfter,
		}
	}
	c.recordAllowed()
	return result, nil
}

// Peek reports the current window for key without counting a request.
func (c *Controller) Peek(ctx context.Context, key string) (*models.RateLimitResult, bool) {
	w, ok := c.windows.Get(key)
	if !ok {
		return nil, false
	}
	limit := c.config.RequestsPerWindow
	if w.Expired(requestcontext.Now(ctx)) {
		return &models.RateLimitResult{Allowed: true, Limit: limit, Remaining: limit, ResetAt: w.ResetAt}, true
	}
	remaining := max(limit-w.Count, 0)
	return &models.RateLimitResult{
		Allowed:   remaining > 0,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}, true
}

// Reset forgets the window for key.
func (c *Controller) Reset(key string) {
	c.windows.Delete(key)
}

// Sweep removes expired windows now, regardless of table size.
func (c *Controller) Sweep(ctx context.Context) int {
	return c.sweep(ctx)
}

// sweep allows one sweeper at a time; concurrent triggers return immediately.
func (c *Controller) sweep(ctx context.Context) int {
	if !c.sweeping.CompareAndSwap(false, true) {
		return 0
	}
	defer c.sweeping.Store(false)

	removed := c.windows.Sweep(requestcontext.Now(ctx))
	remaining := c.windows.Len()
	if c.metrics != nil {
		c.metrics.AddSwept(removed)
		c.metrics.SetTrackedWindows(remaining)
	}
	c.logger.DebugContext(ctx, "rate window sweep",
		"removed", removed,
		"remaining", remaining,
	)
	return removed
}

func (c *Controller) recordAllowed() {
	if c.metrics != nil {
		c.metrics.RecordAllowed()
	}
}

func (c *Controller) recordRejected() {
	if c.metrics != nil {
		c.metrics.RecordRejected()
	}
}
