package docstore

import (
	"context"
	"errors"
	"time"

	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/sentinel"
)

// DomainError translates a backend error for callers above the store:
// sentinel.ErrNotFound becomes not_found with notFoundMsg, everything else
// (timeouts included) becomes unavailable.
func DomainError(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store timeout")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
}

// WithTimeout bounds ctx by d; d <= 0 leaves ctx unbounded.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
