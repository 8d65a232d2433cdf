package worker

import (
	"context"
	"log/slog"

	audit "shadow/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Failed
// appends are logged and skipped; audit delivery never blocks the inbox.
type Worker struct {
	store     audit.Store
	inbox     <-chan audit.Event
	logger    *slog.Logger
	onFailure func(audit.Event, error)
}

type Option func(*Worker)

// WithFailureHook is called after each failed append, once the failure is logged.
func WithFailureHook(fn func(audit.Event, error)) Option {
	return func(w *Worker) {
		w.onFailure = fn
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{store: store, inbox: inbox, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run returns when the inbox is closed and drained, or when ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
				if w.onFailure != nil {
					w.onFailure(event, err)
				}
			}
		}
	}
}
