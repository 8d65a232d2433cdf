package service

import (
	"time"

	"shadow/internal/ratelimit/models"
)

// WindowStore is the per-key fixed-window table. Update must serialize
// concurrent calls for the same key and must not serialize unrelated keys.
type WindowStore interface {
	Update(key string, fn func(w *models.RateWindow))
	Get(key string) (models.RateWindow, bool)
	Delete(key string)
	Len() int
	Sweep(now time.Time) int
}
