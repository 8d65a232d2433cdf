package models

import (
	"fmt"
	"time"

	dErrors "shadow/pkg/domain-errors"
)

// RateWindow is the fixed-window counter for one client key.
//
// Invariants:
//   - Count never exceeds the configured limit; a check at the limit is rejected
//     without incrementing.
//   - ResetAt is set to now+window whenever the window is (re)started.
type RateWindow struct {
	Count   int
	ResetAt time.Time
}

// Expired reports whether the window has reached its reset time.
func (w *RateWindow) Expired(now time.Time) bool {
	return !now.Before(w.ResetAt)
}

// Restart zeroes the counter and opens a new window starting at now.
func (w *RateWindow) Restart(now time.Time, window time.Duration) {
	w.Count = 0
	w.ResetAt = now.Add(window)
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"-"` // only set when not allowed
}

var errRateLimited = dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded")

// ExceededError is returned by a rejected check. It unwraps to a
// rate_limit_exceeded domain error so transports can branch on the code.
type ExceededError struct {
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded, try again in %d seconds", e.RetryAfterSeconds())
}

func (e *ExceededError) Unwrap() error {
	return errRateLimited
}

// RetryAfterSeconds truncates the wait to whole seconds, never reporting less than one.
func (e *ExceededError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
