// Package circuit provides a consecutive-failure circuit breaker for outbound
// dependencies. An open breaker fails calls fast until its cooldown passes, then
// lets trial calls through until enough of them succeed.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shadow/pkg/platform/sentinel"
)

// ErrOpen is returned by Do while the breaker rejects calls. It wraps
// sentinel.ErrUnavailable so callers translate it like any outage.
var ErrOpen = fmt.Errorf("%w: circuit open", sentinel.ErrUnavailable)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// StateChange reports a transition caused by a Record call.
type StateChange struct {
	Opened bool
	Closed bool
}

type Breaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	openedAt         time.Time
	now              func() time.Time
	trips            func(error) bool
	logger           *slog.Logger
}

type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets how long an open breaker rejects calls before a trial.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// WithTrip decides which errors returned from Do count as failures.
// Errors it rejects count as successes: the dependency answered.
func WithTrip(fn func(error) bool) Option {
	return func(b *Breaker) {
		b.trips = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) {
		b.logger = logger
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 1,
		cooldown:         30 * time.Second,
		now:              time.Now,
		trips:            defaultTrip,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func defaultTrip(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen is true until the breaker has fully closed again.
func (b *Breaker) IsOpen() bool {
	return b.State() != StateClosed
}

// Allow reports whether a call may go out. An open breaker whose cooldown has
// elapsed moves to half-open and admits trial calls.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		return true
	default:
		return true
	}
}

// RecordFailure counts a failed call. It returns true while the breaker is not
// closed.
func (b *Breaker) RecordFailure() (bool, StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.successes = 0
	switch b.state {
	case StateOpen:
		return true, StateChange{}
	case StateHalfOpen:
		b.trip()
		return true, StateChange{Opened: true}
	}
	if b.failures >= b.failureThreshold {
		b.trip()
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess counts a successful call. It returns true when the breaker is
// closed afterwards.
func (b *Breaker) RecordSuccess() (bool, StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		b.failures = 0
		return true, StateChange{}
	}
	b.successes++
	if b.successes < b.successThreshold {
		return false, StateChange{}
	}
	b.reset()
	return true, StateChange{Closed: true}
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

// Do runs fn unless the breaker is open, and records its outcome.
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if !b.Allow() {
		return fmt.Errorf("%s: %w", b.name, ErrOpen)
	}
	err := fn()
	if err != nil && b.trips(err) {
		if _, change := b.RecordFailure(); change.Opened {
			b.logger.WarnContext(ctx, "circuit opened", "circuit", b.name, "error", err)
		}
		return err
	}
	if _, change := b.RecordSuccess(); change.Closed {
		b.logger.InfoContext(ctx, "circuit closed", "circuit", b.name)
	}
	return err
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.successes = 0
}

func (b *Breaker) reset() {
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
