package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"shadow/internal/ratelimit/config"
	"shadow/internal/ratelimit/metrics"
	"shadow/internal/ratelimit/models"
	"shadow/internal/ratelimit/store/window"
	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/requestcontext"
)

// =============================================================================
// Admission Controller Test Suite
// =============================================================================
// Time is injected through requestcontext.WithTime so window rollover is exercised
// without sleeping.

var epoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type ControllerSuite struct {
	suite.Suite
	windows    *window.InMemoryWindowStore
	metrics    *metrics.Metrics
	controller *Controller
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.windows = window.NewInMemoryWindowStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.controller = s.newController(config.Config{RequestsPerWindow: 2, Window: 60 * time.Second, CleanupThreshold: 100})
}

func (s *ControllerSuite) newController(cfg config.Config) *Controller {
	c, err := New(s.windows, cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithSyncSweep(),
	)
	s.Require().NoError(err)
	return c
}

func at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), epoch.Add(offset))
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *ControllerSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, config.DefaultConfig())
		s.Error(err)
		s.Contains(err.Error(), "window store is required")
	})

	s.Run("invalid config returns error", func() {
		_, err := New(s.windows, config.Config{})
		s.Error(err)
		s.Contains(err.Error(), "invalid rate limit config")
	})

	s.Run("defaults are accepted", func() {
		c, err := New(s.windows, config.DefaultConfig())
		s.NoError(err)
		s.NotNil(c)
	})
}

// =============================================================================
// Check Tests
// =============================================================================

func (s *ControllerSuite) TestCheckScenario() {
	// limit=2, window=60s, requests at t=0,1,2 then t=61.
	key := models.ClientKey("", "1.2.3.4")

	first, err := s.controller.Check(at(0), key)
	s.Require().NoError(err)
	s.True(first.Allowed)
	s.Equal(1, first.Remaining)

	second, err := s.controller.Check(at(time.Second), key)
	s.Require().NoError(err)
	s.True(second.Allowed)
	s.Equal(0, second.Remaining)

	third, err := s.controller.Check(at(2*time.Second), key)
	s.Require().Error(err)
	s.False(third.Allowed)
	var exceeded *models.ExceededError
	s.Require().True(errors.As(err, &exceeded))
	s.Equal(58, exceeded.RetryAfterSeconds())
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	w, ok := s.windows.Get(key)
	s.Require().True(ok)
	s.Equal(2, w.Count, "rejected check must not increment")

	fourth, err := s.controller.Check(at(61*time.Second), key)
	s.Require().NoError(err)
	s.True(fourth.Allowed)
	w, _ = s.windows.Get(key)
	s.Equal(1, w.Count, "window rolled over")
	s.Equal(epoch.Add(121*time.Second), w.ResetAt)
}

func (s *ControllerSuite) TestRetryAfterBoundedByWindow() {
	c := s.newController(config.Config{RequestsPerWindow: 5, Window: 30 * time.Second, CleanupThreshold: 100})
	for i := range 5 {
		_, err := c.Check(at(0), "wallet:bounded")
		s.Require().NoError(err, "request %d", i)
	}
	_, err := c.Check(at(0), "wallet:bounded")
	var exceeded *models.ExceededError
	s.Require().True(errors.As(err, &exceeded))
	s.LessOrEqual(exceeded.RetryAfter, 30*time.Second)
	s.LessOrEqual(exceeded.RetryAfterSeconds(), 30)
}

func (s *ControllerSuite) TestRejectionsDoNotCarryOver() {
	key := "wallet:hammer"
	for range 2 {
		_, err := s.controller.Check(at(0), key)
		s.Require().NoError(err)
	}
	for i := range 25 {
		_, err := s.controller.Check(at(time.Duration(i)*time.Second), key)
		s.Require().Error(err)
	}

	admitted := 0
	for range 10 {
		if _, err := s.controller.Check(at(90*time.Second), key); err == nil {
			admitted++
		}
	}
	s.Equal(2, admitted)
}

func (s *ControllerSuite) TestKeysAreIndependent() {
	for range 2 {
		_, err := s.controller.Check(at(0), "ip:a")
		s.Require().NoError(err)
	}
	_, err := s.controller.Check(at(0), "ip:a")
	s.Error(err)

	res, err := s.controller.Check(at(0), "ip:b")
	s.NoError(err)
	s.True(res.Allowed)
}

func (s *ControllerSuite) TestConcurrentSameKey() {
	c := s.newController(config.Config{RequestsPerWindow: 100, Window: time.Minute, CleanupThreshold: 10000})
	var wg sync.WaitGroup
	var allowed atomic.Int64

	for range 500 {
		wg.Go(func() {
			if _, err := c.Check(at(0), "wallet:burst"); err == nil {
				allowed.Add(1)
			}
		})
	}
	wg.Wait()
	s.Equal(int64(100), allowed.Load())
}

func (s *ControllerSuite) TestMetrics() {
	for range 3 {
		_, _ = s.controller.Check(at(0), "ip:metrics")
	}
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("allowed")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("rejected")))
}

// =============================================================================
// Housekeeping Tests
// =============================================================================

func (s *ControllerSuite) TestSweepOverThreshold() {
	c := s.newController(config.Config{RequestsPerWindow: 1, Window: time.Minute, CleanupThreshold: 10})
	for i := range 11 {
		_, err := c.Check(at(0), fmt.Sprintf("ip:stale:%d", i))
		s.Require().NoError(err)
	}
	_, err := c.Check(at(30*time.Second), "ip:live")
	s.Require().NoError(err)
	s.Equal(12, s.windows.Len())

	// Table is over threshold and the stale windows expired at t=60s; ip:live resets at t=90s.
	_, err = c.Check(at(80*time.Second), "ip:trigger")
	s.Require().NoError(err)

	s.Equal(2, s.windows.Len())
	_, ok := s.windows.Get("ip:live")
	s.True(ok, "live window survives")
	s.Equal(11.0, testutil.ToFloat64(s.metrics.SweptWindows))
}

func (s *ControllerSuite) TestNoSweepUnderThreshold() {
	for i := range 5 {
		_, err := s.controller.Check(at(0), fmt.Sprintf("ip:few:%d", i))
		s.Require().NoError(err)
	}
	_, err := s.controller.Check(at(time.Hour), "ip:later")
	s.Require().NoError(err)
	s.Equal(6, s.windows.Len())
}

func (s *ControllerSuite) TestExplicitSweepKeepsDecisions() {
	key := "wallet:kept"
	for range 2 {
		_, err := s.controller.Check(at(0), key)
		s.Require().NoError(err)
	}
	s.Equal(0, s.controller.Sweep(at(10*time.Second)))

	_, err := s.controller.Check(at(10*time.Second), key)
	s.Error(err, "sweep must not reset a live window")
}

// =============================================================================
// Peek / Reset
// =============================================================================

func (s *ControllerSuite) TestPeekAndReset() {
	_, ok := s.controller.Peek(at(0), "ip:peek")
	s.False(ok)

	_, err := s.controller.Check(at(0), "ip:peek")
	s.Require().NoError(err)

	res, ok := s.controller.Peek(at(0), "ip:peek")
	s.Require().True(ok)
	s.Equal(1, res.Remaining)
	w, _ := s.windows.Get("ip:peek")
	s.Equal(1, w.Count, "peek does not count")

	s.controller.Reset("ip:peek")
	_, ok = s.controller.Peek(at(0), "ip:peek")
	s.False(ok)
}
