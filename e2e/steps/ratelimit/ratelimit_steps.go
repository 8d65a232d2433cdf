package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	Admin(method, path string) error
	Wallet() string
	LastStatus() int
	LastHeader(name string) string
	LastBody() []byte
}

// RegisterSteps registers admission control steps. They assume the server
// runs with a small RATE_LIMIT_RPM so a scenario can exhaust a window.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send POST requests to "([^"]*)" until one is rejected$`, steps.postUntilRejected)
	ctx.Step(`^the rejection should ask me to retry later$`, steps.rejectionHasRetryAfter)
	ctx.Step(`^an operator resets the window for my wallet$`, steps.resetMyWindow)
	ctx.Step(`^a POST to "([^"]*)" should not be rate limited$`, steps.postNotLimited)
}

const maxAttempts = 1000

type ratelimitSteps struct {
	tc       TestContext
	admitted int
}

func (s *ratelimitSteps) postUntilRejected(ctx context.Context, path string) error {
	s.admitted = 0
	for range maxAttempts {
		if err := s.tc.POST(path, map[string]any{}); err != nil {
			return err
		}
		if s.tc.LastStatus() == http.StatusTooManyRequests {
			return nil
		}
		s.admitted++
	}
	return fmt.Errorf("no rejection after %d requests", maxAttempts)
}

func (s *ratelimitSteps) rejectionHasRetryAfter(ctx context.Context) error {
	raw := s.tc.LastHeader("Retry-After")
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 1 {
		return fmt.Errorf("Retry-After %q is not a positive number of seconds", raw)
	}
	if s.tc.LastHeader("X-RateLimit-Remaining") != "0" {
		return fmt.Errorf("X-RateLimit-Remaining is %q on a rejection", s.tc.LastHeader("X-RateLimit-Remaining"))
	}
	return nil
}

func (s *ratelimitSteps) resetMyWindow(ctx context.Context) error {
	if s.tc.Wallet() == "" {
		return fmt.Errorf("reset needs a signed-in wallet")
	}
	if err := s.tc.Admin(http.MethodDelete, "/admin/rate-limit/windows/wallet:"+s.tc.Wallet()); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusNoContent {
		return fmt.Errorf("reset returned %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *ratelimitSteps) postNotLimited(ctx context.Context, path string) error {
	if err := s.tc.POST(path, map[string]any{}); err != nil {
		return err
	}
	if s.tc.LastStatus() == http.StatusTooManyRequests {
		return fmt.Errorf("still rate limited after reset")
	}
	return nil
}
