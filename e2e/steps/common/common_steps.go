package common

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	SignIn(wallet string) error
	SignOut()
	LastStatus() int
	LastHeader(name string) string
	LastBody() []byte
	Field(path string) (any, error)
}

// RegisterSteps registers background, request and assertion steps shared by
// every feature.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the shadow server is healthy$`, steps.serverIsHealthy)
	ctx.Step(`^I am signed in as wallet "([^"]*)"$`, steps.signedInAs)
	ctx.Step(`^I am anonymous$`, steps.anonymous)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response should have header "([^"]*)"$`, steps.shouldHaveHeader)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serverIsHealthy(ctx context.Context) error {
	if err := s.tc.GET("/api/health"); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("health returned %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) signedInAs(ctx context.Context, wallet string) error {
	return s.tc.SignIn(wallet)
}

func (s *commonSteps) anonymous(ctx context.Context) error {
	s.tc.SignOut()
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.LastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, path, expected string) error {
	v, err := s.tc.Field(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("field %q: expected %q, got %q", path, expected, got)
	}
	return nil
}

func (s *commonSteps) shouldHaveHeader(ctx context.Context, name string) error {
	if s.tc.LastHeader(name) == "" {
		return fmt.Errorf("response has no %s header", name)
	}
	return nil
}
