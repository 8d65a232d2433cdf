package naming

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	Wallet() string
	Field(path string) (any, error)
}

// RegisterSteps registers domain lifecycle steps. Scenarios work on a fresh
// .shadow name per run so they can repeat against a persistent store.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &namingSteps{tc: tc}

	ctx.Step(`^I register a fresh domain pointing at program "([^"]*)"$`, steps.registerFresh)
	ctx.Step(`^I register the same domain pointing at program "([^"]*)"$`, steps.registerAgain)
	ctx.Step(`^I verify the domain$`, steps.verify)
	ctx.Step(`^I transfer the domain to "([^"]*)"$`, steps.transfer)
	ctx.Step(`^I look up the domain$`, steps.lookup)
	ctx.Step(`^the domain should be owned by "([^"]*)"$`, steps.ownedBy)
}

type namingSteps struct {
	tc     TestContext
	domain string
}

func (s *namingSteps) registerFresh(ctx context.Context, program string) error {
	s.domain = fmt.Sprintf("e2e-%d.shadow", time.Now().UnixNano())
	return s.register(program)
}

func (s *namingSteps) registerAgain(ctx context.Context, program string) error {
	if s.domain == "" {
		return fmt.Errorf("no domain registered in this scenario")
	}
	return s.register(program)
}

func (s *namingSteps) register(program string) error {
	return s.tc.POST("/api/domains", map[string]any{
		"domain":          s.domain,
		"owner_pubkey":    s.tc.Wallet(),
		"program_address": program,
	})
}

func (s *namingSteps) verify(ctx context.Context) error {
	return s.tc.POST("/api/domains/"+s.domain+"/verify", nil)
}

func (s *namingSteps) transfer(ctx context.Context, newOwner string) error {
	return s.tc.POST("/api/domains/"+s.domain+"/transfer", map[string]any{"new_owner": newOwner})
}

func (s *namingSteps) lookup(ctx context.Context) error {
	return s.tc.GET("/api/domains/" + s.domain)
}

func (s *namingSteps) ownedBy(ctx context.Context, wallet string) error {
	v, err := s.tc.Field("owner_pubkey")
	if err != nil {
		return err
	}
	if v != wallet {
		return fmt.Errorf("domain %s owned by %v, want %s", s.domain, v, wallet)
	}
	return nil
}
