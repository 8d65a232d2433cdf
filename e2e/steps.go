package e2e

import (
	"github.com/cucumber/godog"

	"shadow/e2e/steps/common"
	"shadow/e2e/steps/naming"
	"shadow/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	naming.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
