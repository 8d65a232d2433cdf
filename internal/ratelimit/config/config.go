// Package config holds the admission controller's immutable settings.
package config

import (
	"fmt"
	"time"
)

const (
	DefaultRequestsPerWindow = 60
	DefaultWindow            = 60 * time.Second
	DefaultCleanupThreshold  = 10000
)

// Config is passed by value into the controller and never mutated afterwards.
type Config struct {
	// RequestsPerWindow is the number of admitted checks per key per window.
	RequestsPerWindow int
	// Window is the fixed window length. Windows do not slide.
	Window time.Duration
	// CleanupThreshold is the live-key count above which expired windows are swept.
	CleanupThreshold int
}

// DefaultConfig returns 60 requests per 60 second window with a 10k key sweep threshold.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: DefaultRequestsPerWindow,
		Window:            DefaultWindow,
		CleanupThreshold:  DefaultCleanupThreshold,
	}
}

// Validate rejects configurations that would make every check fail or never reset.
func (c Config) Validate() error {
	if c.RequestsPerWindow <= 0 {
		return fmt.Errorf("requests per window must be positive, got %d", c.RequestsPerWindow)
	}
	if c.Window < time.Second {
		return fmt.Errorf("window must be at least one second, got %s", c.Window)
	}
	if c.CleanupThreshold <= 0 {
		return fmt.Errorf("cleanup threshold must be positive, got %d", c.CleanupThreshold)
	}
	return nil
}
