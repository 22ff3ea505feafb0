package config

import (
	"fmt"
	"time"
)

// SimulationConfig names and times a run.
type SimulationConfig struct {
	// RunID tags ledger rows, metrics and exports. Empty generates one.
	RunID string `json:"run_id"`
	// Start is the RFC 3339 timestamp of the first step. Empty means now.
	Start string `json:"start"`
}

// StartTime parses the configured start. A zero time means the clock.
func (c SimulationConfig) StartTime() (time.Time, error) {
	if c.Start == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, c.Start)
}

// Validate checks the start timestamp parses.
func (c SimulationConfig) Validate() error {
	if _, err := c.StartTime(); err != nil {
		return fmt.Errorf("simulation: bad start %q: %w", c.Start, err)
	}
	return nil
}
