package config

import "fmt"

// EcoConfig enables energy-community KPI tracking.
type EcoConfig struct {
	Enabled bool `json:"enabled"`
	// CO2GramsPerKWh converts avoided grid energy into avoided emissions.
	CO2GramsPerKWh float64 `json:"co2_grams_per_kwh"`
	// Store selects the KPI backend, "memory" or "sqlite".
	Store string `json:"store"`
	// Path locates the SQLite database when Store is "sqlite".
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *EcoConfig) SetDefaults() {
	if c.CO2GramsPerKWh == 0 {
		c.CO2GramsPerKWh = 300
	}
	if c.Store == "" {
		c.Store = "memory"
	}
}

// Validate checks the store selection.
func (c EcoConfig) Validate() error {
	switch c.Store {
	case "memory":
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("eco: sqlite store requires a path")
		}
	default:
		return fmt.Errorf("eco: unknown store %q", c.Store)
	}
	return nil
}
