// Package config loads and validates the simulator configuration from a
// YAML or JSON file with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/dispatch"
	"github.com/microgrid-lab/mgsim/core/dispatch/ledger"
	"github.com/microgrid-lab/mgsim/core/economics"
	"github.com/microgrid-lab/mgsim/core/ingest"
	"github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/infra/pricing"
)

type Config struct {
	Simulation SimulationConfig  `json:"simulation"`
	Battery    battery.Config    `json:"battery"`
	Dispatch   dispatch.Config   `json:"dispatch"`
	Tariffs    economics.Tariffs `json:"tariffs"`
	Pricing    pricing.Config    `json:"pricing"`
	Ingest     ingest.Config     `json:"ingest"`
	Ledger     ledger.Config     `json:"ledger"`
	Metrics    metrics.Config    `json:"metrics"`
	Eco        EcoConfig         `json:"eco"`
	Realtime   RealtimeConfig    `json:"realtime"`
	API        APIConfig         `json:"api"`
	Sentry     SentryConfig      `json:"sentry"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("MGSIM_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "mgsim_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Battery.SetDefaults()
	cfg.Tariffs.SetDefaults()
	cfg.Eco.SetDefaults()
	cfg.Realtime.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Simulation.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Battery.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Tariffs.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Eco.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
