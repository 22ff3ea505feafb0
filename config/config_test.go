package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `simulation:
  run_id: "demo"
  start: "2024-03-04T00:00:00Z"
battery:
  chemistry: "nmc"
  model: "linear"
  series_cells: 100
  parallel_strings: 10
  pack_capacity_ah: 32
  inverter_eff: 0.95
  delta_hours: 1
  soe_min: 0.1
  soe_max: 0.9
  initial_soc: 0.5
dispatch:
  max_power_kw: 50
tariffs:
  feed_in_eur_mwh: 100
  purchase:
    mode: "flat"
    flat_eur_kwh: 0.25
ingest:
  source:
    type: "synthetic"
    conf:
      steps: 24
ledger:
  kind: "jsonl"
  path: "steps.jsonl"
metrics:
  sinks:
    - type: "nop"
eco:
  enabled: true
api:
  addr: ":9091"
realtime:
  mqtt:
    broker: "tcp://localhost:1883"
    client_id: "sim"
  sample_topic: "mg/samples"
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sampleConfig))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"run_id", cfg.Simulation.RunID, "demo"},
		{"chemistry", string(cfg.Battery.Chemistry), "nmc"},
		{"model", string(cfg.Battery.Kind), "linear"},
		{"series_cells", cfg.Battery.SeriesCells, 100},
		{"inverter_eff", cfg.Battery.InverterEff, 0.95},
		{"max_power_kw", cfg.Dispatch.MaxPowerKW, 50.0},
		{"feed_in", cfg.Tariffs.FeedInEURPerMWh, 100.0},
		{"purchase_flat", cfg.Tariffs.Purchase.FlatEURPerKWh, 0.25},
		{"source_type", cfg.Ingest.Source.Type, "synthetic"},
		{"ledger_kind", cfg.Ledger.Kind, "jsonl"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"eco_enabled", cfg.Eco.Enabled, true},
		{"eco_default_co2", cfg.Eco.CO2GramsPerKWh, 300.0},
		{"eco_default_store", cfg.Eco.Store, "memory"},
		{"api_addr", cfg.API.Addr, ":9091"},
		{"cors_default", cfg.API.AllowedOrigins[0], "*"},
		{"broker", cfg.Realtime.MQTT.Broker, "tcp://localhost:1883"},
		{"sample_topic", cfg.Realtime.SampleTopic, "mg/samples"},
		{"result_topic_default", cfg.Realtime.ResultTopic, "microgrid/results"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MGSIM_API__ADDR", ":7070")
	t.Setenv("MGSIM_SIMULATION__RUN_ID", "override")
	cfg, err := Load(writeConfig(t, "config.yaml", sampleConfig))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.API.Addr != ":7070" {
		t.Errorf("api addr = %s, want :7070", cfg.API.Addr)
	}
	if cfg.Simulation.RunID != "override" {
		t.Errorf("run id = %s, want override", cfg.Simulation.RunID)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing battery", "dispatch:\n  max_power_kw: 50\n"},
		{"bad start", "simulation:\n  start: \"tomorrow\"\n"},
		{"ledger without path", "battery:\n  chemistry: nmc\n  model: linear\n  series_cells: 1\n  parallel_strings: 1\n  pack_capacity_ah: 3.2\n  initial_soc: 0.5\ndispatch:\n  max_power_kw: 5\ntariffs:\n  purchase:\n    mode: flat\nledger:\n  kind: sqlite\n"},
		{"eco sqlite without path", "battery:\n  chemistry: nmc\n  model: linear\n  series_cells: 1\n  parallel_strings: 1\n  pack_capacity_ah: 3.2\n  initial_soc: 0.5\ndispatch:\n  max_power_kw: 5\ntariffs:\n  purchase:\n    mode: flat\neco:\n  enabled: true\n  store: sqlite\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "config.yaml", c.data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", "x = 1")); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestLoadJSON(t *testing.T) {
	data := `{
  "battery": {"chemistry": "nmc", "model": "pack", "series_cells": 10, "parallel_strings": 2, "pack_capacity_ah": 3.2, "delta_hours": 1, "soe_max": 0.9, "initial_soc": 0.5},
  "dispatch": {"max_power_kw": 5},
  "tariffs": {"purchase": {"mode": "flat", "flat_eur_kwh": 0.2}}
}`
	cfg, err := Load(writeConfig(t, "config.json", data))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Battery.SeriesCells != 10 || string(cfg.Battery.Kind) != "pack" {
		t.Fatalf("battery section not decoded: %+v", cfg.Battery)
	}
}
