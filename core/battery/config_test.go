package battery

import (
	"math"
	"testing"

	"github.com/microgrid-lab/mgsim/core/model"
)

func validConfig() Config {
	return Config{
		Chemistry:       model.ChemistryNMC,
		Kind:            model.ModelPack,
		SeriesCells:     100,
		ParallelStrings: 10,
		PackCapacityAh:  32,
		InverterEff:     0.95,
		DeltaHours:      1,
		SoEMin:          0.1,
		SoEMax:          0.9,
		InitialSoC:      0.5,
		InitialSoE:      0.5,
		AmbientTempC:    25,
		HistoryCap:      100,
	}
}

func TestConfigSetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	if cfg.Chemistry != model.ChemistryNMC {
		t.Errorf("chemistry = %q, want nmc", cfg.Chemistry)
	}
	if cfg.Kind != model.ModelPack {
		t.Errorf("kind = %q, want pack", cfg.Kind)
	}
	if cfg.InverterEff != 1 || cfg.DeltaHours != 1 || cfg.SoEMax != 1 {
		t.Errorf("defaults = eff %v dt %v soe_max %v", cfg.InverterEff, cfg.DeltaHours, cfg.SoEMax)
	}
	if cfg.AmbientTempC != 25 {
		t.Errorf("ambient = %v, want 25", cfg.AmbientTempC)
	}
	if cfg.HistoryCap != DefaultHistoryCap {
		t.Errorf("history cap = %d, want %d", cfg.HistoryCap, DefaultHistoryCap)
	}
}

func TestConfigSetDefaults_SoEFollowsSoC(t *testing.T) {
	cfg := Config{InitialSoC: 0.42}
	cfg.SetDefaults()
	if cfg.InitialSoE != 0.42 {
		t.Errorf("initial SoE = %v, want 0.42", cfg.InitialSoE)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown chemistry", func(c *Config) { c.Chemistry = "lead" }},
		{"unknown model", func(c *Config) { c.Kind = "quantum" }},
		{"zero series cells", func(c *Config) { c.SeriesCells = 0 }},
		{"negative parallel strings", func(c *Config) { c.ParallelStrings = -1 }},
		{"zero capacity", func(c *Config) { c.PackCapacityAh = 0 }},
		{"efficiency above one", func(c *Config) { c.InverterEff = 1.2 }},
		{"zero timestep", func(c *Config) { c.DeltaHours = 0 }},
		{"inverted soe bounds", func(c *Config) { c.SoEMin, c.SoEMax = 0.9, 0.1 }},
		{"negative rating", func(c *Config) { c.MaxChargeKW = -5 }},
		{"initial soc out of range", func(c *Config) { c.InitialSoC = 1.5 }},
		{"initial soe below min", func(c *Config) { c.InitialSoE = 0.05 }},
	}
	for _, c := range cases {
		cfg := validConfig()
		c.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestConfigDerivedQuantities(t *testing.T) {
	cfg := validConfig()
	if got := cfg.NominalEnergyKWh(); math.Abs(got-118.4) > 1e-9 {
		t.Errorf("nominal energy = %v, want 118.4", got)
	}
	if got := cfg.NominalVoltage(); math.Abs(got-370.0) > 1e-9 {
		t.Errorf("nominal voltage = %v, want 370", got)
	}
	if got := cfg.MinCapacityKWh(); math.Abs(got-11.84) > 1e-9 {
		t.Errorf("min capacity = %v, want 11.84", got)
	}
	if got := cfg.MaxCapacityKWh(); math.Abs(got-118.4) > 1e-9 {
		t.Errorf("max capacity = %v, want 118.4", got)
	}
	cfg.DeltaHours = 0.25
	cfg.MaxChargeKW = 40
	cfg.MaxDischargeKW = 20
	if got := cfg.MaxChargeKWhPerStep(); math.Abs(got-10) > 1e-9 {
		t.Errorf("charge per step = %v, want 10", got)
	}
	if got := cfg.MaxDischargeKWhPerStep(); math.Abs(got-5) > 1e-9 {
		t.Errorf("discharge per step = %v, want 5", got)
	}
}

func TestWearConfigConfigured(t *testing.T) {
	if (WearConfig{}).Configured() {
		t.Error("zero wear config should be disabled")
	}
	if !(WearConfig{A: 1, B: 2, Price: 100}).Configured() {
		t.Error("full wear config should be enabled")
	}
	if (WearConfig{A: 1, B: 2}).Configured() {
		t.Error("partial wear config should be disabled")
	}
}
