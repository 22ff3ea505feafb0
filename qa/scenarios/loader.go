package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/model"
)

type BatteryDef struct {
	Model           string  `yaml:"model"`
	Chemistry       string  `yaml:"chemistry,omitempty"`
	SeriesCells     int     `yaml:"series_cells"`
	ParallelStrings int     `yaml:"parallel_strings"`
	PackCapacityAh  float64 `yaml:"pack_capacity_ah"`
	InverterEff     float64 `yaml:"inverter_eff"`
	DeltaHours      float64 `yaml:"delta_hours"`
	SoEMin          float64 `yaml:"soe_min"`
	SoEMax          float64 `yaml:"soe_max"`
	InitialSoE      float64 `yaml:"initial_soe"`
}

func (b BatteryDef) ToConfig() battery.Config {
	return battery.Config{
		Chemistry:       model.Chemistry(b.Chemistry),
		Kind:            model.ModelKind(b.Model),
		SeriesCells:     b.SeriesCells,
		ParallelStrings: b.ParallelStrings,
		PackCapacityAh:  b.PackCapacityAh,
		InverterEff:     b.InverterEff,
		DeltaHours:      b.DeltaHours,
		SoEMin:          b.SoEMin,
		SoEMax:          b.SoEMax,
		InitialSoC:      b.InitialSoE,
		InitialSoE:      b.InitialSoE,
		HistoryCap:      1000,
	}
}

type StepDef struct {
	PVKW   float64  `yaml:"pv_kw"`
	LoadKW float64  `yaml:"load_kw"`
	Alpha  *float64 `yaml:"alpha,omitempty"`
}

func (s StepDef) ToModel() model.PowerSample {
	alpha := 1.0
	if s.Alpha != nil {
		alpha = *s.Alpha
	}
	return model.PowerSample{PVKW: s.PVKW, LoadKW: s.LoadKW, Alpha: alpha}
}

type Expected struct {
	Cases      []string `yaml:"cases,omitempty"`
	FinalSoE   *float64 `yaml:"final_soe,omitempty"`
	MaxCostEUR *float64 `yaml:"max_cost_eur,omitempty"`
}

type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Battery     BatteryDef `yaml:"battery"`
	MaxPowerKW  float64    `yaml:"max_power_kw"`
	Steps       []StepDef  `yaml:"steps"`
	Expected    Expected   `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
