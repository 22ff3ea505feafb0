package battery

import (
	"fmt"

	"github.com/microgrid-lab/mgsim/core/model"
	"github.com/microgrid-lab/mgsim/core/soh"
)

// cellSpec fixes the reference cell a chemistry's parameter tables were
// measured on.
type cellSpec struct {
	capacityAh float64
	voltage    float64
	table      string
}

var cellSpecs = map[model.Chemistry]cellSpec{
	model.ChemistryNMC: {capacityAh: 3.2, voltage: 3.7, table: "params/nmc.csv"},
	model.ChemistryNCA: {capacityAh: 87.671, voltage: 3.65, table: "params/nca.csv"},
	model.ChemistryLFP: {capacityAh: 3.704, voltage: 3.2, table: "params/lfp.csv"},
}

// WearConfig carries the empirical wear-cost coefficients. A and B shape the
// wear-rate curve, Price is the battery replacement price in EUR. All three
// must be set for wear accounting; zero values disable it.
type WearConfig struct {
	A     float64 `json:"a"`
	B     float64 `json:"b"`
	Price float64 `json:"price"`
}

// Configured reports whether wear accounting is enabled.
func (w WearConfig) Configured() bool {
	return w.A != 0 && w.B != 0 && w.Price != 0
}

// Config describes a battery pack. It is immutable after construction.
type Config struct {
	Chemistry model.Chemistry `json:"chemistry"`
	Kind      model.ModelKind `json:"model"`

	SeriesCells     int     `json:"series_cells"`     // Ns
	ParallelStrings int     `json:"parallel_strings"` // Np
	PackCapacityAh  float64 `json:"pack_capacity_ah"` // nominal capacity c_n per string
	InverterEff     float64 `json:"inverter_eff"`     // static inverter efficiency
	DeltaHours      float64 `json:"delta_hours"`      // timestep duration
	SoEMin          float64 `json:"soe_min"`          // lower state-of-energy bound
	SoEMax          float64 `json:"soe_max"`          // upper state-of-energy bound
	MaxChargeKW     float64 `json:"max_charge_kw"`    // charge power rating
	MaxDischargeKW  float64 `json:"max_discharge_kw"` // discharge power rating
	InitialSoC      float64 `json:"initial_soc"`
	InitialSoE      float64 `json:"initial_soe"`
	AmbientTempC    float64 `json:"ambient_temp_c"`
	HistoryCap      int     `json:"history_cap"`

	Wear WearConfig `json:"wear"`

	// SOHPoints overrides the chemistry's default degradation anchors.
	SOHPoints []soh.Point `json:"soh_points,omitempty"`
}

// DefaultHistoryCap bounds the diagnostic history when the configuration
// does not set one: ten years of hourly steps.
const DefaultHistoryCap = 87600

// SetDefaults fills unset fields with usable values.
func (c *Config) SetDefaults() {
	if c.Chemistry == "" {
		c.Chemistry = model.ChemistryNMC
	}
	if c.Kind == "" {
		c.Kind = model.ModelPack
	}
	if c.InverterEff == 0 {
		c.InverterEff = 1
	}
	if c.DeltaHours == 0 {
		c.DeltaHours = 1
	}
	if c.SoEMax == 0 {
		c.SoEMax = 1
	}
	if c.AmbientTempC == 0 {
		c.AmbientTempC = 25
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = DefaultHistoryCap
	}
	if c.InitialSoE == 0 {
		c.InitialSoE = c.InitialSoC
	}
}

// Validate checks the configuration for construction.
func (c Config) Validate() error {
	if _, ok := cellSpecs[c.Chemistry]; !ok {
		return fmt.Errorf("battery: unknown chemistry %q", c.Chemistry)
	}
	if _, err := model.ParseModelKind(string(c.Kind)); err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	if c.SeriesCells <= 0 || c.ParallelStrings <= 0 {
		return fmt.Errorf("battery: cell counts Ns=%d Np=%d must be positive", c.SeriesCells, c.ParallelStrings)
	}
	if c.PackCapacityAh <= 0 {
		return fmt.Errorf("battery: pack capacity %v Ah must be positive", c.PackCapacityAh)
	}
	if c.InverterEff <= 0 || c.InverterEff > 1 {
		return fmt.Errorf("battery: inverter efficiency %v outside (0,1]", c.InverterEff)
	}
	if c.DeltaHours <= 0 {
		return fmt.Errorf("battery: timestep %v h must be positive", c.DeltaHours)
	}
	if c.SoEMin < 0 || c.SoEMax > 1 || c.SoEMin >= c.SoEMax {
		return fmt.Errorf("battery: SoE bounds [%v, %v] invalid", c.SoEMin, c.SoEMax)
	}
	if c.MaxChargeKW < 0 || c.MaxDischargeKW < 0 {
		return fmt.Errorf("battery: power ratings must be non-negative")
	}
	if c.InitialSoC < 0 || c.InitialSoC > 1 {
		return fmt.Errorf("battery: initial SoC %v outside [0,1]", c.InitialSoC)
	}
	if c.InitialSoE < c.SoEMin || c.InitialSoE > c.SoEMax {
		return fmt.Errorf("battery: initial SoE %v outside [%v, %v]", c.InitialSoE, c.SoEMin, c.SoEMax)
	}
	return nil
}

// CellVoltage returns the nominal voltage of the reference cell.
func (c Config) CellVoltage() float64 { return cellSpecs[c.Chemistry].voltage }

// RefCellCapacityAh returns the capacity of the reference cell the parameter
// tables were measured on.
func (c Config) RefCellCapacityAh() float64 { return cellSpecs[c.Chemistry].capacityAh }

// NominalEnergyKWh returns the pack's nominal energy
// c_n * V_cell * Ns * Np / 1000.
func (c Config) NominalEnergyKWh() float64 {
	return c.PackCapacityAh * c.CellVoltage() * float64(c.SeriesCells) * float64(c.ParallelStrings) / 1000
}

// NominalVoltage returns the pack's nominal voltage V_cell * Ns.
func (c Config) NominalVoltage() float64 {
	return c.CellVoltage() * float64(c.SeriesCells)
}

// MinCapacityKWh returns the energy stored at the lower SoE bound.
func (c Config) MinCapacityKWh() float64 { return c.SoEMin * c.NominalEnergyKWh() }

// MaxCapacityKWh returns the pack's nominal energy, the reference for SoE
// fractions.
func (c Config) MaxCapacityKWh() float64 { return c.NominalEnergyKWh() }

// MaxChargeKWhPerStep returns the energy the pack may absorb in one step.
func (c Config) MaxChargeKWhPerStep() float64 { return c.MaxChargeKW * c.DeltaHours }

// MaxDischargeKWhPerStep returns the energy the pack may supply in one step.
func (c Config) MaxDischargeKWhPerStep() float64 { return c.MaxDischargeKW * c.DeltaHours }

func (c Config) sohPoints() []soh.Point {
	if len(c.SOHPoints) > 0 {
		return c.SOHPoints
	}
	return soh.NMCPoints()
}
