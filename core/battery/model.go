// Package battery implements the storage models of the simulator: a
// physics-based pack model driven by chemistry characterisation tables, a
// linear efficiency model and an empirical equivalent-circuit model. All
// three satisfy ElectricalModel and share the state-of-energy rails used by
// the dispatcher.
package battery

import (
	"fmt"

	"github.com/microgrid-lab/mgsim/core/logger"
	"github.com/microgrid-lab/mgsim/core/model"
	"github.com/microgrid-lab/mgsim/core/soh"
)

// InitialState seeds the first transition of a model, overriding the
// configured initial fractions.
type InitialState struct {
	SoC float64 `json:"soc"`
	SoE float64 `json:"soe"`
}

// TransitionRequest drives one step of an electrical model. Energies are in
// kWh; ExternalEnergyKWh is positive when the pack absorbs energy from the
// microgrid. A zero TemperatureC falls back to the configured ambient
// temperature.
type TransitionRequest struct {
	ExternalEnergyKWh float64
	MinCapacityKWh    float64
	MaxCapacityKWh    float64
	MaxChargeKWh      float64
	MaxDischargeKWh   float64
	Efficiency        float64
	TemperatureC      float64
	Step              int
	Init              *InitialState
}

// State is a restorable snapshot of an electrical model.
type State struct {
	SoC          float64 `json:"soc"`
	SoE          float64 `json:"soe"`
	VPrev        float64 `json:"v_prev"`
	CurrentA     float64 `json:"current"`
	Efficiency   float64 `json:"efficiency"`
	WearCost     float64 `json:"wear_cost"`
	ThroughputAh float64 `json:"throughput_ah"`
	SOH          float64 `json:"soh"`
	Step         int     `json:"step"`
}

// ElectricalModel is the contract between the storage asset and the rest of
// the simulator. Transition applies one raw step; Charge and Discharge wrap
// it with the configured state-of-energy rails and report the energy that
// could not be stored or supplied.
type ElectricalModel interface {
	// Transition applies one step and returns the internal energy change in
	// kWh, positive when the pack stored energy.
	Transition(req TransitionRequest) (float64, error)
	// Charge absorbs powerKW for one step and returns the surplus energy in
	// kWh that did not fit below the upper state-of-energy bound.
	Charge(powerKW float64) (excessKWh float64, err error)
	// Discharge supplies powerKW for one step and returns the shortfall
	// energy in kWh missing above the lower state-of-energy bound.
	Discharge(powerKW float64) (lackKWh float64, err error)

	SoC() float64
	SoE() float64
	SOH() float64
	ThroughputAh() float64
	DynamicEfficiency() float64
	// WearCost prices powerKW flowing for one step between the previous and
	// the current state of energy.
	WearCost(prevSoE, powerKW float64) float64
	Config() Config

	History() []Record
	Snapshot() State
	Restore(State)
	Reset()
}

// New constructs the model variant selected by cfg.Kind. The configuration
// is defaulted and validated before use.
func New(cfg Config, log logger.Logger) (ElectricalModel, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop{}
	}
	curve, err := soh.NewCurve(cfg.sohPoints())
	if err != nil {
		return nil, fmt.Errorf("failed to build degradation curve: %w", err)
	}
	switch cfg.Kind {
	case model.ModelPack:
		return newPackModel(cfg, curve, log)
	case model.ModelLinear:
		return newLinearModel(cfg, curve, log)
	case model.ModelEmpirical:
		return newEmpiricalModel(cfg, curve, log)
	default:
		return nil, fmt.Errorf("battery: unknown model kind %q", cfg.Kind)
	}
}

type transitionFunc func(TransitionRequest) (float64, error)

// base carries the state and bookkeeping shared by all model variants.
type base struct {
	cfg     Config
	log     logger.Logger
	tracker *soh.Tracker
	hist    *history

	step         int
	soc          float64
	soe          float64
	soeUnclamped float64
	vPrev        float64
	currentA     float64
	eta          float64
	wearTotal    float64
}

func newBase(cfg Config, curve *soh.Curve, log logger.Logger) base {
	b := base{
		cfg:     cfg,
		log:     log,
		tracker: soh.NewTracker(curve),
		hist:    newHistory(cfg.HistoryCap),
	}
	b.seed()
	return b
}

// seed resets the mutable state to the configured initial conditions.
func (b *base) seed() {
	b.step = 0
	b.soc = b.cfg.InitialSoC
	b.soe = b.cfg.InitialSoE
	b.soeUnclamped = b.cfg.InitialSoE
	b.vPrev = 0
	b.currentA = 0
	b.eta = b.cfg.InverterEff
	b.wearTotal = 0
}

func (b *base) SoC() float64               { return b.soc }
func (b *base) SoE() float64               { return b.soe }
func (b *base) SOH() float64               { return b.tracker.Health() }
func (b *base) ThroughputAh() float64      { return b.tracker.ThroughputAh() }
func (b *base) DynamicEfficiency() float64 { return b.eta }
func (b *base) Config() Config             { return b.cfg }

func (b *base) WearCost(prevSoE, powerKW float64) float64 {
	eta := b.eta
	if eta <= 0 {
		eta = b.cfg.InverterEff
	}
	return wearCost(b.cfg.Wear, b.cfg.NominalEnergyKWh(), eta, b.cfg.DeltaHours, prevSoE, b.soe, powerKW)
}

func (b *base) History() []Record { return b.hist.all() }

func (b *base) Snapshot() State {
	return State{
		SoC:          b.soc,
		SoE:          b.soe,
		VPrev:        b.vPrev,
		CurrentA:     b.currentA,
		Efficiency:   b.eta,
		WearCost:     b.wearTotal,
		ThroughputAh: b.tracker.ThroughputAh(),
		SOH:          b.tracker.Health(),
		Step:         b.step,
	}
}

func (b *base) Restore(s State) {
	b.soc = s.SoC
	b.soe = s.SoE
	b.soeUnclamped = s.SoE
	b.vPrev = s.VPrev
	b.currentA = s.CurrentA
	b.eta = s.Efficiency
	b.wearTotal = s.WearCost
	b.step = s.Step
	b.tracker.Restore(s.ThroughputAh, s.SOH)
}

func (b *base) Reset() {
	b.seed()
	b.tracker.Reset()
	b.hist.reset()
}

// stepRequest builds the rails request for one step at the given grid-side
// energy exchange.
func (b *base) stepRequest(externalKWh float64) TransitionRequest {
	return TransitionRequest{
		ExternalEnergyKWh: externalKWh,
		MinCapacityKWh:    b.cfg.MinCapacityKWh(),
		MaxCapacityKWh:    b.cfg.MaxCapacityKWh(),
		MaxChargeKWh:      b.cfg.MaxChargeKWhPerStep(),
		MaxDischargeKWh:   b.cfg.MaxDischargeKWhPerStep(),
		Efficiency:        b.cfg.InverterEff,
		Step:              b.step,
	}
}

// charge runs one railed charging step through the variant's transition.
func (b *base) charge(t transitionFunc, powerKW float64) (float64, error) {
	if powerKW < 0 {
		return 0, fmt.Errorf("battery: charge power %v kW must be non-negative", powerKW)
	}
	prevSoE := b.soe
	if _, err := t(b.stepRequest(powerKW * b.cfg.DeltaHours)); err != nil {
		return 0, err
	}
	var excess float64
	if b.soeUnclamped > b.cfg.SoEMax {
		excess = (b.soeUnclamped - b.cfg.SoEMax) * b.cfg.NominalEnergyKWh()
	}
	if b.soe > b.cfg.SoEMax {
		b.soe = b.cfg.SoEMax
	}
	if b.soc > b.cfg.SoEMax {
		b.soc = b.cfg.SoEMax
	}
	b.wearTotal += b.WearCost(prevSoE, powerKW)
	return excess, nil
}

// discharge runs one railed discharging step through the variant's
// transition.
func (b *base) discharge(t transitionFunc, powerKW float64) (float64, error) {
	if powerKW < 0 {
		return 0, fmt.Errorf("battery: discharge power %v kW must be non-negative", powerKW)
	}
	prevSoE := b.soe
	if _, err := t(b.stepRequest(-powerKW * b.cfg.DeltaHours)); err != nil {
		return 0, err
	}
	var lack float64
	if b.soeUnclamped < b.cfg.SoEMin {
		lack = (b.cfg.SoEMin - b.soeUnclamped) * b.cfg.NominalEnergyKWh()
	}
	if b.soe < b.cfg.SoEMin {
		b.soe = b.cfg.SoEMin
	}
	if b.soc < b.cfg.SoEMin {
		b.soc = b.cfg.SoEMin
	}
	b.wearTotal += b.WearCost(prevSoE, powerKW)
	return lack, nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
