package battery

import (
	"math"

	"github.com/microgrid-lab/mgsim/core/logger"
	"github.com/microgrid-lab/mgsim/core/soh"
)

// linearModel applies a constant conversion efficiency: stored energy is the
// exchanged energy scaled by the efficiency while charging and divided by it
// while discharging. State of charge mirrors state of energy and the
// terminal voltage is the nominal pack voltage.
type linearModel struct {
	base
}

func newLinearModel(cfg Config, curve *soh.Curve, log logger.Logger) (*linearModel, error) {
	m := &linearModel{base: newBase(cfg, curve, log)}
	m.vPrev = cfg.NominalVoltage()
	return m, nil
}

func (m *linearModel) Transition(req TransitionRequest) (float64, error) {
	dt := math.Max(m.cfg.DeltaHours, 1e-9)
	eta := req.Efficiency
	if eta == 0 {
		eta = m.cfg.InverterEff
	}
	maxCap := req.MaxCapacityKWh
	if maxCap <= 0 {
		maxCap = m.cfg.MaxCapacityKWh()
	}

	if req.Step == 0 {
		soc, soe := m.cfg.InitialSoC, m.cfg.InitialSoE
		if req.Init != nil {
			soc, soe = req.Init.SoC, req.Init.SoE
		}
		m.soc = soc
		m.soe = soe
		m.soeUnclamped = soe
		m.vPrev = m.cfg.NominalVoltage()
		m.currentA = 0
		m.eta = eta
		m.tracker.Reset()
	}

	external := req.ExternalEnergyKWh
	internal := external * eta
	if external < 0 {
		internal = external / eta
	}

	prevSoE := m.soe
	soeUnb := m.soe + internal/maxCap
	soeNew := clip(soeUnb, req.MinCapacityKWh/maxCap, 1)

	ret := (soeNew - prevSoE) * maxCap
	if req.MaxChargeKWh > 0 && ret > req.MaxChargeKWh {
		ret = req.MaxChargeKWh
	}
	if req.MaxDischargeKWh > 0 && ret < -req.MaxDischargeKWh {
		ret = -req.MaxDischargeKWh
	}

	packV := m.cfg.NominalVoltage()
	i := -1000 * (external / dt) / packV

	m.soc = soeNew
	m.soe = soeNew
	m.soeUnclamped = soeUnb
	m.vPrev = packV
	m.currentA = i
	m.eta = eta
	m.tracker.Accumulate(math.Abs(i) * dt)
	m.hist.append(Record{
		Time:     float64(req.Step) * dt,
		CurrentA: i,
		VoltageV: packV,
		SoC:      soeNew,
		SoE:      soeNew,
		PowerKW:  external / dt,
	})
	m.step = req.Step + 1
	return ret, nil
}

func (m *linearModel) Charge(powerKW float64) (float64, error) {
	return m.charge(m.Transition, powerKW)
}

func (m *linearModel) Discharge(powerKW float64) (float64, error) {
	return m.discharge(m.Transition, powerKW)
}
