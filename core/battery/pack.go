package battery

import (
	"math"

	"github.com/microgrid-lab/mgsim/core/logger"
	"github.com/microgrid-lab/mgsim/core/soh"
)

// packModel simulates the pack as a zeroth-order equivalent circuit whose
// open-circuit voltage and internal resistance come from the chemistry
// characterisation tables. Current is derived from the previous step's
// terminal voltage, carrying the one-step lag of the discretisation.
type packModel struct {
	base
	tables *TableSet
}

func newPackModel(cfg Config, curve *soh.Curve, log logger.Logger) (*packModel, error) {
	tables, err := loadTables(cfg)
	if err != nil {
		return nil, err
	}
	return &packModel{base: newBase(cfg, curve, log), tables: tables}, nil
}

func (m *packModel) Transition(req TransitionRequest) (float64, error) {
	dt := math.Max(m.cfg.DeltaHours, 1e-9)
	temp := req.TemperatureC
	if temp == 0 {
		temp = m.cfg.AmbientTempC
	}
	etaInv := req.Efficiency
	if etaInv == 0 {
		etaInv = m.cfg.InverterEff
	}
	maxCap := req.MaxCapacityKWh
	if maxCap <= 0 {
		maxCap = m.cfg.MaxCapacityKWh()
	}
	minCap := req.MinCapacityKWh

	if req.Step == 0 {
		soc, soe := m.cfg.InitialSoC, m.cfg.InitialSoE
		if req.Init != nil {
			soc, soe = req.Init.SoC, req.Init.SoE
		}
		m.soc = soc
		m.soe = soe
		m.soeUnclamped = soe
		m.vPrev = math.Max(m.tables.Voc(soc, temp), 1e-6)
		m.currentA = 0
		m.eta = etaInv
		m.tracker.Reset()
	}

	packAh := m.cfg.PackCapacityAh * float64(m.cfg.ParallelStrings)
	packV := m.cfg.NominalVoltage()

	p := -req.ExternalEnergyKWh / dt
	i := 1000 * p / math.Max(m.vPrev, 1e-9)

	voc := m.tables.Voc(m.soc, temp)
	r0 := m.tables.R0(m.soc, temp)
	vBatt := math.Max(voc-r0*i, 1e-6)

	socUnb := m.soc - i*dt/packAh
	minSoC := minCap * 1000 / (packAh * packV)
	maxSoC := maxCap * 1000 / (packAh * packV)
	socNew := clip(socUnb, minSoC, maxSoC)

	var eta float64
	switch {
	case math.Abs(i) <= 1e-8:
		eta = 1.0 * etaInv
	case i > 0:
		eta = etaInv * (1 - r0*i*i/(i*math.Max(voc, 1e-9)))
	default:
		eta = etaInv * (1 - r0*i*i/(-i*math.Max(vBatt, 1e-9)))
	}
	eta = math.Max(clip(eta, 0, 1), 1e-9)

	prevSoE := m.soe
	soeUnb := m.soe - (i*voc*dt/1000)/maxCap
	soeNew := clip(soeUnb, minCap/maxCap, 1)

	internal := (soeNew - prevSoE) * maxCap
	if req.MaxChargeKWh > 0 && internal > req.MaxChargeKWh {
		internal = req.MaxChargeKWh
	}
	if req.MaxDischargeKWh > 0 && internal < -req.MaxDischargeKWh {
		internal = -req.MaxDischargeKWh
	}

	m.soc = socNew
	m.soe = soeNew
	m.soeUnclamped = soeUnb
	m.vPrev = vBatt
	m.currentA = i
	m.eta = eta
	m.tracker.Accumulate(math.Abs(i) * dt)
	m.hist.append(Record{
		Time:     float64(req.Step) * dt,
		CurrentA: i,
		VoltageV: vBatt,
		SoC:      socNew,
		SoE:      soeNew,
		PowerKW:  req.ExternalEnergyKWh / dt,
	})
	m.step = req.Step + 1

	m.log.Debugw("pack transition", map[string]any{
		"step":    req.Step,
		"current": i,
		"voltage": vBatt,
		"soc":     socNew,
		"soe":     soeNew,
		"eta":     eta,
	})
	return internal, nil
}

func (m *packModel) Charge(powerKW float64) (float64, error) {
	return m.charge(m.Transition, powerKW)
}

func (m *packModel) Discharge(powerKW float64) (float64, error) {
	return m.discharge(m.Transition, powerKW)
}
