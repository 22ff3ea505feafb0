// Package dispatch decides, for every timestep, how the net production of
// the microgrid is split between the battery and the public grid. The split
// honours the battery's power rating and remaining headroom, applies the
// configured share factor, and keeps the step's energy balance exact.
package dispatch

import (
	"errors"
	"fmt"
	"math"

	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/logger"
)

// Case labels the dispatch branch taken for a step.
type Case string

const (
	CaseEquilibrium        Case = "equilibrium"
	CaseChargeDirect       Case = "charge_direct"
	CaseChargeHeadroom     Case = "charge_headroom"
	CaseChargeOverLimit    Case = "charge_over_limit"
	CaseDischargeDirect    Case = "discharge_direct"
	CaseDischargeReserve   Case = "discharge_reserve"
	CaseDischargeOverLimit Case = "discharge_over_limit"
)

var (
	// ErrUncoveredCase marks inputs no dispatch branch accepts, typically a
	// NaN power reading.
	ErrUncoveredCase = errors.New("dispatch case not covered")
	// ErrStateOutOfBounds marks a post-step state of energy outside the
	// configured bounds.
	ErrStateOutOfBounds = errors.New("state of energy out of bounds")
	// ErrUnbalanced marks a step whose power flows do not sum back to the
	// net production.
	ErrUnbalanced = errors.New("non-zero energy balance")
)

// Config carries the dispatcher's own knobs; battery quantities come from
// the electrical model's configuration.
type Config struct {
	// MaxPowerKW is the symmetric battery power rating the dispatcher
	// enforces on both charge and discharge shares.
	MaxPowerKW float64 `json:"max_power_kw"`
}

// Validate checks the dispatcher configuration.
func (c Config) Validate() error {
	if c.MaxPowerKW <= 0 {
		return fmt.Errorf("dispatch: max power %v kW must be positive", c.MaxPowerKW)
	}
	return nil
}

// Result is the realized outcome of one dispatched step.
type Result struct {
	Step      int     `json:"step"`
	PGKw      float64 `json:"p_g"`
	PLKw      float64 `json:"p_l"`
	Alpha     float64 `json:"alpha"`
	PGLKw     float64 `json:"p_gl"`
	PGLSKw    float64 `json:"p_gl_s"`
	PGLNKw    float64 `json:"p_gl_n"`
	LossesKw  float64 `json:"ess_losses"`
	ExcessKWh float64 `json:"excess_kwh"`
	LackKWh   float64 `json:"lack_kwh"`
	PrevSoE   float64 `json:"prev_soe"`
	SoE       float64 `json:"soe"`
	SoC       float64 `json:"soc"`
	SOH       float64 `json:"soh"`
	Case      Case    `json:"case"`
}

// Dispatcher implements the rule-based power-flow split on top of an
// electrical model. It is not safe for concurrent use; the simulation loop
// drives it step by step.
type Dispatcher struct {
	model battery.ElectricalModel
	cfg   Config
	log   logger.Logger
	step  int
}

// New builds a Dispatcher around the given electrical model.
func New(model battery.ElectricalModel, cfg Config, log logger.Logger) (*Dispatcher, error) {
	if model == nil {
		return nil, errors.New("dispatch: electrical model is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Dispatcher{model: model, cfg: cfg, log: log}, nil
}

// Reset rewinds the step counter and the underlying electrical model.
func (d *Dispatcher) Reset() {
	d.step = 0
	d.model.Reset()
}

// Step returns the number of dispatched steps.
func (d *Dispatcher) Step() int { return d.step }

// Rewind restores the step counter to n. Callers restoring a saved model
// state use it to keep result numbering contiguous.
func (d *Dispatcher) Rewind(n int) {
	if n >= 0 {
		d.step = n
	}
}

// Model exposes the driven electrical model for read access.
func (d *Dispatcher) Model() battery.ElectricalModel { return d.model }

// Dispatch splits the step's net production p_G−p_L between battery and
// grid. alpha in [0,1] is the share of the imbalance offered to the battery.
// The returned result satisfies PGL = PGLS + PGLN + Losses exactly.
func (d *Dispatcher) Dispatch(pG, pL, alpha float64) (Result, error) {
	bcfg := d.model.Config()
	dt := bcfg.DeltaHours
	eta := bcfg.InverterEff
	nomKWh := bcfg.NominalEnergyKWh()

	prevSoE := d.model.SoE()
	pGL := round2(pG - pL)
	qRes := round2(nomKWh * (bcfg.SoEMax - prevSoE))
	eSRes := round2(nomKWh * (prevSoE - bcfg.SoEMin))

	res := Result{
		Step:    d.step,
		PGKw:    pG,
		PLKw:    pL,
		Alpha:   alpha,
		PGLKw:   pGL,
		PrevSoE: prevSoE,
	}

	var err error
	switch {
	case pGL == 0:
		res.Case = CaseEquilibrium
	case pGL > 0:
		err = d.charge(&res, pGL, alpha, dt, eta, qRes)
	case pGL < 0:
		err = d.discharge(&res, pGL, alpha, dt, eta, eSRes)
	default:
		err = fmt.Errorf("%w: p_G=%v p_L=%v p_GL=%v", ErrUncoveredCase, pG, pL, pGL)
	}
	if err != nil {
		return Result{}, err
	}

	res.PGLNKw = pGL - res.PGLSKw - res.LossesKw
	res.SoE = d.model.SoE()
	res.SoC = d.model.SoC()
	res.SOH = d.model.SOH()

	if err := d.checkState(res, bcfg); err != nil {
		return Result{}, err
	}
	if err := d.checkBalance(res); err != nil {
		return Result{}, err
	}

	d.step++
	d.log.Debugw("dispatched step", map[string]any{
		"step":   res.Step,
		"case":   string(res.Case),
		"p_gl":   res.PGLKw,
		"p_gl_s": res.PGLSKw,
		"p_gl_n": res.PGLNKw,
		"soe":    res.SoE,
	})
	return res, nil
}

// charge handles overproduction: the battery absorbs its share of the
// surplus, capped by power rating and remaining headroom.
func (d *Dispatcher) charge(res *Result, pGL, alpha, dt, eta, qRes float64) error {
	var take float64
	switch {
	case pGL <= d.cfg.MaxPowerKW && pGL*dt <= qRes:
		res.Case = CaseChargeDirect
		take = round2(alpha * pGL)
	case pGL <= d.cfg.MaxPowerKW && pGL*dt > qRes:
		res.Case = CaseChargeHeadroom
		take = round2(alpha * qRes / dt)
	case pGL > d.cfg.MaxPowerKW:
		res.Case = CaseChargeOverLimit
		if alpha*d.cfg.MaxPowerKW*dt*eta <= qRes {
			take = alpha * d.cfg.MaxPowerKW
		}
	default:
		return fmt.Errorf("%w: p_GL=%v Q_res=%v alpha=%v", ErrUncoveredCase, pGL, qRes, alpha)
	}

	res.PGLSKw = take * eta
	res.LossesKw = take * (1 - eta)

	excess, err := d.model.Charge(res.PGLSKw)
	if err != nil {
		return fmt.Errorf("failed to charge battery: %w", err)
	}
	res.ExcessKWh = excess
	if excess > 0 {
		res.PGLSKw -= excess / dt
	}
	return nil
}

// discharge handles underproduction: the battery covers its share of the
// deficit, capped by power rating and remaining reserve.
func (d *Dispatcher) discharge(res *Result, pGL, alpha, dt, eta, eSRes float64) error {
	absPGL := math.Abs(pGL)
	demand := alpha * absPGL * dt / eta
	switch {
	case absPGL <= d.cfg.MaxPowerKW && demand <= eSRes:
		res.Case = CaseDischargeDirect
		res.PGLSKw = -round2(alpha*absPGL) / eta
		res.LossesKw = round2(alpha*pGL) * (1 - eta)
	case absPGL <= d.cfg.MaxPowerKW && demand > eSRes:
		res.Case = CaseDischargeReserve
		res.PGLSKw = -round2(alpha*eSRes/dt) / eta
	case absPGL > d.cfg.MaxPowerKW:
		res.Case = CaseDischargeOverLimit
		if alpha*d.cfg.MaxPowerKW*dt/eta <= eSRes {
			res.PGLSKw = -round2(alpha*d.cfg.MaxPowerKW) / eta
		}
	default:
		return fmt.Errorf("%w: p_GL=%v e_S_res=%v alpha=%v", ErrUncoveredCase, pGL, eSRes, alpha)
	}

	lack, err := d.model.Discharge(-res.PGLSKw)
	if err != nil {
		return fmt.Errorf("failed to discharge battery: %w", err)
	}
	res.LackKWh = lack
	if lack != 0 {
		res.PGLSKw += lack / dt
	}
	return nil
}

// checkState verifies the post-step state of energy to 2 decimals.
func (d *Dispatcher) checkState(res Result, bcfg battery.Config) error {
	soe := round2(res.SoE)
	if math.IsNaN(soe) || soe > bcfg.SoEMax || soe < bcfg.SoEMin {
		return fmt.Errorf("%w: step %d SoE=%v bounds=[%v, %v]",
			ErrStateOutOfBounds, res.Step, res.SoE, bcfg.SoEMin, bcfg.SoEMax)
	}
	return nil
}

// checkBalance verifies p_GL = p_GL_S + p_GL_N + losses to 2 decimals.
func (d *Dispatcher) checkBalance(res Result) error {
	bal := res.PGLKw - res.PGLNKw - res.PGLSKw - res.LossesKw
	if round2(bal) != 0 {
		return fmt.Errorf("%w: step %d p_GL=%v p_GL_S=%v p_GL_N=%v losses=%v residual=%v",
			ErrUnbalanced, res.Step, res.PGLKw, res.PGLSKw, res.PGLNKw, res.LossesKw, bal)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
