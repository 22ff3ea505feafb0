// Package microgrid drives a simulation run: it feeds power samples through
// the dispatcher, books every step with the accountant and publishes the
// outcome to the ledger and the metrics sinks.
package microgrid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/dispatch"
	"github.com/microgrid-lab/mgsim/core/dispatch/ledger"
	"github.com/microgrid-lab/mgsim/core/economics"
	"github.com/microgrid-lab/mgsim/core/logger"
	"github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/core/model"
	"github.com/microgrid-lab/mgsim/core/monitoring"
	"github.com/microgrid-lab/mgsim/internal/eventbus"
)

// Config identifies a simulation run.
type Config struct {
	// RunID tags every record of the run. A fresh UUID is generated when
	// empty.
	RunID string `json:"run_id"`
	// Start anchors synthetic timestamps for samples that carry none.
	Start time.Time `json:"start"`
}

// Source yields power samples in simulation order. Next returns io.EOF when
// the source is drained.
type Source interface {
	Next(ctx context.Context) (model.PowerSample, error)
}

// StepOutcome pairs a dispatched step with its cost breakdown.
type StepOutcome struct {
	Time   time.Time           `json:"time"`
	Result dispatch.Result     `json:"result"`
	Cost   economics.Breakdown `json:"cost"`
}

// Insights summarise the storage utilisation of a run: the state of energy
// series including the initial value and its excursion, the per-step wear
// cost, the battery power share, and the cumulative throughput with its
// equivalent full cycles and final health.
type Insights struct {
	SoE       []float64 `json:"soe"`
	MinSoE    float64   `json:"min_soe"`
	MaxSoE    float64   `json:"max_soe"`
	WearEUR   []float64 `json:"wear_eur"`
	BatteryKw []float64 `json:"battery_kw"`

	ThroughputAh float64 `json:"throughput_ah"`
	FullCycles   float64 `json:"full_cycles"`
	SOH          float64 `json:"soh"`
	WearTotalEUR float64 `json:"wear_total_eur"`
}

type snapshot struct {
	steps []StepOutcome
	model battery.State
	step  int
}

// Microgrid orchestrates one simulation run. It is not safe for concurrent
// use; a run is driven from a single loop.
type Microgrid struct {
	cfg   Config
	disp  *dispatch.Dispatcher
	acct  *economics.Accountant
	store ledger.Store
	sink  metrics.MetricsSink
	mon   monitoring.Monitor
	log   logger.Logger

	initialSoE float64
	steps      []StepOutcome
	saved      *snapshot
	bus        *eventbus.TypedBus[metrics.StepEvent]
}

// New assembles a Microgrid. Dispatcher and accountant are required; ledger
// store, metrics sink, monitor and logger fall back to no-op
// implementations.
func New(cfg Config, disp *dispatch.Dispatcher, acct *economics.Accountant, store ledger.Store, sink metrics.MetricsSink, mon monitoring.Monitor, log logger.Logger) (*Microgrid, error) {
	if disp == nil {
		return nil, errors.New("microgrid: dispatcher is required")
	}
	if acct == nil {
		return nil, errors.New("microgrid: accountant is required")
	}
	if store == nil {
		store = ledger.NopStore{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if mon == nil {
		mon = monitoring.NopMonitor{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now().UTC()
	}
	return &Microgrid{
		cfg:        cfg,
		disp:       disp,
		acct:       acct,
		store:      store,
		sink:       sink,
		mon:        mon,
		log:        log,
		initialSoE: disp.Model().SoE(),
	}, nil
}

// RunID returns the identifier tagging this run.
func (m *Microgrid) RunID() string { return m.cfg.RunID }

// SetEventBus fans step events out to bus subscribers in addition to the
// sink. Publishing never blocks the step loop.
func (m *Microgrid) SetEventBus(bus *eventbus.TypedBus[metrics.StepEvent]) { m.bus = bus }

// Step dispatches one sample, books its cost and publishes the outcome.
// Dispatch errors are reported to the monitor and abort the run; ledger and
// sink failures are logged and do not.
func (m *Microgrid) Step(ctx context.Context, sample model.PowerSample) (StepOutcome, error) {
	if err := sample.Validate(); err != nil {
		return StepOutcome{}, fmt.Errorf("microgrid: rejecting sample: %w", err)
	}
	at := sample.Timestamp
	if at.IsZero() {
		at = m.cfg.Start.Add(time.Duration(float64(time.Hour) * m.acct.DeltaHours() * float64(len(m.steps))))
	}
	res, err := m.disp.Dispatch(sample.PVKW, sample.LoadKW, sample.Alpha)
	if err != nil {
		m.mon.CaptureException(err, map[string]string{
			"run_id": m.cfg.RunID,
			"step":   strconv.Itoa(len(m.steps)),
		})
		return StepOutcome{}, err
	}
	cost := m.acct.Cost(at, res)
	out := StepOutcome{Time: at, Result: res, Cost: cost}
	m.steps = append(m.steps, out)

	if err := m.store.Append(ctx, ledger.Record{RunID: m.cfg.RunID, Timestamp: at, Result: res}); err != nil {
		m.log.Warnf("ledger append failed: %v", err)
	}
	ev := m.stepEvent(out)
	if err := m.sink.RecordStep(ev); err != nil {
		m.log.Warnf("metrics sink failed: %v", err)
	}
	if m.bus != nil {
		m.bus.Publish(ev)
	}
	return out, nil
}

// Run consumes the source until it is drained or the context is canceled
// and returns the total cost in EUR. The run summary is pushed to sinks
// that record summaries.
func (m *Microgrid) Run(ctx context.Context, src Source) (float64, error) {
	if src == nil {
		return 0, errors.New("microgrid: source is required")
	}
	for {
		select {
		case <-ctx.Done():
			return m.TotalCost(), ctx.Err()
		default:
		}
		sample, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return m.TotalCost(), fmt.Errorf("microgrid: source: %w", err)
		}
		if _, err := m.Step(ctx, sample); err != nil {
			return m.TotalCost(), err
		}
	}
	sum := m.Summary()
	if rec, ok := m.sink.(metrics.SummaryRecorder); ok {
		if err := rec.RecordRunSummary(sum); err != nil {
			m.log.Warnf("summary sink failed: %v", err)
		}
	}
	m.log.Infof("run %s finished: %d steps, total cost %.2f EUR", m.cfg.RunID, sum.Steps, sum.TotalCostEUR)
	return sum.TotalCostEUR, nil
}

// Steps returns a copy of the registered step outcomes.
func (m *Microgrid) Steps() []StepOutcome {
	return append([]StepOutcome(nil), m.steps...)
}

// TotalCost returns the accumulated cost of all dispatched steps in EUR.
func (m *Microgrid) TotalCost() float64 {
	var total float64
	for _, s := range m.steps {
		total += s.Cost.CostEUR
	}
	return total
}

// Summary aggregates the run for reporting.
func (m *Microgrid) Summary() metrics.RunSummary {
	sum := metrics.RunSummary{
		RunID:    m.cfg.RunID,
		Steps:    len(m.steps),
		FinalSoE: m.disp.Model().SoE(),
		FinalSOH: m.disp.Model().SOH(),
		Started:  m.cfg.Start,
		Finished: m.cfg.Start,
	}
	for _, s := range m.steps {
		sum.TotalCostEUR += s.Cost.CostEUR
		sum.TotalRevenueEUR += s.Cost.RevenueEUR
		sum.TotalWearEUR += s.Cost.WearEUR
		sum.BaselineEUR += s.Cost.BaselineEUR
	}
	if n := len(m.steps); n > 0 {
		sum.Finished = m.steps[n-1].Time
	}
	return sum
}

// Insights returns the storage utilisation summary of the run.
func (m *Microgrid) Insights() Insights {
	ins := Insights{
		SoE:       make([]float64, 0, len(m.steps)+1),
		WearEUR:   make([]float64, 0, len(m.steps)),
		BatteryKw: make([]float64, 0, len(m.steps)),
	}
	ins.SoE = append(ins.SoE, m.initialSoE)
	for _, s := range m.steps {
		ins.SoE = append(ins.SoE, s.Result.SoE)
		ins.WearEUR = append(ins.WearEUR, s.Cost.WearEUR)
		ins.BatteryKw = append(ins.BatteryKw, s.Result.PGLSKw)
		ins.WearTotalEUR += s.Cost.WearEUR
	}
	ins.MinSoE = floats.Min(ins.SoE)
	ins.MaxSoE = floats.Max(ins.SoE)
	mod := m.disp.Model()
	ins.ThroughputAh = mod.ThroughputAh()
	ins.SOH = mod.SOH()
	if packAh := mod.Config().PackCapacityAh * float64(mod.Config().ParallelStrings); packAh > 0 {
		ins.FullCycles = ins.ThroughputAh / (2 * packAh)
	}
	return ins
}

// Reset clears the run history and rewinds the storage model to its initial
// state. The run identifier is kept.
func (m *Microgrid) Reset() {
	m.disp.Reset()
	m.steps = nil
	m.saved = nil
}

// SaveState snapshots the run so a later RecoverState can rewind to it.
// Online control loops save before trying a candidate dispatch sequence.
func (m *Microgrid) SaveState() {
	m.saved = &snapshot{
		steps: append([]StepOutcome(nil), m.steps...),
		model: m.disp.Model().Snapshot(),
		step:  m.disp.Step(),
	}
}

// RecoverState rewinds the run to the last saved snapshot. It is a no-op
// when no snapshot was taken.
func (m *Microgrid) RecoverState() {
	if m.saved == nil {
		return
	}
	m.steps = append([]StepOutcome(nil), m.saved.steps...)
	m.disp.Model().Restore(m.saved.model)
	m.disp.Rewind(m.saved.step)
}

func (m *Microgrid) stepEvent(out StepOutcome) metrics.StepEvent {
	return metrics.StepEvent{
		RunID:      m.cfg.RunID,
		Time:       out.Time,
		Step:       out.Result.Step,
		Case:       string(out.Result.Case),
		DeltaHours: m.acct.DeltaHours(),
		PGKw:       out.Result.PGKw,
		PLKw:       out.Result.PLKw,
		PGLKw:      out.Result.PGLKw,
		PGLSKw:     out.Result.PGLSKw,
		PGLNKw:     out.Result.PGLNKw,
		LossesKw:   out.Result.LossesKw,
		SoC:        out.Result.SoC,
		SoE:        out.Result.SoE,
		SOH:        out.Result.SOH,
		SharedKWh:  out.Cost.SharedKWh,
		CostEUR:    out.Cost.CostEUR,
		RevenueEUR: out.Cost.RevenueEUR,
	}
}
