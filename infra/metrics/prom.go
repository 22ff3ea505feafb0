package metrics

import (
	"math"

	coremetrics "github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes dispatch steps as Prometheus metrics.
type PromSink struct {
	steps      *prometheus.CounterVec
	soc        *prometheus.GaugeVec
	soe        *prometheus.GaugeVec
	soh        *prometheus.GaugeVec
	power      *prometheus.GaugeVec
	balance    *prometheus.HistogramVec
	cost       *prometheus.GaugeVec
	runCost    *prometheus.GaugeVec
	runSavings *prometheus.GaugeVec
}

// NewPromSink registers the simulation metrics on the default Prometheus
// registerer. The HTTP endpoint serving them is started separately.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.steps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "microgrid_dispatch_steps_total",
		Help: "Total number of dispatched steps by power flow case",
	}, []string{"case"})); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_battery_soc_ratio",
		Help: "Battery state of charge after the last step",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.soe, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_battery_soe_ratio",
		Help: "Battery state of energy after the last step",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.soh, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_battery_soh_ratio",
		Help: "Battery state of health after the last step",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.power, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_power_kw",
		Help: "Power of the last step by flow direction",
	}, []string{"run_id", "flow"})); err != nil {
		return nil, err
	}
	if s.balance, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "microgrid_balance_error_kw",
		Help:    "Absolute power balance residual of a dispatched step",
		Buckets: prometheus.ExponentialBuckets(1e-12, 10, 10),
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_energy_cost_eur",
		Help: "Cumulative energy cost of the run",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.runCost, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_run_cost_eur",
		Help: "Total cost of a completed run",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.runSavings, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_run_savings_eur",
		Help: "Savings of a completed run against the grid-only baseline",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds the collector to the registerer and adopts the existing
// collector when it was already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	var zero C
	return zero, err
}

// RecordStep updates the step counters and state gauges.
func (s *PromSink) RecordStep(ev coremetrics.StepEvent) error {
	s.steps.WithLabelValues(ev.Case).Inc()
	s.soc.WithLabelValues(ev.RunID).Set(ev.SoC)
	s.soe.WithLabelValues(ev.RunID).Set(ev.SoE)
	s.soh.WithLabelValues(ev.RunID).Set(ev.SOH)
	s.power.WithLabelValues(ev.RunID, "generation").Set(ev.PGKw)
	s.power.WithLabelValues(ev.RunID, "load").Set(ev.PLKw)
	s.power.WithLabelValues(ev.RunID, "battery").Set(ev.PGLSKw)
	s.power.WithLabelValues(ev.RunID, "grid").Set(ev.PGLNKw)
	s.balance.WithLabelValues(ev.RunID).Observe(math.Abs(ev.PGLKw - ev.PGLSKw - ev.PGLNKw - ev.LossesKw))
	s.cost.WithLabelValues(ev.RunID).Add(ev.CostEUR)
	return nil
}

// RecordRunSummary publishes the final figures of a completed run.
func (s *PromSink) RecordRunSummary(sum coremetrics.RunSummary) error {
	s.runCost.WithLabelValues(sum.RunID).Set(sum.TotalCostEUR)
	s.runSavings.WithLabelValues(sum.RunID).Set(sum.BaselineEUR - sum.TotalCostEUR)
	return nil
}
