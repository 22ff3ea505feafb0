package metrics

import (
	coremetrics "github.com/microgrid-lab/mgsim/core/metrics"
	eco "github.com/microgrid-lab/mgsim/core/metrics/eco"
	"github.com/prometheus/client_golang/prometheus"
)

// EcoSink folds step events into daily ecological KPIs.
type EcoSink struct {
	store       eco.Store
	factor      float64
	injected    *prometheus.GaugeVec
	sufficiency *prometheus.GaugeVec
	co2         *prometheus.GaugeVec
}

// NewEcoSink creates a sink with Prometheus gauges registered on reg. The
// factor converts avoided grid energy to grams of CO2 per kWh.
func NewEcoSink(store eco.Store, factor float64, reg prometheus.Registerer) (*EcoSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &EcoSink{store: store, factor: factor}
	var err error
	if s.injected, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_injected_energy_kwh",
		Help: "Daily energy injected into the public grid",
	}, []string{"run_id", "day"})); err != nil {
		return nil, err
	}
	if s.sufficiency, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_self_sufficiency_ratio",
		Help: "Daily share of consumption covered without grid imports",
	}, []string{"run_id", "day"})); err != nil {
		return nil, err
	}
	if s.co2, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_co2_avoided_grams",
		Help: "Daily CO2 emissions avoided through sharing and injection",
	}, []string{"run_id", "day"})); err != nil {
		return nil, err
	}
	return s, nil
}

// Store exposes the aggregated records, for example to an HTTP API.
func (s *EcoSink) Store() eco.Store {
	return s.store
}

// RecordStep folds the step's grid exchange into the daily aggregate and
// refreshes the gauges for that day.
func (s *EcoSink) RecordStep(ev coremetrics.StepEvent) error {
	rec := eco.Record{RunID: ev.RunID, Date: ev.Time, SharedKWh: ev.SharedKWh}
	if ev.PGLNKw >= 0 {
		rec.InjectedKWh = ev.PGLNKw * ev.DeltaHours
	} else {
		rec.ConsumedKWh = -ev.PGLNKw * ev.DeltaHours
	}
	if err := s.store.Add(rec); err != nil {
		return err
	}
	day := eco.Day(ev.Time).Format("2006-01-02")
	records, _ := s.store.Query(ev.RunID, ev.Time, ev.Time)
	if len(records) > 0 {
		rr := records[0]
		s.injected.WithLabelValues(ev.RunID, day).Set(rr.InjectedKWh)
		s.sufficiency.WithLabelValues(ev.RunID, day).Set(rr.SelfSufficiency())
		s.co2.WithLabelValues(ev.RunID, day).Set(rr.CO2Avoided(s.factor))
	}
	return nil
}
