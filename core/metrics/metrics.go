package metrics

import "time"

// StepEvent is the observability record of one dispatched simulation step.
// Field names on the wire follow the dispatch result vocabulary.
type StepEvent struct {
	RunID      string    `json:"run_id"`
	Time       time.Time `json:"time"`
	Step       int       `json:"step"`
	Case       string    `json:"case"`
	DeltaHours float64   `json:"delta_hours"`
	PGKw       float64   `json:"p_g"`
	PLKw       float64   `json:"p_l"`
	PGLKw      float64   `json:"p_gl"`
	PGLSKw     float64   `json:"p_gl_s"`
	PGLNKw     float64   `json:"p_gl_n"`
	LossesKw   float64   `json:"ess_losses"`
	SoC        float64   `json:"soc"`
	SoE        float64   `json:"soe"`
	SOH        float64   `json:"soh"`
	SharedKWh  float64   `json:"shared_kwh"`
	CostEUR    float64   `json:"cost_eur"`
	RevenueEUR float64   `json:"revenue_eur"`
}

// MetricsSink records step events for observability purposes.
type MetricsSink interface {
	RecordStep(ev StepEvent) error
}

// RunSummary aggregates a finished run.
type RunSummary struct {
	RunID           string    `json:"run_id"`
	Steps           int       `json:"steps"`
	TotalCostEUR    float64   `json:"total_cost_eur"`
	TotalRevenueEUR float64   `json:"total_revenue_eur"`
	TotalWearEUR    float64   `json:"total_wear_eur"`
	BaselineEUR     float64   `json:"baseline_cost_eur"`
	FinalSoE        float64   `json:"final_soe"`
	FinalSOH        float64   `json:"final_soh"`
	Started         time.Time `json:"started"`
	Finished        time.Time `json:"finished"`
}

// SummaryRecorder is implemented by sinks able to record run summaries.
type SummaryRecorder interface {
	RecordRunSummary(s RunSummary) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordStep(StepEvent) error { return nil }

func (NopSink) RecordRunSummary(RunSummary) error { return nil }

// MultiSink fans step events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStep forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordStep(ev StepEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordStep(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRunSummary forwards the summary to sinks that record summaries.
func (m *MultiSink) RecordRunSummary(sum RunSummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SummaryRecorder); ok {
			if err := rec.RecordRunSummary(sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
