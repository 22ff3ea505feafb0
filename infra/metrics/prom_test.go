package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/microgrid-lab/mgsim/core/metrics"
)

func stepEvent() coremetrics.StepEvent {
	return coremetrics.StepEvent{
		RunID:      "run1",
		Time:       time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
		Step:       3,
		Case:       "charge_direct",
		DeltaHours: 1,
		PGKw:       10,
		PLKw:       2,
		PGLKw:      8,
		PGLSKw:     7.6,
		PGLNKw:     0,
		LossesKw:   0.4,
		SoC:        0.55,
		SoE:        0.56,
		SOH:        0.999,
		SharedKWh:  2,
		CostEUR:    1.5,
		RevenueEUR: 0.2,
	}
}

func TestPromSink_RecordStep(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink, ok := sinkIf.(*PromSink)
	if !ok {
		t.Fatalf("expected PromSink")
	}
	if err := sink.RecordStep(stepEvent()); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP microgrid_dispatch_steps_total Total number of dispatched steps by power flow case
# TYPE microgrid_dispatch_steps_total counter
microgrid_dispatch_steps_total{case="charge_direct"} 1
`
	if err := testutil.CollectAndCompare(sink.steps, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.soe.WithLabelValues("run1")); v != 0.56 {
		t.Errorf("soe gauge: %v", v)
	}
	if v := testutil.ToFloat64(sink.power.WithLabelValues("run1", "battery")); v != 7.6 {
		t.Errorf("battery power gauge: %v", v)
	}

	// a second step accumulates the cost gauge
	if err := sink.RecordStep(stepEvent()); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if v := testutil.ToFloat64(sink.cost.WithLabelValues("run1")); v != 3 {
		t.Errorf("cost gauge: %v", v)
	}
	if n := testutil.CollectAndCount(sink.balance, "microgrid_balance_error_kw"); n != 1 {
		t.Errorf("balance histogram series: %d", n)
	}
}

func TestPromSink_RecordRunSummary(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink := sinkIf.(*PromSink)

	sum := coremetrics.RunSummary{RunID: "run1", Steps: 96, TotalCostEUR: 12.5, BaselineEUR: 20}
	if err := sink.RecordRunSummary(sum); err != nil {
		t.Fatalf("summary error: %v", err)
	}
	if v := testutil.ToFloat64(sink.runCost.WithLabelValues("run1")); v != 12.5 {
		t.Errorf("run cost gauge: %v", v)
	}
	if v := testutil.ToFloat64(sink.runSavings.WithLabelValues("run1")); v != 7.5 {
		t.Errorf("run savings gauge: %v", v)
	}
}

func TestNewPromSinkWithRegistry_Reregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if err := first.RecordStep(stepEvent()); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := second.RecordStep(stepEvent()); err != nil {
		t.Fatalf("record error: %v", err)
	}
	sink := second.(*PromSink)
	if v := testutil.ToFloat64(sink.steps.WithLabelValues("charge_direct")); v != 2 {
		t.Fatalf("collectors not shared: %v", v)
	}
}
