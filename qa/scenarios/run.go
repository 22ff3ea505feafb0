package scenarios

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/dispatch"
	"github.com/microgrid-lab/mgsim/core/economics"
	"github.com/microgrid-lab/mgsim/core/microgrid"
	"github.com/microgrid-lab/mgsim/infra/metrics"
)

const soeTolerance = 1e-9

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	bcfg := sc.Battery.ToConfig()
	bm, err := battery.New(bcfg, nil)
	if err != nil {
		t.Fatalf("battery: %v", err)
	}
	disp, err := dispatch.New(bm, dispatch.Config{MaxPowerKW: sc.MaxPowerKW}, nil)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	acct, err := economics.NewAccountant(economics.Tariffs{
		Purchase: economics.PurchaseTariff{Mode: economics.ModeFlat, FlatEURPerKWh: 0.25},
	}, bcfg.DeltaHours, bm, nil)
	if err != nil {
		t.Fatalf("accountant: %v", err)
	}
	mg, err := microgrid.New(microgrid.Config{RunID: sc.Name}, disp, acct, nil, sink, nil, nil)
	if err != nil {
		t.Fatalf("microgrid: %v", err)
	}

	ctx := context.Background()
	for i, stepDef := range sc.Steps {
		out, err := mg.Step(ctx, stepDef.ToModel())
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		r := out.Result
		if diff := r.PGLKw - (r.PGLSKw + r.PGLNKw + r.LossesKw); math.Abs(diff) > soeTolerance {
			t.Errorf("step %d: power split off by %v kW", i, diff)
		}
		if i < len(sc.Expected.Cases) && string(r.Case) != sc.Expected.Cases[i] {
			t.Errorf("step %d: case %s, want %s", i, r.Case, sc.Expected.Cases[i])
		}
	}

	if sc.Expected.FinalSoE != nil {
		got := mg.Summary().FinalSoE
		if math.Abs(got-*sc.Expected.FinalSoE) > soeTolerance {
			t.Errorf("scenario %s: final SoE %v, want %v", sc.Name, got, *sc.Expected.FinalSoE)
		}
	}
	if sc.Expected.MaxCostEUR != nil && mg.TotalCost() > *sc.Expected.MaxCostEUR {
		t.Errorf("scenario %s: total cost %v exceeds %v EUR", sc.Name, mg.TotalCost(), *sc.Expected.MaxCostEUR)
	}
}
