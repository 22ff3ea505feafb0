package api

import (
	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/dispatch"
	"github.com/microgrid-lab/mgsim/core/economics"
	"github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/core/microgrid"
	"github.com/microgrid-lab/mgsim/core/model"
	"github.com/microgrid-lab/mgsim/infra/ingest"
)

// SimulateRequest describes one batch simulation. The series comes either
// inline or from a synthetic profile; battery, dispatch and tariff
// sections override the server defaults when present.
type SimulateRequest struct {
	RunID     string                  `json:"run_id,omitempty"`
	Start     string                  `json:"start,omitempty"`
	Battery   *battery.Config         `json:"battery,omitempty"`
	Dispatch  *dispatch.Config        `json:"dispatch,omitempty"`
	Tariffs   *economics.Tariffs      `json:"tariffs,omitempty"`
	Samples   []model.PowerSample     `json:"samples,omitempty"`
	Synthetic *ingest.SyntheticConfig `json:"synthetic,omitempty"`
	// IncludeSteps embeds the full per-step ledger in the response.
	IncludeSteps bool `json:"include_steps,omitempty"`
}

// RunResult is the outcome of one simulated run.
type RunResult struct {
	RunID        string                  `json:"run_id"`
	TotalCostEUR float64                 `json:"total_cost_eur"`
	Summary      metrics.RunSummary      `json:"summary"`
	Insights     microgrid.Insights      `json:"insights"`
	Steps        []microgrid.StepOutcome `json:"steps,omitempty"`
}

// KPIResponse aggregates the energy-community indicators of a run.
type KPIResponse struct {
	RunID           string   `json:"run_id"`
	InjectedKWh     float64  `json:"injected_kwh"`
	ConsumedKWh     float64  `json:"consumed_kwh"`
	SharedKWh       float64  `json:"shared_kwh"`
	SelfSufficiency float64  `json:"self_sufficiency"`
	CO2AvoidedGrams float64  `json:"co2_avoided_grams"`
	Days            []DayKPI `json:"days,omitempty"`
}

// DayKPI is the daily slice of the community indicators.
type DayKPI struct {
	Date            string  `json:"date"`
	InjectedKWh     float64 `json:"injected_kwh"`
	ConsumedKWh     float64 `json:"consumed_kwh"`
	SharedKWh       float64 `json:"shared_kwh"`
	SelfSufficiency float64 `json:"self_sufficiency"`
	CO2AvoidedGrams float64 `json:"co2_avoided_grams"`
}

// ErrorResponse wraps an API error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}
