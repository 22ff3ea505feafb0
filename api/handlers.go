package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/dispatch"
	"github.com/microgrid-lab/mgsim/core/dispatch/ledger"
	"github.com/microgrid-lab/mgsim/core/economics"
	"github.com/microgrid-lab/mgsim/core/metrics/eco"
	"github.com/microgrid-lab/mgsim/core/microgrid"
	"github.com/microgrid-lab/mgsim/core/model"
	"github.com/microgrid-lab/mgsim/infra/ingest"
)

// sampleSeries replays an inline request series.
type sampleSeries struct {
	samples []model.PowerSample
	i       int
}

func (s *sampleSeries) Next(context.Context) (model.PowerSample, error) {
	if s.i >= len(s.samples) {
		return model.PowerSample{}, io.EOF
	}
	sm := s.samples[s.i]
	s.i++
	return sm, nil
}

// configError marks failures caused by the request rather than the run.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func (s *Server) simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", err.Error()))
		return
	}
	res, err := s.runSimulation(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		code := "SIMULATION_FAILED"
		var cfgErr configError
		if errors.As(err, &cfgErr) {
			status = http.StatusBadRequest
			code = "INVALID_REQUEST"
		}
		c.JSON(status, errorBody(code, err.Error()))
		return
	}
	s.remember(res)
	if !req.IncludeSteps {
		res.Steps = nil
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) runSimulation(ctx context.Context, req SimulateRequest) (RunResult, error) {
	bcfg := s.deps.Defaults.Battery
	if req.Battery != nil {
		bcfg = *req.Battery
	}
	bcfg.SetDefaults()
	dcfg := s.deps.Defaults.Dispatch
	if req.Dispatch != nil {
		dcfg = *req.Dispatch
	}
	tariffs := s.deps.Defaults.Tariffs
	if req.Tariffs != nil {
		tariffs = *req.Tariffs
	}

	var start time.Time
	if req.Start != "" {
		t, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			return RunResult{}, configError{fmt.Errorf("bad start %q: %w", req.Start, err)}
		}
		start = t
	}

	var src microgrid.Source
	switch {
	case len(req.Samples) > 0 && req.Synthetic != nil:
		return RunResult{}, configError{errors.New("samples and synthetic are mutually exclusive")}
	case len(req.Samples) > 0:
		src = &sampleSeries{samples: req.Samples}
	case req.Synthetic != nil:
		gen, err := ingest.NewSyntheticSource(*req.Synthetic)
		if err != nil {
			return RunResult{}, configError{err}
		}
		src = gen
	default:
		return RunResult{}, configError{errors.New("a sample series is required: samples or synthetic")}
	}

	bm, err := battery.New(bcfg, s.deps.Log)
	if err != nil {
		return RunResult{}, configError{err}
	}
	disp, err := dispatch.New(bm, dcfg, s.deps.Log)
	if err != nil {
		return RunResult{}, configError{err}
	}
	acct, err := economics.NewAccountant(tariffs, bcfg.DeltaHours, bm, s.deps.Log)
	if err != nil {
		return RunResult{}, configError{err}
	}
	mg, err := microgrid.New(microgrid.Config{RunID: req.RunID, Start: start}, disp, acct, s.deps.Store, s.deps.Sink, nil, s.deps.Log)
	if err != nil {
		return RunResult{}, configError{err}
	}
	total, err := mg.Run(ctx, src)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{
		RunID:        mg.RunID(),
		TotalCostEUR: total,
		Summary:      mg.Summary(),
		Insights:     mg.Insights(),
		Steps:        mg.Steps(),
	}, nil
}

func (s *Server) getRun(c *gin.Context) {
	res, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody("RUN_NOT_FOUND", "unknown run "+c.Param("id")))
		return
	}
	if c.Query("include_steps") != "true" {
		res.Steps = nil
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) listRuns(c *gin.Context) {
	s.mu.RLock()
	out := make([]RunResult, 0, len(s.runs))
	for _, r := range s.runs {
		r.Steps = nil
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Summary.Started.Before(out[j].Summary.Started) })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getInsights(c *gin.Context) {
	res, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody("RUN_NOT_FOUND", "unknown run "+c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, res.Insights)
}

func (s *Server) queryLedger(c *gin.Context) {
	if s.cfg.Token != "" {
		if c.GetHeader("Authorization") != "Bearer "+s.cfg.Token {
			c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "invalid token"))
			return
		}
	}
	if s.deps.Store == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("LEDGER_DISABLED", "no ledger store configured"))
		return
	}
	q := ledger.Query{RunID: c.Query("run_id"), Case: dispatch.Case(c.Query("case"))}
	if v := c.Query("start"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.Start = t
		}
	}
	if v := c.Query("end"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.End = t
		}
	}
	records, err := s.deps.Store.Query(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("LEDGER_QUERY_FAILED", err.Error()))
		return
	}
	if records == nil {
		records = []ledger.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) queryKPI(c *gin.Context) {
	if s.deps.Eco == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("ECO_DISABLED", "eco tracking not enabled"))
		return
	}
	runID := c.Query("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "run_id is required"))
		return
	}
	var start time.Time
	end := time.Now().UTC()
	if v := c.Query("start"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			start = t
		}
	}
	if v := c.Query("end"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			end = t
		}
	}
	records, err := s.deps.Eco.Query(runID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("KPI_QUERY_FAILED", err.Error()))
		return
	}
	resp := KPIResponse{RunID: runID}
	for _, r := range records {
		resp.InjectedKWh += r.InjectedKWh
		resp.ConsumedKWh += r.ConsumedKWh
		resp.SharedKWh += r.SharedKWh
		resp.Days = append(resp.Days, DayKPI{
			Date:            r.Date.Format("2006-01-02"),
			InjectedKWh:     r.InjectedKWh,
			ConsumedKWh:     r.ConsumedKWh,
			SharedKWh:       r.SharedKWh,
			SelfSufficiency: r.SelfSufficiency(),
			CO2AvoidedGrams: r.CO2Avoided(s.deps.EcoFactor),
		})
	}
	total := eco.Record{InjectedKWh: resp.InjectedKWh, ConsumedKWh: resp.ConsumedKWh, SharedKWh: resp.SharedKWh}
	resp.SelfSufficiency = total.SelfSufficiency()
	resp.CO2AvoidedGrams = total.CO2Avoided(s.deps.EcoFactor)
	c.JSON(http.StatusOK, resp)
}
