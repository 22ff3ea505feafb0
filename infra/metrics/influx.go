package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/infra/logger"
)

// InfluxSink writes step events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordStep writes the step as a line protocol point.
func (s *InfluxSink) RecordStep(ev coremetrics.StepEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_step").
		AddTag("run_id", ev.RunID).
		AddTag("case", ev.Case).
		AddField("step", ev.Step).
		AddField("p_g_kw", round3(ev.PGKw)).
		AddField("p_l_kw", round3(ev.PLKw)).
		AddField("p_gl_kw", round3(ev.PGLKw)).
		AddField("battery_kw", round3(ev.PGLSKw)).
		AddField("grid_kw", round3(ev.PGLNKw)).
		AddField("losses_kw", round3(ev.LossesKw)).
		AddField("soc", round3(ev.SoC)).
		AddField("soe", round3(ev.SoE)).
		AddField("soh", round3(ev.SOH)).
		AddField("cost_eur", round3(ev.CostEUR)).
		AddField("revenue_eur", round3(ev.RevenueEUR)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRunSummary persists the final figures of a completed run.
func (s *InfluxSink) RecordRunSummary(sum coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", sum.RunID).
		AddField("steps", sum.Steps).
		AddField("total_cost_eur", round3(sum.TotalCostEUR)).
		AddField("total_revenue_eur", round3(sum.TotalRevenueEUR)).
		AddField("total_wear_eur", round3(sum.TotalWearEUR)).
		AddField("baseline_cost_eur", round3(sum.BaselineEUR)).
		AddField("final_soe", round3(sum.FinalSoE)).
		AddField("final_soh", round3(sum.FinalSOH)).
		SetTime(sum.Finished)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
