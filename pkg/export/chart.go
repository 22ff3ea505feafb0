package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/microgrid-lab/mgsim/core/microgrid"
)

// WriteChartHTML renders the run as a self-contained HTML page: battery
// state of energy and the grid exchange power over time.
func WriteChartHTML(w io.Writer, steps []microgrid.StepOutcome) error {
	if len(steps) == 0 {
		return fmt.Errorf("export: no steps to chart")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Microgrid run"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "SoE / Power (kW)"}),
	)

	var xAxis []string
	var soe, exchange, storage []opts.LineData
	for _, s := range steps {
		r := s.Result
		xAxis = append(xAxis, s.Time.Format("2006-01-02 15:04"))
		soe = append(soe, opts.LineData{Value: r.SoE})
		exchange = append(exchange, opts.LineData{Value: r.PGLNKw})
		storage = append(storage, opts.LineData{Value: r.PGLSKw})
	}
	line.SetXAxis(xAxis).
		AddSeries("SoE", soe).
		AddSeries("Grid exchange kW", exchange).
		AddSeries("Storage flow kW", storage)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("export: render chart: %w", err)
	}
	return nil
}
