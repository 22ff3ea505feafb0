// Package export serializes finished runs for downstream analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/microgrid-lab/mgsim/core/microgrid"
)

// WriteJSON writes the run's step outcomes to w in JSON format.
func WriteJSON(w io.Writer, steps []microgrid.StepOutcome) error {
	enc := json.NewEncoder(w)
	return enc.Encode(steps)
}

// WriteCSV writes the run's step outcomes to w as a flat CSV table, one
// row per step.
func WriteCSV(w io.Writer, steps []microgrid.StepOutcome) error {
	cw := csv.NewWriter(w)
	header := []string{
		"time", "step", "case",
		"p_g", "p_l", "alpha", "p_gl", "p_gl_s", "p_gl_n", "ess_losses",
		"excess_kwh", "lack_kwh", "soe", "soc", "soh",
		"cost_eur", "revenue_eur", "wear_eur",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range steps {
		r := s.Result
		rec := []string{
			s.Time.Format(time.RFC3339),
			strconv.Itoa(r.Step),
			string(r.Case),
			fmtFloat(r.PGKw), fmtFloat(r.PLKw), fmtFloat(r.Alpha),
			fmtFloat(r.PGLKw), fmtFloat(r.PGLSKw), fmtFloat(r.PGLNKw), fmtFloat(r.LossesKw),
			fmtFloat(r.ExcessKWh), fmtFloat(r.LackKWh),
			fmtFloat(r.SoE), fmtFloat(r.SoC), fmtFloat(r.SOH),
			fmtFloat(s.Cost.CostEUR), fmtFloat(s.Cost.RevenueEUR), fmtFloat(s.Cost.WearEUR),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
