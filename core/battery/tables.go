package battery

import (
	"bytes"
	"embed"
	"encoding/csv"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/interp"
)

//go:embed params/*.csv
var paramFS embed.FS

// curve interpolates one per-cell quantity over state of charge, blending
// linearly between the 20 °C and 40 °C characterisations. Queries outside
// the fitted domain hold the nearest endpoint value.
type curve struct {
	low  interp.PiecewiseLinear
	high interp.PiecewiseLinear
}

func newCurve(xs, low, high []float64) (curve, error) {
	var c curve
	if err := c.low.Fit(xs, low); err != nil {
		return curve{}, fmt.Errorf("failed to fit 20 °C curve: %w", err)
	}
	if err := c.high.Fit(xs, high); err != nil {
		return curve{}, fmt.Errorf("failed to fit 40 °C curve: %w", err)
	}
	return c, nil
}

func (c curve) at(soc, tempC float64) float64 {
	frac := (tempC - 20.0) / 20.0
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	lo := c.low.Predict(soc)
	if frac == 0 {
		return lo
	}
	hi := c.high.Predict(soc)
	return lo + frac*(hi-lo)
}

// TableSet exposes the pack-level open-circuit voltage and internal
// resistance as functions of state of charge and ambient temperature. The
// per-cell table values are scaled to the configured pack topology at load
// time.
type TableSet struct {
	voc curve
	r0  curve
}

// Voc returns the pack open-circuit voltage in volts.
func (t *TableSet) Voc(soc, tempC float64) float64 { return t.voc.at(soc, tempC) }

// R0 returns the pack internal resistance in ohms.
func (t *TableSet) R0(soc, tempC float64) float64 { return t.r0.at(soc, tempC) }

// loadTables parses the chemistry's embedded characterisation table and
// scales it to the pack described by cfg. Voc scales with the series cell
// count, R0 with the series/parallel ratio and the ratio of the reference
// cell capacity to the configured one.
func loadTables(cfg Config) (*TableSet, error) {
	spec := cellSpecs[cfg.Chemistry]
	raw, err := paramFS.ReadFile(spec.table)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", spec.table, err)
	}
	rows, err := parseTable(spec.table, raw)
	if err != nil {
		return nil, err
	}

	ns := float64(cfg.SeriesCells)
	np := float64(cfg.ParallelStrings)
	r0Scale := (ns / np) * (spec.capacityAh / cfg.PackCapacityAh)

	n := len(rows)
	xs := linspace(0, 1, n)
	r0Low := make([]float64, n)
	r0High := make([]float64, n)
	vocLow := make([]float64, n)
	vocHigh := make([]float64, n)
	for i, r := range rows {
		r0Low[i] = r.r0Low * r0Scale
		r0High[i] = r.r0High * r0Scale
		vocLow[i] = r.vocLow * ns
		vocHigh[i] = r.vocHigh * ns
	}

	r0, err := newCurve(xs, r0Low, r0High)
	if err != nil {
		return nil, fmt.Errorf("failed to build R0 table for %s: %w", cfg.Chemistry, err)
	}
	voc, err := newCurve(xs, vocLow, vocHigh)
	if err != nil {
		return nil, fmt.Errorf("failed to build Voc table for %s: %w", cfg.Chemistry, err)
	}
	return &TableSet{voc: voc, r0: r0}, nil
}

type tableRow struct {
	r0Low, r0High, vocLow, vocHigh float64
}

// parseTable reads the header and data rows of a characterisation CSV. The
// soc column is informational only, rows are assumed evenly spaced over
// [0, 1].
func parseTable(name string, raw []byte) ([]tableRow, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = 5
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if len(records) < 3 {
		return nil, fmt.Errorf("table %s has %d data rows, need at least 2", name, len(records)-1)
	}
	rows := make([]tableRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		vals := make([]float64, 5)
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("table %s row %d: %w", name, i+1, err)
			}
			vals[j] = v
		}
		rows = append(rows, tableRow{
			r0Low:   vals[1],
			r0High:  vals[2],
			vocLow:  vals[3],
			vocHigh: vals[4],
		})
	}
	return rows, nil
}

func linspace(start, stop float64, n int) []float64 {
	xs := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range xs {
		xs[i] = start + float64(i)*step
	}
	xs[n-1] = stop
	return xs
}
