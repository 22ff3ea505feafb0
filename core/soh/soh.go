// Package soh maps cumulative charge throughput to a state-of-health
// fraction using a piecewise-linear degradation curve anchored on lab
// measurement points.
package soh

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Point is one measured (throughput, health) anchor of the degradation
// curve, with throughput in ampere-hours and health a fraction in (0,1].
type Point struct {
	ThroughputAh float64 `json:"throughput_ah"`
	Health       float64 `json:"health"`
}

// Curve interpolates health over cumulative Ah throughput. Health decreases
// linearly from 1.0 at zero throughput to the first measured point, follows
// the measured points piecewise-linearly, and holds the last measured value
// beyond the final point.
type Curve struct {
	pl   interp.PiecewiseLinear
	last Point
}

// NewCurve builds a Curve from measurement points sorted ascending by
// throughput. Points must start above zero throughput, be strictly
// increasing in throughput and non-increasing in health.
func NewCurve(points []Point) (*Curve, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("soh: no measurement points")
	}
	xs := make([]float64, 0, len(points)+1)
	ys := make([]float64, 0, len(points)+1)
	xs = append(xs, 0)
	ys = append(ys, 1)
	prev := Point{ThroughputAh: 0, Health: 1}
	for i, p := range points {
		if p.ThroughputAh <= prev.ThroughputAh {
			return nil, fmt.Errorf("soh: point %d throughput %v not increasing", i, p.ThroughputAh)
		}
		if p.Health <= 0 || p.Health > 1 {
			return nil, fmt.Errorf("soh: point %d health %v outside (0,1]", i, p.Health)
		}
		if p.Health > prev.Health {
			return nil, fmt.Errorf("soh: point %d health %v above previous %v", i, p.Health, prev.Health)
		}
		xs = append(xs, p.ThroughputAh)
		ys = append(ys, p.Health)
		prev = p
	}
	c := &Curve{last: points[len(points)-1]}
	if err := c.pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("soh: fit curve: %w", err)
	}
	return c, nil
}

// At returns the curve health at the given cumulative throughput. Negative
// throughput evaluates to 1.0 and values beyond the last point hold the last
// measured health.
func (c *Curve) At(throughputAh float64) float64 {
	if throughputAh >= c.last.ThroughputAh {
		return c.last.Health
	}
	return c.pl.Predict(throughputAh)
}

// Tracker accumulates throughput and enforces monotonically non-increasing
// health across updates, including out-of-order or revisited throughput
// values.
type Tracker struct {
	curve        *Curve
	throughputAh float64
	health       float64
}

// NewTracker returns a Tracker starting at full health and zero throughput.
func NewTracker(curve *Curve) *Tracker {
	return &Tracker{curve: curve, health: 1}
}

// Accumulate adds deltaAh to the cumulative throughput and returns the
// updated health. Negative deltas are ignored; throughput never decreases.
func (t *Tracker) Accumulate(deltaAh float64) float64 {
	if deltaAh > 0 {
		t.throughputAh += deltaAh
	}
	if h := t.curve.At(t.throughputAh); h < t.health {
		t.health = h
	}
	return t.health
}

// Health returns the current state of health.
func (t *Tracker) Health() float64 { return t.health }

// ThroughputAh returns the cumulative ampere-hour throughput.
func (t *Tracker) ThroughputAh() float64 { return t.throughputAh }

// Reset restores full health and zero throughput.
func (t *Tracker) Reset() {
	t.throughputAh = 0
	t.health = 1
}

// Restore overwrites the tracker state, used when recovering a saved
// simulation.
func (t *Tracker) Restore(throughputAh, health float64) {
	t.throughputAh = throughputAh
	t.health = health
}
