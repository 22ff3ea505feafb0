package ingest

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/microgrid-lab/mgsim/core/model"
)

// SyntheticConfig shapes a generated household profile.
type SyntheticConfig struct {
	Steps      int     `json:"steps"`
	DeltaHours float64 `json:"delta_hours"`
	PVPeakKW   float64 `json:"pv_peak_kw"`
	LoadBaseKW float64 `json:"load_base_kw"`
	LoadPeakKW float64 `json:"load_peak_kw"`
	NoiseKW    float64 `json:"noise_kw"`
	Alpha      float64 `json:"alpha"`
	Seed       int64   `json:"seed"`
	Start      string  `json:"start"`
}

// SyntheticSource generates a solar-plus-household profile: a bell
// shaped photovoltaic curve between 06:00 and 20:00 and a load with
// morning and evening peaks. NoiseKW adds gaussian jitter on top.
type SyntheticSource struct {
	cfg   SyntheticConfig
	rand  *rand.Rand
	start time.Time
	step  int
}

// NewSyntheticSource validates the profile shape and applies defaults.
func NewSyntheticSource(cfg SyntheticConfig) (*SyntheticSource, error) {
	if cfg.Steps <= 0 {
		cfg.Steps = 24
	}
	if cfg.DeltaHours <= 0 {
		cfg.DeltaHours = 1
	}
	if cfg.PVPeakKW <= 0 {
		cfg.PVPeakKW = 10
	}
	if cfg.LoadBaseKW <= 0 {
		cfg.LoadBaseKW = 2
	}
	if cfg.LoadPeakKW <= 0 {
		cfg.LoadPeakKW = 6
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = 1
	}
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		return nil, fmt.Errorf("synthetic source: alpha %v outside [0,1]", cfg.Alpha)
	}
	var start time.Time
	if cfg.Start != "" {
		t, err := time.Parse(time.RFC3339, cfg.Start)
		if err != nil {
			return nil, fmt.Errorf("synthetic source: bad start %q: %w", cfg.Start, err)
		}
		start = t
	}
	return &SyntheticSource{
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(cfg.Seed)),
		start: start,
	}, nil
}

// Next returns the next generated sample and io.EOF once Steps samples
// were produced.
func (s *SyntheticSource) Next(ctx context.Context) (model.PowerSample, error) {
	if err := ctx.Err(); err != nil {
		return model.PowerSample{}, err
	}
	if s.step >= s.cfg.Steps {
		return model.PowerSample{}, io.EOF
	}
	h := math.Mod(float64(s.step)*s.cfg.DeltaHours, 24)
	sample := model.PowerSample{
		PVKW:   s.noisy(s.pv(h)),
		LoadKW: s.noisy(s.load(h)),
		Alpha:  s.cfg.Alpha,
	}
	if !s.start.IsZero() {
		sample.Timestamp = s.start.Add(time.Duration(float64(time.Hour) * float64(s.step) * s.cfg.DeltaHours))
	}
	s.step++
	return sample, nil
}

func (s *SyntheticSource) pv(h float64) float64 {
	if h < 6 || h >= 20 {
		return 0
	}
	x := math.Sin(math.Pi * (h - 6) / 14)
	return s.cfg.PVPeakKW * x * x
}

func (s *SyntheticSource) load(h float64) float64 {
	switch {
	case h >= 7 && h < 9:
		return s.cfg.LoadBaseKW + 0.6*s.cfg.LoadPeakKW
	case h >= 18 && h < 22:
		return s.cfg.LoadBaseKW + s.cfg.LoadPeakKW
	default:
		return s.cfg.LoadBaseKW
	}
}

func (s *SyntheticSource) noisy(v float64) float64 {
	if s.cfg.NoiseKW <= 0 {
		return v
	}
	v += s.rand.NormFloat64() * s.cfg.NoiseKW
	if v < 0 {
		return 0
	}
	return v
}
