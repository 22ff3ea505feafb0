package model

import (
	"fmt"
	"time"
)

// PowerSample is one resolved simulation input: photovoltaic generation and
// load at a point in time, plus the dispatch fraction applied to the surplus
// or deficit. Ingestion layers deliver fully resolved samples; the core never
// waits on partial data.
type PowerSample struct {
	Timestamp time.Time `json:"timestamp"`
	PVKW      float64   `json:"pv_kw"`   // photovoltaic generation in kW
	LoadKW    float64   `json:"load_kw"` // consumption in kW
	Alpha     float64   `json:"alpha"`   // dispatch fraction in [0,1]
}

// Validate checks that the sample is physically meaningful.
func (s PowerSample) Validate() error {
	if s.PVKW < 0 {
		return fmt.Errorf("negative generation %v kW", s.PVKW)
	}
	if s.LoadKW < 0 {
		return fmt.Errorf("negative load %v kW", s.LoadKW)
	}
	if s.Alpha < 0 || s.Alpha > 1 {
		return fmt.Errorf("alpha %v outside [0,1]", s.Alpha)
	}
	return nil
}

// Net returns generation minus load in kW.
func (s PowerSample) Net() float64 { return s.PVKW - s.LoadKW }
