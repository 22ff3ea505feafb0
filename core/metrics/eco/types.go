package eco

import "time"

// Record aggregates the grid exchange of one run and day. Injected energy
// was sold to the public grid, consumed energy purchased from it, shared
// energy produced and used inside the microgrid.
type Record struct {
	RunID       string
	Date        time.Time
	InjectedKWh float64
	ConsumedKWh float64
	SharedKWh   float64
}

// CO2Avoided returns the grams of CO2 avoided: energy the microgrid kept
// off fossil generation, valued at the emission factor in g/kWh.
func (r Record) CO2Avoided(factor float64) float64 {
	return (r.SharedKWh + r.InjectedKWh) * factor
}

// SelfSufficiency returns the fraction of local consumption covered
// without the public grid.
func (r Record) SelfSufficiency() float64 {
	total := r.SharedKWh + r.ConsumedKWh
	if total == 0 {
		return 0
	}
	return r.SharedKWh / total
}
