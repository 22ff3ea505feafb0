package battery

import "math"

// wearRate evaluates the marginal wear cost, in EUR per kWh of throughput,
// at state of energy x. The curve steepens toward deep discharge.
func wearRate(w WearConfig, nomEnergyKWh, eta, x float64) float64 {
	if x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	return (w.Price / (2 * nomEnergyKWh * eta)) * (w.B * math.Pow(1-x, w.B-1)) / w.A
}

// wearCost integrates the wear rate over one step with the trapezoid rule
// between the previous and current state of energy. It returns zero when
// wear accounting is not configured.
func wearCost(w WearConfig, nomEnergyKWh, eta, deltaHours, prevSoE, soe, powerKW float64) float64 {
	if !w.Configured() || nomEnergyKWh <= 0 || eta <= 0 {
		return 0
	}
	mean := (wearRate(w, nomEnergyKWh, eta, prevSoE) + wearRate(w, nomEnergyKWh, eta, soe)) / 2
	return deltaHours * mean * math.Abs(powerKW)
}
