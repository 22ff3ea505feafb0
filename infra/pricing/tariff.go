package pricing

import (
	"fmt"

	"github.com/microgrid-lab/mgsim/core/economics"
)

// PurchaseTariff averages the hourly prices per time-of-use band and
// returns the resulting tariff in EUR/kWh. Bands without any slot fall
// back to the overall average.
func PurchaseTariff(prices []HourlyPrice) (economics.PurchaseTariff, error) {
	if len(prices) == 0 {
		return economics.PurchaseTariff{}, fmt.Errorf("pricing: no price slots")
	}
	sums := map[economics.Band]float64{}
	counts := map[economics.Band]int{}
	var total float64
	for _, p := range prices {
		b := economics.BandAt(p.Start)
		sums[b] += p.EURPerMWh
		counts[b]++
		total += p.EURPerMWh
	}
	overall := total / float64(len(prices)) * 0.001
	avg := func(b economics.Band) float64 {
		if counts[b] == 0 {
			return overall
		}
		return sums[b] / float64(counts[b]) * 0.001
	}
	return economics.PurchaseTariff{
		Mode:              economics.ModeTimeOfUse,
		PeakEURPerKWh:     avg(economics.BandPeak),
		StandardEURPerKWh: avg(economics.BandStandard),
		OffPeakEURPerKWh:  avg(economics.BandOffPeak),
	}, nil
}
