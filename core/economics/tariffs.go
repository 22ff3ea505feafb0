package economics

import (
	"fmt"
	"time"
)

// Band is a time-of-use tariff band.
type Band string

const (
	BandPeak     Band = "peak"
	BandStandard Band = "standard"
	BandOffPeak  Band = "offpeak"
)

// BandAt classifies a timestamp into the Italian three-band scheme: peak
// covers working-day business hours, off-peak covers nights and Sundays,
// standard the shoulder hours between them.
func BandAt(t time.Time) Band {
	h := t.Hour()
	switch wd := t.Weekday(); {
	case wd == time.Sunday:
		return BandOffPeak
	case wd == time.Saturday:
		if h >= 7 && h < 23 {
			return BandStandard
		}
		return BandOffPeak
	default:
		switch {
		case h >= 8 && h < 19:
			return BandPeak
		case h >= 7 && h < 23:
			return BandStandard
		default:
			return BandOffPeak
		}
	}
}

// TariffMode selects how the purchase price is derived.
type TariffMode string

const (
	ModeFlat      TariffMode = "flat"
	ModeTimeOfUse TariffMode = "time_of_use"
)

// PurchaseTariff prices energy drawn from the public grid, either flat or
// per time-of-use band.
type PurchaseTariff struct {
	Mode              TariffMode `json:"mode"`
	FlatEURPerKWh     float64    `json:"flat_eur_kwh"`
	PeakEURPerKWh     float64    `json:"peak_eur_kwh"`
	StandardEURPerKWh float64    `json:"standard_eur_kwh"`
	OffPeakEURPerKWh  float64    `json:"offpeak_eur_kwh"`
}

// PriceAt returns the purchase price in EUR/kWh at the given time.
func (p PurchaseTariff) PriceAt(t time.Time) float64 {
	if p.Mode == ModeTimeOfUse {
		switch BandAt(t) {
		case BandPeak:
			return p.PeakEURPerKWh
		case BandStandard:
			return p.StandardEURPerKWh
		default:
			return p.OffPeakEURPerKWh
		}
	}
	return p.FlatEURPerKWh
}

// Tariffs carries the economic parameters of a run. Regulated components
// are quoted in EUR/MWh as published, per-kWh components in EUR/kWh.
type Tariffs struct {
	// FeedInEURPerMWh remunerates energy sold to the grid.
	FeedInEURPerMWh float64 `json:"feed_in_eur_mwh"`
	// TransmissionEURPerMWh and MaxDistributionEURPerMWh form the
	// restitution component on shared energy.
	TransmissionEURPerMWh    float64 `json:"transmission_eur_mwh"`
	MaxDistributionEURPerMWh float64 `json:"max_distribution_eur_mwh"`
	// SharedIncentiveEURPerMWh is the energy-community premium on shared
	// energy.
	SharedIncentiveEURPerMWh float64 `json:"shared_incentive_eur_mwh"`
	// PVInvestEURPerKWh amortizes the plant over produced energy.
	PVInvestEURPerKWh float64 `json:"pv_invest_eur_kwh"`
	// BillFixedEUR is the fixed bill component applied on purchasing steps.
	BillFixedEUR float64 `json:"bill_fixed_eur"`
	// VAT is the tax fraction applied to purchases.
	VAT float64 `json:"vat"`

	Purchase PurchaseTariff `json:"purchase"`
}

// SetDefaults fills unset fields with usable values.
func (t *Tariffs) SetDefaults() {
	if t.Purchase.Mode == "" {
		t.Purchase.Mode = ModeFlat
	}
}

// Validate checks the tariff set.
func (t Tariffs) Validate() error {
	for name, v := range map[string]float64{
		"feed_in":          t.FeedInEURPerMWh,
		"transmission":     t.TransmissionEURPerMWh,
		"max_distribution": t.MaxDistributionEURPerMWh,
		"shared_incentive": t.SharedIncentiveEURPerMWh,
		"pv_invest":        t.PVInvestEURPerKWh,
		"bill_fixed":       t.BillFixedEUR,
	} {
		if v < 0 {
			return fmt.Errorf("economics: tariff %s %v must be non-negative", name, v)
		}
	}
	if t.VAT < 0 || t.VAT > 1 {
		return fmt.Errorf("economics: VAT %v outside [0,1]", t.VAT)
	}
	switch t.Purchase.Mode {
	case ModeFlat:
		if t.Purchase.FlatEURPerKWh < 0 {
			return fmt.Errorf("economics: flat purchase price %v must be non-negative", t.Purchase.FlatEURPerKWh)
		}
	case ModeTimeOfUse:
		for name, v := range map[string]float64{
			"peak":     t.Purchase.PeakEURPerKWh,
			"standard": t.Purchase.StandardEURPerKWh,
			"offpeak":  t.Purchase.OffPeakEURPerKWh,
		} {
			if v < 0 {
				return fmt.Errorf("economics: %s purchase price %v must be non-negative", name, v)
			}
		}
	default:
		return fmt.Errorf("economics: unknown purchase tariff mode %q", t.Purchase.Mode)
	}
	return nil
}
