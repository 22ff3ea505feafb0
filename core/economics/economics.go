// Package economics turns realized power flows into per-step cost and
// revenue figures under an energy-community tariff scheme: feed-in for sold
// energy, restitution and incentive on shared energy, PV amortization,
// battery wear and taxed grid purchases.
package economics

import (
	"errors"
	"math"
	"time"

	"github.com/microgrid-lab/mgsim/core/dispatch"
	"github.com/microgrid-lab/mgsim/core/logger"
)

// WearEstimator prices battery usage for one step. The electrical model
// implements it.
type WearEstimator interface {
	WearCost(prevSoE, powerKW float64) float64
}

// Breakdown is the economic outcome of one dispatched step. CostEUR is the
// signed microgrid cost, BaselineEUR what the same load would have cost
// without PV and storage.
type Breakdown struct {
	Step           int     `json:"step"`
	Band           Band    `json:"band"`
	PriceEURPerKWh float64 `json:"price_eur_kwh"`

	SharedKWh   float64 `json:"shared_kwh"`
	SoldKw      float64 `json:"sold_kw"`
	PurchasedKw float64 `json:"purchased_kw"`

	FeedInEUR      float64 `json:"feed_in_eur"`
	RestitutionEUR float64 `json:"restitution_eur"`
	IncentiveEUR   float64 `json:"incentive_eur"`
	RevenueEUR     float64 `json:"revenue_eur"`
	InvestmentEUR  float64 `json:"investment_eur"`
	WearEUR        float64 `json:"wear_eur"`
	PurchaseEUR    float64 `json:"purchase_eur"`
	CostEUR        float64 `json:"cost_eur"`
	BaselineEUR    float64 `json:"baseline_eur"`
}

// Accountant evaluates the tariff scheme over dispatched steps.
type Accountant struct {
	tariffs Tariffs
	dt      float64
	wear    WearEstimator
	log     logger.Logger
}

// NewAccountant builds an Accountant. wear may be nil, pricing battery
// usage at zero.
func NewAccountant(tariffs Tariffs, deltaHours float64, wear WearEstimator, log logger.Logger) (*Accountant, error) {
	tariffs.SetDefaults()
	if err := tariffs.Validate(); err != nil {
		return nil, err
	}
	if deltaHours <= 0 {
		return nil, errors.New("economics: timestep must be positive")
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Accountant{tariffs: tariffs, dt: deltaHours, wear: wear, log: log}, nil
}

// Cost evaluates one dispatched step at the given time. Regulated tariffs
// are converted from EUR/MWh with the 0.001 factor; the fixed bill
// component and VAT apply only on steps that actually purchase.
func (a *Accountant) Cost(at time.Time, res dispatch.Result) Breakdown {
	const perMWh = 0.001
	t := a.tariffs

	eProd := a.dt * res.PGKw
	eDraw := a.dt * res.PLKw
	if res.PGLSKw > 0 {
		eDraw = a.dt * (res.PLKw + res.PGLSKw)
	}
	eSha := math.Min(eProd, eDraw)

	var sold, purch float64
	if res.PGLNKw >= 0 {
		sold = res.PGLNKw
	} else {
		purch = -res.PGLNKw
	}

	iRet := t.FeedInEURPerMWh * perMWh * a.dt * sold
	iRest := (t.TransmissionEURPerMWh + t.MaxDistributionEURPerMWh) * perMWh * eSha
	iSha := t.SharedIncentiveEURPerMWh * perMWh * eSha
	revenue := iSha + iRest + iRet

	invCost := t.PVInvestEURPerKWh * res.PGKw * a.dt
	var wear float64
	if a.wear != nil {
		wear = a.wear.WearCost(res.PrevSoE, math.Abs(res.PGLSKw))
	}

	price := t.Purchase.PriceAt(at)
	var purchCost float64
	if purch != 0 {
		purchCost = (purch*a.dt*price + t.BillFixedEUR) * (1 + t.VAT)
	}

	b := Breakdown{
		Step:           res.Step,
		Band:           BandAt(at),
		PriceEURPerKWh: price,
		SharedKWh:      eSha,
		SoldKw:         sold,
		PurchasedKw:    purch,
		FeedInEUR:      iRet,
		RestitutionEUR: iRest,
		IncentiveEUR:   iSha,
		RevenueEUR:     revenue,
		InvestmentEUR:  invCost,
		WearEUR:        wear,
		PurchaseEUR:    purchCost,
		CostEUR:        -revenue + invCost + wear + purchCost,
		BaselineEUR:    (res.PLKw*a.dt*price + t.BillFixedEUR) * (1 + t.VAT),
	}
	a.log.Debugw("step cost", map[string]any{
		"step":    b.Step,
		"cost":    b.CostEUR,
		"revenue": b.RevenueEUR,
		"shared":  b.SharedKWh,
	})
	return b
}

// Tariffs returns the validated tariff set the Accountant runs on.
func (a *Accountant) Tariffs() Tariffs { return a.tariffs }

// DeltaHours returns the accounting step width in hours.
func (a *Accountant) DeltaHours() float64 { return a.dt }
