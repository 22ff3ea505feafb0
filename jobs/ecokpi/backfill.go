package ecokpi

import (
	"math"

	"github.com/microgrid-lab/mgsim/core/dispatch/ledger"
	eco "github.com/microgrid-lab/mgsim/core/metrics/eco"
)

// Backfill folds historical ledger records into the KPI store. dt is the
// step duration in hours the run was recorded with.
func Backfill(store eco.Store, history []ledger.Record, dt float64) error {
	for _, h := range history {
		r := h.Result
		eProd := dt * r.PGKw
		eDraw := dt * r.PLKw
		if r.PGLSKw > 0 {
			eDraw = dt * (r.PLKw + r.PGLSKw)
		}
		rec := eco.Record{RunID: h.RunID, Date: h.Timestamp, SharedKWh: math.Min(eProd, eDraw)}
		if r.PGLNKw >= 0 {
			rec.InjectedKWh = r.PGLNKw * dt
		} else {
			rec.ConsumedKWh = -r.PGLNKw * dt
		}
		if err := store.Add(rec); err != nil {
			return err
		}
	}
	return nil
}
