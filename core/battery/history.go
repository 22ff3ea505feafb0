package battery

// Record is one step of the pack's electrical diagnostic trail. Power keeps
// the grid-side sign convention, positive while the pack absorbs energy.
type Record struct {
	Time     float64 `json:"time"`
	CurrentA float64 `json:"current"`
	VoltageV float64 `json:"voltage"`
	SoC      float64 `json:"soc"`
	SoE      float64 `json:"soe"`
	PowerKW  float64 `json:"power"`
}

// history keeps a bounded trail of records, dropping the oldest entry once
// the cap is reached.
type history struct {
	limit   int
	records []Record
}

func newHistory(limit int) *history {
	return &history{limit: limit}
}

func (h *history) append(r Record) {
	if h.limit > 0 && len(h.records) >= h.limit {
		copy(h.records, h.records[1:])
		h.records[len(h.records)-1] = r
		return
	}
	h.records = append(h.records, r)
}

func (h *history) all() []Record {
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

func (h *history) reset() {
	h.records = h.records[:0]
}
