package models

// DividendEvent is a single normalized dividend cash flow. Amount is the
// only required numeric field; the rest default per the normalization
// rules (face value 100, holdings-at-closure 0, per-share derived from
// cash percent and face value when absent).
type DividendEvent struct {
	Symbol            string  `json:"symbol"`
	BookClosureDate   string  `json:"book_closure_date,omitempty"`
	HoldingsAtClosure float64 `json:"holdings_at_closure"`
	CashPercent       float64 `json:"cash_percent"`
	FaceValue         float64 `json:"face_value"`
	DividendPerShare  float64 `json:"dividend_per_share"`
	Amount            float64 `json:"amount"`
}

// DividendTotals holds the aggregate payout sums for both partitions.
type DividendTotals struct {
	Historical float64 `json:"historical"`
	Active     float64 `json:"active"`
}

// DividendLedger partitions dividend events into the full historical set
// and the active subset (events whose symbol is currently held). The
// active partition is recomputed on every materialize call, never stored
// as a flag on the event.
type DividendLedger struct {
	Historical []DividendEvent `json:"historical"`
	Active     []DividendEvent `json:"active"`
	Totals     DividendTotals  `json:"totals"`
}
