package models

import "time"

// LifecycleState is the load lifecycle of the reconciliation engine.
// Error is always recoverable: a successful retry moves back through
// loading to ready.
type LifecycleState string

const (
	StatusIdle    LifecycleState = "idle"
	StatusLoading LifecycleState = "loading"
	StatusReady   LifecycleState = "ready"
	StatusError   LifecycleState = "error"
)

// RawInputs is the full set of currently-ingested raw source data the
// derivation runs over. All fields may be nil/empty.
type RawInputs struct {
	Payload      *AnalysisPayload `json:"payload,omitempty"`
	SnapshotRows []RawRecord      `json:"snapshot_rows,omitempty"`
	WaccRows     []RawRecord      `json:"wacc_rows,omitempty"`
}

// DerivedState is the single derived projection over the current raw
// inputs and price table. It is rebuilt wholesale on every input change;
// callers never mutate it.
type DerivedState struct {
	Portfolio  ValuedPortfolio `json:"portfolio"`
	Dividends  DividendLedger  `json:"dividends"`
	ComputedAt time.Time       `json:"computed_at"`
}

// EmptyDerivedState is the zero-holdings projection served before the
// first derivation completes. Slices and maps are initialized so it
// encodes as empty collections, not nulls.
func EmptyDerivedState() *DerivedState {
	return &DerivedState{
		Portfolio: ValuedPortfolio{
			Holdings:         []Holding{},
			SectorAllocation: map[string]float64{},
		},
		Dividends: DividendLedger{
			Historical: []DividendEvent{},
			Active:     []DividendEvent{},
		},
	}
}
