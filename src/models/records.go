package models

// RawRecord is a single header-keyed row from a parsed tabular file, or a
// single object from an uploaded/webhook JSON list. Values keep whatever
// representation the source used (string with grouping separators, JSON
// number, etc.); numeric cleanup happens in the processors.
type RawRecord map[string]any

// HoldingShape identifies which raw holdings source a batch of records
// came from. Each shape has its own field-candidate table in the
// processors package.
type HoldingShape string

const (
	ShapeWebhook     HoldingShape = "webhook"
	ShapeGenericJSON HoldingShape = "generic_json"
	ShapeWaccReport  HoldingShape = "wacc_report"
)

// RawHolding is a holdings row after normalization, prior to valuation.
// Investment and EmbeddedLTP are zero when the source row carried none.
type RawHolding struct {
	Symbol      string  `json:"symbol"`
	Sector      string  `json:"sector,omitempty"`
	Quantity    float64 `json:"quantity"`
	WaccRate    float64 `json:"wacc_rate"`
	Investment  float64 `json:"investment,omitempty"`
	EmbeddedLTP float64 `json:"embedded_ltp,omitempty"`
}

// RawHoldingSources groups the mutually-exclusive holdings sources that
// may be present at the same time. Exactly one of them is used per
// derivation, selected by fixed priority (webhook > generic JSON > WACC
// report). Sources are never merged, to avoid double-counting the same
// symbol from two reports.
type RawHoldingSources struct {
	Webhook     []RawHolding `json:"webhook,omitempty"`
	GenericJSON []RawHolding `json:"generic_json,omitempty"`
	WaccReport  []RawHolding `json:"wacc_report,omitempty"`
}
