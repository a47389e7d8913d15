package models

// Holding is a valued position in the canonical ledger. Quantity is always
// positive; zero-quantity rows are dropped during normalization.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Sector       string  `json:"sector"`
	Quantity     float64 `json:"quantity"`
	WaccRate     float64 `json:"wacc_rate"`
	Investment   float64 `json:"investment"`
	LTP          float64 `json:"ltp"`
	CurrentValue float64 `json:"current_value"`
	PL           float64 `json:"pl"`
	PLPercent    float64 `json:"pl_percent"`
}

// PortfolioSummary aggregates the current holdings set. The cash-flow
// fields are filled by the returns calculator after the dividend ledger
// has been materialized.
type PortfolioSummary struct {
	Investment            float64 `json:"investment"`
	CurrentValue          float64 `json:"current_value"`
	PL                    float64 `json:"pl"`
	PLPercent             float64 `json:"pl_percent"`
	ActiveDividendTotal   float64 `json:"active_dividend_total"`
	HoldingCount          int     `json:"holding_count"`
	PLWithCashFlow        float64 `json:"pl_with_cashflow"`
	PLWithCashFlowPercent float64 `json:"pl_with_cashflow_percent"`
}

// ValuedPortfolio is the output of the holdings valuator: holdings sorted
// descending by market value, plus portfolio-level aggregates.
type ValuedPortfolio struct {
	Holdings         []Holding          `json:"holdings"`
	Summary          PortfolioSummary   `json:"summary"`
	SectorAllocation map[string]float64 `json:"sector_allocation"`
}

// HoldingWithCashFlow is a single holding with its attributable dividend
// cash flow folded into the return figures.
type HoldingWithCashFlow struct {
	Holding
	DividendTotal         float64 `json:"dividend_total"`
	PLWithCashFlow        float64 `json:"pl_with_cashflow"`
	PLWithCashFlowPercent float64 `json:"pl_with_cashflow_percent"`
}
