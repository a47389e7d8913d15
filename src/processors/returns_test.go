package processors

import (
	"testing"

	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/stretchr/testify/assert"
)

func TestApplyCashFlow(t *testing.T) {
	summary := models.PortfolioSummary{
		Investment:   10000,
		CurrentValue: 9000,
		PL:           -1000,
		PLPercent:    -10,
	}
	adjusted := ApplyCashFlow(summary, 1500)
	assert.Equal(t, 1500.0, adjusted.ActiveDividendTotal)
	assert.Equal(t, 500.0, adjusted.PLWithCashFlow, "dividends can turn a paper loss into a net gain")
	assert.Equal(t, 5.0, adjusted.PLWithCashFlowPercent)

	// Capital figures are untouched.
	assert.Equal(t, -1000.0, adjusted.PL)
	assert.Equal(t, -10.0, adjusted.PLPercent)
}

func TestApplyCashFlowZeroInvestment(t *testing.T) {
	adjusted := ApplyCashFlow(models.PortfolioSummary{}, 300)
	assert.Equal(t, 300.0, adjusted.PLWithCashFlow)
	assert.Equal(t, 0.0, adjusted.PLWithCashFlowPercent)
}

func TestHoldingCashFlow(t *testing.T) {
	h := models.Holding{Symbol: "ABC", Investment: 2000, PL: -100}
	out := HoldingCashFlow(h, map[string]float64{"ABC": 300, "XYZ": 999})
	assert.Equal(t, 300.0, out.DividendTotal, "only the holding's own symbol contributes")
	assert.Equal(t, 200.0, out.PLWithCashFlow)
	assert.Equal(t, 10.0, out.PLWithCashFlowPercent)
}

func TestHoldingCashFlowNoDividends(t *testing.T) {
	h := models.Holding{Symbol: "NONE", Investment: 1000, PL: 50}
	out := HoldingCashFlow(h, map[string]float64{})
	assert.Equal(t, 0.0, out.DividendTotal)
	assert.Equal(t, 50.0, out.PLWithCashFlow)
}

func TestActiveDividendsBySymbol(t *testing.T) {
	ledger := models.DividendLedger{
		Historical: []models.DividendEvent{{Symbol: "OLD", Amount: 9999}},
		Active: []models.DividendEvent{
			{Symbol: "A", Amount: 100},
			{Symbol: "A", Amount: 50},
			{Symbol: "B", Amount: 25},
		},
	}
	totals := ActiveDividendsBySymbol(ledger)
	assert.Equal(t, 150.0, totals["A"])
	assert.Equal(t, 25.0, totals["B"])
	assert.NotContains(t, totals, "OLD", "historical-only symbols never enter the active totals")
}
