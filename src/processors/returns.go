package processors

import "github.com/investmentmanagement137/portfolio-sub000/src/models"

// ApplyCashFlow folds the realized active-dividend total into the capital
// P/L of the portfolio summary. Percent is 0 when investment is 0.
func ApplyCashFlow(summary models.PortfolioSummary, activeDividendTotal float64) models.PortfolioSummary {
	summary.ActiveDividendTotal = activeDividendTotal
	summary.PLWithCashFlow = summary.PL + activeDividendTotal
	if summary.Investment != 0 {
		summary.PLWithCashFlowPercent = summary.PLWithCashFlow / summary.Investment * 100
	} else {
		summary.PLWithCashFlowPercent = 0
	}
	return summary
}

// HoldingCashFlow applies the same adjustment at the single-holding level,
// using only the dividends attributable to that holding's symbol within
// the active set.
func HoldingCashFlow(h models.Holding, activeBySymbol map[string]float64) models.HoldingWithCashFlow {
	total := activeBySymbol[h.Symbol]
	out := models.HoldingWithCashFlow{
		Holding:        h,
		DividendTotal:  total,
		PLWithCashFlow: h.PL + total,
	}
	if h.Investment != 0 {
		out.PLWithCashFlowPercent = out.PLWithCashFlow / h.Investment * 100
	}
	return out
}

// ActiveDividendsBySymbol sums the active-partition payouts per symbol.
func ActiveDividendsBySymbol(ledger models.DividendLedger) map[string]float64 {
	totals := make(map[string]float64, len(ledger.Active))
	for _, ev := range ledger.Active {
		totals[ev.Symbol] += ev.Amount
	}
	return totals
}
