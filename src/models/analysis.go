package models

// AnalysisPayload is the structured result of the external analysis
// webhook, unpacked from its positional five-element array contract:
// index 0 carries a dividend-summary object, index 1 the historical
// dividend calculation, index 3 the current meroshare holdings and
// index 4 the current dividend holdings. Missing indices leave the
// corresponding section nil; the adapter never fails on them.
type AnalysisPayload struct {
	DividendSummary     RawRecord   `json:"dividend_summary,omitempty"`
	HistoricalDividends []RawRecord `json:"historical_dividends,omitempty"`
	MeroshareHoldings   []RawRecord `json:"meroshare_holdings,omitempty"`
	DividendHoldings    []RawRecord `json:"dividend_holdings,omitempty"`
}

// Empty reports whether the payload carries no usable section at all.
func (p *AnalysisPayload) Empty() bool {
	if p == nil {
		return true
	}
	return len(p.DividendSummary) == 0 &&
		len(p.HistoricalDividends) == 0 &&
		len(p.MeroshareHoldings) == 0 &&
		len(p.DividendHoldings) == 0
}
