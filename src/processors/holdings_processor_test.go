package processors

import (
	"testing"

	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDropsMalformedRows(t *testing.T) {
	p := NewHoldingsProcessor()
	rows := []models.RawRecord{
		{"Scrip": "", "Current Balance": "100"},           // missing symbol
		{"Scrip": "ABC", "Current Balance": "0"},          // zero quantity
		{"Scrip": "DEF", "Current Balance": "-5"},         // negative quantity
		{"Scrip": "GHI", "Current Balance": "abc"},        // unparseable, no fallback
		{"Scrip": "OK1", "Current Balance": "10", "WACC": "50"},
	}
	out := p.Normalize(rows, models.ShapeWebhook)
	require.Len(t, out, 1)
	assert.Equal(t, "OK1", out[0].Symbol)
	assert.Equal(t, 10.0, out[0].Quantity)
	assert.Equal(t, 50.0, out[0].WaccRate)
}

func TestNormalizeGroupedNumbers(t *testing.T) {
	p := NewHoldingsProcessor()
	out := p.Normalize([]models.RawRecord{
		{"Scrip": "NTC", "Current Balance": "1,234.50", "WACC": "612", "Total Investment": "7,55,000"},
	}, models.ShapeWebhook)
	require.Len(t, out, 1)
	assert.Equal(t, 1234.5, out[0].Quantity)
	assert.Equal(t, 755000.0, out[0].Investment)
}

func TestSelectSourcePriority(t *testing.T) {
	p := NewHoldingsProcessor()
	webhook := []models.RawHolding{{Symbol: "W", Quantity: 1}}
	generic := []models.RawHolding{{Symbol: "G", Quantity: 1}}
	wacc := []models.RawHolding{{Symbol: "R", Quantity: 1}}

	tests := []struct {
		name      string
		sources   models.RawHoldingSources
		wantShape models.HoldingShape
	}{
		{"webhook beats all", models.RawHoldingSources{Webhook: webhook, GenericJSON: generic, WaccReport: wacc}, models.ShapeWebhook},
		{"generic beats wacc", models.RawHoldingSources{GenericJSON: generic, WaccReport: wacc}, models.ShapeGenericJSON},
		{"wacc alone", models.RawHoldingSources{WaccReport: wacc}, models.ShapeWaccReport},
		{"nothing", models.RawHoldingSources{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, shape := p.SelectSource(tt.sources)
			assert.Equal(t, tt.wantShape, shape)
			if tt.wantShape == "" {
				assert.Nil(t, rows)
			} else {
				require.Len(t, rows, 1, "exactly one source is used, never a merge")
			}
		})
	}
}

func TestMaterializeEndToEnd(t *testing.T) {
	p := NewHoldingsProcessor()
	raw := p.Normalize([]models.RawRecord{
		{"Scrip": "ABC", "Current Balance": "100", "WACC": "50", "Total Investment": "5000"},
	}, models.ShapeWebhook)
	require.Len(t, raw, 1)

	out := p.Materialize(raw, PriceMap{"ABC": 60})
	require.Len(t, out.Holdings, 1)

	h := out.Holdings[0]
	assert.Equal(t, 100.0, h.Quantity)
	assert.Equal(t, 5000.0, h.Investment)
	assert.Equal(t, 60.0, h.LTP)
	assert.Equal(t, 6000.0, h.CurrentValue)
	assert.Equal(t, 1000.0, h.PL)
	assert.Equal(t, 20.0, h.PLPercent)
	assert.Equal(t, "Unknown", h.Sector)

	assert.Equal(t, 5000.0, out.Summary.Investment)
	assert.Equal(t, 6000.0, out.Summary.CurrentValue)
	assert.Equal(t, 1000.0, out.Summary.PL)
	assert.Equal(t, 1, out.Summary.HoldingCount)
}

func TestMaterializeInvestmentFallsBackToQuantityTimesRate(t *testing.T) {
	p := NewHoldingsProcessor()
	out := p.Materialize([]models.RawHolding{
		{Symbol: "XYZ", Quantity: 40, WaccRate: 25},
	}, PriceMap{})
	require.Len(t, out.Holdings, 1)
	assert.Equal(t, 1000.0, out.Holdings[0].Investment)
}

func TestMaterializePriceFallbackChain(t *testing.T) {
	p := NewHoldingsProcessor()
	out := p.Materialize([]models.RawHolding{
		{Symbol: "TAB", Quantity: 10, WaccRate: 5},                  // in table
		{Symbol: "EMB", Quantity: 10, WaccRate: 5, EmbeddedLTP: 33}, // embedded only
		{Symbol: "NON", Quantity: 10, WaccRate: 5},                  // neither: 0
	}, PriceMap{"TAB": 12})

	bySymbol := map[string]models.Holding{}
	for _, h := range out.Holdings {
		bySymbol[h.Symbol] = h
	}
	assert.Equal(t, 12.0, bySymbol["TAB"].LTP)
	assert.Equal(t, 33.0, bySymbol["EMB"].LTP)
	assert.Equal(t, 0.0, bySymbol["NON"].LTP)
	assert.Equal(t, 0.0, bySymbol["NON"].CurrentValue, "absent price surfaces as a zero-valued holding, not an error")
}

func TestMaterializeZeroInvestmentPercentGuard(t *testing.T) {
	p := NewHoldingsProcessor()
	out := p.Materialize([]models.RawHolding{
		{Symbol: "FREE", Quantity: 10}, // bonus shares: no cost basis
	}, PriceMap{"FREE": 100})
	require.Len(t, out.Holdings, 1)
	assert.Equal(t, 0.0, out.Holdings[0].Investment)
	assert.Equal(t, 1000.0, out.Holdings[0].PL)
	assert.Equal(t, 0.0, out.Holdings[0].PLPercent, "0-division context yields 0%, not NaN")
	assert.Equal(t, 0.0, out.Summary.PLPercent)
}

func TestMaterializeSortDescendingStable(t *testing.T) {
	p := NewHoldingsProcessor()
	out := p.Materialize([]models.RawHolding{
		{Symbol: "SMALL", Quantity: 1, WaccRate: 1},
		{Symbol: "TIE1", Quantity: 10, WaccRate: 1},
		{Symbol: "BIG", Quantity: 100, WaccRate: 1},
		{Symbol: "TIE2", Quantity: 10, WaccRate: 1},
	}, PriceMap{"SMALL": 1, "TIE1": 10, "BIG": 10, "TIE2": 10})

	symbols := make([]string, 0, len(out.Holdings))
	for _, h := range out.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	assert.Equal(t, []string{"BIG", "TIE1", "TIE2", "SMALL"}, symbols)
}

func TestMaterializeLastSymbolWins(t *testing.T) {
	p := NewHoldingsProcessor()
	out := p.Materialize([]models.RawHolding{
		{Symbol: "DUP", Quantity: 10, WaccRate: 1},
		{Symbol: "DUP", Quantity: 20, WaccRate: 2},
	}, PriceMap{})
	require.Len(t, out.Holdings, 1)
	assert.Equal(t, 20.0, out.Holdings[0].Quantity)
	assert.Equal(t, 40.0, out.Holdings[0].Investment)
	assert.Equal(t, 1, out.Summary.HoldingCount)
}

func TestMaterializeSectorAllocation(t *testing.T) {
	p := NewHoldingsProcessor()
	out := p.Materialize([]models.RawHolding{
		{Symbol: "B1", Sector: "Banking", Quantity: 10, WaccRate: 1},
		{Symbol: "H1", Sector: "Hydro", Quantity: 10, WaccRate: 1},
		{Symbol: "B2", Sector: "Banking", Quantity: 20, WaccRate: 1},
	}, PriceMap{"B1": 10, "H1": 10, "B2": 5})

	assert.InDelta(t, 66.666, out.SectorAllocation["Banking"], 0.01)
	assert.InDelta(t, 33.333, out.SectorAllocation["Hydro"], 0.01)
}

func TestSummaryIsSumOverCurrentSet(t *testing.T) {
	p := NewHoldingsProcessor()
	out := p.Materialize([]models.RawHolding{
		{Symbol: "A", Quantity: 10, WaccRate: 2},
		{Symbol: "B", Quantity: 5, WaccRate: 4},
	}, PriceMap{"A": 3, "B": 1})

	var wantInvestment, wantValue float64
	for _, h := range out.Holdings {
		wantInvestment += h.Investment
		wantValue += h.CurrentValue
	}
	assert.Equal(t, wantInvestment, out.Summary.Investment)
	assert.Equal(t, wantValue, out.Summary.CurrentValue)
	assert.Equal(t, wantValue-wantInvestment, out.Summary.PL)
}
