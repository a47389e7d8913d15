package processors

import (
	"sort"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/investmentmanagement137/portfolio-sub000/src/utils"
)

// PriceLookup is the read side of the price table. Absence of a symbol is
// a valid state; callers fall back to the embedded row price and then 0.
type PriceLookup interface {
	Lookup(symbol string) (float64, bool)
}

// PriceMap is a plain map satisfying PriceLookup, used for derivation
// snapshots and in tests.
type PriceMap map[string]float64

func (m PriceMap) Lookup(symbol string) (float64, bool) {
	p, ok := m[symbol]
	return p, ok
}

// HoldingsProcessor normalizes raw holdings rows and materializes the
// valued holdings ledger. It holds no state; every call is a pure function
// over its inputs.
type HoldingsProcessor struct{}

func NewHoldingsProcessor() *HoldingsProcessor {
	return &HoldingsProcessor{}
}

// Normalize converts raw rows of the given source shape into normalized
// holdings. Rows without a symbol or without a positive quantity are
// dropped silently; malformation is a per-row failure, never a batch one.
func (p *HoldingsProcessor) Normalize(rows []models.RawRecord, shape models.HoldingShape) []models.RawHolding {
	table, ok := holdingFieldTables[shape]
	if !ok {
		logger.L.Warn("No field table for holding shape, skipping batch", "shape", shape)
		return nil
	}

	var out []models.RawHolding
	dropped := 0
	for _, rec := range rows {
		symbol, ok := resolveString(rec, table.symbol)
		if !ok {
			dropped++
			continue
		}
		quantity, ok := resolvePositiveNumber(rec, table.quantity)
		if !ok {
			dropped++
			continue
		}

		wacc, _ := resolveNumber(rec, table.wacc)
		investment, _ := resolvePositiveNumber(rec, table.investment)
		ltp, _ := resolvePositiveNumber(rec, table.ltp)
		sector, _ := resolveString(rec, table.sector)

		out = append(out, models.RawHolding{
			Symbol:      symbol,
			Sector:      sector,
			Quantity:    quantity,
			WaccRate:    wacc,
			Investment:  investment,
			EmbeddedLTP: ltp,
		})
	}
	if dropped > 0 {
		logger.L.Debug("Dropped malformed holding rows", "shape", shape, "dropped", dropped, "kept", len(out))
	}
	return out
}

// SelectSource picks exactly one holdings source by fixed priority:
// webhook-structured data over generic-JSON snapshots over WACC-report
// rows. Sources are never merged.
func (p *HoldingsProcessor) SelectSource(sources models.RawHoldingSources) ([]models.RawHolding, models.HoldingShape) {
	switch {
	case len(sources.Webhook) > 0:
		return sources.Webhook, models.ShapeWebhook
	case len(sources.GenericJSON) > 0:
		return sources.GenericJSON, models.ShapeGenericJSON
	case len(sources.WaccReport) > 0:
		return sources.WaccReport, models.ShapeWaccReport
	default:
		return nil, ""
	}
}

// Materialize values the normalized holdings against the price table and
// produces the canonical ledger plus portfolio aggregates.
//
// Per holding: investment is the precomputed total when the source carried
// a positive one, otherwise quantity x cost-basis rate; the last traded
// price resolves price table -> embedded row price -> 0; P/L percent is 0
// when investment is 0. When the same symbol appears more than once the
// later row overwrites the earlier. Output is sorted descending by market
// value, ties keeping input order.
func (p *HoldingsProcessor) Materialize(raw []models.RawHolding, prices PriceLookup) models.ValuedPortfolio {
	bySymbol := make(map[string]int, len(raw))
	holdings := make([]models.Holding, 0, len(raw))

	for _, r := range raw {
		investment := r.Investment
		if investment <= 0 {
			investment = r.Quantity * r.WaccRate
		}

		ltp := 0.0
		if prices != nil {
			if tablePrice, ok := prices.Lookup(r.Symbol); ok {
				ltp = tablePrice
			}
		}
		if ltp == 0 && r.EmbeddedLTP > 0 {
			ltp = r.EmbeddedLTP
		}

		sector := r.Sector
		if sector == "" {
			sector = "Unknown"
		}

		currentValue := r.Quantity * ltp
		pl := currentValue - investment
		plPercent := 0.0
		if investment != 0 {
			plPercent = pl / investment * 100
		}

		h := models.Holding{
			Symbol:       r.Symbol,
			Sector:       sector,
			Quantity:     r.Quantity,
			WaccRate:     r.WaccRate,
			Investment:   investment,
			LTP:          ltp,
			CurrentValue: currentValue,
			PL:           pl,
			PLPercent:    plPercent,
		}

		if idx, seen := bySymbol[r.Symbol]; seen {
			holdings[idx] = h
			continue
		}
		bySymbol[r.Symbol] = len(holdings)
		holdings = append(holdings, h)
	}

	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].CurrentValue > holdings[j].CurrentValue
	})

	summary := models.PortfolioSummary{HoldingCount: len(holdings)}
	allocation := make(map[string]float64)
	for _, h := range holdings {
		summary.Investment += h.Investment
		summary.CurrentValue += h.CurrentValue
		allocation[h.Sector] += h.CurrentValue
	}
	summary.PL = summary.CurrentValue - summary.Investment
	if summary.Investment != 0 {
		summary.PLPercent = summary.PL / summary.Investment * 100
	}

	if summary.CurrentValue > 0 {
		for sector, value := range allocation {
			allocation[sector] = utils.RoundFloat(value/summary.CurrentValue*100, 2)
		}
	}

	return models.ValuedPortfolio{
		Holdings:         holdings,
		Summary:          summary,
		SectorAllocation: allocation,
	}
}

// HeldSymbols returns the set of symbols in the current holdings ledger,
// used to partition the dividend ledger.
func HeldSymbols(holdings []models.Holding) map[string]struct{} {
	held := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		held[h.Symbol] = struct{}{}
	}
	return held
}
