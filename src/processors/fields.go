package processors

import (
	"math"
	"strconv"
	"strings"

	"github.com/investmentmanagement137/portfolio-sub000/src/models"
)

// Upstream exports are inconsistent about field naming, so every canonical
// attribute resolves through an ordered candidate list: the first candidate
// that is present AND parseable wins, and a present-but-garbage value falls
// through to the next candidate rather than poisoning the row.

// holdingFieldTable is the per-shape candidate table for holdings rows.
type holdingFieldTable struct {
	symbol     []string
	quantity   []string
	wacc       []string
	investment []string
	ltp        []string
	sector     []string
}

var holdingFieldTables = map[models.HoldingShape]holdingFieldTable{
	models.ShapeWebhook: {
		symbol:     []string{"Scrip", "scrip", "Script", "script", "Symbol", "symbol"},
		quantity:   []string{"Current Balance", "currentBalance", "balance", "quantity"},
		wacc:       []string{"WACC", "wacc", "WACC Rate", "waccRate"},
		investment: []string{"Total Investment", "totalInvestment", "investment"},
		ltp:        []string{"LTP", "ltp", "Last Transaction Price", "lastTradedPrice"},
		sector:     []string{"Sector", "sector"},
	},
	models.ShapeGenericJSON: {
		symbol:     []string{"symbol", "scrip", "Scrip", "Symbol"},
		quantity:   []string{"quantity", "balance", "currentBalance", "Current Balance"},
		wacc:       []string{"waccRate", "wacc", "rate", "WACC"},
		investment: []string{"investment", "totalInvestment", "Total Investment"},
		ltp:        []string{"ltp", "lastTradedPrice", "price", "LTP"},
		sector:     []string{"sector", "Sector"},
	},
	models.ShapeWaccReport: {
		symbol:     []string{"Scrip", "Scrip Name", "scrip", "Symbol"},
		quantity:   []string{"Current Balance", "Balance", "balance", "Quantity", "quantity"},
		wacc:       []string{"WACC Rate", "WACC", "Rate", "wacc"},
		investment: []string{"Total Investment", "Total Cost", "Investment", "investment"},
		ltp:        nil, // cost-basis reports never carry market prices
		sector:     nil,
	},
}

// Candidate lists for dividend records. Both the historical-dividend list
// and the active-holdings-dividend list resolve through the same tables.
var (
	dividendAmountCandidates = []string{
		"Dividend Amount", "dividendAmount", "Total Dividend", "totalDividend", "amount",
	}
	bookClosureCandidates = []string{
		"Book Closure Date", "bookClosureDate", "bookClosure", "Book Closure",
	}
	holdingsAtClosureCandidates = []string{
		"Holdings at Book Closure", "holdingsAtBookClosure", "Balance at Book Closure", "holdings",
	}
	cashPercentCandidates = []string{
		"% Cash Dividend", "cashDividendPercent", "cashPercent", "Cash Dividend",
	}
	faceValueCandidates = []string{
		"Face Value", "faceValue",
	}
	dividendPerShareCandidates = []string{
		"Dividend Per Share", "dividendPerShare", "DPS",
	}
)

// ParseNumber converts a raw cell value to a float64. String values may
// carry thousands separators ("1,234.50"); those are stripped before
// parsing. NaN, infinities and unparseable strings report ok=false and are
// treated as absent, never as zero.
func ParseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return ParseNumber(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// resolveNumber returns the first candidate field that is present and
// parseable as a finite number.
func resolveNumber(rec models.RawRecord, candidates []string) (float64, bool) {
	for _, key := range candidates {
		v, present := rec[key]
		if !present {
			continue
		}
		if f, ok := ParseNumber(v); ok {
			return f, true
		}
	}
	return 0, false
}

// resolvePositiveNumber is resolveNumber restricted to values > 0.
func resolvePositiveNumber(rec models.RawRecord, candidates []string) (float64, bool) {
	for _, key := range candidates {
		v, present := rec[key]
		if !present {
			continue
		}
		if f, ok := ParseNumber(v); ok && f > 0 {
			return f, true
		}
	}
	return 0, false
}

// resolveString returns the first candidate field present with a non-empty
// string value.
func resolveString(rec models.RawRecord, candidates []string) (string, bool) {
	for _, key := range candidates {
		v, present := rec[key]
		if !present {
			continue
		}
		if s, ok := v.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}
