package processors

import (
	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
)

// DividendListKind classifies a dividend-looking list from the webhook
// payload. Upstream does not reliably tag list purpose; classification is
// structural, with an explicitly-named historical key always winning over
// the generic shape match so the active-holdings-dividend list is never
// misread as historical.
type DividendListKind string

const (
	DividendListHistorical DividendListKind = "historical"
	DividendListActive     DividendListKind = "active"
	DividendListUnknown    DividendListKind = "unknown"
)

// historicalDividendKeys are the explicit markers some exports place on
// historical rows. Presence of any of them settles classification.
var historicalDividendKeys = []string{
	"Historical Dividend", "historicalDividend", "historicalDividendCalculation",
}

// DividendProcessor normalizes raw dividend records and materializes the
// historical/active ledger. Stateless; pure over its inputs.
type DividendProcessor struct{}

func NewDividendProcessor() *DividendProcessor {
	return &DividendProcessor{}
}

// ClassifyList inspects the first rows of a list and decides what it is.
func (p *DividendProcessor) ClassifyList(rows []models.RawRecord) DividendListKind {
	for _, rec := range rows {
		for _, key := range historicalDividendKeys {
			if _, present := rec[key]; present {
				return DividendListHistorical
			}
		}
		_, hasClosure := resolveString(rec, bookClosureCandidates)
		_, hasAmount := resolveNumber(rec, dividendAmountCandidates)
		_, hasBalance := resolveNumber(rec, holdingFieldTables[models.ShapeWebhook].quantity)

		switch {
		case hasClosure && hasAmount:
			return DividendListHistorical
		case hasBalance && hasAmount:
			return DividendListActive
		}
	}
	return DividendListUnknown
}

// Normalize converts raw dividend rows into dividend events. A row must
// carry a symbol and a parseable dividend amount or it is dropped; all
// other fields degrade per the defaulting rules (face value 100,
// holdings-at-closure 0, per-share derived from cash percent x face value
// / 100 when not explicit).
func (p *DividendProcessor) Normalize(rows []models.RawRecord) []models.DividendEvent {
	table := holdingFieldTables[models.ShapeWebhook]

	var out []models.DividendEvent
	dropped := 0
	for _, rec := range rows {
		symbol, ok := resolveString(rec, table.symbol)
		if !ok {
			dropped++
			continue
		}
		amount, ok := resolveNumber(rec, dividendAmountCandidates)
		if !ok {
			dropped++
			continue
		}

		bookClosure, _ := resolveString(rec, bookClosureCandidates)
		holdingsAtClosure, _ := resolveNumber(rec, holdingsAtClosureCandidates)
		cashPercent, _ := resolveNumber(rec, cashPercentCandidates)

		faceValue, ok := resolvePositiveNumber(rec, faceValueCandidates)
		if !ok {
			faceValue = 100
		}

		dps, ok := resolveNumber(rec, dividendPerShareCandidates)
		if !ok {
			dps = cashPercent * faceValue / 100
		}

		out = append(out, models.DividendEvent{
			Symbol:            symbol,
			BookClosureDate:   bookClosure,
			HoldingsAtClosure: holdingsAtClosure,
			CashPercent:       cashPercent,
			FaceValue:         faceValue,
			DividendPerShare:  dps,
			Amount:            amount,
		})
	}
	if dropped > 0 {
		logger.L.Debug("Dropped malformed dividend rows", "dropped", dropped, "kept", len(out))
	}
	return out
}

// Merge combines dividend events from multiple sources into one ledger
// input, keyed by symbol and book-closure date. When two sources carry the
// same key with conflicting data the later source wins; insertion order of
// first appearance is preserved.
func (p *DividendProcessor) Merge(batches ...[]models.DividendEvent) []models.DividendEvent {
	byKey := make(map[string]int)
	var merged []models.DividendEvent
	for _, batch := range batches {
		for _, ev := range batch {
			key := ev.Symbol + "|" + ev.BookClosureDate
			if idx, seen := byKey[key]; seen {
				merged[idx] = ev
				continue
			}
			byKey[key] = len(merged)
			merged = append(merged, ev)
		}
	}
	return merged
}

// Materialize partitions events into historical (everything) and active
// (symbol currently held) and computes the aggregate totals. The active
// partition is derived fresh on every call; events carry no persistent
// activity flag. Insertion order is preserved; presentation sorting is a
// consumer concern.
func (p *DividendProcessor) Materialize(events []models.DividendEvent, held map[string]struct{}) models.DividendLedger {
	ledger := models.DividendLedger{
		Historical: make([]models.DividendEvent, 0, len(events)),
		Active:     []models.DividendEvent{},
	}
	for _, ev := range events {
		ledger.Historical = append(ledger.Historical, ev)
		ledger.Totals.Historical += ev.Amount
		if _, isHeld := held[ev.Symbol]; isHeld {
			ledger.Active = append(ledger.Active, ev)
			ledger.Totals.Active += ev.Amount
		}
	}
	return ledger
}
