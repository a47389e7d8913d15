package parsers

import (
	"encoding/json"
	"fmt"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
)

// The analysis webhook answers with a positional five-element JSON array:
// index 0 a dividend-summary object, index 1 the historical-dividend
// calculation, index 3 the current meroshare holdings and index 4 the
// current dividend holdings. That positional contract is brittle and is
// isolated here: missing or malformed indices degrade to nil sections with
// a warning, they never fail the parse.
const (
	idxDividendSummary     = 0
	idxHistoricalDividends = 1
	idxMeroshareHoldings   = 3
	idxDividendHoldings    = 4

	expectedPayloadLen = 5
)

// ParseAnalysisPayload unpacks the webhook response body.
func ParseAnalysisPayload(data []byte) (*models.AnalysisPayload, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("analysis response is not a JSON array: %w", err)
	}
	if len(elements) != expectedPayloadLen {
		logger.L.Warn("Analysis response has unexpected element count",
			"got", len(elements), "want", expectedPayloadLen)
	}

	payload := &models.AnalysisPayload{
		DividendSummary:     elementObject(elements, idxDividendSummary),
		HistoricalDividends: elementList(elements, idxHistoricalDividends),
		MeroshareHoldings:   elementList(elements, idxMeroshareHoldings),
		DividendHoldings:    elementList(elements, idxDividendHoldings),
	}
	return payload, nil
}

func elementAt(elements []json.RawMessage, idx int) (json.RawMessage, bool) {
	if idx >= len(elements) || len(elements[idx]) == 0 {
		logger.L.Warn("Analysis response missing positional element", "index", idx)
		return nil, false
	}
	return elements[idx], true
}

func elementObject(elements []json.RawMessage, idx int) models.RawRecord {
	raw, ok := elementAt(elements, idx)
	if !ok {
		return nil
	}
	var rec models.RawRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		logger.L.Warn("Analysis element is not an object, ignoring", "index", idx, "error", err)
		return nil
	}
	return rec
}

// elementList accepts either a bare list of records or an object wrapping
// one list under any key (some webhook versions nest the rows, e.g. under
// "historicalDividendCalculation").
func elementList(elements []json.RawMessage, idx int) []models.RawRecord {
	raw, ok := elementAt(elements, idx)
	if !ok {
		return nil
	}

	var records []models.RawRecord
	if err := json.Unmarshal(raw, &records); err == nil {
		return records
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		logger.L.Warn("Analysis element is neither list nor object, ignoring", "index", idx, "error", err)
		return nil
	}
	for _, nested := range wrapper {
		if err := json.Unmarshal(nested, &records); err == nil && len(records) > 0 {
			return records
		}
	}
	logger.L.Warn("Analysis element object carries no record list, ignoring", "index", idx)
	return nil
}
