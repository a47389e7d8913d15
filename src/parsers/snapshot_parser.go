package parsers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/investmentmanagement137/portfolio-sub000/src/models"
)

// ParseHoldingsSnapshot reads an optional holdings-snapshot file, which may
// be a JSON array of objects, a JSON object wrapping such an array, or a
// header-keyed tabular file. The format is sniffed from the first
// non-whitespace byte.
func ParseHoldingsSnapshot(file io.Reader) ([]models.RawRecord, error) {
	br := bufio.NewReader(file)
	first, err := firstNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings snapshot: %w", err)
	}

	if first == '[' || first == '{' {
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read holdings snapshot: %w", err)
		}
		return parseSnapshotJSON(data)
	}
	return ParseCSV(br)
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		peeked, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch peeked[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := br.ReadByte(); err != nil {
				return 0, err
			}
		default:
			return peeked[0], nil
		}
	}
}

// snapshotListKeys are the wrapper keys a JSON snapshot object may nest its
// holdings list under.
var snapshotListKeys = []string{"holdings", "data", "records"}

func parseSnapshotJSON(data []byte) ([]models.RawRecord, error) {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var records []models.RawRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid holdings snapshot JSON array: %w", err)
		}
		return records, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid holdings snapshot JSON: %w", err)
	}
	for _, key := range snapshotListKeys {
		raw, present := wrapper[key]
		if !present {
			continue
		}
		var records []models.RawRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("invalid holdings list under %q: %w", key, err)
		}
		return records, nil
	}
	return nil, fmt.Errorf("holdings snapshot JSON carries no recognizable holdings list")
}
