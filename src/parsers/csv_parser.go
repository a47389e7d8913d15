package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/investmentmanagement137/portfolio-sub000/src/models"
)

// ParseCSV reads a header-keyed tabular file into raw records. Cell values
// stay as strings; numeric interpretation is the processors' job. Rows
// shorter than the header keep the columns they have; fully blank rows are
// skipped.
func ParseCSV(file io.Reader) ([]models.RawRecord, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []models.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		rec := make(models.RawRecord, len(header))
		blank := true
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			rec[header[i]] = cell
		}
		if blank {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
