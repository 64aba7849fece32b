package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"mealscan/model"
)

// ParseCSV reads an uploaded roster. The first record is the header row;
// rows may have ragged lengths.
func ParseCSV(r io.Reader) (*Rows, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error parsing csv: %w", err)
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, model.ErrMalformedSheet
	}
	return &Rows{Headers: records[0], Records: records[1:]}, nil
}
