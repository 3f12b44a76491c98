package importsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"lending/domain/entities"
)

// ReadCSV reads a comma separated sheet whose first line is the header
func ReadCSV(r io.Reader) ([]entities.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv source is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv records: %w", err)
	}

	return collectRows(header, records)
}
