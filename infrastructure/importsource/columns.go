// Package importsource reads batch import sheets into raw import rows.
// Values are passed through as strings; validation happens in the engine.
package importsource

import (
	"fmt"
	"strings"

	"lending/domain/entities"
)

// Column names understood in a header row
const (
	ColumnEmail           = "email"
	ColumnTransactionType = "transaction_type"
	ColumnAmount          = "amount"
	ColumnTransactionDate = "transaction_date"
	ColumnDescription     = "description"
	ColumnBonusPercentage = "bonus_percentage"
	ColumnReferenceID     = "reference_id"
	ColumnFirstName       = "first_name"
	ColumnLastName        = "last_name"
	ColumnPhone           = "phone"
	ColumnAnnualYieldRate = "annual_yield_rate"
)

var requiredColumns = []string{
	ColumnEmail,
	ColumnTransactionType,
	ColumnAmount,
	ColumnTransactionDate,
}

// Header spellings seen in exported sheets
var columnAliases = map[string]string{
	"type":          ColumnTransactionType,
	"date":          ColumnTransactionDate,
	"bonus":         ColumnBonusPercentage,
	"bonus_pct":     ColumnBonusPercentage,
	"reference":     ColumnReferenceID,
	"ref":           ColumnReferenceID,
	"yield_rate":    ColumnAnnualYieldRate,
	"annual_rate":   ColumnAnnualYieldRate,
	"email_address": ColumnEmail,
}

// columnIndex maps a column name to its position in a record
type columnIndex map[string]int

func normalizeHeader(cell string) string {
	name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
	name = strings.Join(strings.Fields(name), "_")
	name = strings.ReplaceAll(name, "-", "_")
	if canonical, ok := columnAliases[name]; ok {
		return canonical
	}
	return name
}

// parseHeader builds the column index of a header row. Unknown columns are ignored.
func parseHeader(header []string) (columnIndex, error) {
	index := make(columnIndex, len(header))
	for i, cell := range header {
		name := normalizeHeader(cell)
		if name == "" {
			continue
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}
		index[name] = i
	}

	var missing []string
	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing required columns: %s", strings.Join(missing, ", "))
	}

	return index, nil
}

func (ci columnIndex) value(record []string, column string) string {
	i, ok := ci[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// toRow converts one data record. rowNumber is 1-based and excludes the header.
func (ci columnIndex) toRow(rowNumber int, record []string) entities.ImportRow {
	return entities.ImportRow{
		RowNumber:       rowNumber,
		Email:           ci.value(record, ColumnEmail),
		TransactionType: ci.value(record, ColumnTransactionType),
		Amount:          ci.value(record, ColumnAmount),
		TransactionDate: ci.value(record, ColumnTransactionDate),
		Description:     ci.value(record, ColumnDescription),
		BonusPercentage: ci.value(record, ColumnBonusPercentage),
		ReferenceID:     ci.value(record, ColumnReferenceID),
		FirstName:       ci.value(record, ColumnFirstName),
		LastName:        ci.value(record, ColumnLastName),
		Phone:           ci.value(record, ColumnPhone),
		AnnualYieldRate: ci.value(record, ColumnAnnualYieldRate),
	}
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// collectRows turns header plus data records into import rows. Blank records
// are skipped but still count towards row numbers so errors point at the sheet line.
func collectRows(header []string, records [][]string) ([]entities.ImportRow, error) {
	index, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	rows := make([]entities.ImportRow, 0, len(records))
	for i, record := range records {
		if isBlank(record) {
			continue
		}
		rows = append(rows, index.toRow(i+1, record))
	}
	return rows, nil
}
