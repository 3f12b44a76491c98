package services

import (
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"strings"

	"lending/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// maxSpreadsheetSerial is 9999-12-31 in the 1900 date system
const maxSpreadsheetSerial = 2958465

// ValidateImportRow parses and normalizes one raw row.
// Errors are *entities.ValidationError naming the offending column.
func ValidateImportRow(row entities.ImportRow) (*entities.ValidatedImportRow, error) {
	email, err := parseEmail(row.Email)
	if err != nil {
		return nil, err
	}

	txType, ok := entities.ParseTransactionType(strings.ToLower(strings.TrimSpace(row.TransactionType)))
	if !ok {
		return nil, entities.NewValidationError("transaction_type", fmt.Sprintf("unknown transaction type %q", row.TransactionType))
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(row.Amount))
	if err != nil {
		return nil, entities.NewValidationError("amount", fmt.Sprintf("%q is not a number", row.Amount))
	}
	if !amount.IsPositive() {
		return nil, entities.NewValidationError("amount", "must be positive")
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return nil, entities.NewValidationError("amount", fmt.Sprintf("must have at most %d decimal places", AmountScale))
	}

	date, err := ParseImportDate(row.TransactionDate)
	if err != nil {
		return nil, err
	}

	bonus, err := parseOptionalFraction("bonus_percentage", row.BonusPercentage)
	if err != nil {
		return nil, err
	}
	rate, err := parseOptionalFraction("annual_yield_rate", row.AnnualYieldRate)
	if err != nil {
		return nil, err
	}

	return &entities.ValidatedImportRow{
		RowNumber:       row.RowNumber,
		Email:           email,
		Type:            txType,
		Amount:          amount,
		Date:            date,
		BonusPercentage: bonus,
		AnnualYieldRate: rate,
		Description:     strings.TrimSpace(row.Description),
		ReferenceID:     strings.TrimSpace(row.ReferenceID),
		FirstName:       strings.TrimSpace(row.FirstName),
		LastName:        strings.TrimSpace(row.LastName),
		Phone:           strings.TrimSpace(row.Phone),
	}, nil
}

// ValidateImportRows splits rows into the valid ones and a row error for each invalid one
func ValidateImportRows(rows []entities.ImportRow) ([]*entities.ValidatedImportRow, []entities.RowError) {
	valid := make([]*entities.ValidatedImportRow, 0, len(rows))
	var rowErrors []entities.RowError

	for _, row := range rows {
		validated, err := ValidateImportRow(row)
		if err != nil {
			rowErrors = append(rowErrors, entities.RowError{RowNumber: row.RowNumber, Reason: err.Error()})
			continue
		}
		valid = append(valid, validated)
	}

	return valid, rowErrors
}

// SortChronologically orders rows by date, keeping input order within a day
func SortChronologically(rows []*entities.ValidatedImportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
}

// ParseImportDate accepts an ISO calendar date or a spreadsheet serial day number
func ParseImportDate(raw string) (entities.Date, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return entities.Date{}, entities.NewValidationError("transaction_date", "is required")
	}

	if date, err := entities.ParseDate(value); err == nil {
		return date, nil
	}

	serial, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return entities.Date{}, entities.NewValidationError("transaction_date", fmt.Sprintf("%q is neither YYYY-MM-DD nor a spreadsheet serial", raw))
	}
	if serial < 1 || serial > maxSpreadsheetSerial {
		return entities.Date{}, entities.NewValidationError("transaction_date", fmt.Sprintf("spreadsheet serial %s is out of range", value))
	}

	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return entities.Date{}, entities.NewValidationError("transaction_date", err.Error())
	}
	return entities.DateOf(t), nil
}

func parseEmail(raw string) (string, error) {
	email := entities.NormalizeEmail(raw)
	if email == "" {
		return "", entities.NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", entities.NewValidationError("email", fmt.Sprintf("%q is not a valid address", raw))
	}
	return email, nil
}

func parseOptionalFraction(field, raw string) (*decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return nil, entities.NewValidationError(field, fmt.Sprintf("%q is not a number", raw))
	}
	if err := validateFraction(field, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
