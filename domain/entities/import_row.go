package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ImportRow is one raw row of an external bulk dataset, exactly as read.
// RowNumber is 1-based and excludes the header.
type ImportRow struct {
	RowNumber       int    `json:"row_number"`
	Email           string `json:"email"`
	TransactionType string `json:"transaction_type"`
	Amount          string `json:"amount"`
	TransactionDate string `json:"transaction_date"`
	Description     string `json:"description,omitempty"`
	BonusPercentage string `json:"bonus_percentage,omitempty"`
	ReferenceID     string `json:"reference_id,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	AnnualYieldRate string `json:"annual_yield_rate,omitempty"`
}

// ValidatedImportRow is an ImportRow whose fields have been parsed and normalized
type ValidatedImportRow struct {
	RowNumber       int
	Email           string
	Type            TransactionType
	Amount          decimal.Decimal
	Date            Date
	BonusPercentage *decimal.Decimal
	AnnualYieldRate *decimal.Decimal
	Description     string
	ReferenceID     string
	FirstName       string
	LastName        string
	Phone           string
}

// Metadata returns the descriptive fields carried into the ledger entry
func (r *ValidatedImportRow) Metadata() TransactionMetadata {
	return TransactionMetadata{
		BonusPercentage: r.BonusPercentage,
		Description:     r.Description,
		ReferenceID:     r.ReferenceID,
	}
}

// RowError reports why a row was not applied
type RowError struct {
	RowNumber int    `json:"row_number"`
	Reason    string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Reason)
}
