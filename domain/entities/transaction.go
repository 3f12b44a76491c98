package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry
type Transaction struct {
	ID              int64            `db:"id"`
	AccountID       int64            `db:"account_id"`
	Amount          decimal.Decimal  `db:"amount"`
	TransactionType TransactionType  `db:"transaction_type"`
	Date            Date             `db:"transaction_date"`
	BonusPercentage *decimal.Decimal `db:"bonus_percentage"`
	Description     string           `db:"description"`
	ReferenceID     string           `db:"reference_id"`
	CreatedAt       time.Time        `db:"created_at"`
}

// Delta returns the signed balance change of the entry
func (t *Transaction) Delta() decimal.Decimal {
	return t.TransactionType.Delta(t.Amount)
}

// TransactionMetadata carries the optional descriptive fields of an entry
type TransactionMetadata struct {
	BonusPercentage *decimal.Decimal
	Description     string
	ReferenceID     string
}
