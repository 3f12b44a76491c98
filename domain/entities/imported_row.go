package entities

import "time"

// ImportedRow journals an import row that was applied, so a batch delivered
// again under the same batch ID does not apply it twice
type ImportedRow struct {
	BatchID       string    `db:"batch_id"`
	RowNumber     int       `db:"row_number"`
	AccountID     int64     `db:"account_id"`
	TransactionID *int64    `db:"transaction_id"`
	DepositID     *int64    `db:"deposit_id"`
	CreatedAt     time.Time `db:"created_at"`
}
