package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// YieldRun journals one daily yield run. A date may be run more than once;
// later runs for the same date normally process nothing.
type YieldRun struct {
	ID                int64           `db:"id"`
	RunDate           Date            `db:"run_date"`
	PaymentsProcessed int             `db:"payments_processed"`
	TotalAmount       decimal.Decimal `db:"total_amount"`
	Skipped           int             `db:"skipped"`
	Failed            int             `db:"failed"`
	Errors            []YieldRunError `db:"errors"`
	CreatedAt         time.Time       `db:"created_at"`
}

// YieldRunError is a deposit-level failure stored with its run
type YieldRunError struct {
	DepositID int64  `json:"deposit_id"`
	Reason    string `json:"reason"`
}
