package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout is one yield disbursement, unique per (deposit, payout date)
type Payout struct {
	ID            int64           `db:"id"`
	DepositID     int64           `db:"deposit_id"`
	Amount        decimal.Decimal `db:"amount"`
	PayoutDate    Date            `db:"payout_date"`
	TransactionID int64           `db:"transaction_id"`
	CreatedAt     time.Time       `db:"created_at"`
}
