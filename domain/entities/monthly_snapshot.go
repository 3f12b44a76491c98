package entities

import (
	"github.com/shopspring/decimal"
)

// MonthlySnapshot is the derived balance aggregate of one account for one month.
// Snapshots are always recomputed from the ledger, never patched.
type MonthlySnapshot struct {
	AccountID        int64           `db:"account_id"`
	MonthEndDate     Date            `db:"month_end_date"`
	StartingBalance  decimal.Decimal `db:"starting_balance"`
	EndingBalance    decimal.Decimal `db:"ending_balance"`
	MonthlyGrowth    decimal.Decimal `db:"monthly_growth"`
	TotalDeposits    decimal.Decimal `db:"total_deposits"`
	TotalWithdrawals decimal.Decimal `db:"total_withdrawals"`
	TotalBonuses     decimal.Decimal `db:"total_bonuses"`
	TotalYield       decimal.Decimal `db:"total_yield"`
	TransactionCount int             `db:"transaction_count"`
}

// Equal compares two snapshots field by field with decimal equality
func (s *MonthlySnapshot) Equal(other *MonthlySnapshot) bool {
	return s.AccountID == other.AccountID &&
		s.MonthEndDate.Equal(other.MonthEndDate) &&
		s.StartingBalance.Equal(other.StartingBalance) &&
		s.EndingBalance.Equal(other.EndingBalance) &&
		s.MonthlyGrowth.Equal(other.MonthlyGrowth) &&
		s.TotalDeposits.Equal(other.TotalDeposits) &&
		s.TotalWithdrawals.Equal(other.TotalWithdrawals) &&
		s.TotalBonuses.Equal(other.TotalBonuses) &&
		s.TotalYield.Equal(other.TotalYield) &&
		s.TransactionCount == other.TransactionCount
}
