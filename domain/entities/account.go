package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is one owner's loan/investment account
type Account struct {
	ID               int64           `db:"id"`
	OwnerID          int64           `db:"owner_id"`
	PrincipalAmount  decimal.Decimal `db:"principal_amount"`
	CurrentBalance   decimal.Decimal `db:"current_balance"`
	MonthlyRate      decimal.Decimal `db:"monthly_rate"`
	TotalBonuses     decimal.Decimal `db:"total_bonuses"`
	TotalWithdrawals decimal.Decimal `db:"total_withdrawals"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// CanWithdraw checks if the balance covers a withdrawal of amount
func (a *Account) CanWithdraw(amount decimal.Decimal) bool {
	return a.CurrentBalance.GreaterThanOrEqual(amount)
}

// ApplyEntry folds one ledger entry into the balance and aggregate totals
func (a *Account) ApplyEntry(tt TransactionType, amount decimal.Decimal) {
	a.CurrentBalance = a.CurrentBalance.Add(tt.Delta(amount))
	switch tt {
	case TransactionTypeBonus:
		a.TotalBonuses = a.TotalBonuses.Add(amount)
	case TransactionTypeWithdrawal:
		a.TotalWithdrawals = a.TotalWithdrawals.Add(amount)
	}
}

// BalanceAfter calculates what the balance would be after an entry
func (a *Account) BalanceAfter(tt TransactionType, amount decimal.Decimal) decimal.Decimal {
	return a.CurrentBalance.Add(tt.Delta(amount))
}
