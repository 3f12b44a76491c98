package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DaysPerYear is the day-count basis for daily yield
const DaysPerYear = 365

// DepositStatus represents whether a deposit still earns yield
type DepositStatus string

const (
	DepositStatusActive   DepositStatus = "active"
	DepositStatusInactive DepositStatus = "inactive"
)

// Deposit is a yield-bearing principal belonging to an owner
type Deposit struct {
	ID              int64           `db:"id"`
	OwnerID         int64           `db:"owner_id"`
	PrincipalAmount decimal.Decimal `db:"principal_amount"`
	AnnualYieldRate decimal.Decimal `db:"annual_yield_rate"`
	StartDate       Date            `db:"start_date"`
	Status          DepositStatus   `db:"status"`
	LastPayoutDate  *Date           `db:"last_payout_date"`
	TotalPaidOut    decimal.Decimal `db:"total_paid_out"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// IsActive returns true if the deposit can still be drawn down and earn yield
func (d *Deposit) IsActive() bool {
	return d.Status == DepositStatusActive
}

// HasStartedBy returns true if the deposit earns yield on date
func (d *Deposit) HasStartedBy(date Date) bool {
	return !d.StartDate.After(date)
}

// Reduce draws up to amount from the principal and returns how much was taken.
// The deposit goes inactive once its principal reaches zero.
func (d *Deposit) Reduce(amount decimal.Decimal) decimal.Decimal {
	if !d.IsActive() || amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	taken := decimal.Min(amount, d.PrincipalAmount)
	d.PrincipalAmount = d.PrincipalAmount.Sub(taken)
	if d.PrincipalAmount.IsZero() {
		d.Status = DepositStatusInactive
	}
	return taken
}

// Close zeroes the principal and deactivates the deposit, returning the principal removed
func (d *Deposit) Close() decimal.Decimal {
	removed := d.PrincipalAmount
	d.PrincipalAmount = decimal.Zero
	d.Status = DepositStatusInactive
	return removed
}

// DailyYield returns principal * rate / 365 rounded half-even to cents
func (d *Deposit) DailyYield() decimal.Decimal {
	return d.PrincipalAmount.
		Mul(d.AnnualYieldRate).
		Div(decimal.NewFromInt(DaysPerYear)).
		RoundBank(2)
}

// RecordPayout updates the payout bookkeeping after a yield disbursement.
// LastPayoutDate never moves backwards when an earlier day is back-filled.
func (d *Deposit) RecordPayout(date Date, amount decimal.Decimal) {
	if d.LastPayoutDate == nil || date.After(*d.LastPayoutDate) {
		paid := date
		d.LastPayoutDate = &paid
	}
	d.TotalPaidOut = d.TotalPaidOut.Add(amount)
}
