package entities

import "github.com/shopspring/decimal"

// TransactionType represents the kind of ledger entry
type TransactionType string

// All transaction types supported by the ledger
const (
	// Principal and repayments
	TransactionTypePrincipal      TransactionType = "principal"
	TransactionTypeMonthlyPayment TransactionType = "monthly_payment"

	// Bonuses and withdrawals
	TransactionTypeBonus      TransactionType = "bonus"
	TransactionTypeWithdrawal TransactionType = "withdrawal"

	// Manual adjustments
	TransactionTypeAdjustmentIncrease TransactionType = "adjustment_increase"
	TransactionTypeAdjustmentDecrease TransactionType = "adjustment_decrease"

	// Yield deposit lifecycle
	TransactionTypeYieldDeposit    TransactionType = "yield_deposit"
	TransactionTypeYieldPayment    TransactionType = "yield_payment"
	TransactionTypeDailyYield      TransactionType = "daily_yield"
	TransactionTypeDepositDeletion TransactionType = "deposit_deletion"
)

// AllTransactionTypes lists every valid type in declaration order
var AllTransactionTypes = []TransactionType{
	TransactionTypePrincipal,
	TransactionTypeMonthlyPayment,
	TransactionTypeBonus,
	TransactionTypeWithdrawal,
	TransactionTypeAdjustmentIncrease,
	TransactionTypeAdjustmentDecrease,
	TransactionTypeYieldDeposit,
	TransactionTypeYieldPayment,
	TransactionTypeDailyYield,
	TransactionTypeDepositDeletion,
}

// ParseTransactionType converts a raw string into a known type
func ParseTransactionType(s string) (TransactionType, bool) {
	tt := TransactionType(s)
	return tt, tt.IsValid()
}

// IsValid returns true if the type is part of the enumeration
func (tt TransactionType) IsValid() bool {
	for _, known := range AllTransactionTypes {
		if tt == known {
			return true
		}
	}
	return false
}

// IsCredit returns true if the type always adds its amount to the balance
func (tt TransactionType) IsCredit() bool {
	switch tt {
	case TransactionTypePrincipal,
		TransactionTypeMonthlyPayment,
		TransactionTypeBonus,
		TransactionTypeAdjustmentIncrease,
		TransactionTypeYieldDeposit,
		TransactionTypeYieldPayment,
		TransactionTypeDailyYield:
		return true
	}
	return false
}

// IsDebit returns true if the type always subtracts its amount from the balance
func (tt TransactionType) IsDebit() bool {
	return tt == TransactionTypeWithdrawal || tt == TransactionTypeAdjustmentDecrease
}

// IsSigned returns true if the caller supplies the sign of the amount
func (tt TransactionType) IsSigned() bool {
	return tt == TransactionTypeDepositDeletion
}

// IsDepositType returns true for rows that create a yield deposit instead of a plain entry
func (tt TransactionType) IsDepositType() bool {
	return tt == TransactionTypeYieldDeposit
}

// IsYieldType returns true if the entry is a yield disbursement
func (tt TransactionType) IsYieldType() bool {
	return tt == TransactionTypeYieldPayment || tt == TransactionTypeDailyYield
}

// Delta returns the signed balance change an entry of this type and amount produces
func (tt TransactionType) Delta(amount decimal.Decimal) decimal.Decimal {
	switch {
	case tt.IsCredit():
		return amount
	case tt.IsDebit():
		return amount.Neg()
	case tt.IsSigned():
		return amount
	}
	return decimal.Zero
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
