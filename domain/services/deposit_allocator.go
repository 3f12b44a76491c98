package services

import (
	"sort"

	"lending/domain/entities"
	"lending/domain/interfaces"

	"github.com/shopspring/decimal"
)

// SortNewestFirst returns a copy of deposits ordered by creation time descending.
// Deposits created at the same instant fall back to the higher ID first.
func SortNewestFirst(deposits []*entities.Deposit) []*entities.Deposit {
	sorted := make([]*entities.Deposit, len(deposits))
	copy(sorted, deposits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}

// PlanWithdrawal decides how amount is drawn from the active deposits, newest first.
// It does not touch the deposits; the remainder no deposit could cover is returned
// as the unallocated amount.
func PlanWithdrawal(deposits []*entities.Deposit, amount decimal.Decimal) ([]interfaces.DepositReduction, decimal.Decimal) {
	remaining := amount
	var plan []interfaces.DepositReduction

	for _, deposit := range SortNewestFirst(deposits) {
		if !remaining.IsPositive() {
			break
		}
		if !deposit.IsActive() || !deposit.PrincipalAmount.IsPositive() {
			continue
		}

		taken := decimal.Min(remaining, deposit.PrincipalAmount)
		newPrincipal := deposit.PrincipalAmount.Sub(taken)
		plan = append(plan, interfaces.DepositReduction{
			DepositID:     deposit.ID,
			AmountReduced: taken,
			NewPrincipal:  newPrincipal,
			Deactivated:   newPrincipal.IsZero(),
		})
		remaining = remaining.Sub(taken)
	}

	return plan, remaining
}
