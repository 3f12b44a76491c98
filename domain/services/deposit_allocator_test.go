package services

import (
	"testing"
	"time"

	"lending/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanWithdrawal(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		deposits        func() []*entities.Deposit
		amount          string
		wantReductions  map[int64]string
		wantOrder       []int64
		wantDeactivated []int64
		wantUnallocated string
	}{
		{
			name: "newest deposit absorbs first then the next newest",
			deposits: func() []*entities.Deposit {
				return []*entities.Deposit{
					testDeposit(1, "1000", base),
					testDeposit(2, "500", base.AddDate(0, 0, 1)),
					testDeposit(3, "300", base.AddDate(0, 0, 2)),
				}
			},
			amount:          "600",
			wantReductions:  map[int64]string{3: "300", 2: "300"},
			wantOrder:       []int64{3, 2},
			wantDeactivated: []int64{3},
			wantUnallocated: "0",
		},
		{
			name: "second deposit exhausted before the first is touched",
			deposits: func() []*entities.Deposit {
				return []*entities.Deposit{
					testDeposit(1, "100", base),
					testDeposit(2, "200", base.AddDate(0, 0, 1)),
				}
			},
			amount:          "250",
			wantReductions:  map[int64]string{2: "200", 1: "50"},
			wantOrder:       []int64{2, 1},
			wantDeactivated: []int64{2},
			wantUnallocated: "0",
		},
		{
			name: "input order does not matter",
			deposits: func() []*entities.Deposit {
				return []*entities.Deposit{
					testDeposit(3, "300", base.AddDate(0, 0, 2)),
					testDeposit(1, "1000", base),
					testDeposit(2, "500", base.AddDate(0, 0, 1)),
				}
			},
			amount:          "600",
			wantReductions:  map[int64]string{3: "300", 2: "300"},
			wantOrder:       []int64{3, 2},
			wantDeactivated: []int64{3},
			wantUnallocated: "0",
		},
		{
			name: "same creation instant falls back to higher id",
			deposits: func() []*entities.Deposit {
				return []*entities.Deposit{
					testDeposit(4, "100", base),
					testDeposit(5, "100", base),
				}
			},
			amount:          "150",
			wantReductions:  map[int64]string{5: "100", 4: "50"},
			wantOrder:       []int64{5, 4},
			wantDeactivated: []int64{5},
			wantUnallocated: "0",
		},
		{
			name: "shortfall is reported as unallocated",
			deposits: func() []*entities.Deposit {
				return []*entities.Deposit{testDeposit(1, "200", base)}
			},
			amount:          "250.50",
			wantReductions:  map[int64]string{1: "200"},
			wantOrder:       []int64{1},
			wantDeactivated: []int64{1},
			wantUnallocated: "50.50",
		},
		{
			name: "inactive deposits are skipped",
			deposits: func() []*entities.Deposit {
				closed := testDeposit(2, "0", base.AddDate(0, 0, 1))
				closed.Status = entities.DepositStatusInactive
				return []*entities.Deposit{testDeposit(1, "200", base), closed}
			},
			amount:          "20",
			wantReductions:  map[int64]string{1: "20"},
			wantOrder:       []int64{1},
			wantUnallocated: "0",
		},
		{
			name:            "no deposits",
			deposits:        func() []*entities.Deposit { return nil },
			amount:          "10",
			wantReductions:  map[int64]string{},
			wantUnallocated: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			deposits := tt.deposits()
			before := make(map[int64]string, len(deposits))
			for _, dep := range deposits {
				before[dep.ID] = dep.PrincipalAmount.String()
			}

			plan, unallocated := PlanWithdrawal(deposits, d(tt.amount))

			require.Len(t, plan, len(tt.wantReductions))
			var order, deactivated []int64
			for _, r := range plan {
				order = append(order, r.DepositID)
				assert.True(t, d(tt.wantReductions[r.DepositID]).Equal(r.AmountReduced),
					"deposit %d reduced by %s", r.DepositID, r.AmountReduced)
				if r.Deactivated {
					deactivated = append(deactivated, r.DepositID)
				}
			}
			assert.Equal(t, tt.wantOrder, order)
			assert.Equal(t, tt.wantDeactivated, deactivated)
			assert.True(t, d(tt.wantUnallocated).Equal(unallocated), "unallocated %s", unallocated)

			// Planning never mutates the deposits
			for _, dep := range deposits {
				assert.Equal(t, before[dep.ID], dep.PrincipalAmount.String())
			}
		})
	}
}

func TestPlanWithdrawal_ConservesAmount(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	deposits := []*entities.Deposit{
		testDeposit(1, "125.10", base),
		testDeposit(2, "80.05", base.Add(time.Hour)),
		testDeposit(3, "15.00", base.Add(2*time.Hour)),
	}

	for _, amount := range []string{"0.01", "15", "95.05", "220.15", "500"} {
		plan, unallocated := PlanWithdrawal(deposits, d(amount))

		total := unallocated
		for _, r := range plan {
			total = total.Add(r.AmountReduced)
			assert.False(t, r.NewPrincipal.IsNegative())
		}
		assert.True(t, d(amount).Equal(total), "amount %s allocated as %s", amount, total)
	}
}
