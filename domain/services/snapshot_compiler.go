package services

import (
	"context"
	"fmt"
	"sort"

	"lending/domain/entities"
	"lending/domain/events"
	"lending/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// snapshotService rebuilds monthly snapshots from the transaction log
type snapshotService struct {
	accountRepo     interfaces.AccountRepository
	transactionRepo interfaces.TransactionRepository
	snapshotRepo    interfaces.SnapshotRepository
	eventPublisher  interfaces.EventPublisher
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(
	accountRepo interfaces.AccountRepository,
	transactionRepo interfaces.TransactionRepository,
	snapshotRepo interfaces.SnapshotRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.SnapshotService {
	return &snapshotService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		snapshotRepo:    snapshotRepo,
		eventPublisher:  eventPublisher,
	}
}

// Rebuild recomputes and replaces every monthly snapshot of an account
func (s *snapshotService) Rebuild(ctx context.Context, accountID int64) ([]*entities.MonthlySnapshot, error) {
	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account", accountID)
	}

	transactions, err := s.transactionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	snapshots := CompileSnapshots(accountID, account.PrincipalAmount, transactions)
	if err := s.snapshotRepo.ReplaceForAccount(ctx, accountID, snapshots); err != nil {
		return nil, fmt.Errorf("failed to replace snapshots: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":    accountID,
		"transactions": len(transactions),
		"months":       len(snapshots),
	}).Debug("Rebuilt monthly snapshots")

	if err := s.eventPublisher.Publish(events.SnapshotsRebuiltEvent{
		AccountID: accountID,
		Months:    len(snapshots),
	}); err != nil {
		log.WithError(err).Error("Failed to publish snapshots rebuilt event")
	}

	return snapshots, nil
}

// CompileSnapshots folds an account's transactions into one snapshot per calendar
// month, from the month of the first transaction to the month of the last.
// Months without activity carry the balance forward with zero growth.
func CompileSnapshots(accountID int64, principal decimal.Decimal, transactions []*entities.Transaction) []*entities.MonthlySnapshot {
	snapshots := []*entities.MonthlySnapshot{}
	if len(transactions) == 0 {
		return snapshots
	}

	ordered := make([]*entities.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if c := ordered[i].Date.Compare(ordered[j].Date); c != 0 {
			return c < 0
		}
		return ordered[i].ID < ordered[j].ID
	})

	running := principal
	var current *entities.MonthlySnapshot

	closeMonth := func() {
		current.EndingBalance = running
		current.MonthlyGrowth = current.EndingBalance.Sub(current.StartingBalance)
		snapshots = append(snapshots, current)
	}

	for _, tx := range ordered {
		monthEnd := tx.Date.MonthEnd()

		if current != nil && monthEnd.After(current.MonthEndDate) {
			closeMonth()
			for gap := current.MonthEndDate.NextMonthEnd(); gap.Before(monthEnd); gap = gap.NextMonthEnd() {
				snapshots = append(snapshots, newSnapshot(accountID, gap, running))
			}
			current = nil
		}
		if current == nil {
			current = newSnapshot(accountID, monthEnd, running)
		}

		running = running.Add(tx.Delta())
		current.TransactionCount++
		accumulate(current, tx)
	}
	closeMonth()

	return snapshots
}

func newSnapshot(accountID int64, monthEnd entities.Date, startingBalance decimal.Decimal) *entities.MonthlySnapshot {
	return &entities.MonthlySnapshot{
		AccountID:        accountID,
		MonthEndDate:     monthEnd,
		StartingBalance:  startingBalance,
		EndingBalance:    startingBalance,
		MonthlyGrowth:    decimal.Zero,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TotalBonuses:     decimal.Zero,
		TotalYield:       decimal.Zero,
	}
}

// accumulate adds one entry to its category bucket
func accumulate(snapshot *entities.MonthlySnapshot, tx *entities.Transaction) {
	switch tx.TransactionType {
	case entities.TransactionTypePrincipal,
		entities.TransactionTypeMonthlyPayment,
		entities.TransactionTypeYieldDeposit,
		entities.TransactionTypeAdjustmentIncrease:
		snapshot.TotalDeposits = snapshot.TotalDeposits.Add(tx.Amount)
	case entities.TransactionTypeWithdrawal,
		entities.TransactionTypeAdjustmentDecrease:
		snapshot.TotalWithdrawals = snapshot.TotalWithdrawals.Add(tx.Amount)
	case entities.TransactionTypeDepositDeletion:
		if delta := tx.Delta(); delta.IsNegative() {
			snapshot.TotalWithdrawals = snapshot.TotalWithdrawals.Add(delta.Neg())
		} else {
			snapshot.TotalDeposits = snapshot.TotalDeposits.Add(delta)
		}
	case entities.TransactionTypeBonus:
		snapshot.TotalBonuses = snapshot.TotalBonuses.Add(tx.Amount)
	case entities.TransactionTypeYieldPayment,
		entities.TransactionTypeDailyYield:
		snapshot.TotalYield = snapshot.TotalYield.Add(tx.Amount)
	}
}
