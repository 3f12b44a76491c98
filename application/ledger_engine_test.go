package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lending/domain/entities"
	"lending/domain/events"
	"lending/domain/interfaces"
	"lending/domain/testhelpers"
	"lending/domain/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	engineOwnerID   = int64(7)
	engineAccountID = int64(70)
)

func engineAccount(balance string) *entities.Account {
	return &entities.Account{
		ID:               engineAccountID,
		OwnerID:          engineOwnerID,
		PrincipalAmount:  decimal.Zero,
		CurrentBalance:   d(balance),
		MonthlyRate:      decimal.Zero,
		TotalBonuses:     decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}
}

func engineDeposit(id int64, principal string) *entities.Deposit {
	return &entities.Deposit{
		ID:              id,
		OwnerID:         engineOwnerID,
		PrincipalAmount: d(principal),
		AnnualYieldRate: d("0.10"),
		StartDate:       date("2024-01-01"),
		Status:          entities.DepositStatusActive,
		TotalPaidOut:    decimal.Zero,
	}
}

func newTestEngine(factory *mockUnitOfWorkFactory, metrics MetricsRecorder) *LedgerEngine {
	clock := utils.FixedClock{At: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	return NewLedgerEngine(factory, nil, clock, metrics, EngineConfig{
		DefaultAnnualYieldRate: d("0.05"),
	})
}

func TestLedgerEngine_ApplyTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		factory := newMockUnitOfWorkFactory()
		metrics := newRecordingMetrics()
		engine := newTestEngine(factory, metrics)

		factory.AccountRepo.On("GetByIDForUpdate", mock.Anything, engineAccountID).Return(engineAccount("100"), nil)
		factory.TransactionRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Transaction")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*entities.Transaction).ID = 501
			}).Return(nil)
		factory.AccountRepo.On("UpdateBalances", mock.Anything, mock.MatchedBy(func(a *entities.Account) bool {
			return a.CurrentBalance.Equal(d("125")) && a.TotalBonuses.Equal(d("25"))
		})).Return(nil)

		entry, err := engine.ApplyTransaction(ctx, engineAccountID, entities.TransactionTypeBonus, d("25"), date("2024-03-01"), entities.TransactionMetadata{})
		require.NoError(t, err)
		assert.Equal(t, int64(501), entry.ID)
		assert.Equal(t, 1, factory.commits())
		assert.Equal(t, 1, metrics.transactions["bonus"])
		assert.Contains(t, metrics.operations, "apply_transaction")
		factory.AccountRepo.AssertExpectations(t)
		factory.TransactionRepo.AssertExpectations(t)
	})

	t.Run("rolls back on insufficient balance", func(t *testing.T) {
		factory := newMockUnitOfWorkFactory()
		metrics := newRecordingMetrics()
		engine := newTestEngine(factory, metrics)

		factory.AccountRepo.On("GetByIDForUpdate", mock.Anything, engineAccountID).Return(engineAccount("10"), nil)

		_, err := engine.ApplyTransaction(ctx, engineAccountID, entities.TransactionTypeWithdrawal, d("25"), date("2024-03-01"), entities.TransactionMetadata{})
		assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
		assert.Equal(t, 0, factory.commits())
		assert.Equal(t, 1, factory.rollbacks())
		assert.Empty(t, metrics.transactions)
		factory.TransactionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("store unavailable", func(t *testing.T) {
		factory := newMockUnitOfWorkFactory()
		factory.beginErr = errors.New("connection refused")
		engine := newTestEngine(factory, nil)

		_, err := engine.ApplyTransaction(ctx, engineAccountID, entities.TransactionTypeBonus, d("25"), date("2024-03-01"), entities.TransactionMetadata{})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestLedgerEngine_ProcessWithdrawal_UsesClockDate(t *testing.T) {
	ctx := context.Background()
	factory := newMockUnitOfWorkFactory()
	engine := newTestEngine(factory, nil)

	account := engineAccount("300")
	factory.AccountRepo.On("GetByOwnerIDForUpdate", mock.Anything, engineOwnerID).Return(account, nil)
	factory.AccountRepo.On("GetByIDForUpdate", mock.Anything, engineAccountID).Return(account, nil)
	factory.DepositRepo.On("ListActiveByOwnerForUpdate", mock.Anything, engineOwnerID).
		Return([]*entities.Deposit{engineDeposit(1, "300")}, nil)
	factory.DepositRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.Deposit")).Return(nil)
	factory.TransactionRepo.On("Create", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.TransactionType == entities.TransactionTypeWithdrawal && tx.Date.Equal(date("2024-03-10"))
	})).Return(nil)
	factory.AccountRepo.On("UpdateBalances", mock.Anything, account).Return(nil)

	result, err := engine.ProcessWithdrawal(ctx, engineOwnerID, d("120"))
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(d("180")))
	assert.Equal(t, interfaces.ShortfallPolicyReject, result.PolicyApplied)
	require.Len(t, result.Reductions, 1)
	assert.True(t, result.Reductions[0].NewPrincipal.Equal(d("180")))
	assert.Equal(t, 1, factory.commits())
	factory.TransactionRepo.AssertExpectations(t)
}

func TestLedgerEngine_RunDailyYield(t *testing.T) {
	ctx := context.Background()
	runDate := date("2024-03-10")

	factory := newMockUnitOfWorkFactory()
	metrics := newRecordingMetrics()
	engine := newTestEngine(factory, metrics)

	paid := engineDeposit(1, "36500")
	broken := engineDeposit(2, "1000")
	raced := engineDeposit(3, "36500")
	closed := engineDeposit(4, "1000")
	closedOnReread := *closed
	closedOnReread.Status = entities.DepositStatusInactive

	factory.DepositRepo.On("ListActiveStartedBy", mock.Anything, runDate).
		Return([]*entities.Deposit{paid, broken, raced, closed}, nil)

	account := engineAccount("0")
	factory.AccountRepo.On("GetByOwnerIDForUpdate", mock.Anything, engineOwnerID).Return(account, nil)
	factory.AccountRepo.On("GetByIDForUpdate", mock.Anything, engineAccountID).Return(account, nil)
	factory.AccountRepo.On("UpdateBalances", mock.Anything, account).Return(nil)
	factory.TransactionRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Transaction")).Return(nil)

	factory.DepositRepo.On("GetByID", mock.Anything, int64(1)).Return(paid, nil)
	factory.DepositRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(paid, nil)
	factory.DepositRepo.On("GetByID", mock.Anything, int64(2)).Return(nil, errors.New("connection reset"))
	factory.DepositRepo.On("GetByID", mock.Anything, int64(3)).Return(raced, nil)
	factory.DepositRepo.On("GetByIDForUpdate", mock.Anything, int64(3)).Return(raced, nil)
	factory.DepositRepo.On("GetByID", mock.Anything, int64(4)).Return(closed, nil)
	factory.DepositRepo.On("GetByIDForUpdate", mock.Anything, int64(4)).Return(&closedOnReread, nil)
	factory.DepositRepo.On("Update", mock.Anything, paid).Return(nil)

	factory.PayoutRepo.On("ExistsForDate", mock.Anything, int64(1), runDate).Return(false, nil)
	factory.PayoutRepo.On("ExistsForDate", mock.Anything, int64(3), runDate).Return(false, nil)
	factory.PayoutRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *entities.Payout) bool {
		return p.DepositID == 1
	})).Return(nil)
	factory.PayoutRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *entities.Payout) bool {
		return p.DepositID == 3
	})).Return(fmt.Errorf("%w: deposit 3 on %s", entities.ErrDuplicatePayout, runDate))

	factory.YieldRunRepo.On("Create", mock.Anything, mock.MatchedBy(func(run *entities.YieldRun) bool {
		return run.RunDate.Equal(runDate) &&
			run.PaymentsProcessed == 1 &&
			run.TotalAmount.Equal(d("10")) &&
			run.Skipped == 2 &&
			run.Failed == 1 &&
			len(run.Errors) == 1 && run.Errors[0].DepositID == 2
	})).Return(nil)

	result, err := engine.RunDailyYield(ctx, runDate)
	require.NoError(t, err)

	assert.Equal(t, 1, result.PaymentsProcessed)
	assert.True(t, result.TotalAmount.Equal(d("10")), result.TotalAmount.String())
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.Failed())
	assert.Contains(t, result.Errors[0].Reason, "connection reset")

	require.NotNil(t, paid.LastPayoutDate)
	assert.Equal(t, "2024-03-10", paid.LastPayoutDate.String())
	assert.Equal(t, 1, metrics.payouts)

	factory.YieldRunRepo.AssertExpectations(t)
	factory.PayoutRepo.AssertExpectations(t)
}

func TestLedgerEngine_RunDailyYield_RequiresDate(t *testing.T) {
	engine := newTestEngine(newMockUnitOfWorkFactory(), nil)

	_, err := engine.RunDailyYield(context.Background(), entities.Date{})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestLedgerEngine_ImportBatch_InvalidRowsOnly(t *testing.T) {
	factory := newMockUnitOfWorkFactory()
	metrics := newRecordingMetrics()
	publisher := new(testhelpers.MockEventPublisher)
	publisher.On("Publish", mock.MatchedBy(func(e events.BatchImportedEvent) bool {
		return e.TotalRows == 2 && e.Succeeded == 0 && e.Failed == 2
	})).Return(nil)

	engine := NewLedgerEngine(factory, publisher, nil, metrics, EngineConfig{})

	rows := []entities.ImportRow{
		{RowNumber: 2, Email: "not-an-email", TransactionType: "bonus", Amount: "10", TransactionDate: "2024-01-01"},
		{RowNumber: 1, Email: "a@example.com", TransactionType: "mystery", Amount: "10", TransactionDate: "2024-01-01"},
	}

	summary, err := engine.ImportBatch(context.Background(), rows)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.BatchID)
	assert.Equal(t, 2, summary.TotalRows)
	assert.Equal(t, 0, summary.Succeeded)
	require.Len(t, summary.Errors, 2)
	assert.Equal(t, 1, summary.Errors[0].RowNumber)
	assert.Equal(t, 2, summary.Errors[1].RowNumber)
	assert.Empty(t, factory.created, "no unit of work for a batch without valid rows")
	assert.Equal(t, 2, metrics.importRows["failed"])
	publisher.AssertExpectations(t)
}

func TestLedgerEngine_ImportBatch_AbortsWhenStoreUnavailable(t *testing.T) {
	factory := newMockUnitOfWorkFactory()
	factory.beginErr = errors.New("too many connections")
	engine := newTestEngine(factory, nil)

	rows := []entities.ImportRow{
		{RowNumber: 1, Email: "a@example.com", TransactionType: "bonus", Amount: "10", TransactionDate: "2024-01-01"},
	}

	summary, err := engine.ImportBatch(context.Background(), rows)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalRows)
	assert.Equal(t, 0, summary.Succeeded)
}

func expectImportOwner(factory *mockUnitOfWorkFactory, account *entities.Account) {
	factory.OwnerRepo.On("GetByEmail", mock.Anything, "a@example.com").
		Return(&entities.Owner{ID: engineOwnerID, Email: "a@example.com"}, nil)
	factory.AccountRepo.On("GetByOwnerID", mock.Anything, engineOwnerID).Return(account, nil)
}

func TestLedgerEngine_ImportBatch_RedeliveryAppliesRowsOnce(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"request_id":"req-1","rows":[` +
		`{"row_number":1,"email":"a@example.com","transaction_type":"bonus","amount":"10","transaction_date":"2024-01-01"},` +
		`{"row_number":2,"email":"a@example.com","transaction_type":"bonus","amount":"20","transaction_date":"2024-01-02"}]}`)

	tests := []struct {
		name          string
		failBeginFrom int
		firstErr      bool
	}{
		// Units of work: owner resolution, row 1, row 2
		{name: "abort after first row committed", failBeginFrom: 3, firstErr: false},
		{name: "abort before any row committed", failBeginFrom: 2, firstErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := newMockUnitOfWorkFactory()
			factory.failBeginFrom = tt.failBeginFrom

			account := engineAccount("0")
			expectImportOwner(factory, account)
			factory.AccountRepo.On("GetByIDForUpdate", mock.Anything, engineAccountID).Return(account, nil)
			factory.AccountRepo.On("UpdateBalances", mock.Anything, account).Return(nil)
			factory.TransactionRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Transaction")).Return(nil)

			publisher := new(testhelpers.MockEventPublisher)
			publisher.On("Publish", mock.MatchedBy(func(e events.BatchImportedEvent) bool {
				return e.BatchID == "req-1" && e.Aborted
			})).Return(nil).Once()
			publisher.On("Publish", mock.MatchedBy(func(e events.BatchImportedEvent) bool {
				return e.BatchID == "req-1" && !e.Aborted && e.Succeeded+e.AlreadyImported == 2
			})).Return(nil).Once()

			engine := NewLedgerEngine(factory, publisher, nil, nil, EngineConfig{})
			handler := NewImportRequestHandler(engine)

			err := handler.HandleMessage(ctx, payload)
			if tt.firstErr {
				assert.ErrorIs(t, err, ErrStoreUnavailable)
			} else {
				assert.NoError(t, err)
			}

			// The bus delivers the same request again
			factory.failBeginFrom = 0
			require.NoError(t, handler.HandleMessage(ctx, payload))

			factory.TransactionRepo.AssertNumberOfCalls(t, "Create", 2)
			assert.True(t, account.CurrentBalance.Equal(d("30")))
			assert.True(t, account.TotalBonuses.Equal(d("30")))
			publisher.AssertExpectations(t)
		})
	}
}

func TestLedgerEngine_ImportBatch_SkipsJournaledRows(t *testing.T) {
	factory := newMockUnitOfWorkFactory()
	account := engineAccount("0")
	expectImportOwner(factory, account)

	journal := new(testhelpers.MockImportJournalRepository)
	journal.On("Exists", mock.Anything, "req-2", 1).Return(true, nil)
	factory.ImportJournal = journal

	engine := newTestEngine(factory, nil)
	summary, err := engine.ImportBatchWithID(context.Background(), "req-2", []entities.ImportRow{
		{RowNumber: 1, Email: "a@example.com", TransactionType: "bonus", Amount: "10", TransactionDate: "2024-01-01"},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 1, summary.AlreadyImported)
	assert.Empty(t, summary.Errors)
	assert.True(t, summary.Committed())
	factory.TransactionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	journal.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestLedgerEngine_ImportBatchWithID_RequiresBatchID(t *testing.T) {
	engine := newTestEngine(newMockUnitOfWorkFactory(), nil)

	_, err := engine.ImportBatchWithID(context.Background(), "", nil)
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestLedgerEngine_ImportBatch_WithdrawalDrawsDownDeposits(t *testing.T) {
	factory := newMockUnitOfWorkFactory()
	account := engineAccount("500")
	deposit := engineDeposit(1, "500")

	expectImportOwner(factory, account)
	factory.AccountRepo.On("GetByOwnerIDForUpdate", mock.Anything, engineOwnerID).Return(account, nil)
	factory.AccountRepo.On("GetByIDForUpdate", mock.Anything, engineAccountID).Return(account, nil)
	factory.AccountRepo.On("UpdateBalances", mock.Anything, account).Return(nil)
	factory.DepositRepo.On("ListActiveByOwnerForUpdate", mock.Anything, engineOwnerID).
		Return([]*entities.Deposit{deposit}, nil)
	factory.DepositRepo.On("Update", mock.Anything, deposit).Return(nil).Once()
	factory.TransactionRepo.On("Create", mock.Anything, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.TransactionType == entities.TransactionTypeWithdrawal &&
			tx.Amount.Equal(d("300")) &&
			tx.Date.Equal(date("2024-02-01"))
	})).Return(nil).Once()

	engine := newTestEngine(factory, nil)
	summary, err := engine.ImportBatch(context.Background(), []entities.ImportRow{
		{RowNumber: 1, Email: "a@example.com", TransactionType: "withdrawal", Amount: "300", TransactionDate: "2024-02-01"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Empty(t, summary.Errors)
	assert.True(t, deposit.PrincipalAmount.Equal(d("200")))
	assert.True(t, deposit.IsActive())
	assert.True(t, account.CurrentBalance.Equal(d("200")))
	factory.DepositRepo.AssertExpectations(t)
	factory.TransactionRepo.AssertExpectations(t)
}
