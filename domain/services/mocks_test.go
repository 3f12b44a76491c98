package services

import (
	"testing"
	"time"

	"lending/domain/entities"
	"lending/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

const (
	testOwnerID   = int64(100)
	testAccountID = int64(10)
)

// testMocks aggregates the repository mocks a service test needs
type testMocks struct {
	OwnerRepo       *testhelpers.MockOwnerRepository
	AccountRepo     *testhelpers.MockAccountRepository
	TransactionRepo *testhelpers.MockTransactionRepository
	DepositRepo     *testhelpers.MockDepositRepository
	PayoutRepo      *testhelpers.MockPayoutRepository
	SnapshotRepo    *testhelpers.MockSnapshotRepository
	Applier         *testhelpers.MockTransactionApplier
	EventPublisher  *testhelpers.MockEventPublisher
}

func newTestMocks() *testMocks {
	m := &testMocks{
		OwnerRepo:       new(testhelpers.MockOwnerRepository),
		AccountRepo:     new(testhelpers.MockAccountRepository),
		TransactionRepo: new(testhelpers.MockTransactionRepository),
		DepositRepo:     new(testhelpers.MockDepositRepository),
		PayoutRepo:      new(testhelpers.MockPayoutRepository),
		SnapshotRepo:    new(testhelpers.MockSnapshotRepository),
		Applier:         new(testhelpers.MockTransactionApplier),
		EventPublisher:  new(testhelpers.MockEventPublisher),
	}
	m.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
	return m
}

func (m *testMocks) assertExpectations(t *testing.T) {
	m.OwnerRepo.AssertExpectations(t)
	m.AccountRepo.AssertExpectations(t)
	m.TransactionRepo.AssertExpectations(t)
	m.DepositRepo.AssertExpectations(t)
	m.PayoutRepo.AssertExpectations(t)
	m.SnapshotRepo.AssertExpectations(t)
	m.Applier.AssertExpectations(t)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func date(s string) entities.Date {
	return entities.MustParseDate(s)
}

func testAccount(balance string) *entities.Account {
	return &entities.Account{
		ID:               testAccountID,
		OwnerID:          testOwnerID,
		PrincipalAmount:  decimal.Zero,
		CurrentBalance:   d(balance),
		MonthlyRate:      decimal.Zero,
		TotalBonuses:     decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}
}

func testDeposit(id int64, principal string, createdAt time.Time) *entities.Deposit {
	return &entities.Deposit{
		ID:              id,
		OwnerID:         testOwnerID,
		PrincipalAmount: d(principal),
		AnnualYieldRate: d("0.05"),
		StartDate:       entities.DateOf(createdAt),
		Status:          entities.DepositStatusActive,
		TotalPaidOut:    decimal.Zero,
		CreatedAt:       createdAt,
	}
}
