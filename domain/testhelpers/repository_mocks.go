package testhelpers

import (
	"context"

	"lending/domain/entities"
	"lending/domain/events"
	"lending/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockOwnerRepository is a mock implementation of OwnerRepository
type MockOwnerRepository struct {
	mock.Mock
}

func (m *MockOwnerRepository) GetByID(ctx context.Context, id int64) (*entities.Owner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Owner), args.Error(1)
}

func (m *MockOwnerRepository) GetByEmail(ctx context.Context, email string) (*entities.Owner, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Owner), args.Error(1)
}

func (m *MockOwnerRepository) Create(ctx context.Context, owner *entities.Owner) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByOwnerID(ctx context.Context, ownerID int64) (*entities.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByOwnerIDForUpdate(ctx context.Context, ownerID int64) (*entities.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalances(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]*entities.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID int64) ([]*entities.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetAccountTotals(ctx context.Context, accountID int64) (*interfaces.AccountTotals, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.AccountTotals), args.Error(1)
}

// MockDepositRepository is a mock implementation of DepositRepository
type MockDepositRepository struct {
	mock.Mock
}

func (m *MockDepositRepository) Create(ctx context.Context, deposit *entities.Deposit) error {
	args := m.Called(ctx, deposit)
	return args.Error(0)
}

func (m *MockDepositRepository) GetByID(ctx context.Context, id int64) (*entities.Deposit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Deposit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) ListActiveByOwnerForUpdate(ctx context.Context, ownerID int64) ([]*entities.Deposit, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) ListActiveStartedBy(ctx context.Context, date entities.Date) ([]*entities.Deposit, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Deposit, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) Update(ctx context.Context, deposit *entities.Deposit) error {
	args := m.Called(ctx, deposit)
	return args.Error(0)
}

// MockPayoutRepository is a mock implementation of PayoutRepository
type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) Create(ctx context.Context, payout *entities.Payout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *MockPayoutRepository) ExistsForDate(ctx context.Context, depositID int64, date entities.Date) (bool, error) {
	args := m.Called(ctx, depositID, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayoutRepository) ListByDeposit(ctx context.Context, depositID int64) ([]*entities.Payout, error) {
	args := m.Called(ctx, depositID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Payout), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) ReplaceForAccount(ctx context.Context, accountID int64, snapshots []*entities.MonthlySnapshot) error {
	args := m.Called(ctx, accountID, snapshots)
	return args.Error(0)
}

func (m *MockSnapshotRepository) ListByAccount(ctx context.Context, accountID int64) ([]*entities.MonthlySnapshot, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.MonthlySnapshot), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionApplier is a mock implementation of TransactionApplier
type MockTransactionApplier struct {
	mock.Mock
}

func (m *MockTransactionApplier) Apply(ctx context.Context, req interfaces.ApplyRequest) (*entities.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

// MockYieldRunRepository is a mock implementation of YieldRunRepository
type MockYieldRunRepository struct {
	mock.Mock
}

func (m *MockYieldRunRepository) Create(ctx context.Context, run *entities.YieldRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockYieldRunRepository) GetLatest(ctx context.Context) (*entities.YieldRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.YieldRun), args.Error(1)
}

func (m *MockYieldRunRepository) ListByDate(ctx context.Context, date entities.Date) ([]*entities.YieldRun, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.YieldRun), args.Error(1)
}

// MockImportJournalRepository is a mock implementation of ImportJournalRepository
type MockImportJournalRepository struct {
	mock.Mock
}

func (m *MockImportJournalRepository) Exists(ctx context.Context, batchID string, rowNumber int) (bool, error) {
	args := m.Called(ctx, batchID, rowNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockImportJournalRepository) Record(ctx context.Context, row *entities.ImportedRow) (bool, error) {
	args := m.Called(ctx, row)
	return args.Bool(0), args.Error(1)
}

func (m *MockImportJournalRepository) ListByBatch(ctx context.Context, batchID string) ([]*entities.ImportedRow, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ImportedRow), args.Error(1)
}

// MockTransactionalEventPublisher is a mock implementation of TransactionalEventPublisher
type MockTransactionalEventPublisher struct {
	mock.Mock
}

func (m *MockTransactionalEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Discard() {
	m.Called()
}
