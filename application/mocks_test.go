package application

import (
	"context"
	"errors"
	"fmt"

	"lending/domain/entities"
	"lending/domain/interfaces"
	"lending/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// mockUnitOfWork hands out shared repository mocks and counts its lifecycle calls
type mockUnitOfWork struct {
	factory    *mockUnitOfWorkFactory
	begun      bool
	committed  bool
	rolledBack bool
}

func (u *mockUnitOfWork) Begin(ctx context.Context) error {
	if u.factory.beginErr != nil {
		return u.factory.beginErr
	}
	if u.factory.failBeginFrom > 0 && len(u.factory.created) >= u.factory.failBeginFrom {
		return errors.New("connection refused")
	}
	u.begun = true
	return nil
}

func (u *mockUnitOfWork) Commit() error {
	if !u.begun {
		return errors.New("no transaction to commit")
	}
	u.committed = true
	u.begun = false
	return nil
}

func (u *mockUnitOfWork) Rollback() error {
	if u.begun {
		u.rolledBack = true
		u.begun = false
	}
	return nil
}

func (u *mockUnitOfWork) OwnerRepository() interfaces.OwnerRepository {
	return u.factory.OwnerRepo
}

func (u *mockUnitOfWork) AccountRepository() interfaces.AccountRepository {
	return u.factory.AccountRepo
}

func (u *mockUnitOfWork) TransactionRepository() interfaces.TransactionRepository {
	return u.factory.TransactionRepo
}

func (u *mockUnitOfWork) DepositRepository() interfaces.DepositRepository {
	return u.factory.DepositRepo
}

func (u *mockUnitOfWork) PayoutRepository() interfaces.PayoutRepository {
	return u.factory.PayoutRepo
}

func (u *mockUnitOfWork) SnapshotRepository() interfaces.SnapshotRepository {
	return u.factory.SnapshotRepo
}

func (u *mockUnitOfWork) YieldRunRepository() interfaces.YieldRunRepository {
	return u.factory.YieldRunRepo
}

func (u *mockUnitOfWork) ImportJournalRepository() interfaces.ImportJournalRepository {
	return u.factory.ImportJournal
}

func (u *mockUnitOfWork) EventBus() interfaces.EventPublisher {
	return u.factory.EventBus
}

type mockUnitOfWorkFactory struct {
	OwnerRepo       *testhelpers.MockOwnerRepository
	AccountRepo     *testhelpers.MockAccountRepository
	TransactionRepo *testhelpers.MockTransactionRepository
	DepositRepo     *testhelpers.MockDepositRepository
	PayoutRepo      *testhelpers.MockPayoutRepository
	SnapshotRepo    *testhelpers.MockSnapshotRepository
	YieldRunRepo    *testhelpers.MockYieldRunRepository
	ImportJournal   interfaces.ImportJournalRepository
	EventBus        *testhelpers.MockEventPublisher

	beginErr error
	// failBeginFrom makes Begin fail once that many units of work were created
	failBeginFrom int
	created       []*mockUnitOfWork
}

func newMockUnitOfWorkFactory() *mockUnitOfWorkFactory {
	f := &mockUnitOfWorkFactory{
		OwnerRepo:       new(testhelpers.MockOwnerRepository),
		AccountRepo:     new(testhelpers.MockAccountRepository),
		TransactionRepo: new(testhelpers.MockTransactionRepository),
		DepositRepo:     new(testhelpers.MockDepositRepository),
		PayoutRepo:      new(testhelpers.MockPayoutRepository),
		SnapshotRepo:    new(testhelpers.MockSnapshotRepository),
		YieldRunRepo:    new(testhelpers.MockYieldRunRepository),
		ImportJournal:   newMemoryImportJournal(),
		EventBus:        new(testhelpers.MockEventPublisher),
	}
	f.EventBus.On("Publish", mock.Anything).Return(nil).Maybe()
	return f
}

func (f *mockUnitOfWorkFactory) Create() UnitOfWork {
	uow := &mockUnitOfWork{factory: f}
	f.created = append(f.created, uow)
	return uow
}

func (f *mockUnitOfWorkFactory) commits() int {
	n := 0
	for _, uow := range f.created {
		if uow.committed {
			n++
		}
	}
	return n
}

func (f *mockUnitOfWorkFactory) rollbacks() int {
	n := 0
	for _, uow := range f.created {
		if uow.rolledBack {
			n++
		}
	}
	return n
}

// memoryImportJournal keeps journaled rows across units of work and deliveries
type memoryImportJournal struct {
	rows map[string]*entities.ImportedRow
}

func newMemoryImportJournal() *memoryImportJournal {
	return &memoryImportJournal{rows: make(map[string]*entities.ImportedRow)}
}

func journalKey(batchID string, rowNumber int) string {
	return fmt.Sprintf("%s/%d", batchID, rowNumber)
}

func (j *memoryImportJournal) Exists(ctx context.Context, batchID string, rowNumber int) (bool, error) {
	_, ok := j.rows[journalKey(batchID, rowNumber)]
	return ok, nil
}

func (j *memoryImportJournal) Record(ctx context.Context, row *entities.ImportedRow) (bool, error) {
	key := journalKey(row.BatchID, row.RowNumber)
	if _, ok := j.rows[key]; ok {
		return false, nil
	}
	j.rows[key] = row
	return true, nil
}

func (j *memoryImportJournal) ListByBatch(ctx context.Context, batchID string) ([]*entities.ImportedRow, error) {
	var rows []*entities.ImportedRow
	for _, row := range j.rows {
		if row.BatchID == batchID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// recordingMetrics counts what the engine reports
type recordingMetrics struct {
	transactions map[string]int
	payouts      int
	payoutTotal  decimal.Decimal
	importRows   map[string]int
	operations   []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		transactions: make(map[string]int),
		importRows:   make(map[string]int),
		payoutTotal:  decimal.Zero,
	}
}

func (m *recordingMetrics) RecordLedgerTransaction(transactionType string) {
	m.transactions[transactionType]++
}

func (m *recordingMetrics) RecordYieldPayouts(count int, total decimal.Decimal) {
	m.payouts += count
	m.payoutTotal = m.payoutTotal.Add(total)
}

func (m *recordingMetrics) RecordImportRows(outcome string, count int) {
	m.importRows[outcome] += count
}

func (m *recordingMetrics) MeasureOperation(operation string) func() {
	m.operations = append(m.operations, operation)
	return func() {}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) entities.Date {
	return entities.MustParseDate(s)
}
