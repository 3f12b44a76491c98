package repository

import (
	"context"
	"errors"
	"fmt"

	"lending/application"
	"lending/database"
	"lending/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	ownerRepo              interfaces.OwnerRepository
	accountRepo            interfaces.AccountRepository
	transactionRepo        interfaces.TransactionRepository
	depositRepo            interfaces.DepositRepository
	payoutRepo             interfaces.PayoutRepository
	snapshotRepo           interfaces.SnapshotRepository
	yieldRunRepo           interfaces.YieldRunRepository
	importJournalRepo      interfaces.ImportJournalRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateWithPublisher creates a new UnitOfWork whose events are held by the
// given transactional publisher until commit
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.ownerRepo = newOwnerRepository(tx)
	u.accountRepo = newAccountRepository(tx)
	u.transactionRepo = newTransactionRepository(tx)
	u.depositRepo = newDepositRepository(tx)
	u.payoutRepo = newPayoutRepository(tx)
	u.snapshotRepo = newSnapshotRepository(tx)
	u.yieldRunRepo = newYieldRunRepository(tx)
	u.importJournalRepo = newImportJournalRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Events are best-effort once the transaction has committed
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Warn("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

// OwnerRepository returns the owner repository for this unit of work
func (u *unitOfWork) OwnerRepository() interfaces.OwnerRepository {
	if u.ownerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ownerRepo
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// TransactionRepository returns the ledger transaction repository for this unit of work
func (u *unitOfWork) TransactionRepository() interfaces.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

// DepositRepository returns the deposit repository for this unit of work
func (u *unitOfWork) DepositRepository() interfaces.DepositRepository {
	if u.depositRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.depositRepo
}

// PayoutRepository returns the payout repository for this unit of work
func (u *unitOfWork) PayoutRepository() interfaces.PayoutRepository {
	if u.payoutRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.payoutRepo
}

// SnapshotRepository returns the snapshot repository for this unit of work
func (u *unitOfWork) SnapshotRepository() interfaces.SnapshotRepository {
	if u.snapshotRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.snapshotRepo
}

// YieldRunRepository returns the yield run repository for this unit of work
func (u *unitOfWork) YieldRunRepository() interfaces.YieldRunRepository {
	if u.yieldRunRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.yieldRunRepo
}

// ImportJournalRepository returns the import journal repository for this unit of work
func (u *unitOfWork) ImportJournalRepository() interfaces.ImportJournalRepository {
	if u.importJournalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.importJournalRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}
