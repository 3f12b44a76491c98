package application

import (
	"context"

	"lending/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	OwnerRepository() interfaces.OwnerRepository
	AccountRepository() interfaces.AccountRepository
	TransactionRepository() interfaces.TransactionRepository
	DepositRepository() interfaces.DepositRepository
	PayoutRepository() interfaces.PayoutRepository
	SnapshotRepository() interfaces.SnapshotRepository
	YieldRunRepository() interfaces.YieldRunRepository
	ImportJournalRepository() interfaces.ImportJournalRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
