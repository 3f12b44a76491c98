package interfaces

import (
	"context"

	"lending/domain/entities"
	"lending/domain/events"

	"github.com/shopspring/decimal"
)

// OwnerRepository defines the interface for owner identity data access.
// Lookups return (nil, nil) when the owner does not exist.
type OwnerRepository interface {
	// GetByID retrieves an owner by ID
	GetByID(ctx context.Context, id int64) (*entities.Owner, error)

	// GetByEmail retrieves an owner by normalized email
	GetByEmail(ctx context.Context, email string) (*entities.Owner, error)

	// Create inserts a new owner and fills in ID and CreatedAt
	Create(ctx context.Context, owner *entities.Owner) error
}

// AccountRepository defines the interface for account data access.
// Lookups return (nil, nil) when the account does not exist.
type AccountRepository interface {
	// Create inserts a new account; returns ErrAccountExists if the owner already has one
	Create(ctx context.Context, account *entities.Account) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id int64) (*entities.Account, error)

	// GetByOwnerID retrieves the account of an owner
	GetByOwnerID(ctx context.Context, ownerID int64) (*entities.Account, error)

	// GetByIDForUpdate retrieves an account and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error)

	// GetByOwnerIDForUpdate retrieves an owner's account and locks its row
	GetByOwnerIDForUpdate(ctx context.Context, ownerID int64) (*entities.Account, error)

	// UpdateBalances writes current balance and aggregate totals
	UpdateBalances(ctx context.Context, account *entities.Account) error

	// List returns all accounts ordered by ID
	List(ctx context.Context) ([]*entities.Account, error)
}

// AccountTotals aggregates an account's ledger directly from the transaction log
type AccountTotals struct {
	NetDelta         decimal.Decimal
	TotalBonuses     decimal.Decimal
	TotalWithdrawals decimal.Decimal
	Count            int
}

// TransactionRepository defines the interface for ledger entry data access
type TransactionRepository interface {
	// Create inserts an entry and fills in ID and CreatedAt
	Create(ctx context.Context, tx *entities.Transaction) error

	// GetByID retrieves an entry by ID, (nil, nil) if absent
	GetByID(ctx context.Context, id int64) (*entities.Transaction, error)

	// ListByAccount returns all entries of an account ordered by date then insertion order
	ListByAccount(ctx context.Context, accountID int64) ([]*entities.Transaction, error)

	// GetAccountTotals sums the signed deltas and aggregate totals of an account
	GetAccountTotals(ctx context.Context, accountID int64) (*AccountTotals, error)
}

// DepositRepository defines the interface for yield deposit data access
type DepositRepository interface {
	// Create inserts a deposit and fills in ID and timestamps
	Create(ctx context.Context, deposit *entities.Deposit) error

	// GetByID retrieves a deposit, (nil, nil) if absent
	GetByID(ctx context.Context, id int64) (*entities.Deposit, error)

	// GetByIDForUpdate retrieves a deposit and locks its row
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Deposit, error)

	// ListActiveByOwnerForUpdate returns an owner's active deposits, newest first, locked
	ListActiveByOwnerForUpdate(ctx context.Context, ownerID int64) ([]*entities.Deposit, error)

	// ListActiveStartedBy returns active deposits whose start date is on or before date
	ListActiveStartedBy(ctx context.Context, date entities.Date) ([]*entities.Deposit, error)

	// ListByOwner returns all deposits of an owner, newest first
	ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Deposit, error)

	// Update writes principal, status and payout bookkeeping
	Update(ctx context.Context, deposit *entities.Deposit) error
}

// PayoutRepository defines the interface for payout data access
type PayoutRepository interface {
	// Create inserts a payout; returns ErrDuplicatePayout if (deposit, date) already exists
	Create(ctx context.Context, payout *entities.Payout) error

	// ExistsForDate reports whether a payout exists for (deposit, date)
	ExistsForDate(ctx context.Context, depositID int64, date entities.Date) (bool, error)

	// ListByDeposit returns a deposit's payouts ordered by date
	ListByDeposit(ctx context.Context, depositID int64) ([]*entities.Payout, error)
}

// SnapshotRepository defines the interface for monthly snapshot data access
type SnapshotRepository interface {
	// ReplaceForAccount deletes every snapshot of the account and inserts the given set
	ReplaceForAccount(ctx context.Context, accountID int64, snapshots []*entities.MonthlySnapshot) error

	// ListByAccount returns an account's snapshots ordered by month
	ListByAccount(ctx context.Context, accountID int64) ([]*entities.MonthlySnapshot, error)
}

// YieldRunRepository journals daily yield runs
type YieldRunRepository interface {
	// Create records a finished run
	Create(ctx context.Context, run *entities.YieldRun) error

	// GetLatest returns the run with the latest run date, (nil, nil) if none
	GetLatest(ctx context.Context) (*entities.YieldRun, error)

	// ListByDate returns every run recorded for a date, oldest first
	ListByDate(ctx context.Context, date entities.Date) ([]*entities.YieldRun, error)
}

// ImportJournalRepository records which rows of an import batch were applied
type ImportJournalRepository interface {
	// Exists reports whether the row of the batch was already applied
	Exists(ctx context.Context, batchID string, rowNumber int) (bool, error)

	// Record journals an applied row. It returns false when the row was
	// already journaled, in which case the caller must roll back.
	Record(ctx context.Context, row *entities.ImportedRow) (bool, error)

	// ListByBatch returns the journaled rows of a batch in row order
	ListByBatch(ctx context.Context, batchID string) ([]*entities.ImportedRow, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the surrounding transaction finishes
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes every held event; called after commit
	Flush(ctx context.Context) error

	// Discard drops every held event; called on rollback
	Discard()
}
