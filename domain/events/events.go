package events

import (
	"lending/domain/entities"

	"github.com/shopspring/decimal"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTransactionApplied  EventType = "ledger.transaction.applied"
	EventTypeAccountOpened       EventType = "ledger.account.opened"
	EventTypeDepositCreated      EventType = "ledger.deposit.created"
	EventTypeDepositClosed       EventType = "ledger.deposit.closed"
	EventTypeWithdrawalProcessed EventType = "ledger.withdrawal.processed"
	EventTypeYieldPaid           EventType = "ledger.yield.paid"
	EventTypeSnapshotsRebuilt    EventType = "ledger.snapshots.rebuilt"
	EventTypeBatchImported       EventType = "ledger.import.completed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TransactionAppliedEvent is emitted for every ledger entry written
type TransactionAppliedEvent struct {
	TransactionID   int64                    `json:"transaction_id"`
	AccountID       int64                    `json:"account_id"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal          `json:"amount"`
	Date            entities.Date            `json:"date"`
	OldBalance      decimal.Decimal          `json:"old_balance"`
	NewBalance      decimal.Decimal          `json:"new_balance"`
}

func (e TransactionAppliedEvent) Type() EventType {
	return EventTypeTransactionApplied
}

// AccountOpenedEvent is emitted when an owner gets an account
type AccountOpenedEvent struct {
	AccountID int64  `json:"account_id"`
	OwnerID   int64  `json:"owner_id"`
	Email     string `json:"email,omitempty"`
}

func (e AccountOpenedEvent) Type() EventType {
	return EventTypeAccountOpened
}

// DepositCreatedEvent is emitted when a yield deposit is opened
type DepositCreatedEvent struct {
	DepositID       int64           `json:"deposit_id"`
	OwnerID         int64           `json:"owner_id"`
	Principal       decimal.Decimal `json:"principal"`
	AnnualYieldRate decimal.Decimal `json:"annual_yield_rate"`
	StartDate       entities.Date   `json:"start_date"`
}

func (e DepositCreatedEvent) Type() EventType {
	return EventTypeDepositCreated
}

// DepositClosedEvent is emitted when a deposit goes inactive
type DepositClosedEvent struct {
	DepositID int64  `json:"deposit_id"`
	OwnerID   int64  `json:"owner_id"`
	Reason    string `json:"reason"`
}

func (e DepositClosedEvent) Type() EventType {
	return EventTypeDepositClosed
}

// WithdrawalProcessedEvent is emitted after a withdrawal has been allocated and debited
type WithdrawalProcessedEvent struct {
	OwnerID           int64           `json:"owner_id"`
	AccountID         int64           `json:"account_id"`
	Amount            decimal.Decimal `json:"amount"`
	DepositsTouched   int             `json:"deposits_touched"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	Policy            string          `json:"policy"`
}

func (e WithdrawalProcessedEvent) Type() EventType {
	return EventTypeWithdrawalProcessed
}

// YieldPaidEvent is emitted for every daily yield payout
type YieldPaidEvent struct {
	DepositID  int64           `json:"deposit_id"`
	AccountID  int64           `json:"account_id"`
	PayoutID   int64           `json:"payout_id"`
	Amount     decimal.Decimal `json:"amount"`
	PayoutDate entities.Date   `json:"payout_date"`
}

func (e YieldPaidEvent) Type() EventType {
	return EventTypeYieldPaid
}

// SnapshotsRebuiltEvent is emitted after a snapshot set has been replaced
type SnapshotsRebuiltEvent struct {
	AccountID int64 `json:"account_id"`
	Months    int   `json:"months"`
}

func (e SnapshotsRebuiltEvent) Type() EventType {
	return EventTypeSnapshotsRebuilt
}

// BatchImportedEvent summarizes a finished import batch
type BatchImportedEvent struct {
	BatchID         string `json:"batch_id"`
	TotalRows       int    `json:"total_rows"`
	Succeeded       int    `json:"succeeded"`
	Failed          int    `json:"failed"`
	AlreadyImported int    `json:"already_imported"`
	NewAccounts     int    `json:"new_accounts"`
	Aborted         bool   `json:"aborted"`
	AbortReason     string `json:"abort_reason,omitempty"`
}

func (e BatchImportedEvent) Type() EventType {
	return EventTypeBatchImported
}
