package interfaces

import (
	"context"
	"fmt"
	"time"

	"lending/domain/entities"

	"github.com/shopspring/decimal"
)

// Clock supplies "now" to services that need today's date
type Clock interface {
	Now() time.Time
}

// ApplyRequest describes one entry to apply to an account
type ApplyRequest struct {
	AccountID int64
	Type      entities.TransactionType
	Amount    decimal.Decimal
	Date      entities.Date
	Metadata  entities.TransactionMetadata
}

// TransactionApplier applies single ledger entries to account balances
type TransactionApplier interface {
	// Apply locks the account, writes the entry and updates the balance and totals
	Apply(ctx context.Context, req ApplyRequest) (*entities.Transaction, error)
}

// OwnerProfile carries identity details used when provisioning an owner
type OwnerProfile struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// ReconciliationReport compares stored aggregates with the transaction log
type ReconciliationReport struct {
	AccountID                int64
	StoredBalance            decimal.Decimal
	ComputedBalance          decimal.Decimal
	StoredTotalBonuses       decimal.Decimal
	ComputedTotalBonuses     decimal.Decimal
	StoredTotalWithdrawals   decimal.Decimal
	ComputedTotalWithdrawals decimal.Decimal
	TransactionCount         int
	Repaired                 bool
}

// Drifted returns true if any stored aggregate disagrees with the log
func (r *ReconciliationReport) Drifted() bool {
	return !r.StoredBalance.Equal(r.ComputedBalance) ||
		!r.StoredTotalBonuses.Equal(r.ComputedTotalBonuses) ||
		!r.StoredTotalWithdrawals.Equal(r.ComputedTotalWithdrawals)
}

// AccountService defines account provisioning and reconciliation
type AccountService interface {
	// OpenAccount creates the account of an existing owner
	OpenAccount(ctx context.Context, ownerID int64, principal, monthlyRate decimal.Decimal) (*entities.Account, error)

	// EnsureOwnerAccount resolves an owner by email, provisioning owner and account when absent.
	// The returned flag is true when a new account was created.
	EnsureOwnerAccount(ctx context.Context, profile OwnerProfile) (*entities.Account, bool, error)

	// Reconcile recomputes balance and totals from the log and repairs drift
	Reconcile(ctx context.Context, accountID int64) (*ReconciliationReport, error)
}

// ShortfallPolicy decides what happens when a withdrawal exceeds active deposit principal
type ShortfallPolicy string

const (
	// ShortfallPolicyReject rejects the whole withdrawal before any mutation
	ShortfallPolicyReject ShortfallPolicy = "reject"
	// ShortfallPolicyAllow debits the full amount and reports the unallocated remainder
	ShortfallPolicyAllow ShortfallPolicy = "allow"
)

// ParseShortfallPolicy converts a configuration string into a policy
func ParseShortfallPolicy(s string) (ShortfallPolicy, error) {
	switch ShortfallPolicy(s) {
	case ShortfallPolicyReject, ShortfallPolicyAllow:
		return ShortfallPolicy(s), nil
	case "":
		return ShortfallPolicyReject, nil
	}
	return "", fmt.Errorf("unknown withdrawal shortfall policy %q", s)
}

// DepositReduction records how much one deposit absorbed of a withdrawal
type DepositReduction struct {
	DepositID     int64
	AmountReduced decimal.Decimal
	NewPrincipal  decimal.Decimal
	Deactivated   bool
}

// WithdrawalResult is the outcome of a processed withdrawal
type WithdrawalResult struct {
	Transaction       *entities.Transaction
	NewBalance        decimal.Decimal
	Reductions        []DepositReduction
	UnallocatedAmount decimal.Decimal
	PolicyApplied     ShortfallPolicy
}

// DepositService defines yield deposit lifecycle operations
type DepositService interface {
	// CreateDeposit opens a deposit and credits the owner's account with a yield_deposit entry
	CreateDeposit(ctx context.Context, ownerID int64, principal, annualRate decimal.Decimal, startDate entities.Date, metadata entities.TransactionMetadata) (*entities.Deposit, error)

	// DeleteDeposit closes a deposit with a compensating deposit_deletion entry
	DeleteDeposit(ctx context.Context, depositID int64, date entities.Date) (*entities.Deposit, *entities.Transaction, error)

	// ProcessWithdrawal allocates a withdrawal across active deposits newest-first and debits the account
	ProcessWithdrawal(ctx context.Context, ownerID int64, amount decimal.Decimal, date entities.Date, metadata entities.TransactionMetadata) (*WithdrawalResult, error)

	// RecordWithdrawal books an externally recorded withdrawal; owners without active deposits are debited unallocated
	RecordWithdrawal(ctx context.Context, ownerID int64, amount decimal.Decimal, date entities.Date, metadata entities.TransactionMetadata) (*WithdrawalResult, error)
}

// YieldService defines daily yield accrual for a single deposit
type YieldService interface {
	// PayDailyYield pays one day of yield; returns (nil, nil) when the deposit is skipped
	PayDailyYield(ctx context.Context, depositID int64, date entities.Date) (*entities.Payout, error)
}

// DepositError reports a deposit that could not be processed in a yield run
type DepositError struct {
	DepositID int64  `json:"deposit_id"`
	Reason    string `json:"reason"`
}

// DailyYieldResult aggregates one daily yield run
type DailyYieldResult struct {
	Date              entities.Date
	PaymentsProcessed int
	TotalAmount       decimal.Decimal
	Skipped           int
	Errors            []DepositError
}

// Failed returns the number of deposits that errored
func (r *DailyYieldResult) Failed() int {
	return len(r.Errors)
}

// SnapshotService defines monthly snapshot rebuilding
type SnapshotService interface {
	// Rebuild recomputes and replaces every monthly snapshot of an account
	Rebuild(ctx context.Context, accountID int64) ([]*entities.MonthlySnapshot, error)
}

// ImportSummary is the aggregate outcome of a batch import
type ImportSummary struct {
	BatchID             string
	TotalRows           int
	Succeeded           int
	AlreadyImported     int
	CreatedAccounts     []*entities.Account
	AppliedTransactions []*entities.Transaction
	CreatedDeposits     []*entities.Deposit
	Errors              []entities.RowError
	RebuildErrors       []AccountError

	// AbortReason is set when the batch stopped before every row was tried
	AbortReason string
}

// AccountError reports an account-level failure that is not tied to an input row
type AccountError struct {
	AccountID int64  `json:"account_id"`
	Reason    string `json:"reason"`
}

// Failed returns the number of rows that were not applied
func (s *ImportSummary) Failed() int {
	return len(s.Errors)
}

// Aborted reports whether the batch stopped early
func (s *ImportSummary) Aborted() bool {
	return s.AbortReason != ""
}

// Committed reports whether any row of the batch is in the ledger, including
// rows applied by an earlier delivery of the same batch
func (s *ImportSummary) Committed() bool {
	return s.Succeeded > 0 || s.AlreadyImported > 0
}
