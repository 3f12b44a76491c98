package services

import (
	"context"
	"fmt"

	"lending/domain/entities"
	"lending/domain/interfaces"
	"lending/domain/utils"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places the ledger stores
const AmountScale = 4

// transactionApplier implements the single-entry ledger write path
type transactionApplier struct {
	accountRepo     interfaces.AccountRepository
	transactionRepo interfaces.TransactionRepository
	eventPublisher  interfaces.EventPublisher
}

// NewTransactionApplier creates a new transaction applier.
// The repositories must share one database transaction so the entry and the
// balance update commit or roll back together.
func NewTransactionApplier(
	accountRepo interfaces.AccountRepository,
	transactionRepo interfaces.TransactionRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.TransactionApplier {
	return &transactionApplier{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		eventPublisher:  eventPublisher,
	}
}

// Apply locks the account, writes the entry and updates balance and totals
func (s *transactionApplier) Apply(ctx context.Context, req interfaces.ApplyRequest) (*entities.Transaction, error) {
	if err := ValidateApplyRequest(req); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account", req.AccountID)
	}

	oldBalance := account.CurrentBalance
	newBalance := account.BalanceAfter(req.Type, req.Amount)

	// Any entry that lowers the balance may not take it below zero
	if req.Type.Delta(req.Amount).IsNegative() && newBalance.IsNegative() {
		return nil, fmt.Errorf("%w: account %d has %s, %s of %s requested",
			entities.ErrInsufficientBalance, account.ID, oldBalance.StringFixed(2), req.Type, req.Amount.Abs().StringFixed(2))
	}

	entry := &entities.Transaction{
		AccountID:       account.ID,
		Amount:          req.Amount,
		TransactionType: req.Type,
		Date:            req.Date,
		BonusPercentage: req.Metadata.BonusPercentage,
		Description:     req.Metadata.Description,
		ReferenceID:     req.Metadata.ReferenceID,
	}
	if err := utils.RecordLedgerEntry(ctx, s.transactionRepo, s.eventPublisher, entry, oldBalance, newBalance); err != nil {
		return nil, err
	}

	account.ApplyEntry(req.Type, req.Amount)
	if err := s.accountRepo.UpdateBalances(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account balance: %w", err)
	}

	return entry, nil
}

// ValidateApplyRequest checks an entry before anything is locked or written
func ValidateApplyRequest(req interfaces.ApplyRequest) error {
	if req.AccountID <= 0 {
		return entities.NewValidationError("account_id", "must be a positive identifier")
	}
	if !req.Type.IsValid() {
		return entities.NewValidationError("type", fmt.Sprintf("unknown transaction type %q", req.Type))
	}
	if req.Type.IsSigned() {
		if req.Amount.IsZero() {
			return entities.NewValidationError("amount", "must not be zero")
		}
	} else if !req.Amount.IsPositive() {
		return entities.NewValidationError("amount", "must be positive")
	}
	if !req.Amount.Equal(req.Amount.Truncate(AmountScale)) {
		return entities.NewValidationError("amount", fmt.Sprintf("must have at most %d decimal places", AmountScale))
	}
	if req.Date.IsZero() {
		return entities.NewValidationError("date", "is required")
	}
	if err := validateFraction("bonus_percentage", req.Metadata.BonusPercentage); err != nil {
		return err
	}
	return nil
}

// validateFraction checks an optional decimal lies in [0,1]
func validateFraction(field string, value *decimal.Decimal) error {
	if value == nil {
		return nil
	}
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(1)) {
		return entities.NewValidationError(field, "must be between 0 and 1")
	}
	return nil
}
