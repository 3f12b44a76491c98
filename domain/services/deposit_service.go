package services

import (
	"context"
	"fmt"

	"lending/domain/entities"
	"lending/domain/events"
	"lending/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// depositService implements yield deposit creation, deletion and withdrawals
type depositService struct {
	accountRepo     interfaces.AccountRepository
	depositRepo     interfaces.DepositRepository
	applier         interfaces.TransactionApplier
	eventPublisher  interfaces.EventPublisher
	shortfallPolicy interfaces.ShortfallPolicy
}

// NewDepositService creates a new deposit service
func NewDepositService(
	accountRepo interfaces.AccountRepository,
	depositRepo interfaces.DepositRepository,
	applier interfaces.TransactionApplier,
	eventPublisher interfaces.EventPublisher,
	shortfallPolicy interfaces.ShortfallPolicy,
) interfaces.DepositService {
	if shortfallPolicy == "" {
		shortfallPolicy = interfaces.ShortfallPolicyReject
	}
	return &depositService{
		accountRepo:     accountRepo,
		depositRepo:     depositRepo,
		applier:         applier,
		eventPublisher:  eventPublisher,
		shortfallPolicy: shortfallPolicy,
	}
}

// CreateDeposit opens a deposit and credits the owner's account with a yield_deposit entry
func (s *depositService) CreateDeposit(ctx context.Context, ownerID int64, principal, annualRate decimal.Decimal, startDate entities.Date, metadata entities.TransactionMetadata) (*entities.Deposit, error) {
	if !principal.IsPositive() {
		return nil, entities.NewValidationError("principal_amount", "must be positive")
	}
	if err := validateFraction("annual_yield_rate", &annualRate); err != nil {
		return nil, err
	}
	if startDate.IsZero() {
		return nil, entities.NewValidationError("start_date", "is required")
	}

	account, err := s.accountRepo.GetByOwnerIDForUpdate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account", fmt.Sprintf("owner %d", ownerID))
	}

	deposit := &entities.Deposit{
		OwnerID:         ownerID,
		PrincipalAmount: principal,
		AnnualYieldRate: annualRate,
		StartDate:       startDate,
		Status:          entities.DepositStatusActive,
		TotalPaidOut:    decimal.Zero,
	}
	if err := s.depositRepo.Create(ctx, deposit); err != nil {
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}

	if metadata.ReferenceID == "" {
		metadata.ReferenceID = depositReference(deposit.ID)
	}
	if _, err := s.applier.Apply(ctx, interfaces.ApplyRequest{
		AccountID: account.ID,
		Type:      entities.TransactionTypeYieldDeposit,
		Amount:    principal,
		Date:      startDate,
		Metadata:  metadata,
	}); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.DepositCreatedEvent{
		DepositID:       deposit.ID,
		OwnerID:         ownerID,
		Principal:       principal,
		AnnualYieldRate: annualRate,
		StartDate:       startDate,
	}); err != nil {
		log.WithError(err).Error("Failed to publish deposit created event")
	}

	return deposit, nil
}

// DeleteDeposit closes a deposit with a compensating deposit_deletion entry
func (s *depositService) DeleteDeposit(ctx context.Context, depositID int64, date entities.Date) (*entities.Deposit, *entities.Transaction, error) {
	if date.IsZero() {
		return nil, nil, entities.NewValidationError("date", "is required")
	}

	existing, err := s.depositRepo.GetByID(ctx, depositID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	if existing == nil {
		return nil, nil, entities.NewNotFoundError("deposit", depositID)
	}

	// Account lock first, then the deposit, same order as withdrawals
	account, err := s.accountRepo.GetByOwnerIDForUpdate(ctx, existing.OwnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, nil, entities.NewNotFoundError("account", fmt.Sprintf("owner %d", existing.OwnerID))
	}

	deposit, err := s.depositRepo.GetByIDForUpdate(ctx, depositID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock deposit: %w", err)
	}
	if deposit == nil {
		return nil, nil, entities.NewNotFoundError("deposit", depositID)
	}
	if !deposit.IsActive() {
		return nil, nil, entities.NewValidationError("deposit_id", "deposit is already inactive")
	}

	removed := deposit.Close()
	if err := s.depositRepo.Update(ctx, deposit); err != nil {
		return nil, nil, fmt.Errorf("failed to close deposit: %w", err)
	}

	var entry *entities.Transaction
	if removed.IsPositive() {
		entry, err = s.applier.Apply(ctx, interfaces.ApplyRequest{
			AccountID: account.ID,
			Type:      entities.TransactionTypeDepositDeletion,
			Amount:    removed.Neg(),
			Date:      date,
			Metadata: entities.TransactionMetadata{
				Description: fmt.Sprintf("Deposit %d deleted", deposit.ID),
				ReferenceID: depositReference(deposit.ID),
			},
		})
		if err != nil {
			return nil, nil, err
		}
	}

	s.publishClosed(deposit, "deleted")
	return deposit, entry, nil
}

// ProcessWithdrawal allocates a withdrawal across active deposits newest-first and debits the account
func (s *depositService) ProcessWithdrawal(ctx context.Context, ownerID int64, amount decimal.Decimal, date entities.Date, metadata entities.TransactionMetadata) (*interfaces.WithdrawalResult, error) {
	return s.withdraw(ctx, ownerID, amount, date, metadata, false)
}

// RecordWithdrawal books a withdrawal taken from an external record. Active
// deposits are drawn down exactly as in ProcessWithdrawal, but an owner with
// no active deposits at all is debited without allocation.
func (s *depositService) RecordWithdrawal(ctx context.Context, ownerID int64, amount decimal.Decimal, date entities.Date, metadata entities.TransactionMetadata) (*interfaces.WithdrawalResult, error) {
	return s.withdraw(ctx, ownerID, amount, date, metadata, true)
}

func (s *depositService) withdraw(ctx context.Context, ownerID int64, amount decimal.Decimal, date entities.Date, metadata entities.TransactionMetadata, unbackedAllowed bool) (*interfaces.WithdrawalResult, error) {
	if !amount.IsPositive() {
		return nil, entities.NewValidationError("amount", "must be positive")
	}
	if date.IsZero() {
		return nil, entities.NewValidationError("date", "is required")
	}

	account, err := s.accountRepo.GetByOwnerIDForUpdate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account", fmt.Sprintf("owner %d", ownerID))
	}
	if !account.CanWithdraw(amount) {
		return nil, fmt.Errorf("%w: account %d has %s, withdrawal of %s requested",
			entities.ErrInsufficientBalance, account.ID, account.CurrentBalance.StringFixed(2), amount.StringFixed(2))
	}

	deposits, err := s.depositRepo.ListActiveByOwnerForUpdate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock active deposits: %w", err)
	}

	plan, unallocated := PlanWithdrawal(deposits, amount)
	unbacked := unbackedAllowed && len(deposits) == 0
	if unallocated.IsPositive() && s.shortfallPolicy == interfaces.ShortfallPolicyReject && !unbacked {
		return nil, fmt.Errorf("%w: %s of %s not covered by active deposits",
			entities.ErrInsufficientDepositPrincipal, unallocated.StringFixed(2), amount.StringFixed(2))
	}

	byID := make(map[int64]*entities.Deposit, len(deposits))
	for _, deposit := range deposits {
		byID[deposit.ID] = deposit
	}
	for _, reduction := range plan {
		deposit := byID[reduction.DepositID]
		deposit.Reduce(reduction.AmountReduced)
		if err := s.depositRepo.Update(ctx, deposit); err != nil {
			return nil, fmt.Errorf("failed to reduce deposit %d: %w", deposit.ID, err)
		}
		if reduction.Deactivated {
			s.publishClosed(deposit, "withdrawn")
		}
	}

	newBalance := account.CurrentBalance.Sub(amount)
	entry, err := s.applier.Apply(ctx, interfaces.ApplyRequest{
		AccountID: account.ID,
		Type:      entities.TransactionTypeWithdrawal,
		Amount:    amount,
		Date:      date,
		Metadata:  metadata,
	})
	if err != nil {
		return nil, err
	}

	result := &interfaces.WithdrawalResult{
		Transaction:       entry,
		NewBalance:        newBalance,
		Reductions:        plan,
		UnallocatedAmount: unallocated,
		PolicyApplied:     s.shortfallPolicy,
	}

	if unallocated.IsPositive() && !unbacked {
		log.WithFields(log.Fields{
			"ownerID":     ownerID,
			"amount":      amount.String(),
			"unallocated": unallocated.String(),
		}).Warn("Withdrawal exceeded active deposit principal")
	}

	if err := s.eventPublisher.Publish(events.WithdrawalProcessedEvent{
		OwnerID:           ownerID,
		AccountID:         account.ID,
		Amount:            amount,
		DepositsTouched:   len(plan),
		UnallocatedAmount: unallocated,
		Policy:            string(s.shortfallPolicy),
	}); err != nil {
		log.WithError(err).Error("Failed to publish withdrawal processed event")
	}

	return result, nil
}

func (s *depositService) publishClosed(deposit *entities.Deposit, reason string) {
	if err := s.eventPublisher.Publish(events.DepositClosedEvent{
		DepositID: deposit.ID,
		OwnerID:   deposit.OwnerID,
		Reason:    reason,
	}); err != nil {
		log.WithError(err).Error("Failed to publish deposit closed event")
	}
}

func depositReference(depositID int64) string {
	return fmt.Sprintf("deposit:%d", depositID)
}
