package services

import (
	"context"
	"fmt"

	"lending/domain/entities"
	"lending/domain/events"
	"lending/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// yieldService implements daily yield accrual for one deposit at a time
type yieldService struct {
	accountRepo    interfaces.AccountRepository
	depositRepo    interfaces.DepositRepository
	payoutRepo     interfaces.PayoutRepository
	applier        interfaces.TransactionApplier
	eventPublisher interfaces.EventPublisher
}

// NewYieldService creates a new yield service
func NewYieldService(
	accountRepo interfaces.AccountRepository,
	depositRepo interfaces.DepositRepository,
	payoutRepo interfaces.PayoutRepository,
	applier interfaces.TransactionApplier,
	eventPublisher interfaces.EventPublisher,
) interfaces.YieldService {
	return &yieldService{
		accountRepo:    accountRepo,
		depositRepo:    depositRepo,
		payoutRepo:     payoutRepo,
		applier:        applier,
		eventPublisher: eventPublisher,
	}
}

// PayDailyYield pays one day of yield on a deposit.
// Returns (nil, nil) when the deposit is inactive, not yet started, already paid
// for the date, or earns nothing after rounding.
func (s *yieldService) PayDailyYield(ctx context.Context, depositID int64, date entities.Date) (*entities.Payout, error) {
	if date.IsZero() {
		return nil, entities.NewValidationError("date", "is required")
	}

	existing, err := s.depositRepo.GetByID(ctx, depositID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	if existing == nil {
		return nil, entities.NewNotFoundError("deposit", depositID)
	}

	account, err := s.accountRepo.GetByOwnerIDForUpdate(ctx, existing.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account", fmt.Sprintf("owner %d", existing.OwnerID))
	}

	deposit, err := s.depositRepo.GetByIDForUpdate(ctx, depositID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock deposit: %w", err)
	}
	if deposit == nil || !deposit.IsActive() || !deposit.HasStartedBy(date) {
		return nil, nil
	}

	paid, err := s.payoutRepo.ExistsForDate(ctx, depositID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check payout: %w", err)
	}
	if paid {
		return nil, nil
	}

	amount := deposit.DailyYield()
	if !amount.IsPositive() {
		return nil, nil
	}

	entry, err := s.applier.Apply(ctx, interfaces.ApplyRequest{
		AccountID: account.ID,
		Type:      entities.TransactionTypeDailyYield,
		Amount:    amount,
		Date:      date,
		Metadata: entities.TransactionMetadata{
			Description: fmt.Sprintf("Daily yield on deposit %d", deposit.ID),
			ReferenceID: fmt.Sprintf("%s:%s", depositReference(deposit.ID), date),
		},
	})
	if err != nil {
		return nil, err
	}

	payout := &entities.Payout{
		DepositID:     deposit.ID,
		Amount:        amount,
		PayoutDate:    date,
		TransactionID: entry.ID,
	}
	if err := s.payoutRepo.Create(ctx, payout); err != nil {
		return nil, fmt.Errorf("failed to record payout: %w", err)
	}

	deposit.RecordPayout(date, amount)
	if err := s.depositRepo.Update(ctx, deposit); err != nil {
		return nil, fmt.Errorf("failed to update deposit payout totals: %w", err)
	}

	log.WithFields(log.Fields{
		"depositID": deposit.ID,
		"accountID": account.ID,
		"amount":    amount.String(),
		"date":      date.String(),
	}).Debug("Daily yield paid")

	if err := s.eventPublisher.Publish(events.YieldPaidEvent{
		DepositID:  deposit.ID,
		AccountID:  account.ID,
		PayoutID:   payout.ID,
		Amount:     amount,
		PayoutDate: date,
	}); err != nil {
		log.WithError(err).Error("Failed to publish yield paid event")
	}

	return payout, nil
}
