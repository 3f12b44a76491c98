package utils

import (
	"context"
	"fmt"

	"lending/domain/entities"
	"lending/domain/events"
	"lending/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// RecordLedgerEntry writes a ledger entry and emits the matching event.
// This is the single entry point for all ledger writes in the system.
func RecordLedgerEntry(ctx context.Context, transactionRepo interfaces.TransactionRepository, eventPublisher interfaces.EventPublisher, entry *entities.Transaction, oldBalance, newBalance decimal.Decimal) error {
	if err := transactionRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	event := events.TransactionAppliedEvent{
		TransactionID:   entry.ID,
		AccountID:       entry.AccountID,
		TransactionType: entry.TransactionType,
		Amount:          entry.Amount,
		Date:            entry.Date,
		OldBalance:      oldBalance,
		NewBalance:      newBalance,
	}
	log.WithFields(log.Fields{
		"transactionID":   event.TransactionID,
		"accountID":       event.AccountID,
		"transactionType": event.TransactionType,
		"amount":          event.Amount.String(),
		"oldBalance":      event.OldBalance.String(),
		"newBalance":      event.NewBalance.String(),
	}).Debug("Publishing TransactionAppliedEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish transaction applied event")
	}

	return nil
}
