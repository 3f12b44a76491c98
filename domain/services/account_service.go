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

// accountService implements account provisioning and reconciliation
type accountService struct {
	ownerRepo       interfaces.OwnerRepository
	accountRepo     interfaces.AccountRepository
	transactionRepo interfaces.TransactionRepository
	eventPublisher  interfaces.EventPublisher
}

// NewAccountService creates a new account service
func NewAccountService(
	ownerRepo interfaces.OwnerRepository,
	accountRepo interfaces.AccountRepository,
	transactionRepo interfaces.TransactionRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.AccountService {
	return &accountService{
		ownerRepo:       ownerRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		eventPublisher:  eventPublisher,
	}
}

// OpenAccount creates the account of an existing owner
func (s *accountService) OpenAccount(ctx context.Context, ownerID int64, principal, monthlyRate decimal.Decimal) (*entities.Account, error) {
	if principal.IsNegative() {
		return nil, entities.NewValidationError("principal_amount", "must not be negative")
	}
	if monthlyRate.IsNegative() {
		return nil, entities.NewValidationError("monthly_rate", "must not be negative")
	}

	owner, err := s.ownerRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}
	if owner == nil {
		return nil, entities.NewNotFoundError("owner", ownerID)
	}

	return s.createAccount(ctx, owner, principal, monthlyRate)
}

// EnsureOwnerAccount resolves an owner by email, provisioning owner and account when absent
func (s *accountService) EnsureOwnerAccount(ctx context.Context, profile interfaces.OwnerProfile) (*entities.Account, bool, error) {
	email := entities.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, false, entities.NewValidationError("email", "is required")
	}

	owner, err := s.ownerRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get owner by email: %w", err)
	}
	if owner == nil {
		owner = &entities.Owner{
			Email:     email,
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			Phone:     profile.Phone,
		}
		if err := s.ownerRepo.Create(ctx, owner); err != nil {
			return nil, false, fmt.Errorf("failed to create owner: %w", err)
		}
		log.WithFields(log.Fields{
			"ownerID": owner.ID,
			"email":   owner.Email,
		}).Info("Provisioned new owner")
	}

	account, err := s.accountRepo.GetByOwnerID(ctx, owner.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get account: %w", err)
	}
	if account != nil {
		return account, false, nil
	}

	account, err = s.createAccount(ctx, owner, decimal.Zero, decimal.Zero)
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

// Reconcile recomputes balance and totals from the log and repairs drift
func (s *accountService) Reconcile(ctx context.Context, accountID int64) (*interfaces.ReconciliationReport, error) {
	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account", accountID)
	}

	totals, err := s.transactionRepo.GetAccountTotals(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger: %w", err)
	}

	report := &interfaces.ReconciliationReport{
		AccountID:                accountID,
		StoredBalance:            account.CurrentBalance,
		ComputedBalance:          account.PrincipalAmount.Add(totals.NetDelta),
		StoredTotalBonuses:       account.TotalBonuses,
		ComputedTotalBonuses:     totals.TotalBonuses,
		StoredTotalWithdrawals:   account.TotalWithdrawals,
		ComputedTotalWithdrawals: totals.TotalWithdrawals,
		TransactionCount:         totals.Count,
	}
	if !report.Drifted() {
		return report, nil
	}

	log.WithFields(log.Fields{
		"accountID":       accountID,
		"storedBalance":   report.StoredBalance.String(),
		"computedBalance": report.ComputedBalance.String(),
	}).Warn("Account aggregates drifted from ledger, repairing")

	account.CurrentBalance = report.ComputedBalance
	account.TotalBonuses = report.ComputedTotalBonuses
	account.TotalWithdrawals = report.ComputedTotalWithdrawals
	if err := s.accountRepo.UpdateBalances(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to repair account aggregates: %w", err)
	}
	report.Repaired = true

	return report, nil
}

func (s *accountService) createAccount(ctx context.Context, owner *entities.Owner, principal, monthlyRate decimal.Decimal) (*entities.Account, error) {
	account := &entities.Account{
		OwnerID:          owner.ID,
		PrincipalAmount:  principal,
		CurrentBalance:   principal,
		MonthlyRate:      monthlyRate,
		TotalBonuses:     decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account for owner %d: %w", owner.ID, err)
	}

	if err := s.eventPublisher.Publish(events.AccountOpenedEvent{
		AccountID: account.ID,
		OwnerID:   owner.ID,
		Email:     owner.Email,
	}); err != nil {
		log.WithError(err).Error("Failed to publish account opened event")
	}

	return account, nil
}
