package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"lending/domain/entities"
	"lending/domain/events"
	"lending/domain/interfaces"
	"lending/domain/services"
	"lending/domain/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ErrStoreUnavailable is returned when a unit of work cannot be started
var ErrStoreUnavailable = errors.New("ledger store unavailable")

var errRowAlreadyImported = errors.New("row already imported")

// EngineConfig holds the tunable policies of the ledger engine
type EngineConfig struct {
	ShortfallPolicy        interfaces.ShortfallPolicy
	DefaultAnnualYieldRate decimal.Decimal
	RebuildAfterImport     bool
}

// LedgerEngine is the entry point for every ledger operation. Each operation
// runs in its own unit of work; batch imports and yield runs use one per row
// or deposit.
type LedgerEngine struct {
	uowFactory     UnitOfWorkFactory
	eventPublisher interfaces.EventPublisher
	clock          interfaces.Clock
	metrics        MetricsRecorder
	config         EngineConfig
}

// NewLedgerEngine creates a new ledger engine. eventPublisher receives events
// that are not tied to a single transaction, such as batch summaries.
func NewLedgerEngine(
	uowFactory UnitOfWorkFactory,
	eventPublisher interfaces.EventPublisher,
	clock interfaces.Clock,
	metrics MetricsRecorder,
	config EngineConfig,
) *LedgerEngine {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if config.ShortfallPolicy == "" {
		config.ShortfallPolicy = interfaces.ShortfallPolicyReject
	}
	return &LedgerEngine{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		clock:          clock,
		metrics:        metrics,
		config:         config,
	}
}

// ledgerServices are the domain services bound to one unit of work
type ledgerServices struct {
	applier  interfaces.TransactionApplier
	accounts interfaces.AccountService
	deposits interfaces.DepositService
	yield    interfaces.YieldService
	snapshot interfaces.SnapshotService
}

func (e *LedgerEngine) servicesFor(uow UnitOfWork) *ledgerServices {
	publisher := uow.EventBus()
	applier := services.NewTransactionApplier(uow.AccountRepository(), uow.TransactionRepository(), publisher)
	return &ledgerServices{
		applier: applier,
		accounts: services.NewAccountService(
			uow.OwnerRepository(),
			uow.AccountRepository(),
			uow.TransactionRepository(),
			publisher,
		),
		deposits: services.NewDepositService(
			uow.AccountRepository(),
			uow.DepositRepository(),
			applier,
			publisher,
			e.config.ShortfallPolicy,
		),
		yield: services.NewYieldService(
			uow.AccountRepository(),
			uow.DepositRepository(),
			uow.PayoutRepository(),
			applier,
			publisher,
		),
		snapshot: services.NewSnapshotService(
			uow.AccountRepository(),
			uow.TransactionRepository(),
			uow.SnapshotRepository(),
			publisher,
		),
	}
}

// inUnitOfWork runs fn in a fresh unit of work, committing only if fn succeeds
func (e *LedgerEngine) inUnitOfWork(ctx context.Context, fn func(uow UnitOfWork, svc *ledgerServices) error) error {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer uow.Rollback()

	if err := fn(uow, e.servicesFor(uow)); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return entities.NewPersistenceError("commit", err)
	}
	return nil
}

// ApplyTransaction applies a single ledger entry to an account
func (e *LedgerEngine) ApplyTransaction(
	ctx context.Context,
	accountID int64,
	transactionType entities.TransactionType,
	amount decimal.Decimal,
	date entities.Date,
	metadata entities.TransactionMetadata,
) (*entities.Transaction, error) {
	defer e.metrics.MeasureOperation("apply_transaction")()

	var entry *entities.Transaction
	err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
		var err error
		entry, err = svc.applier.Apply(ctx, interfaces.ApplyRequest{
			AccountID: accountID,
			Type:      transactionType,
			Amount:    amount,
			Date:      date,
			Metadata:  metadata,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	e.metrics.RecordLedgerTransaction(string(entry.TransactionType))
	return entry, nil
}

// OpenAccount creates the account of an existing owner
func (e *LedgerEngine) OpenAccount(ctx context.Context, ownerID int64, principal, monthlyRate decimal.Decimal) (*entities.Account, error) {
	var account *entities.Account
	err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
		var err error
		account, err = svc.accounts.OpenAccount(ctx, ownerID, principal, monthlyRate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CreateDeposit opens a yield deposit and credits the owner's account
func (e *LedgerEngine) CreateDeposit(ctx context.Context, ownerID int64, principal, annualRate decimal.Decimal, startDate entities.Date) (*entities.Deposit, error) {
	defer e.metrics.MeasureOperation("create_deposit")()

	var deposit *entities.Deposit
	err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
		var err error
		deposit, err = svc.deposits.CreateDeposit(ctx, ownerID, principal, annualRate, startDate, entities.TransactionMetadata{})
		return err
	})
	if err != nil {
		return nil, err
	}

	e.metrics.RecordLedgerTransaction(string(entities.TransactionTypeYieldDeposit))
	return deposit, nil
}

// DeleteDeposit closes a deposit today with a compensating deposit_deletion entry
func (e *LedgerEngine) DeleteDeposit(ctx context.Context, depositID int64) (*entities.Deposit, error) {
	var deposit *entities.Deposit
	var entry *entities.Transaction
	err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
		var err error
		deposit, entry, err = svc.deposits.DeleteDeposit(ctx, depositID, utils.Today(e.clock))
		return err
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		e.metrics.RecordLedgerTransaction(string(entry.TransactionType))
	}
	return deposit, nil
}

// ProcessWithdrawal withdraws amount today, drawing down active deposits newest first
func (e *LedgerEngine) ProcessWithdrawal(ctx context.Context, ownerID int64, amount decimal.Decimal) (*interfaces.WithdrawalResult, error) {
	defer e.metrics.MeasureOperation("process_withdrawal")()

	var result *interfaces.WithdrawalResult
	err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
		var err error
		result, err = svc.deposits.ProcessWithdrawal(ctx, ownerID, amount, utils.Today(e.clock), entities.TransactionMetadata{
			Description: "Withdrawal",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	e.metrics.RecordLedgerTransaction(string(entities.TransactionTypeWithdrawal))
	return result, nil
}

// RebuildSnapshots recomputes every monthly snapshot of an account from its ledger.
// On failure the previous snapshot set is left in place.
func (e *LedgerEngine) RebuildSnapshots(ctx context.Context, accountID int64) ([]*entities.MonthlySnapshot, error) {
	defer e.metrics.MeasureOperation("rebuild_snapshots")()

	var snapshots []*entities.MonthlySnapshot
	err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
		var err error
		snapshots, err = svc.snapshot.Rebuild(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// ReconcileAccount recomputes an account's aggregates from its ledger and repairs drift
func (e *LedgerEngine) ReconcileAccount(ctx context.Context, accountID int64) (*interfaces.ReconciliationReport, error) {
	var report *interfaces.ReconciliationReport
	err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
		var err error
		report, err = svc.accounts.Reconcile(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// RunDailyYield pays one day of yield on every eligible deposit. Each deposit
// is paid in its own unit of work, so one failure does not undo the others.
// Running the same date twice pays nothing the second time.
func (e *LedgerEngine) RunDailyYield(ctx context.Context, date entities.Date) (*interfaces.DailyYieldResult, error) {
	if date.IsZero() {
		return nil, entities.NewValidationError("date", "is required")
	}
	defer e.metrics.MeasureOperation("daily_yield")()

	var candidates []*entities.Deposit
	err := e.inUnitOfWork(ctx, func(uow UnitOfWork, _ *ledgerServices) error {
		var err error
		candidates, err = uow.DepositRepository().ListActiveStartedBy(ctx, date)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list yield candidates: %w", err)
	}

	result := &interfaces.DailyYieldResult{
		Date:        date,
		TotalAmount: decimal.Zero,
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var payout *entities.Payout
		err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
			var err error
			payout, err = svc.yield.PayDailyYield(ctx, candidate.ID, date)
			return err
		})

		switch {
		case errors.Is(err, entities.ErrDuplicatePayout):
			// Another run paid this deposit concurrently
			result.Skipped++
		case errors.Is(err, ErrStoreUnavailable):
			return result, err
		case err != nil:
			log.WithFields(log.Fields{
				"depositID": candidate.ID,
				"date":      date.String(),
				"error":     err,
			}).Error("Failed to pay daily yield")
			result.Errors = append(result.Errors, interfaces.DepositError{
				DepositID: candidate.ID,
				Reason:    err.Error(),
			})
		case payout == nil:
			result.Skipped++
		default:
			result.PaymentsProcessed++
			result.TotalAmount = result.TotalAmount.Add(payout.Amount)
		}
	}

	e.journalYieldRun(ctx, result)
	e.metrics.RecordYieldPayouts(result.PaymentsProcessed, result.TotalAmount)

	log.WithFields(log.Fields{
		"date":      date.String(),
		"processed": result.PaymentsProcessed,
		"total":     result.TotalAmount.StringFixed(2),
		"skipped":   result.Skipped,
		"failed":    result.Failed(),
	}).Info("Completed daily yield run")

	return result, nil
}

// journalYieldRun records a finished run; a failure here does not undo the payouts
func (e *LedgerEngine) journalYieldRun(ctx context.Context, result *interfaces.DailyYieldResult) {
	run := &entities.YieldRun{
		RunDate:           result.Date,
		PaymentsProcessed: result.PaymentsProcessed,
		TotalAmount:       result.TotalAmount,
		Skipped:           result.Skipped,
		Failed:            result.Failed(),
	}
	for _, depositErr := range result.Errors {
		run.Errors = append(run.Errors, entities.YieldRunError{
			DepositID: depositErr.DepositID,
			Reason:    depositErr.Reason,
		})
	}

	err := e.inUnitOfWork(ctx, func(uow UnitOfWork, _ *ledgerServices) error {
		return uow.YieldRunRepository().Create(ctx, run)
	})
	if err != nil {
		log.WithError(err).WithField("date", result.Date.String()).Warn("Failed to journal daily yield run")
	}
}

// LatestYieldRun returns the most recent journaled yield run, nil if none
func (e *LedgerEngine) LatestYieldRun(ctx context.Context) (*entities.YieldRun, error) {
	var run *entities.YieldRun
	err := e.inUnitOfWork(ctx, func(uow UnitOfWork, _ *ledgerServices) error {
		var err error
		run, err = uow.YieldRunRepository().GetLatest(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ImportBatch validates and applies a batch of external rows under a fresh
// batch ID. Invalid rows and rows that fail to apply are reported in the
// summary and do not stop the batch. Only an unavailable store aborts,
// returning the partial summary.
func (e *LedgerEngine) ImportBatch(ctx context.Context, rows []entities.ImportRow) (*interfaces.ImportSummary, error) {
	return e.ImportBatchWithID(ctx, uuid.NewString(), rows)
}

// ImportBatchWithID imports rows under a caller-chosen batch ID. Every applied
// row is journaled with the batch ID in the same unit of work, so importing
// the same batch again skips rows that are already in the ledger.
func (e *LedgerEngine) ImportBatchWithID(ctx context.Context, batchID string, rows []entities.ImportRow) (*interfaces.ImportSummary, error) {
	if batchID == "" {
		return nil, entities.NewValidationError("batch_id", "is required")
	}
	defer e.metrics.MeasureOperation("import_batch")()

	summary := &interfaces.ImportSummary{
		BatchID:   batchID,
		TotalRows: len(rows),
	}
	logger := log.WithField("batchID", summary.BatchID)

	valid, rowErrors := services.ValidateImportRows(rows)
	summary.Errors = append(summary.Errors, rowErrors...)

	accounts, err := e.resolveImportAccounts(ctx, valid, summary)
	if err != nil {
		return e.abortImport(summary, logger, err)
	}

	services.SortChronologically(valid)

	touched := make(map[int64]bool)
	for _, row := range valid {
		if err := ctx.Err(); err != nil {
			return e.abortImport(summary, logger, err)
		}

		account, ok := accounts[row.Email]
		if !ok {
			// Owner resolution already failed and was reported for this row
			continue
		}

		var deposit *entities.Deposit
		var entry *entities.Transaction
		err := e.inUnitOfWork(ctx, func(uow UnitOfWork, svc *ledgerServices) error {
			journal := uow.ImportJournalRepository()
			done, err := journal.Exists(ctx, batchID, row.RowNumber)
			if err != nil {
				return err
			}
			if done {
				return errRowAlreadyImported
			}

			deposit, entry, err = e.applyImportRow(ctx, svc, account, row)
			if err != nil {
				return err
			}

			journaled := &entities.ImportedRow{
				BatchID:   batchID,
				RowNumber: row.RowNumber,
				AccountID: account.ID,
			}
			if entry != nil {
				journaled.TransactionID = &entry.ID
			}
			if deposit != nil {
				journaled.DepositID = &deposit.ID
			}
			recorded, err := journal.Record(ctx, journaled)
			if err != nil {
				return err
			}
			if !recorded {
				// A concurrent delivery of the batch committed this row first
				return errRowAlreadyImported
			}
			return nil
		})
		switch {
		case errors.Is(err, errRowAlreadyImported):
			summary.AlreadyImported++
			touched[account.ID] = true
			continue
		case errors.Is(err, ErrStoreUnavailable):
			summary.Errors = append(summary.Errors, entities.RowError{RowNumber: row.RowNumber, Reason: err.Error()})
			return e.abortImport(summary, logger, err)
		case err != nil:
			logger.WithFields(log.Fields{
				"row":   row.RowNumber,
				"error": err,
			}).Debug("Import row rejected")
			summary.Errors = append(summary.Errors, entities.RowError{RowNumber: row.RowNumber, Reason: err.Error()})
			continue
		}

		summary.Succeeded++
		if deposit != nil {
			summary.CreatedDeposits = append(summary.CreatedDeposits, deposit)
		}
		if entry != nil {
			summary.AppliedTransactions = append(summary.AppliedTransactions, entry)
		}
		touched[account.ID] = true
	}

	if e.config.RebuildAfterImport {
		e.rebuildTouched(ctx, touched, summary)
	}

	e.finishImport(summary, logger)
	return summary, nil
}

func (e *LedgerEngine) abortImport(summary *interfaces.ImportSummary, logger *log.Entry, err error) (*interfaces.ImportSummary, error) {
	summary.AbortReason = err.Error()
	e.finishImport(summary, logger)
	return summary, err
}

// resolveImportAccounts maps every distinct email of the valid rows to its
// account, provisioning owners and accounts that do not exist yet
func (e *LedgerEngine) resolveImportAccounts(ctx context.Context, rows []*entities.ValidatedImportRow, summary *interfaces.ImportSummary) (map[string]*entities.Account, error) {
	accounts := make(map[string]*entities.Account)
	failures := make(map[string]string)

	for _, row := range rows {
		if _, done := accounts[row.Email]; done {
			continue
		}
		if reason, failed := failures[row.Email]; failed {
			summary.Errors = append(summary.Errors, entities.RowError{RowNumber: row.RowNumber, Reason: reason})
			continue
		}

		var account *entities.Account
		var created bool
		err := e.inUnitOfWork(ctx, func(_ UnitOfWork, svc *ledgerServices) error {
			var err error
			account, created, err = svc.accounts.EnsureOwnerAccount(ctx, interfaces.OwnerProfile{
				Email:     row.Email,
				FirstName: row.FirstName,
				LastName:  row.LastName,
				Phone:     row.Phone,
			})
			return err
		})
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		if err != nil {
			reason := fmt.Sprintf("failed to resolve owner %s: %v", row.Email, err)
			failures[row.Email] = reason
			summary.Errors = append(summary.Errors, entities.RowError{RowNumber: row.RowNumber, Reason: reason})
			continue
		}

		accounts[row.Email] = account
		if created {
			summary.CreatedAccounts = append(summary.CreatedAccounts, account)
		}
	}

	return accounts, nil
}

// applyImportRow turns one validated row into a deposit or a ledger entry.
// Withdrawals draw down the owner's active deposits newest first.
func (e *LedgerEngine) applyImportRow(ctx context.Context, svc *ledgerServices, account *entities.Account, row *entities.ValidatedImportRow) (*entities.Deposit, *entities.Transaction, error) {
	if row.Type == entities.TransactionTypeYieldDeposit {
		rate := e.config.DefaultAnnualYieldRate
		if row.AnnualYieldRate != nil {
			rate = *row.AnnualYieldRate
		}
		deposit, err := svc.deposits.CreateDeposit(ctx, account.OwnerID, row.Amount, rate, row.Date, row.Metadata())
		return deposit, nil, err
	}

	if row.Type == entities.TransactionTypeWithdrawal {
		result, err := svc.deposits.RecordWithdrawal(ctx, account.OwnerID, row.Amount, row.Date, row.Metadata())
		if err != nil {
			return nil, nil, err
		}
		return nil, result.Transaction, nil
	}

	amount := row.Amount
	if row.Type == entities.TransactionTypeDepositDeletion {
		// Sheets carry the removed principal as a magnitude
		amount = amount.Neg()
	}
	entry, err := svc.applier.Apply(ctx, interfaces.ApplyRequest{
		AccountID: account.ID,
		Type:      row.Type,
		Amount:    amount,
		Date:      row.Date,
		Metadata:  row.Metadata(),
	})
	return nil, entry, err
}

func (e *LedgerEngine) rebuildTouched(ctx context.Context, touched map[int64]bool, summary *interfaces.ImportSummary) {
	accountIDs := make([]int64, 0, len(touched))
	for id := range touched {
		accountIDs = append(accountIDs, id)
	}
	sort.Slice(accountIDs, func(i, j int) bool { return accountIDs[i] < accountIDs[j] })

	for _, accountID := range accountIDs {
		if _, err := e.RebuildSnapshots(ctx, accountID); err != nil {
			summary.RebuildErrors = append(summary.RebuildErrors, interfaces.AccountError{
				AccountID: accountID,
				Reason:    err.Error(),
			})
		}
	}
}

func (e *LedgerEngine) finishImport(summary *interfaces.ImportSummary, logger *log.Entry) {
	sort.SliceStable(summary.Errors, func(i, j int) bool {
		return summary.Errors[i].RowNumber < summary.Errors[j].RowNumber
	})

	e.metrics.RecordImportRows("succeeded", summary.Succeeded)
	e.metrics.RecordImportRows("failed", summary.Failed())
	for _, entry := range summary.AppliedTransactions {
		e.metrics.RecordLedgerTransaction(string(entry.TransactionType))
	}

	if e.eventPublisher != nil {
		if err := e.eventPublisher.Publish(events.BatchImportedEvent{
			BatchID:         summary.BatchID,
			TotalRows:       summary.TotalRows,
			Succeeded:       summary.Succeeded,
			Failed:          summary.Failed(),
			AlreadyImported: summary.AlreadyImported,
			NewAccounts:     len(summary.CreatedAccounts),
			Aborted:         summary.Aborted(),
			AbortReason:     summary.AbortReason,
		}); err != nil {
			logger.WithError(err).Error("Failed to publish batch imported event")
		}
	}

	fields := log.Fields{
		"total":           summary.TotalRows,
		"succeeded":       summary.Succeeded,
		"failed":          summary.Failed(),
		"alreadyImported": summary.AlreadyImported,
		"newAccounts":     len(summary.CreatedAccounts),
		"deposits":        len(summary.CreatedDeposits),
	}
	if summary.Aborted() {
		logger.WithFields(fields).WithField("reason", summary.AbortReason).Warn("Import batch aborted")
		return
	}
	logger.WithFields(fields).Info("Completed import batch")
}
