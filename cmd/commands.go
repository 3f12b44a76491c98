package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"lending/config"
	"lending/domain/entities"
	"lending/domain/interfaces"
	"lending/domain/utils"
	"lending/infrastructure/importsource"

	log "github.com/sirupsen/logrus"
)

// One-shot commands run without the event bus; their events are dropped.

// RunImport imports a CSV or XLSX sheet and writes the summary to out
func RunImport(ctx context.Context, out io.Writer, path, sheet string) error {
	rows, err := importsource.ReadFile(path, sheet)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"file": path,
		"rows": len(rows),
	}).Info("Read import file")

	svc, err := buildServices(ctx, config.Get(), false)
	if err != nil {
		return err
	}
	defer svc.close(context.Background())

	summary, err := svc.engine.ImportBatch(ctx, rows)
	if summary != nil {
		printImportSummary(out, summary)
	}
	if err != nil {
		return fmt.Errorf("import aborted: %w", err)
	}
	if summary.Failed() > 0 {
		return fmt.Errorf("%d of %d rows failed", summary.Failed(), summary.TotalRows)
	}
	return nil
}

func printImportSummary(out io.Writer, summary *interfaces.ImportSummary) {
	fmt.Fprintf(out, "batch %s: %d rows, %d applied, %d failed, %d new accounts, %d deposits\n",
		summary.BatchID, summary.TotalRows, summary.Succeeded, summary.Failed(),
		len(summary.CreatedAccounts), len(summary.CreatedDeposits))
	if summary.AlreadyImported > 0 {
		fmt.Fprintf(out, "  %d rows already imported\n", summary.AlreadyImported)
	}
	if summary.Aborted() {
		fmt.Fprintf(out, "  aborted: %s\n", summary.AbortReason)
	}
	for _, rowErr := range summary.Errors {
		fmt.Fprintf(out, "  row %d: %s\n", rowErr.RowNumber, rowErr.Reason)
	}
	for _, rebuildErr := range summary.RebuildErrors {
		fmt.Fprintf(out, "  account %d snapshots: %s\n", rebuildErr.AccountID, rebuildErr.Reason)
	}
}

// RunDailyYield pays yield for one date; an empty date means today (UTC)
func RunDailyYield(ctx context.Context, out io.Writer, rawDate string) error {
	date := utils.Today(utils.SystemClock{})
	if rawDate != "" {
		parsed, err := entities.ParseDate(rawDate)
		if err != nil {
			return err
		}
		date = parsed
	}

	svc, err := buildServices(ctx, config.Get(), false)
	if err != nil {
		return err
	}
	defer svc.close(context.Background())

	result, err := svc.engine.RunDailyYield(ctx, date)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "daily yield %s: %d paid, total %s, %d skipped, %d failed\n",
		result.Date, result.PaymentsProcessed, result.TotalAmount.StringFixed(2), result.Skipped, result.Failed())
	for _, depositErr := range result.Errors {
		fmt.Fprintf(out, "  deposit %d: %s\n", depositErr.DepositID, depositErr.Reason)
	}
	return nil
}

// RunRebuildSnapshots recomputes the monthly snapshots of one account
func RunRebuildSnapshots(ctx context.Context, out io.Writer, rawAccountID string) error {
	accountID, err := parseAccountID(rawAccountID)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, config.Get(), false)
	if err != nil {
		return err
	}
	defer svc.close(context.Background())

	snapshots, err := svc.engine.RebuildSnapshots(ctx, accountID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "account %d: %d monthly snapshots\n", accountID, len(snapshots))
	for _, s := range snapshots {
		fmt.Fprintf(out, "  %s  start %s  end %s  growth %s  entries %d\n",
			s.MonthEndDate, s.StartingBalance.StringFixed(2), s.EndingBalance.StringFixed(2),
			s.MonthlyGrowth.StringFixed(2), s.TransactionCount)
	}
	return nil
}

// RunReconcile compares one account's stored aggregates with its ledger and repairs drift
func RunReconcile(ctx context.Context, out io.Writer, rawAccountID string) error {
	accountID, err := parseAccountID(rawAccountID)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, config.Get(), false)
	if err != nil {
		return err
	}
	defer svc.close(context.Background())

	report, err := svc.engine.ReconcileAccount(ctx, accountID)
	if err != nil {
		return err
	}

	status := "consistent"
	if report.Repaired {
		status = "repaired"
	}
	fmt.Fprintf(out, "account %d %s: stored %s, ledger %s over %d entries\n",
		accountID, status, report.StoredBalance.StringFixed(2), report.ComputedBalance.StringFixed(2), report.TransactionCount)
	return nil
}

func parseAccountID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", raw)
	}
	return id, nil
}
