package application

import (
	"context"

	"lending/domain/entities"
	"lending/domain/interfaces"

	"github.com/shopspring/decimal"
)

// MetricsRecorder receives ledger measurements. A nil recorder disables metrics.
type MetricsRecorder interface {
	RecordLedgerTransaction(transactionType string)
	RecordYieldPayouts(count int, total decimal.Decimal)
	RecordImportRows(outcome string, count int)

	// MeasureOperation starts timing an engine operation; call the returned func when it ends
	MeasureOperation(operation string) func()
}

// DailyYieldRunner is the part of the engine the yield worker drives
type DailyYieldRunner interface {
	RunDailyYield(ctx context.Context, date entities.Date) (*interfaces.DailyYieldResult, error)
	LatestYieldRun(ctx context.Context) (*entities.YieldRun, error)
}

// BatchImporter is the part of the engine the import request handler drives
type BatchImporter interface {
	ImportBatchWithID(ctx context.Context, batchID string, rows []entities.ImportRow) (*interfaces.ImportSummary, error)
}

type noopMetrics struct{}

func (noopMetrics) RecordLedgerTransaction(string)          {}
func (noopMetrics) RecordYieldPayouts(int, decimal.Decimal) {}
func (noopMetrics) RecordImportRows(string, int)            {}
func (noopMetrics) MeasureOperation(string) func()          { return func() {} }
