package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lending/database"
	"lending/domain/entities"

	"github.com/jackc/pgx/v5"
)

const yieldRunColumns = `id, run_date, payments_processed, total_amount, skipped, failed, errors, created_at`

// YieldRunRepository implements the YieldRunRepository interface
type YieldRunRepository struct {
	q Queryable
}

// NewYieldRunRepository creates a new yield run repository
func NewYieldRunRepository(db *database.DB) *YieldRunRepository {
	return &YieldRunRepository{q: db.Pool}
}

func newYieldRunRepository(q Queryable) *YieldRunRepository {
	return &YieldRunRepository{q: q}
}

// Create records a finished yield run
func (r *YieldRunRepository) Create(ctx context.Context, run *entities.YieldRun) error {
	runErrors := run.Errors
	if runErrors == nil {
		runErrors = []entities.YieldRunError{}
	}
	errorsJSON, err := json.Marshal(runErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal yield run errors: %w", err)
	}

	query := `
		INSERT INTO yield_runs (run_date, payments_processed, total_amount, skipped, failed, errors)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = r.q.QueryRow(ctx, query,
		run.RunDate.Time(),
		run.PaymentsProcessed,
		run.TotalAmount,
		run.Skipped,
		run.Failed,
		errorsJSON,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return persistenceError(fmt.Sprintf("record yield run for %s", run.RunDate), err)
	}
	return nil
}

// GetLatest returns the run with the latest run date
func (r *YieldRunRepository) GetLatest(ctx context.Context) (*entities.YieldRun, error) {
	query := `SELECT ` + yieldRunColumns + ` FROM yield_runs ORDER BY run_date DESC, id DESC LIMIT 1`

	run, err := scanYieldRun(r.q.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("get latest yield run", err)
	}
	return run, nil
}

// ListByDate returns every run recorded for date, oldest first
func (r *YieldRunRepository) ListByDate(ctx context.Context, date entities.Date) ([]*entities.YieldRun, error) {
	query := `SELECT ` + yieldRunColumns + ` FROM yield_runs WHERE run_date = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, date.Time())
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("list yield runs for %s", date), err)
	}
	defer rows.Close()

	var runs []*entities.YieldRun
	for rows.Next() {
		run, err := scanYieldRun(rows)
		if err != nil {
			return nil, persistenceError("scan yield run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate yield runs", err)
	}

	return runs, nil
}

func scanYieldRun(row pgx.Row) (*entities.YieldRun, error) {
	var run entities.YieldRun
	var runDate time.Time
	var errorsJSON []byte

	err := row.Scan(
		&run.ID,
		&runDate,
		&run.PaymentsProcessed,
		&run.TotalAmount,
		&run.Skipped,
		&run.Failed,
		&errorsJSON,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.RunDate = entities.DateOf(runDate)
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &run.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yield run errors: %w", err)
		}
	}
	return &run, nil
}
