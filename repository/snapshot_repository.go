package repository

import (
	"context"
	"fmt"
	"time"

	"lending/database"
	"lending/domain/entities"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepository implements the SnapshotRepository interface
type SnapshotRepository struct {
	q Queryable
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{q: db.Pool}
}

func newSnapshotRepository(q Queryable) *SnapshotRepository {
	return &SnapshotRepository{q: q}
}

// ReplaceForAccount swaps an account's snapshot set. Callers run it inside a
// transaction so readers never see a partial set.
func (r *SnapshotRepository) ReplaceForAccount(ctx context.Context, accountID int64, snapshots []*entities.MonthlySnapshot) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM monthly_snapshots WHERE account_id = $1`, accountID); err != nil {
		return persistenceError(fmt.Sprintf("clear snapshots of account %d", accountID), err)
	}
	if len(snapshots) == 0 {
		return nil
	}

	query := `
		INSERT INTO monthly_snapshots
		(account_id, month_end_date, starting_balance, ending_balance, monthly_growth,
		 total_deposits, total_withdrawals, total_bonuses, total_yield, transaction_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(query,
			accountID,
			s.MonthEndDate.Time(),
			s.StartingBalance,
			s.EndingBalance,
			s.MonthlyGrowth,
			s.TotalDeposits,
			s.TotalWithdrawals,
			s.TotalBonuses,
			s.TotalYield,
			s.TransactionCount,
		)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	for _, s := range snapshots {
		if _, err := results.Exec(); err != nil {
			return persistenceError(fmt.Sprintf("insert snapshot %s of account %d", s.MonthEndDate, accountID), err)
		}
	}
	return nil
}

// ListByAccount returns an account's snapshots ordered by month
func (r *SnapshotRepository) ListByAccount(ctx context.Context, accountID int64) ([]*entities.MonthlySnapshot, error) {
	query := `
		SELECT account_id, month_end_date, starting_balance, ending_balance, monthly_growth,
		       total_deposits, total_withdrawals, total_bonuses, total_yield, transaction_count
		FROM monthly_snapshots
		WHERE account_id = $1
		ORDER BY month_end_date
	`
	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("list snapshots of account %d", accountID), err)
	}
	defer rows.Close()

	snapshots := []*entities.MonthlySnapshot{}
	for rows.Next() {
		var s entities.MonthlySnapshot
		var monthEnd time.Time
		if err := rows.Scan(
			&s.AccountID,
			&monthEnd,
			&s.StartingBalance,
			&s.EndingBalance,
			&s.MonthlyGrowth,
			&s.TotalDeposits,
			&s.TotalWithdrawals,
			&s.TotalBonuses,
			&s.TotalYield,
			&s.TransactionCount,
		); err != nil {
			return nil, persistenceError("scan snapshot", err)
		}
		s.MonthEndDate = entities.DateOf(monthEnd)
		snapshots = append(snapshots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate snapshots", err)
	}

	return snapshots, nil
}
