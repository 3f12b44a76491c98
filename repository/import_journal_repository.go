package repository

import (
	"context"
	"errors"
	"fmt"

	"lending/database"
	"lending/domain/entities"

	"github.com/jackc/pgx/v5"
)

// ImportJournalRepository implements the ImportJournalRepository interface
type ImportJournalRepository struct {
	q Queryable
}

// NewImportJournalRepository creates a new import journal repository
func NewImportJournalRepository(db *database.DB) *ImportJournalRepository {
	return &ImportJournalRepository{q: db.Pool}
}

func newImportJournalRepository(q Queryable) *ImportJournalRepository {
	return &ImportJournalRepository{q: q}
}

// Exists reports whether the row of the batch was already applied
func (r *ImportJournalRepository) Exists(ctx context.Context, batchID string, rowNumber int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM import_journal WHERE batch_id = $1 AND row_number = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, batchID, rowNumber).Scan(&exists); err != nil {
		return false, persistenceError(fmt.Sprintf("check import row %s/%d", batchID, rowNumber), err)
	}
	return exists, nil
}

// Record journals an applied row. A concurrent insert of the same row waits
// for the other transaction and then reports false.
func (r *ImportJournalRepository) Record(ctx context.Context, row *entities.ImportedRow) (bool, error) {
	query := `
		INSERT INTO import_journal (batch_id, row_number, account_id, transaction_id, deposit_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (batch_id, row_number) DO NOTHING
		RETURNING created_at
	`
	err := r.q.QueryRow(ctx, query,
		row.BatchID,
		row.RowNumber,
		row.AccountID,
		row.TransactionID,
		row.DepositID,
	).Scan(&row.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, persistenceError(fmt.Sprintf("journal import row %s/%d", row.BatchID, row.RowNumber), err)
	}
	return true, nil
}

// ListByBatch returns the journaled rows of a batch in row order
func (r *ImportJournalRepository) ListByBatch(ctx context.Context, batchID string) ([]*entities.ImportedRow, error) {
	query := `
		SELECT batch_id, row_number, account_id, transaction_id, deposit_id, created_at
		FROM import_journal
		WHERE batch_id = $1
		ORDER BY row_number
	`
	rows, err := r.q.Query(ctx, query, batchID)
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("list import journal of %s", batchID), err)
	}
	defer rows.Close()

	var journaled []*entities.ImportedRow
	for rows.Next() {
		var row entities.ImportedRow
		if err := rows.Scan(
			&row.BatchID,
			&row.RowNumber,
			&row.AccountID,
			&row.TransactionID,
			&row.DepositID,
			&row.CreatedAt,
		); err != nil {
			return nil, persistenceError("scan import journal row", err)
		}
		journaled = append(journaled, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate import journal", err)
	}

	return journaled, nil
}
