package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lending/database"
	"lending/domain/entities"
	"lending/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `
	id, account_id, amount, transaction_type, transaction_date,
	bonus_percentage, description, reference_id, created_at`

// TransactionRepository implements the TransactionRepository interface.
// Ledger entries are append-only; there is no update or delete.
type TransactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

func newTransactionRepository(q Queryable) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// Create appends a ledger entry and fills in its ID and creation time
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	query := `
		INSERT INTO ledger_transactions
		(account_id, amount, transaction_type, transaction_date, bonus_percentage, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		tx.AccountID,
		tx.Amount,
		string(tx.TransactionType),
		tx.Date.Time(),
		nullDecimal(tx.BonusPercentage),
		tx.Description,
		tx.ReferenceID,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return persistenceError(fmt.Sprintf("create %s entry for account %d", tx.TransactionType, tx.AccountID), err)
	}
	return nil
}

// GetByID retrieves a ledger entry by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE id = $1`
	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("get transaction %d", id), err)
	}
	return tx, nil
}

// ListByAccount returns an account's entries in replay order (date, then insertion)
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID int64) ([]*entities.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY transaction_date, id
	`
	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("list transactions of account %d", accountID), err)
	}
	defer rows.Close()

	var transactions []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, persistenceError("scan transaction", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate transactions", err)
	}

	return transactions, nil
}

// GetAccountTotals sums an account's signed deltas and running totals from the log
func (r *TransactionRepository) GetAccountTotals(ctx context.Context, accountID int64) (*interfaces.AccountTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE
				WHEN transaction_type IN ('withdrawal', 'adjustment_decrease') THEN -amount
				ELSE amount
			END), 0),
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'bonus'), 0),
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'withdrawal'), 0),
			COUNT(*)
		FROM ledger_transactions
		WHERE account_id = $1
	`
	var totals interfaces.AccountTotals
	err := r.q.QueryRow(ctx, query, accountID).Scan(
		&totals.NetDelta,
		&totals.TotalBonuses,
		&totals.TotalWithdrawals,
		&totals.Count,
	)
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("sum transactions of account %d", accountID), err)
	}
	return &totals, nil
}

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var tx entities.Transaction
	var txType string
	var txDate time.Time
	var bonus decimal.NullDecimal

	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Amount,
		&txType,
		&txDate,
		&bonus,
		&tx.Description,
		&tx.ReferenceID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.TransactionType = entities.TransactionType(txType)
	tx.Date = entities.DateOf(txDate)
	if bonus.Valid {
		tx.BonusPercentage = &bonus.Decimal
	}
	return &tx, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
