package repository

import (
	"context"
	"errors"
	"fmt"

	"lending/database"
	"lending/domain/entities"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `
	id, owner_id, principal_amount, current_balance, monthly_rate,
	total_bonuses, total_withdrawals, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepository(q Queryable) *AccountRepository {
	return &AccountRepository{q: q}
}

// Create inserts a new account; a second account for the same owner fails with ErrAccountExists
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) error {
	query := `
		INSERT INTO accounts (owner_id, principal_amount, current_balance, monthly_rate, total_bonuses, total_withdrawals)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		account.OwnerID,
		account.PrincipalAmount,
		account.CurrentBalance,
		account.MonthlyRate,
		account.TotalBonuses,
		account.TotalWithdrawals,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if isUniqueViolation(err, "accounts_owner_id_key") {
		return fmt.Errorf("%w: owner %d", entities.ErrAccountExists, account.OwnerID)
	}
	if err != nil {
		return persistenceError(fmt.Sprintf("create account for owner %d", account.OwnerID), err)
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id, "get account")
}

// GetByOwnerID retrieves the account of an owner
func (r *AccountRepository) GetByOwnerID(ctx context.Context, ownerID int64) (*entities.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1`, ownerID, "get account for owner")
}

// GetByIDForUpdate retrieves an account and locks its row until the transaction ends
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id, "lock account")
}

// GetByOwnerIDForUpdate retrieves an owner's account and locks its row until the transaction ends
func (r *AccountRepository) GetByOwnerIDForUpdate(ctx context.Context, ownerID int64) (*entities.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 FOR UPDATE`, ownerID, "lock account for owner")
}

// UpdateBalances persists the balance and running totals of an account
func (r *AccountRepository) UpdateBalances(ctx context.Context, account *entities.Account) error {
	query := `
		UPDATE accounts
		SET current_balance = $2,
		    total_bonuses = $3,
		    total_withdrawals = $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		account.ID,
		account.CurrentBalance,
		account.TotalBonuses,
		account.TotalWithdrawals,
	).Scan(&account.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return entities.NewNotFoundError("account", account.ID)
	}
	if err != nil {
		return persistenceError(fmt.Sprintf("update balances of account %d", account.ID), err)
	}
	return nil
}

// List returns every account ordered by ID
func (r *AccountRepository) List(ctx context.Context) ([]*entities.Account, error) {
	rows, err := r.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, persistenceError("list accounts", err)
	}
	defer rows.Close()

	var accounts []*entities.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, persistenceError("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate accounts", err)
	}

	return accounts, nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, key int64, op string) (*entities.Account, error) {
	account, err := scanAccount(r.q.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("%s %d", op, key), err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var account entities.Account
	err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.PrincipalAmount,
		&account.CurrentBalance,
		&account.MonthlyRate,
		&account.TotalBonuses,
		&account.TotalWithdrawals,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
