package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lending/database"
	"lending/domain/entities"

	"github.com/jackc/pgx/v5"
)

const depositColumns = `
	id, owner_id, principal_amount, annual_yield_rate, start_date, status,
	last_payout_date, total_paid_out, created_at, updated_at`

// DepositRepository implements the DepositRepository interface
type DepositRepository struct {
	q Queryable
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *database.DB) *DepositRepository {
	return &DepositRepository{q: db.Pool}
}

func newDepositRepository(q Queryable) *DepositRepository {
	return &DepositRepository{q: q}
}

// Create inserts a new deposit and fills in its ID and timestamps
func (r *DepositRepository) Create(ctx context.Context, deposit *entities.Deposit) error {
	query := `
		INSERT INTO yield_deposits (owner_id, principal_amount, annual_yield_rate, start_date, status, total_paid_out)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		deposit.OwnerID,
		deposit.PrincipalAmount,
		deposit.AnnualYieldRate,
		deposit.StartDate.Time(),
		string(deposit.Status),
		deposit.TotalPaidOut,
	).Scan(&deposit.ID, &deposit.CreatedAt, &deposit.UpdatedAt)
	if err != nil {
		return persistenceError(fmt.Sprintf("create deposit for owner %d", deposit.OwnerID), err)
	}
	return nil
}

// GetByID retrieves a deposit by ID
func (r *DepositRepository) GetByID(ctx context.Context, id int64) (*entities.Deposit, error) {
	return r.getOne(ctx, `SELECT `+depositColumns+` FROM yield_deposits WHERE id = $1`, id, "get deposit")
}

// GetByIDForUpdate retrieves a deposit and locks its row until the transaction ends
func (r *DepositRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Deposit, error) {
	return r.getOne(ctx, `SELECT `+depositColumns+` FROM yield_deposits WHERE id = $1 FOR UPDATE`, id, "lock deposit")
}

// ListActiveByOwnerForUpdate locks and returns an owner's active deposits, newest first
func (r *DepositRepository) ListActiveByOwnerForUpdate(ctx context.Context, ownerID int64) ([]*entities.Deposit, error) {
	query := `
		SELECT ` + depositColumns + `
		FROM yield_deposits
		WHERE owner_id = $1 AND status = 'active'
		ORDER BY created_at DESC, id DESC
		FOR UPDATE
	`
	return r.list(ctx, query, fmt.Sprintf("lock active deposits of owner %d", ownerID), ownerID)
}

// ListActiveStartedBy returns active deposits whose start date is on or before date
func (r *DepositRepository) ListActiveStartedBy(ctx context.Context, date entities.Date) ([]*entities.Deposit, error) {
	query := `
		SELECT ` + depositColumns + `
		FROM yield_deposits
		WHERE status = 'active' AND start_date <= $1
		ORDER BY id
	`
	return r.list(ctx, query, fmt.Sprintf("list deposits started by %s", date), date.Time())
}

// ListByOwner returns all of an owner's deposits, newest first
func (r *DepositRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Deposit, error) {
	query := `
		SELECT ` + depositColumns + `
		FROM yield_deposits
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, fmt.Sprintf("list deposits of owner %d", ownerID), ownerID)
}

// Update persists principal, status and payout bookkeeping
func (r *DepositRepository) Update(ctx context.Context, deposit *entities.Deposit) error {
	var lastPayout *time.Time
	if deposit.LastPayoutDate != nil {
		t := deposit.LastPayoutDate.Time()
		lastPayout = &t
	}

	query := `
		UPDATE yield_deposits
		SET principal_amount = $2,
		    status = $3,
		    last_payout_date = $4,
		    total_paid_out = $5,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		deposit.ID,
		deposit.PrincipalAmount,
		string(deposit.Status),
		lastPayout,
		deposit.TotalPaidOut,
	).Scan(&deposit.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return entities.NewNotFoundError("deposit", deposit.ID)
	}
	if err != nil {
		return persistenceError(fmt.Sprintf("update deposit %d", deposit.ID), err)
	}
	return nil
}

func (r *DepositRepository) getOne(ctx context.Context, query string, id int64, op string) (*entities.Deposit, error) {
	deposit, err := scanDeposit(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("%s %d", op, id), err)
	}
	return deposit, nil
}

func (r *DepositRepository) list(ctx context.Context, query, op string, args ...any) ([]*entities.Deposit, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	defer rows.Close()

	var deposits []*entities.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, persistenceError("scan deposit", err)
		}
		deposits = append(deposits, deposit)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError(op, err)
	}

	return deposits, nil
}

func scanDeposit(row pgx.Row) (*entities.Deposit, error) {
	var deposit entities.Deposit
	var status string
	var startDate time.Time
	var lastPayout *time.Time

	err := row.Scan(
		&deposit.ID,
		&deposit.OwnerID,
		&deposit.PrincipalAmount,
		&deposit.AnnualYieldRate,
		&startDate,
		&status,
		&lastPayout,
		&deposit.TotalPaidOut,
		&deposit.CreatedAt,
		&deposit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	deposit.Status = entities.DepositStatus(status)
	deposit.StartDate = entities.DateOf(startDate)
	if lastPayout != nil {
		paid := entities.DateOf(*lastPayout)
		deposit.LastPayoutDate = &paid
	}
	return &deposit, nil
}
