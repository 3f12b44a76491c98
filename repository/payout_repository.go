package repository

import (
	"context"
	"fmt"
	"time"

	"lending/database"
	"lending/domain/entities"
)

// PayoutRepository implements the PayoutRepository interface
type PayoutRepository struct {
	q Queryable
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *database.DB) *PayoutRepository {
	return &PayoutRepository{q: db.Pool}
}

func newPayoutRepository(q Queryable) *PayoutRepository {
	return &PayoutRepository{q: q}
}

// Create inserts a payout. The (deposit, date) unique key turns a concurrent
// second payout into ErrDuplicatePayout.
func (r *PayoutRepository) Create(ctx context.Context, payout *entities.Payout) error {
	query := `
		INSERT INTO yield_payouts (deposit_id, amount, payout_date, transaction_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		payout.DepositID,
		payout.Amount,
		payout.PayoutDate.Time(),
		payout.TransactionID,
	).Scan(&payout.ID, &payout.CreatedAt)

	if isUniqueViolation(err, "yield_payouts_deposit_date_key") {
		return fmt.Errorf("%w: deposit %d on %s", entities.ErrDuplicatePayout, payout.DepositID, payout.PayoutDate)
	}
	if err != nil {
		return persistenceError(fmt.Sprintf("create payout for deposit %d", payout.DepositID), err)
	}
	return nil
}

// ExistsForDate reports whether a deposit was already paid for date
func (r *PayoutRepository) ExistsForDate(ctx context.Context, depositID int64, date entities.Date) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM yield_payouts WHERE deposit_id = $1 AND payout_date = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, depositID, date.Time()).Scan(&exists); err != nil {
		return false, persistenceError(fmt.Sprintf("check payout for deposit %d on %s", depositID, date), err)
	}
	return exists, nil
}

// ListByDeposit returns a deposit's payouts in date order
func (r *PayoutRepository) ListByDeposit(ctx context.Context, depositID int64) ([]*entities.Payout, error) {
	query := `
		SELECT id, deposit_id, amount, payout_date, transaction_id, created_at
		FROM yield_payouts
		WHERE deposit_id = $1
		ORDER BY payout_date
	`
	rows, err := r.q.Query(ctx, query, depositID)
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("list payouts of deposit %d", depositID), err)
	}
	defer rows.Close()

	var payouts []*entities.Payout
	for rows.Next() {
		var payout entities.Payout
		var payoutDate time.Time
		if err := rows.Scan(
			&payout.ID,
			&payout.DepositID,
			&payout.Amount,
			&payoutDate,
			&payout.TransactionID,
			&payout.CreatedAt,
		); err != nil {
			return nil, persistenceError("scan payout", err)
		}
		payout.PayoutDate = entities.DateOf(payoutDate)
		payouts = append(payouts, &payout)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate payouts", err)
	}

	return payouts, nil
}
