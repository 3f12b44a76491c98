package repository

import (
	"context"
	"errors"
	"fmt"

	"lending/database"
	"lending/domain/entities"

	"github.com/jackc/pgx/v5"
)

const ownerColumns = `id, email, first_name, last_name, phone, created_at`

// OwnerRepository implements the OwnerRepository interface
type OwnerRepository struct {
	q Queryable
}

// NewOwnerRepository creates a new owner repository
func NewOwnerRepository(db *database.DB) *OwnerRepository {
	return &OwnerRepository{q: db.Pool}
}

func newOwnerRepository(q Queryable) *OwnerRepository {
	return &OwnerRepository{q: q}
}

// GetByID retrieves an owner by ID
func (r *OwnerRepository) GetByID(ctx context.Context, id int64) (*entities.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE id = $1`
	owner, err := scanOwner(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("get owner %d", id), err)
	}
	return owner, nil
}

// GetByEmail retrieves an owner by normalized email
func (r *OwnerRepository) GetByEmail(ctx context.Context, email string) (*entities.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE email = $1`
	owner, err := scanOwner(r.q.QueryRow(ctx, query, entities.NormalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("get owner by email %s", email), err)
	}
	return owner, nil
}

// Create inserts a new owner and fills in its ID and creation time
func (r *OwnerRepository) Create(ctx context.Context, owner *entities.Owner) error {
	owner.Email = entities.NormalizeEmail(owner.Email)

	query := `
		INSERT INTO owners (email, first_name, last_name, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query, owner.Email, owner.FirstName, owner.LastName, owner.Phone).
		Scan(&owner.ID, &owner.CreatedAt)
	if err != nil {
		return persistenceError(fmt.Sprintf("create owner %s", owner.Email), err)
	}
	return nil
}

func scanOwner(row pgx.Row) (*entities.Owner, error) {
	var owner entities.Owner
	err := row.Scan(
		&owner.ID,
		&owner.Email,
		&owner.FirstName,
		&owner.LastName,
		&owner.Phone,
		&owner.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &owner, nil
}
