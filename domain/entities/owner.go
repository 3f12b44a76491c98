package entities

import (
	"strings"
	"time"
)

// Owner is the identity that holds an account and its deposits
type Owner struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Phone     string    `db:"phone"`
	CreatedAt time.Time `db:"created_at"`
}

// NormalizeEmail lower-cases and trims an email for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName returns the owner's full name, or the email when no name is known
func (o *Owner) DisplayName() string {
	name := strings.TrimSpace(o.FirstName + " " + o.LastName)
	if name == "" {
		return o.Email
	}
	return name
}
