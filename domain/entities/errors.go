package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrNotFound matches every *NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance is returned when a debit would take the balance below zero
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientDepositPrincipal is returned when a withdrawal exceeds the
	// active deposit principal and the shortfall policy is reject
	ErrInsufficientDepositPrincipal = errors.New("withdrawal exceeds active deposit principal")

	// ErrDuplicatePayout is returned when a payout already exists for (deposit, date)
	ErrDuplicatePayout = errors.New("payout already exists for deposit and date")

	// ErrPersistence matches every *PersistenceError
	ErrPersistence = errors.New("persistence failure")

	// ErrAccountExists is returned when an owner already holds an account
	ErrAccountExists = errors.New("account already exists for owner")
)

// ValidationError describes a malformed input field
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError names the referenced entity that does not exist
type NotFoundError struct {
	Entity string
	Key    string
}

// NewNotFoundError creates a not-found error for an entity key
func NewNotFoundError(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError wraps a storage layer failure
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err as a storage failure of op
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
