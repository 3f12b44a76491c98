package testutil

import (
	"fmt"

	"lending/domain/entities"

	"github.com/shopspring/decimal"
)

// CreateTestOwner creates a test owner with default values
func CreateTestOwner(email string) *entities.Owner {
	return &entities.Owner{
		Email:     email,
		FirstName: "Test",
		LastName:  "Owner",
	}
}

// CreateTestAccount creates a test account whose balance equals its principal
func CreateTestAccount(ownerID int64, principal string) *entities.Account {
	p := decimal.RequireFromString(principal)
	return &entities.Account{
		OwnerID:         ownerID,
		PrincipalAmount: p,
		CurrentBalance:  p,
		MonthlyRate:     decimal.Zero,
	}
}

// CreateTestTransaction creates a ledger entry for an account
func CreateTestTransaction(accountID int64, tt entities.TransactionType, amount, date string) *entities.Transaction {
	return &entities.Transaction{
		AccountID:       accountID,
		Amount:          decimal.RequireFromString(amount),
		TransactionType: tt,
		Date:            entities.MustParseDate(date),
		Description:     fmt.Sprintf("test %s", tt),
	}
}

// CreateTestDeposit creates an active deposit with a 10% annual rate
func CreateTestDeposit(ownerID int64, principal, startDate string) *entities.Deposit {
	return &entities.Deposit{
		OwnerID:         ownerID,
		PrincipalAmount: decimal.RequireFromString(principal),
		AnnualYieldRate: decimal.RequireFromString("0.10"),
		StartDate:       entities.MustParseDate(startDate),
		Status:          entities.DepositStatusActive,
		TotalPaidOut:    decimal.Zero,
	}
}
