package services

import (
	"testing"

	"lending/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow(n int) entities.ImportRow {
	return entities.ImportRow{
		RowNumber:       n,
		Email:           "  Ada@Example.com ",
		TransactionType: "bonus",
		Amount:          "125.50",
		TransactionDate: "2024-02-29",
		BonusPercentage: "0.05",
		Description:     " loyalty ",
	}
}

func TestValidateImportRow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(r *entities.ImportRow)
		field   string
		checkFn func(t *testing.T, row *entities.ValidatedImportRow)
	}{
		{
			name:   "normalizes a valid row",
			mutate: func(r *entities.ImportRow) {},
			checkFn: func(t *testing.T, row *entities.ValidatedImportRow) {
				assert.Equal(t, "ada@example.com", row.Email)
				assert.Equal(t, entities.TransactionTypeBonus, row.Type)
				assert.True(t, d("125.50").Equal(row.Amount))
				assert.Equal(t, "2024-02-29", row.Date.String())
				require.NotNil(t, row.BonusPercentage)
				assert.True(t, d("0.05").Equal(*row.BonusPercentage))
				assert.Nil(t, row.AnnualYieldRate)
				assert.Equal(t, "loyalty", row.Description)
			},
		},
		{
			name:   "transaction type is case insensitive",
			mutate: func(r *entities.ImportRow) { r.TransactionType = " Monthly_Payment " },
			checkFn: func(t *testing.T, row *entities.ValidatedImportRow) {
				assert.Equal(t, entities.TransactionTypeMonthlyPayment, row.Type)
			},
		},
		{
			name:   "spreadsheet serial date",
			mutate: func(r *entities.ImportRow) { r.TransactionDate = "45292" },
			checkFn: func(t *testing.T, row *entities.ValidatedImportRow) {
				assert.Equal(t, "2024-01-01", row.Date.String())
			},
		},
		{
			name:   "spreadsheet serial with time fraction keeps the day",
			mutate: func(r *entities.ImportRow) { r.TransactionDate = "45292.75" },
			checkFn: func(t *testing.T, row *entities.ValidatedImportRow) {
				assert.Equal(t, "2024-01-01", row.Date.String())
			},
		},
		{
			name:   "yield deposit carries its rate",
			mutate: func(r *entities.ImportRow) {
				r.TransactionType = "yield_deposit"
				r.AnnualYieldRate = "0.045"
			},
			checkFn: func(t *testing.T, row *entities.ValidatedImportRow) {
				require.NotNil(t, row.AnnualYieldRate)
				assert.True(t, d("0.045").Equal(*row.AnnualYieldRate))
			},
		},
		{name: "missing email", mutate: func(r *entities.ImportRow) { r.Email = " " }, field: "email"},
		{name: "malformed email", mutate: func(r *entities.ImportRow) { r.Email = "not-an-email" }, field: "email"},
		{name: "display name is not an address", mutate: func(r *entities.ImportRow) { r.Email = "Ada <ada@example.com>" }, field: "email"},
		{name: "unknown type", mutate: func(r *entities.ImportRow) { r.TransactionType = "refund" }, field: "transaction_type"},
		{name: "non numeric amount", mutate: func(r *entities.ImportRow) { r.Amount = "12,50" }, field: "amount"},
		{name: "zero amount", mutate: func(r *entities.ImportRow) { r.Amount = "0" }, field: "amount"},
		{name: "negative amount", mutate: func(r *entities.ImportRow) { r.Amount = "-3" }, field: "amount"},
		{name: "missing date", mutate: func(r *entities.ImportRow) { r.TransactionDate = "" }, field: "transaction_date"},
		{name: "unparseable date", mutate: func(r *entities.ImportRow) { r.TransactionDate = "29/02/2024" }, field: "transaction_date"},
		{name: "impossible calendar date", mutate: func(r *entities.ImportRow) { r.TransactionDate = "2023-02-29" }, field: "transaction_date"},
		{name: "serial out of range", mutate: func(r *entities.ImportRow) { r.TransactionDate = "0" }, field: "transaction_date"},
		{name: "bonus percentage above one", mutate: func(r *entities.ImportRow) { r.BonusPercentage = "5" }, field: "bonus_percentage"},
		{name: "negative yield rate", mutate: func(r *entities.ImportRow) { r.AnnualYieldRate = "-0.01" }, field: "annual_yield_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := validRow(1)
			tt.mutate(&raw)
			row, err := ValidateImportRow(raw)

			if tt.field != "" {
				var validationErr *entities.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.field, validationErr.Field)
				assert.Nil(t, row)
				return
			}
			require.NoError(t, err)
			tt.checkFn(t, row)
		})
	}
}

func TestValidateImportRows(t *testing.T) {
	t.Parallel()

	bad := validRow(2)
	bad.Amount = "abc"
	worse := validRow(4)
	worse.Email = "nobody"

	valid, rowErrors := ValidateImportRows([]entities.ImportRow{validRow(1), bad, validRow(3), worse})

	require.Len(t, valid, 2)
	assert.Equal(t, 1, valid[0].RowNumber)
	assert.Equal(t, 3, valid[1].RowNumber)
	require.Len(t, rowErrors, 2)
	assert.Equal(t, 2, rowErrors[0].RowNumber)
	assert.Contains(t, rowErrors[0].Reason, "amount")
	assert.Equal(t, 4, rowErrors[1].RowNumber)
	assert.Contains(t, rowErrors[1].Reason, "email")
}

func TestSortChronologically(t *testing.T) {
	t.Parallel()

	rows := []*entities.ValidatedImportRow{
		{RowNumber: 1, Date: date("2024-03-01")},
		{RowNumber: 2, Date: date("2024-01-01")},
		{RowNumber: 3, Date: date("2024-03-01")},
		{RowNumber: 4, Date: date("2024-01-01")},
	}

	SortChronologically(rows)

	var order []int
	for _, r := range rows {
		order = append(order, r.RowNumber)
	}
	assert.Equal(t, []int{2, 4, 1, 3}, order)
}
