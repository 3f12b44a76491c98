package repository

import (
	"context"
	"testing"

	"lending/domain/entities"
	"lending/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewDepositRepository(testDB.DB)
	ctx := context.Background()

	owner, _ := seedAccount(t, testDB, "saver@example.com", "0")

	first := testutil.CreateTestDeposit(owner.ID, "100", "2024-01-01")
	second := testutil.CreateTestDeposit(owner.ID, "200", "2024-02-01")
	future := testutil.CreateTestDeposit(owner.ID, "50", "2024-06-01")
	for _, d := range []*entities.Deposit{first, second, future} {
		require.NoError(t, repo.Create(ctx, d))
		assert.NotZero(t, d.ID)
	}

	t.Run("get by id", func(t *testing.T) {
		stored, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.PrincipalAmount.Equal(decimal.NewFromInt(100)))
		assert.True(t, stored.AnnualYieldRate.Equal(decimal.RequireFromString("0.10")))
		assert.Equal(t, "2024-01-01", stored.StartDate.String())
		assert.Nil(t, stored.LastPayoutDate)
		assert.True(t, stored.IsActive())

		missing, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("active deposits come newest first", func(t *testing.T) {
		uow := CreateTestUnitOfWork(testDB.DB, nil)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		deposits, err := uow.DepositRepository().ListActiveByOwnerForUpdate(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, deposits, 3)
		assert.Equal(t, future.ID, deposits[0].ID)
		assert.Equal(t, second.ID, deposits[1].ID)
		assert.Equal(t, first.ID, deposits[2].ID)
	})

	t.Run("started by filters future deposits", func(t *testing.T) {
		deposits, err := repo.ListActiveStartedBy(ctx, entities.MustParseDate("2024-03-01"))
		require.NoError(t, err)
		require.Len(t, deposits, 2)
		assert.Equal(t, first.ID, deposits[0].ID)
		assert.Equal(t, second.ID, deposits[1].ID)
	})

	t.Run("update persists payout bookkeeping and closing", func(t *testing.T) {
		second.RecordPayout(entities.MustParseDate("2024-03-01"), decimal.RequireFromString("0.05"))
		second.Reduce(decimal.NewFromInt(200))
		require.NoError(t, repo.Update(ctx, second))

		stored, err := repo.GetByID(ctx, second.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive())
		assert.True(t, stored.PrincipalAmount.IsZero())
		require.NotNil(t, stored.LastPayoutDate)
		assert.Equal(t, "2024-03-01", stored.LastPayoutDate.String())
		assert.True(t, stored.TotalPaidOut.Equal(decimal.RequireFromString("0.05")))

		active, err := repo.ListActiveStartedBy(ctx, entities.MustParseDate("2024-12-31"))
		require.NoError(t, err)
		assert.Len(t, active, 2)

		all, err := repo.ListByOwner(ctx, owner.ID)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("zero principal must be inactive", func(t *testing.T) {
		first.PrincipalAmount = decimal.Zero
		err := repo.Update(ctx, first)
		assert.ErrorIs(t, err, entities.ErrPersistence)
	})
}
