package repository

import (
	"context"
	"testing"
	"time"

	"drawpool/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_DebitBalance(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, "user-1", 500)
	require.NoError(t, err)

	t.Run("debit within balance", func(t *testing.T) {
		user, err := repo.DebitBalance(ctx, "user-1", 300)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(200), user.Balance)
		assert.Equal(t, int64(300), user.TotalSpent)
	})

	t.Run("debit beyond balance matches no row", func(t *testing.T) {
		user, err := repo.DebitBalance(ctx, "user-1", 201)
		require.NoError(t, err)
		assert.Nil(t, user)

		current, err := repo.GetByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(200), current.Balance)
	})

	t.Run("credit", func(t *testing.T) {
		user, err := repo.CreditBalance(ctx, "user-1", 50)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(250), user.Balance)
	})

	t.Run("unknown user", func(t *testing.T) {
		user, err := repo.GetByID(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, user)

		credited, err := repo.CreditBalance(ctx, "nobody", 50)
		require.NoError(t, err)
		assert.Nil(t, credited)
	})
}

func TestUserRepository_ConsumeFreeClaim(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, "user-1", 0)
	require.NoError(t, err)

	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tomorrow := today.Add(24 * time.Hour)

	first, err := repo.ConsumeFreeClaim(ctx, "user-1", today, 2)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, first.FreeClaimsRemaining)
	require.NotNil(t, first.FreePeriodStart)
	assert.True(t, first.FreePeriodStart.Equal(today))

	second, err := repo.ConsumeFreeClaim(ctx, "user-1", today, 2)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, 0, second.FreeClaimsRemaining)

	exhausted, err := repo.ConsumeFreeClaim(ctx, "user-1", today, 2)
	require.NoError(t, err)
	assert.Nil(t, exhausted)

	reset, err := repo.ConsumeFreeClaim(ctx, "user-1", tomorrow, 2)
	require.NoError(t, err)
	require.NotNil(t, reset)
	assert.Equal(t, 1, reset.FreeClaimsRemaining)
	assert.True(t, reset.FreePeriodStart.Equal(tomorrow))
}
