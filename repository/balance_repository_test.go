package repository

import (
	"context"
	"sync"
	"testing"

	"splitledger/models"
	"splitledger/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUsers(t *testing.T, ctx context.Context, repo *UserRepository, names ...string) []*models.User {
	t.Helper()
	users := make([]*models.User, 0, len(names))
	for _, name := range names {
		user := testutil.CreateTestUser(name)
		require.NoError(t, repo.Create(ctx, user))
		users = append(users, user)
	}
	return users
}

func TestBalanceRepository_Apply(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	users := createUsers(t, ctx, NewUserRepository(testDB.DB), "alice", "bob")
	alice, bob := users[0], users[1]
	repo := NewBalanceRepository(testDB.DB)

	t.Run("creates then accumulates one row per pair", func(t *testing.T) {
		key := models.NewPairKey(nil, bob.ID, alice.ID, "USD")

		row, err := repo.Apply(ctx, key, decimal.RequireFromString("20"))
		require.NoError(t, err)
		assert.True(t, row.Amount.Equal(decimal.RequireFromString("20")))

		row, err = repo.Apply(ctx, key, decimal.RequireFromString("5.25"))
		require.NoError(t, err)
		assert.True(t, row.Amount.Equal(decimal.RequireFromString("25.25")))

		rows, err := repo.GetPair(ctx, alice.ID, bob.ID, false)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, alice.ID, rows[0].UserA)
		assert.Nil(t, rows[0].GroupID)
	})

	t.Run("rejects non canonical key", func(t *testing.T) {
		_, err := repo.Apply(ctx, models.PairKey{UserA: bob.ID, UserB: alice.ID, Currency: "USD"}, decimal.NewFromInt(1))
		require.Error(t, err)
	})

	t.Run("currencies are separate rows", func(t *testing.T) {
		key := models.NewPairKey(nil, alice.ID, bob.ID, "EUR")
		_, err := repo.Apply(ctx, key, decimal.NewFromInt(-7))
		require.NoError(t, err)

		rows, err := repo.GetByUser(ctx, bob.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}

func TestBalanceRepository_ConcurrentApply(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	users := createUsers(t, ctx, NewUserRepository(testDB.DB), "carol", "dave")
	repo := NewBalanceRepository(testDB.DB)
	key := models.NewPairKey(nil, users[0].ID, users[1].ID, "USD")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Apply(ctx, key, decimal.NewFromInt(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := repo.GetPair(ctx, users[0].ID, users[1].ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(20)))
}

func TestBalanceRepository_GroupScopesAndDeleteDirect(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	users := createUsers(t, ctx, NewUserRepository(testDB.DB), "erin", "frank")
	erin, frank := users[0], users[1]

	group := testutil.CreateTestGroup("Trip", erin.ID)
	require.NoError(t, NewGroupRepository(testDB.DB).Create(ctx, group))

	repo := NewBalanceRepository(testDB.DB)
	_, err := repo.Apply(ctx, models.NewPairKey(nil, erin.ID, frank.ID, "USD"), decimal.Zero)
	require.NoError(t, err)
	_, err = repo.Apply(ctx, models.NewPairKey(&group.ID, erin.ID, frank.ID, "USD"), decimal.NewFromInt(12))
	require.NoError(t, err)

	groupRows, err := repo.GetByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, groupRows, 1)
	assert.Equal(t, group.ID, *groupRows[0].GroupID)

	pairRows, err := repo.GetPair(ctx, frank.ID, erin.ID, true)
	require.NoError(t, err)
	assert.Len(t, pairRows, 2)

	removed, err := repo.DeleteDirect(ctx, frank.ID, erin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	pairRows, err = repo.GetPair(ctx, erin.ID, frank.ID, false)
	require.NoError(t, err)
	require.Len(t, pairRows, 1)
	assert.NotNil(t, pairRows[0].GroupID)
}
