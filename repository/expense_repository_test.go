package repository

import (
	"context"
	"testing"

	"splitledger/models"
	"splitledger/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	users := createUsers(t, ctx, NewUserRepository(testDB.DB), "gina", "hank", "ivan")
	gina, hank, ivan := users[0], users[1], users[2]
	repo := NewExpenseRepository(testDB.DB)

	expense := testutil.CreateTestExpense(gina.ID, hank.ID, "40")
	require.NoError(t, repo.Create(ctx, expense))
	assert.NotZero(t, expense.ID)

	t.Run("get loads participants", func(t *testing.T) {
		loaded, err := repo.GetByID(ctx, expense.ID, false)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, models.ExpenseStatusActive, loaded.Status)
		assert.Len(t, loaded.Participants, 2)
		assert.True(t, loaded.ContributionTotal().IsZero())
	})

	t.Run("missing expense returns nil", func(t *testing.T) {
		loaded, err := repo.GetByID(ctx, expense.ID+1000, true)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("update replaces participants", func(t *testing.T) {
		expense.Amount = decimal.RequireFromString("30")
		expense.Participants = []*models.ExpenseParticipant{
			{UserID: gina.ID, Amount: decimal.RequireFromString("20")},
			{UserID: hank.ID, Amount: decimal.RequireFromString("-10")},
			{UserID: ivan.ID, Amount: decimal.RequireFromString("-10")},
		}
		require.NoError(t, repo.Update(ctx, expense))

		loaded, err := repo.GetByID(ctx, expense.ID, false)
		require.NoError(t, err)
		assert.True(t, loaded.Amount.Equal(decimal.RequireFromString("30")))
		assert.Equal(t, []int64{gina.ID, hank.ID, ivan.ID}, loaded.ParticipantIDs())
	})

	t.Run("listing by friend and user", func(t *testing.T) {
		withFriend, err := repo.ListWithFriend(ctx, hank.ID, ivan.ID, 10)
		require.NoError(t, err)
		require.Len(t, withFriend, 1)
		assert.Len(t, withFriend[0].Participants, 3)

		byUser, err := repo.ListByUser(ctx, ivan.ID, 0)
		require.NoError(t, err)
		assert.Len(t, byUser, 1)
	})

	t.Run("deleted expenses drop out of listings", func(t *testing.T) {
		require.NoError(t, repo.MarkDeleted(ctx, expense.ID))

		loaded, err := repo.GetByID(ctx, expense.ID, false)
		require.NoError(t, err)
		assert.True(t, loaded.IsDeleted())

		byUser, err := repo.ListByUser(ctx, gina.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, byUser)
	})
}

func TestAuditLogRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	users := createUsers(t, ctx, NewUserRepository(testDB.DB), "judy", "kyle")
	expense := testutil.CreateTestExpense(users[0].ID, users[1].ID, "10")
	require.NoError(t, NewExpenseRepository(testDB.DB).Create(ctx, expense))

	repo := NewAuditLogRepository(testDB.DB)
	require.NoError(t, repo.Record(ctx, &models.ExpenseAuditEntry{
		ExpenseID: expense.ID,
		Action:    models.AuditActionCreated,
		ActorID:   users[0].ID,
	}))
	require.NoError(t, repo.Record(ctx, &models.ExpenseAuditEntry{
		ExpenseID: expense.ID,
		Action:    models.AuditActionDeleted,
		ActorID:   users[1].ID,
		Metadata:  map[string]any{"amount": "10"},
	}))

	entries, err := repo.GetByExpense(ctx, expense.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionCreated, entries[0].Action)
	assert.Nil(t, entries[0].Metadata)
	assert.Equal(t, "10", entries[1].Metadata["amount"])

	detail := &models.ExpenseDetail{Expense: expense, History: entries}
	actor, ok := detail.LastActor(models.AuditActionDeleted)
	require.True(t, ok)
	assert.Equal(t, users[1].ID, actor)
}
