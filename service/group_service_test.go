package service

import (
	"context"
	"testing"

	"splitledger/events"
	"splitledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGroupServiceWithMocks(ctx context.Context) (GroupService, *MockUnitOfWork) {
	mockFactory := new(MockUnitOfWorkFactory)
	mockUoW := NewMockUnitOfWork()
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	return NewGroupService(mockFactory), mockUoW
}

func TestGroupService_CreateGroup(t *testing.T) {
	ctx := context.Background()
	service, mockUoW := newGroupServiceWithMocks(ctx)
	mockUoW.On("Commit").Return(nil)

	creator := &models.User{ID: 1, Email: "alice@example.com"}
	mockUoW.UserRepo.On("GetByID", ctx, int64(1)).Return(creator, nil)
	mockUoW.GroupRepo.On("Create", ctx, mock.MatchedBy(func(g *models.Group) bool {
		return g.Name == "Ski trip" && g.CreatedBy == 1
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Group).ID = 5
	}).Return(nil)
	mockUoW.GroupRepo.On("AddMember", ctx, int64(5), int64(1)).Return(true, nil)
	mockUoW.Publisher.On("Publish", events.GroupMemberAddedEvent{GroupID: 5, UserID: 1, AddedBy: 1}).Return()

	detail, err := service.CreateGroup(ctx, 1, "  Ski trip ")

	require.NoError(t, err)
	assert.Equal(t, int64(5), detail.Group.ID)
	assert.True(t, detail.HasMember(1))
	mockUoW.AssertRepositoryExpectations(t)
}

func TestGroupService_AddMember(t *testing.T) {
	ctx := context.Background()

	t.Run("non member cannot add", func(t *testing.T) {
		service, mockUoW := newGroupServiceWithMocks(ctx)
		mockUoW.GroupRepo.On("GetByID", ctx, int64(5)).Return(&models.Group{ID: 5}, nil)
		mockUoW.GroupRepo.On("IsMember", ctx, int64(5), int64(3)).Return(false, nil)

		assert.ErrorIs(t, service.AddMember(ctx, 5, 3, 2), ErrUnauthorized)
	})

	t.Run("existing member is a no-op", func(t *testing.T) {
		service, mockUoW := newGroupServiceWithMocks(ctx)
		mockUoW.GroupRepo.On("GetByID", ctx, int64(5)).Return(&models.Group{ID: 5}, nil)
		mockUoW.GroupRepo.On("IsMember", ctx, int64(5), int64(1)).Return(true, nil)
		mockUoW.UserRepo.On("GetByID", ctx, int64(2)).Return(&models.User{ID: 2}, nil)
		mockUoW.GroupRepo.On("AddMember", ctx, int64(5), int64(2)).Return(false, nil)

		require.NoError(t, service.AddMember(ctx, 5, 1, 2))
		mockUoW.AssertNotCalled(t, "Commit")
		mockUoW.Publisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("unknown group", func(t *testing.T) {
		service, mockUoW := newGroupServiceWithMocks(ctx)
		mockUoW.GroupRepo.On("GetByID", ctx, int64(6)).Return(nil, nil)

		assert.ErrorIs(t, service.AddMember(ctx, 6, 1, 2), ErrNotFound)
	})
}

func TestGroupService_LeaveGroup(t *testing.T) {
	ctx := context.Background()
	groupID := int64(5)

	t.Run("outstanding balance blocks leaving", func(t *testing.T) {
		service, mockUoW := newGroupServiceWithMocks(ctx)
		mockUoW.GroupRepo.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID}, nil)
		mockUoW.GroupRepo.On("IsMember", ctx, groupID, int64(2)).Return(true, nil)
		mockUoW.BalanceRepo.On("GetByGroup", ctx, groupID).Return([]*models.LedgerRow{
			{GroupID: &groupID, UserA: 1, UserB: 2, Currency: "USD", Amount: d("3")},
		}, nil)

		assert.ErrorIs(t, service.LeaveGroup(ctx, groupID, 2), ErrOutstandingBalance)
		mockUoW.GroupRepo.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("other members' debts do not block", func(t *testing.T) {
		service, mockUoW := newGroupServiceWithMocks(ctx)
		mockUoW.On("Commit").Return(nil)
		mockUoW.GroupRepo.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID}, nil)
		mockUoW.GroupRepo.On("IsMember", ctx, groupID, int64(2)).Return(true, nil)
		mockUoW.BalanceRepo.On("GetByGroup", ctx, groupID).Return([]*models.LedgerRow{
			{GroupID: &groupID, UserA: 1, UserB: 3, Currency: "USD", Amount: d("3")},
			{GroupID: &groupID, UserA: 1, UserB: 2, Currency: "USD", Amount: d("0")},
		}, nil)
		mockUoW.GroupRepo.On("RemoveMember", ctx, groupID, int64(2)).Return(nil)

		require.NoError(t, service.LeaveGroup(ctx, groupID, 2))
		mockUoW.AssertCalled(t, "Commit")
	})
}

func TestGroupService_DeleteGroup(t *testing.T) {
	ctx := context.Background()
	groupID := int64(5)

	t.Run("only the creator", func(t *testing.T) {
		service, mockUoW := newGroupServiceWithMocks(ctx)
		mockUoW.GroupRepo.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID, CreatedBy: 1}, nil)
		mockUoW.GroupRepo.On("IsMember", ctx, groupID, int64(2)).Return(true, nil)

		assert.ErrorIs(t, service.DeleteGroup(ctx, groupID, 2), ErrUnauthorized)
	})

	t.Run("unsettled group", func(t *testing.T) {
		service, mockUoW := newGroupServiceWithMocks(ctx)
		mockUoW.GroupRepo.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID, CreatedBy: 1}, nil)
		mockUoW.GroupRepo.On("IsMember", ctx, groupID, int64(1)).Return(true, nil)
		mockUoW.BalanceRepo.On("GetByGroup", ctx, groupID).Return([]*models.LedgerRow{
			{GroupID: &groupID, UserA: 2, UserB: 3, Currency: "EUR", Amount: d("-1")},
		}, nil)

		assert.ErrorIs(t, service.DeleteGroup(ctx, groupID, 1), ErrOutstandingBalance)
	})

	t.Run("settled group is deleted", func(t *testing.T) {
		service, mockUoW := newGroupServiceWithMocks(ctx)
		mockUoW.On("Commit").Return(nil)
		mockUoW.GroupRepo.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID, CreatedBy: 1}, nil)
		mockUoW.GroupRepo.On("IsMember", ctx, groupID, int64(1)).Return(true, nil)
		mockUoW.BalanceRepo.On("GetByGroup", ctx, groupID).Return([]*models.LedgerRow{}, nil)
		mockUoW.GroupRepo.On("Delete", ctx, groupID).Return(nil)

		require.NoError(t, service.DeleteGroup(ctx, groupID, 1))
		mockUoW.AssertRepositoryExpectations(t)
	})
}
