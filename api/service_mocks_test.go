package api

import (
	"context"
	"io"

	"splitledger/models"
	"splitledger/service"

	"github.com/stretchr/testify/mock"
)

type MockUserService struct{ mock.Mock }

func (m *MockUserService) GetOrCreateUser(ctx context.Context, email, name string) (*models.User, error) {
	args := m.Called(ctx, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateDetails(ctx context.Context, userID int64, details models.UserDetails) (*models.User, error) {
	args := m.Called(ctx, userID, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockExpenseService struct{ mock.Mock }

func (m *MockExpenseService) AddExpense(ctx context.Context, actingUserID int64, input service.ExpenseInput) (*models.Expense, error) {
	args := m.Called(ctx, actingUserID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockExpenseService) EditExpense(ctx context.Context, actingUserID, expenseID int64, input service.ExpenseInput) (*models.Expense, error) {
	args := m.Called(ctx, actingUserID, expenseID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockExpenseService) DeleteExpense(ctx context.Context, expenseID, actingUserID int64) error {
	args := m.Called(ctx, expenseID, actingUserID)
	return args.Error(0)
}

func (m *MockExpenseService) RecordSettlement(ctx context.Context, actingUserID int64, input service.SettlementInput) (*models.Expense, error) {
	args := m.Called(ctx, actingUserID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockExpenseService) GetExpense(ctx context.Context, actingUserID, expenseID int64) (*models.ExpenseDetail, error) {
	args := m.Called(ctx, actingUserID, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExpenseDetail), args.Error(1)
}

func (m *MockExpenseService) ListExpensesWithFriend(ctx context.Context, actingUserID, friendID int64, limit int) ([]*models.Expense, error) {
	args := m.Called(ctx, actingUserID, friendID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Expense), args.Error(1)
}

func (m *MockExpenseService) ListGroupExpenses(ctx context.Context, actingUserID, groupID int64, limit int) ([]*models.Expense, error) {
	args := m.Called(ctx, actingUserID, groupID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Expense), args.Error(1)
}

type MockFriendService struct{ mock.Mock }

func (m *MockFriendService) DeleteFriend(ctx context.Context, friendID, actingUserID int64) error {
	args := m.Called(ctx, friendID, actingUserID)
	return args.Error(0)
}

type MockGroupService struct{ mock.Mock }

func (m *MockGroupService) CreateGroup(ctx context.Context, actingUserID int64, name string) (*models.GroupDetail, error) {
	args := m.Called(ctx, actingUserID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupDetail), args.Error(1)
}

func (m *MockGroupService) GetGroup(ctx context.Context, groupID, actingUserID int64) (*models.GroupDetail, error) {
	args := m.Called(ctx, groupID, actingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupDetail), args.Error(1)
}

func (m *MockGroupService) ListGroups(ctx context.Context, actingUserID int64) ([]*models.Group, error) {
	args := m.Called(ctx, actingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Group), args.Error(1)
}

func (m *MockGroupService) AddMember(ctx context.Context, groupID, actingUserID, memberID int64) error {
	args := m.Called(ctx, groupID, actingUserID, memberID)
	return args.Error(0)
}

func (m *MockGroupService) LeaveGroup(ctx context.Context, groupID, actingUserID int64) error {
	args := m.Called(ctx, groupID, actingUserID)
	return args.Error(0)
}

func (m *MockGroupService) DeleteGroup(ctx context.Context, groupID, actingUserID int64) error {
	args := m.Called(ctx, groupID, actingUserID)
	return args.Error(0)
}

type MockBalanceService struct{ mock.Mock }

func (m *MockBalanceService) GetBalances(ctx context.Context, userID int64) (*models.BalanceSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceSummary), args.Error(1)
}

func (m *MockBalanceService) GetBalancesWithFriend(ctx context.Context, userID, friendID int64) (*models.BalanceSheet, error) {
	args := m.Called(ctx, userID, friendID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceSheet), args.Error(1)
}

func (m *MockBalanceService) GetGroupBalances(ctx context.Context, groupID, userID int64) (*models.GroupBalances, error) {
	args := m.Called(ctx, groupID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupBalances), args.Error(1)
}

type MockImportService struct{ mock.Mock }

func (m *MockImportService) ParseExport(r io.Reader) (*models.SplitwiseExport, error) {
	args := m.Called(r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SplitwiseExport), args.Error(1)
}

func (m *MockImportService) ImportFromSplitwise(ctx context.Context, actingUserID int64, friends []models.SplitwiseFriend, groups []models.SplitwiseGroup) (*models.ImportResult, error) {
	args := m.Called(ctx, actingUserID, friends, groups)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportResult), args.Error(1)
}

type MockExportService struct{ mock.Mock }

func (m *MockExportService) DownloadData(ctx context.Context, userID int64) (*models.DataExport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataExport), args.Error(1)
}
