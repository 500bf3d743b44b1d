package service

import (
	"context"

	"splitledger/events"
	"splitledger/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateDetails(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockBalanceRepository is a mock implementation of BalanceRepository
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Apply(ctx context.Context, key models.PairKey, delta decimal.Decimal) (*models.LedgerRow, error) {
	args := m.Called(ctx, key, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerRow), args.Error(1)
}

func (m *MockBalanceRepository) GetPair(ctx context.Context, userID, friendID int64, forUpdate bool) ([]*models.LedgerRow, error) {
	args := m.Called(ctx, userID, friendID, forUpdate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerRow), args.Error(1)
}

func (m *MockBalanceRepository) GetByUser(ctx context.Context, userID int64) ([]*models.LedgerRow, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerRow), args.Error(1)
}

func (m *MockBalanceRepository) GetByGroup(ctx context.Context, groupID int64) ([]*models.LedgerRow, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerRow), args.Error(1)
}

func (m *MockBalanceRepository) DeleteDirect(ctx context.Context, userID, friendID int64) (int64, error) {
	args := m.Called(ctx, userID, friendID)
	return args.Get(0).(int64), args.Error(1)
}

// MockExpenseRepository is a mock implementation of ExpenseRepository
type MockExpenseRepository struct {
	mock.Mock
}

func (m *MockExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) GetByID(ctx context.Context, id int64, forUpdate bool) (*models.Expense, error) {
	args := m.Called(ctx, id, forUpdate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) MarkDeleted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockExpenseRepository) ListWithFriend(ctx context.Context, userID, friendID int64, limit int) ([]*models.Expense, error) {
	args := m.Called(ctx, userID, friendID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Expense), args.Error(1)
}

func (m *MockExpenseRepository) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*models.Expense, error) {
	args := m.Called(ctx, groupID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Expense), args.Error(1)
}

func (m *MockExpenseRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Expense, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Expense), args.Error(1)
}

// MockAuditLogRepository is a mock implementation of AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Record(ctx context.Context, entry *models.ExpenseAuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) GetByExpense(ctx context.Context, expenseID int64) ([]*models.ExpenseAuditEntry, error) {
	args := m.Called(ctx, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ExpenseAuditEntry), args.Error(1)
}

// MockGroupRepository is a mock implementation of GroupRepository
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *models.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockGroupRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGroupRepository) AddMember(ctx context.Context, groupID, userID int64) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGroupRepository) RemoveMember(ctx context.Context, groupID, userID int64) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MockGroupRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGroupRepository) GetMembers(ctx context.Context, groupID int64) ([]*models.User, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockGroupRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Group, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Group), args.Error(1)
}

// MockImportRepository is a mock implementation of ImportRepository
type MockImportRepository struct {
	mock.Mock
}

func (m *MockImportRepository) FindIdentity(ctx context.Context, provider string, entityType models.ExternalIdentityType, externalID string) (*models.ExternalIdentity, error) {
	args := m.Called(ctx, provider, entityType, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExternalIdentity), args.Error(1)
}

func (m *MockImportRepository) LinkIdentity(ctx context.Context, identity *models.ExternalIdentity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockImportRepository) ClaimImportedBalance(ctx context.Context, key models.PairKey) (decimal.Decimal, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockImportRepository) SetImportedBalance(ctx context.Context, key models.PairKey, amount decimal.Decimal) error {
	args := m.Called(ctx, key, amount)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork whose getters return the configured mocks
type MockUnitOfWork struct {
	mock.Mock
	UserRepo     *MockUserRepository
	BalanceRepo  *MockBalanceRepository
	ExpenseRepo  *MockExpenseRepository
	AuditLogRepo *MockAuditLogRepository
	GroupRepo    *MockGroupRepository
	ImportRepo   *MockImportRepository
	Publisher    *MockEventPublisher
}

// NewMockUnitOfWork creates a unit of work with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		UserRepo:     new(MockUserRepository),
		BalanceRepo:  new(MockBalanceRepository),
		ExpenseRepo:  new(MockExpenseRepository),
		AuditLogRepo: new(MockAuditLogRepository),
		GroupRepo:    new(MockGroupRepository),
		ImportRepo:   new(MockImportRepository),
		Publisher:    new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.UserRepo
}

func (m *MockUnitOfWork) BalanceRepository() BalanceRepository {
	return m.BalanceRepo
}

func (m *MockUnitOfWork) ExpenseRepository() ExpenseRepository {
	return m.ExpenseRepo
}

func (m *MockUnitOfWork) AuditLogRepository() AuditLogRepository {
	return m.AuditLogRepo
}

func (m *MockUnitOfWork) GroupRepository() GroupRepository {
	return m.GroupRepo
}

func (m *MockUnitOfWork) ImportRepository() ImportRepository {
	return m.ImportRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.Publisher
}

// AssertRepositoryExpectations checks every repository mock
func (m *MockUnitOfWork) AssertRepositoryExpectations(t mock.TestingT) {
	m.UserRepo.AssertExpectations(t)
	m.BalanceRepo.AssertExpectations(t)
	m.ExpenseRepo.AssertExpectations(t)
	m.AuditLogRepo.AssertExpectations(t)
	m.GroupRepo.AssertExpectations(t)
	m.ImportRepo.AssertExpectations(t)
	m.Publisher.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
