package service

import (
	"context"
	"io"

	"splitledger/events"
	"splitledger/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id, returning nil if absent
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByEmail retrieves a user by case-insensitive email, returning nil if absent
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByIDs retrieves every existing user among ids
	GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error)

	// Create inserts a user and fills in its id and timestamps
	Create(ctx context.Context, user *models.User) error

	// UpdateDetails persists name, currency and language
	UpdateDetails(ctx context.Context, user *models.User) error
}

// BalanceRepository defines the interface for the pair ledger
type BalanceRepository interface {
	// Apply atomically adds a canonical delta to the row identified by key, creating it if needed
	Apply(ctx context.Context, key models.PairKey, delta decimal.Decimal) (*models.LedgerRow, error)

	// GetPair returns every row between two users across all scopes and currencies.
	// forUpdate locks the rows until the transaction ends.
	GetPair(ctx context.Context, userID, friendID int64, forUpdate bool) ([]*models.LedgerRow, error)

	// GetByUser returns every row involving the user
	GetByUser(ctx context.Context, userID int64) ([]*models.LedgerRow, error)

	// GetByGroup returns every row scoped to the group
	GetByGroup(ctx context.Context, groupID int64) ([]*models.LedgerRow, error)

	// DeleteDirect removes the non-group rows between two users, returning the number removed
	DeleteDirect(ctx context.Context, userID, friendID int64) (int64, error)
}

// ExpenseRepository defines the interface for expense data access
type ExpenseRepository interface {
	// Create inserts the expense with its participants
	Create(ctx context.Context, expense *models.Expense) error

	// GetByID returns the expense with participants, nil if absent. forUpdate locks the expense row.
	GetByID(ctx context.Context, id int64, forUpdate bool) (*models.Expense, error)

	// Update rewrites the expense fields and replaces its participants
	Update(ctx context.Context, expense *models.Expense) error

	// MarkDeleted flips the status to deleted
	MarkDeleted(ctx context.Context, id int64) error

	// ListWithFriend returns active expenses both users take part in, newest first
	ListWithFriend(ctx context.Context, userID, friendID int64, limit int) ([]*models.Expense, error)

	// ListByGroup returns active expenses of a group, newest first
	ListByGroup(ctx context.Context, groupID int64, limit int) ([]*models.Expense, error)

	// ListByUser returns active expenses the user takes part in, newest first. limit <= 0 means all.
	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Expense, error)
}

// AuditLogRepository defines the interface for the append-only expense audit log
type AuditLogRepository interface {
	// Record appends an entry
	Record(ctx context.Context, entry *models.ExpenseAuditEntry) error

	// GetByExpense returns entries for an expense, oldest first
	GetByExpense(ctx context.Context, expenseID int64) ([]*models.ExpenseAuditEntry, error)
}

// GroupRepository defines the interface for group data access
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	Delete(ctx context.Context, id int64) error

	// AddMember inserts a membership, reporting false if it already existed
	AddMember(ctx context.Context, groupID, userID int64) (bool, error)
	RemoveMember(ctx context.Context, groupID, userID int64) error
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
	GetMembers(ctx context.Context, groupID int64) ([]*models.User, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Group, error)
}

// ImportRepository defines the interface for import bookkeeping
type ImportRepository interface {
	// FindIdentity returns the local mapping for an external record, nil if unmapped
	FindIdentity(ctx context.Context, provider string, entityType models.ExternalIdentityType, externalID string) (*models.ExternalIdentity, error)

	// LinkIdentity creates or repoints a mapping
	LinkIdentity(ctx context.Context, identity *models.ExternalIdentity) error

	// ClaimImportedBalance locks and returns the last imported canonical amount for a direct pair, zero if none
	ClaimImportedBalance(ctx context.Context, key models.PairKey) (decimal.Decimal, error)

	// SetImportedBalance records the imported canonical amount for a direct pair
	SetImportedBalance(ctx context.Context, key models.PairKey, amount decimal.Decimal) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	BalanceRepository() BalanceRepository
	ExpenseRepository() ExpenseRepository
	AuditLogRepository() AuditLogRepository
	GroupRepository() GroupRepository
	ImportRepository() ImportRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UserService defines the interface for user operations
type UserService interface {
	// GetOrCreateUser finds a user by email or creates one with default preferences
	GetOrCreateUser(ctx context.Context, email, name string) (*models.User, error)

	// GetUser returns a user by id
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// UpdateDetails changes the user's name, preferred currency or language
	UpdateDetails(ctx context.Context, userID int64, details models.UserDetails) (*models.User, error)
}

// ExpenseService defines the interface for expense operations
type ExpenseService interface {
	AddExpense(ctx context.Context, actingUserID int64, input ExpenseInput) (*models.Expense, error)
	EditExpense(ctx context.Context, actingUserID, expenseID int64, input ExpenseInput) (*models.Expense, error)

	// DeleteExpense soft-deletes an expense and reverses its balance contribution
	DeleteExpense(ctx context.Context, expenseID, actingUserID int64) error

	// RecordSettlement records a payment from the acting user to a friend
	RecordSettlement(ctx context.Context, actingUserID int64, input SettlementInput) (*models.Expense, error)

	GetExpense(ctx context.Context, actingUserID, expenseID int64) (*models.ExpenseDetail, error)
	ListExpensesWithFriend(ctx context.Context, actingUserID, friendID int64, limit int) ([]*models.Expense, error)
	ListGroupExpenses(ctx context.Context, actingUserID, groupID int64, limit int) ([]*models.Expense, error)
}

// FriendService defines the interface for friend relationship operations
type FriendService interface {
	// DeleteFriend removes the direct balance rows with a friend once everything is settled
	DeleteFriend(ctx context.Context, friendID, actingUserID int64) error
}

// GroupService defines the interface for group operations
type GroupService interface {
	CreateGroup(ctx context.Context, actingUserID int64, name string) (*models.GroupDetail, error)
	GetGroup(ctx context.Context, groupID, actingUserID int64) (*models.GroupDetail, error)
	ListGroups(ctx context.Context, actingUserID int64) ([]*models.Group, error)
	AddMember(ctx context.Context, groupID, actingUserID, memberID int64) error
	LeaveGroup(ctx context.Context, groupID, actingUserID int64) error
	DeleteGroup(ctx context.Context, groupID, actingUserID int64) error
}

// BalanceService defines the read-only balance queries
type BalanceService interface {
	GetBalances(ctx context.Context, userID int64) (*models.BalanceSummary, error)
	GetBalancesWithFriend(ctx context.Context, userID, friendID int64) (*models.BalanceSheet, error)
	GetGroupBalances(ctx context.Context, groupID, userID int64) (*models.GroupBalances, error)
}

// ImportService defines the interface for Splitwise imports
type ImportService interface {
	// ParseExport decodes and validates an export before anything is persisted
	ParseExport(r io.Reader) (*models.SplitwiseExport, error)

	// ImportFromSplitwise merges friends, balances and groups into the ledger
	ImportFromSplitwise(ctx context.Context, actingUserID int64, friends []models.SplitwiseFriend, groups []models.SplitwiseGroup) (*models.ImportResult, error)
}

// ExportService defines the interface for data export
type ExportService interface {
	DownloadData(ctx context.Context, userID int64) (*models.DataExport, error)
}
