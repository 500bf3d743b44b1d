package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"splitledger/events"
	"splitledger/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	defaultCategory    = "general"
	settlementCategory = "settlement"
	settlementName     = "Settle up"
)

// ExpenseInput describes an expense to add or the new state of an edited one
type ExpenseInput struct {
	GroupID     *int64           `json:"group_id,omitempty"`
	PaidBy      int64            `json:"paid_by"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	SplitType   models.SplitType `json:"split_type"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`
	ExpenseDate *time.Time       `json:"expense_date,omitempty"`
	Shares      []ShareInput     `json:"shares"`
}

// SettlementInput describes a payment from the acting user to a friend
type SettlementInput struct {
	FriendID int64           `json:"friend_id"`
	GroupID  *int64          `json:"group_id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type expenseService struct {
	uowFactory UnitOfWorkFactory
}

// NewExpenseService creates a new expense service
func NewExpenseService(uowFactory UnitOfWorkFactory) ExpenseService {
	return &expenseService{
		uowFactory: uowFactory,
	}
}

// buildExpense validates input and produces an unsaved expense with signed contributions
func (s *expenseService) buildExpense(ctx context.Context, uow UnitOfWork, actingUserID int64, input ExpenseInput) (*models.Expense, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, badRequest("expense name cannot be empty")
	}
	if !input.SplitType.IsValid() {
		return nil, badRequest("unknown split type %q", input.SplitType)
	}

	currencyCode, scale, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	paidBy := input.PaidBy
	if paidBy == 0 {
		paidBy = actingUserID
	}

	owed, err := SplitExpense(input.Amount, scale, input.SplitType, input.Shares)
	if err != nil {
		return nil, err
	}
	if input.SplitType == models.SplitTypeSettlement {
		if _, ok := owed[paidBy]; ok {
			return nil, badRequest("a settlement cannot be paid to the payer")
		}
	}

	participants := BuildParticipants(paidBy, input.Amount, owed)
	if len(participants) < 2 {
		return nil, badRequest("an expense needs at least one participant besides the payer")
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = defaultCategory
		if input.SplitType == models.SplitTypeSettlement {
			category = settlementCategory
		}
	}

	expenseDate := time.Now().UTC()
	if input.ExpenseDate != nil {
		expenseDate = input.ExpenseDate.UTC()
	}

	expense := &models.Expense{
		GroupID:      input.GroupID,
		PaidBy:       paidBy,
		AddedBy:      actingUserID,
		Name:         name,
		Category:     category,
		SplitType:    input.SplitType,
		Amount:       input.Amount,
		Currency:     currencyCode,
		ExpenseDate:  expenseDate,
		Status:       models.ExpenseStatusActive,
		Participants: participants,
	}

	ids := expense.ParticipantIDs()
	users, err := uow.UserRepository().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	if len(users) != len(ids) {
		return nil, notFound("one or more participants do not exist")
	}

	if input.GroupID == nil {
		if !expense.HasParticipant(actingUserID) {
			return nil, unauthorized("user %d is not part of this expense", actingUserID)
		}
		return expense, nil
	}

	group, err := uow.GroupRepository().GetByID(ctx, *input.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, notFound("group %d", *input.GroupID)
	}

	members, err := uow.GroupRepository().GetMembers(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	detail := &models.GroupDetail{Group: group, Members: members}
	if !detail.HasMember(actingUserID) {
		return nil, unauthorized("user %d is not a member of group %d", actingUserID, group.ID)
	}
	for _, id := range ids {
		if !detail.HasMember(id) {
			return nil, badRequest("user %d is not a member of group %d", id, group.ID)
		}
	}

	return expense, nil
}

// AddExpense records an expense and applies it to the ledger
func (s *expenseService) AddExpense(ctx context.Context, actingUserID int64, input ExpenseInput) (*models.Expense, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expense, err := s.buildExpense(ctx, uow, actingUserID, input)
	if err != nil {
		return nil, err
	}

	if err := uow.ExpenseRepository().Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	if err := applyExpense(ctx, uow, expense, 1); err != nil {
		return nil, err
	}

	if err := uow.AuditLogRepository().Record(ctx, &models.ExpenseAuditEntry{
		ExpenseID: expense.ID,
		Action:    models.AuditActionCreated,
		ActorID:   actingUserID,
		Metadata: map[string]any{
			"amount":     expense.Amount.String(),
			"currency":   expense.Currency,
			"split_type": expense.SplitType,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}

	uow.EventBus().Publish(events.ExpenseAddedEvent{
		ExpenseID:      expense.ID,
		GroupID:        expense.GroupID,
		AddedBy:        actingUserID,
		PaidBy:         expense.PaidBy,
		Amount:         expense.Amount,
		Currency:       expense.Currency,
		ParticipantIDs: expense.ParticipantIDs(),
		Settlement:     expense.IsSettlement(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"expenseID":    expense.ID,
		"addedBy":      actingUserID,
		"amount":       expense.Amount.String(),
		"currency":     expense.Currency,
		"splitType":    expense.SplitType,
		"participants": len(expense.Participants),
	}).Info("Expense added")

	return expense, nil
}

// EditExpense reverses the stored contributions and applies the new ones in one transaction
func (s *expenseService) EditExpense(ctx context.Context, actingUserID, expenseID int64, input ExpenseInput) (*models.Expense, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.ExpenseRepository().GetByID(ctx, expenseID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if existing == nil || existing.IsDeleted() {
		return nil, notFound("expense %d", expenseID)
	}
	if !existing.HasParticipant(actingUserID) {
		return nil, unauthorized("user %d is not part of expense %d", actingUserID, expenseID)
	}
	if !sameGroup(existing.GroupID, input.GroupID) {
		return nil, badRequest("an expense cannot move between groups")
	}
	if existing.IsSettlement() != (input.SplitType == models.SplitTypeSettlement) {
		return nil, badRequest("an expense cannot be turned into a settlement or back")
	}

	updated, err := s.buildExpense(ctx, uow, actingUserID, input)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.AddedBy = existing.AddedBy
	updated.CreatedAt = existing.CreatedAt

	if err := applyExpense(ctx, uow, existing, -1); err != nil {
		return nil, err
	}
	if err := uow.ExpenseRepository().Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	if err := applyExpense(ctx, uow, updated, 1); err != nil {
		return nil, err
	}

	if err := uow.AuditLogRepository().Record(ctx, &models.ExpenseAuditEntry{
		ExpenseID: expenseID,
		Action:    models.AuditActionUpdated,
		ActorID:   actingUserID,
		Metadata: map[string]any{
			"previous_amount":       existing.Amount.String(),
			"previous_currency":     existing.Currency,
			"previous_participants": existing.ParticipantIDs(),
			"amount":                updated.Amount.String(),
			"currency":              updated.Currency,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}

	uow.EventBus().Publish(events.ExpenseUpdatedEvent{
		ExpenseID:      expenseID,
		UpdatedBy:      actingUserID,
		ParticipantIDs: unionIDs(existing.ParticipantIDs(), updated.ParticipantIDs()),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"expenseID": expenseID,
		"updatedBy": actingUserID,
		"amount":    updated.Amount.String(),
	}).Info("Expense updated")

	return updated, nil
}

// DeleteExpense soft-deletes an expense. Deleting an already deleted expense changes nothing.
func (s *expenseService) DeleteExpense(ctx context.Context, expenseID, actingUserID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expense, err := uow.ExpenseRepository().GetByID(ctx, expenseID, true)
	if err != nil {
		return fmt.Errorf("failed to get expense: %w", err)
	}
	if expense == nil {
		return notFound("expense %d", expenseID)
	}
	if !expense.HasParticipant(actingUserID) {
		return unauthorized("user %d is not part of expense %d", actingUserID, expenseID)
	}
	if expense.IsDeleted() {
		log.WithFields(log.Fields{
			"expenseID": expenseID,
			"userID":    actingUserID,
		}).Debug("Expense already deleted")
		return nil
	}

	if err := uow.ExpenseRepository().MarkDeleted(ctx, expenseID); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if err := applyExpense(ctx, uow, expense, -1); err != nil {
		return err
	}

	if err := uow.AuditLogRepository().Record(ctx, &models.ExpenseAuditEntry{
		ExpenseID: expenseID,
		Action:    models.AuditActionDeleted,
		ActorID:   actingUserID,
		Metadata: map[string]any{
			"amount":   expense.Amount.String(),
			"currency": expense.Currency,
		},
	}); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	uow.EventBus().Publish(events.ExpenseDeletedEvent{
		ExpenseID:      expenseID,
		DeletedBy:      actingUserID,
		ParticipantIDs: expense.ParticipantIDs(),
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"expenseID": expenseID,
		"deletedBy": actingUserID,
	}).Info("Expense deleted")

	return nil
}

// RecordSettlement records that the acting user paid a friend
func (s *expenseService) RecordSettlement(ctx context.Context, actingUserID int64, input SettlementInput) (*models.Expense, error) {
	if input.FriendID == actingUserID {
		return nil, badRequest("cannot settle up with yourself")
	}

	return s.AddExpense(ctx, actingUserID, ExpenseInput{
		GroupID:   input.GroupID,
		PaidBy:    actingUserID,
		Name:      settlementName,
		Category:  settlementCategory,
		SplitType: models.SplitTypeSettlement,
		Amount:    input.Amount,
		Currency:  input.Currency,
		Shares:    []ShareInput{{UserID: input.FriendID, Value: input.Amount}},
	})
}

// GetExpense returns an expense with its audit trail to one of its participants
func (s *expenseService) GetExpense(ctx context.Context, actingUserID, expenseID int64) (*models.ExpenseDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expense, err := uow.ExpenseRepository().GetByID(ctx, expenseID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if expense == nil {
		return nil, notFound("expense %d", expenseID)
	}
	if !expense.HasParticipant(actingUserID) {
		return nil, unauthorized("user %d is not part of expense %d", actingUserID, expenseID)
	}

	history, err := uow.AuditLogRepository().GetByExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense history: %w", err)
	}

	return &models.ExpenseDetail{Expense: expense, History: history}, nil
}

// ListExpensesWithFriend returns the active expenses shared with a friend
func (s *expenseService) ListExpensesWithFriend(ctx context.Context, actingUserID, friendID int64, limit int) ([]*models.Expense, error) {
	if actingUserID == friendID {
		return nil, badRequest("cannot list expenses with yourself")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expenses, err := uow.ExpenseRepository().ListWithFriend(ctx, actingUserID, friendID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// ListGroupExpenses returns a group's active expenses to one of its members
func (s *expenseService) ListGroupExpenses(ctx context.Context, actingUserID, groupID int64, limit int) ([]*models.Expense, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireGroupMember(ctx, uow, groupID, actingUserID); err != nil {
		return nil, err
	}

	expenses, err := uow.ExpenseRepository().ListByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list group expenses: %w", err)
	}
	return expenses, nil
}

// requireGroupMember loads a group and checks the user belongs to it
func requireGroupMember(ctx context.Context, uow UnitOfWork, groupID, userID int64) (*models.Group, error) {
	group, err := uow.GroupRepository().GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, notFound("group %d", groupID)
	}

	isMember, err := uow.GroupRepository().IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check group membership: %w", err)
	}
	if !isMember {
		return nil, unauthorized("user %d is not a member of group %d", userID, groupID)
	}
	return group, nil
}

func sameGroup(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	result := make([]int64, 0, len(a)+len(b))
	for _, id := range append(append([]int64{}, a...), b...) {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}
