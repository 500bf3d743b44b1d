package service

import (
	"context"
	"fmt"

	"splitledger/events"
	"splitledger/models"

	"github.com/shopspring/decimal"
)

// applyPairDelta moves amount between two users in one scope and currency.
// amount is from userID's side: positive means friendID owes userID more afterwards.
// Both views of the pair come from the same row, so they cannot drift apart.
func applyPairDelta(ctx context.Context, uow UnitOfWork, groupID *int64, userID, friendID int64, currency string, amount decimal.Decimal, expenseID *int64) error {
	if userID == friendID {
		return fmt.Errorf("cannot record a balance between user %d and themselves", userID)
	}

	key := models.NewPairKey(groupID, userID, friendID, currency)
	if _, err := uow.BalanceRepository().Apply(ctx, key, models.CanonicalDelta(userID, friendID, amount)); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangedEvent{
		UserID:    userID,
		FriendID:  friendID,
		GroupID:   groupID,
		Currency:  currency,
		Delta:     amount,
		ExpenseID: expenseID,
	})
	return nil
}

// applyExpense applies (direction 1) or reverses (direction -1) an expense's contributions.
// Each participant's contribution is settled against the payer.
func applyExpense(ctx context.Context, uow UnitOfWork, expense *models.Expense, direction int64) error {
	sign := decimal.NewFromInt(direction)
	expenseID := expense.ID

	for _, p := range expense.Participants {
		if p.UserID == expense.PaidBy {
			continue
		}
		owedToPayer := p.Amount.Neg().Mul(sign)
		if owedToPayer.IsZero() {
			continue
		}
		if err := applyPairDelta(ctx, uow, expense.GroupID, expense.PaidBy, p.UserID, expense.Currency, owedToPayer, &expenseID); err != nil {
			return fmt.Errorf("failed to apply expense %d for participant %d: %w", expense.ID, p.UserID, err)
		}
	}
	return nil
}
