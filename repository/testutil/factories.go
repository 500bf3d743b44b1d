package testutil

import (
	"fmt"
	"time"

	"splitledger/models"

	"github.com/shopspring/decimal"
)

// CreateTestUser creates an unsaved user with default preferences
func CreateTestUser(name string) *models.User {
	now := time.Now()
	return &models.User{
		Email:     fmt.Sprintf("%s@example.com", name),
		Name:      name,
		Currency:  "USD",
		Language:  "en",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestGroup creates an unsaved group
func CreateTestGroup(name string, createdBy int64) *models.Group {
	return &models.Group{
		Name:      name,
		CreatedBy: createdBy,
	}
}

// CreateTestExpense creates an unsaved expense where payer covers amount split evenly with other.
// Participant amounts follow the signed contribution convention.
func CreateTestExpense(payer, other int64, amount string) *models.Expense {
	total := decimal.RequireFromString(amount)
	half := total.Div(decimal.NewFromInt(2))
	return &models.Expense{
		PaidBy:      payer,
		AddedBy:     payer,
		Name:        "Dinner",
		Category:    "food",
		SplitType:   models.SplitTypeEqual,
		Amount:      total,
		Currency:    "USD",
		ExpenseDate: time.Now().UTC().Truncate(time.Second),
		Status:      models.ExpenseStatusActive,
		Participants: []*models.ExpenseParticipant{
			{UserID: payer, Amount: total.Sub(half)},
			{UserID: other, Amount: half.Neg()},
		},
	}
}

// CreateTestSplitwiseFriend creates a confirmed Splitwise friend with one balance entry
func CreateTestSplitwiseFriend(id int64, email, currency, amount string) models.SplitwiseFriend {
	return models.SplitwiseFriend{
		ID:                 id,
		FirstName:          "Friend",
		LastName:           fmt.Sprintf("%d", id),
		Email:              email,
		RegistrationStatus: models.SplitwiseRegistrationConfirmed,
		Balance: []models.SplitwiseBalance{
			{CurrencyCode: currency, Amount: amount},
		},
	}
}
