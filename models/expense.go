package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitType describes how an expense amount is divided between participants
type SplitType string

const (
	SplitTypeEqual      SplitType = "EQUAL"
	SplitTypePercentage SplitType = "PERCENTAGE"
	SplitTypeShare      SplitType = "SHARE"
	SplitTypeExact      SplitType = "EXACT"
	SplitTypeAdjustment SplitType = "ADJUSTMENT"
	SplitTypeSettlement SplitType = "SETTLEMENT"
)

// IsValid returns true for the known split types
func (s SplitType) IsValid() bool {
	switch s {
	case SplitTypeEqual, SplitTypePercentage, SplitTypeShare, SplitTypeExact, SplitTypeAdjustment, SplitTypeSettlement:
		return true
	}
	return false
}

// ExpenseStatus replaces nullable deleted_by/deleted_at columns
type ExpenseStatus string

const (
	ExpenseStatusActive  ExpenseStatus = "active"
	ExpenseStatusDeleted ExpenseStatus = "deleted"
)

// Expense is an amount paid by one user and split among participants
type Expense struct {
	ID           int64                 `db:"id" json:"id"`
	GroupID      *int64                `db:"group_id" json:"group_id,omitempty"`
	PaidBy       int64                 `db:"paid_by" json:"paid_by"`
	AddedBy      int64                 `db:"added_by" json:"added_by"`
	Name         string                `db:"name" json:"name"`
	Category     string                `db:"category" json:"category"`
	SplitType    SplitType             `db:"split_type" json:"split_type"`
	Amount       decimal.Decimal       `db:"amount" json:"amount"`
	Currency     string                `db:"currency" json:"currency"`
	ExpenseDate  time.Time             `db:"expense_date" json:"expense_date"`
	Status       ExpenseStatus         `db:"status" json:"status"`
	Participants []*ExpenseParticipant `db:"-" json:"participants"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time             `db:"updated_at" json:"updated_at"`
}

// ExpenseParticipant carries a signed contribution. The payer's amount is what they paid minus their
// own share; everyone else's is the negated share. Contributions of one expense sum to zero.
type ExpenseParticipant struct {
	ExpenseID int64           `db:"expense_id" json:"expense_id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
}

// IsDeleted returns true if the expense has been soft-deleted
func (e *Expense) IsDeleted() bool {
	return e.Status == ExpenseStatusDeleted
}

// IsSettlement returns true for settle-up records
func (e *Expense) IsSettlement() bool {
	return e.SplitType == SplitTypeSettlement
}

// HasParticipant checks whether the user takes part in the expense
func (e *Expense) HasParticipant(userID int64) bool {
	for _, p := range e.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the ids of every participant in stored order
func (e *Expense) ParticipantIDs() []int64 {
	ids := make([]int64, 0, len(e.Participants))
	for _, p := range e.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// ContributionTotal sums participant amounts; zero for a consistent expense
func (e *Expense) ContributionTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.Participants {
		total = total.Add(p.Amount)
	}
	return total
}

// AuditAction is the kind of change recorded in the expense audit log
type AuditAction string

const (
	AuditActionCreated AuditAction = "created"
	AuditActionUpdated AuditAction = "updated"
	AuditActionDeleted AuditAction = "deleted"
)

// ExpenseAuditEntry is an append-only record of who changed an expense and when
type ExpenseAuditEntry struct {
	ID        int64          `db:"id" json:"id"`
	ExpenseID int64          `db:"expense_id" json:"expense_id"`
	Action    AuditAction    `db:"action" json:"action"`
	ActorID   int64          `db:"actor_id" json:"actor_id"`
	Metadata  map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// ExpenseDetail is an expense together with its audit trail
type ExpenseDetail struct {
	Expense *Expense             `json:"expense"`
	History []*ExpenseAuditEntry `json:"history"`
}

// LastActor returns the actor of the most recent entry with the given action, if any
func (d *ExpenseDetail) LastActor(action AuditAction) (int64, bool) {
	for i := len(d.History) - 1; i >= 0; i-- {
		if d.History[i].Action == action {
			return d.History[i].ActorID, true
		}
	}
	return 0, false
}
