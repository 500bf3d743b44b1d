package service

import (
	"sort"
	"strings"

	"splitledger/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var hundred = decimal.NewFromInt(100)

// ShareInput is one participant's split parameter; its meaning depends on the split type.
// EQUAL ignores Value, PERCENTAGE and SHARE treat it as a weight, EXACT and SETTLEMENT as the owed
// amount, ADJUSTMENT as an amount added on top of an equal split of the remainder.
type ShareInput struct {
	UserID int64           `json:"user_id"`
	Value  decimal.Decimal `json:"value"`
}

// normalizeCurrency validates an ISO 4217 code and returns it upper-cased with its minor-unit scale
func normalizeCurrency(code string) (string, int32, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", 0, badRequest("unknown currency %q", code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return unit.String(), int32(scale), nil
}

func fitsScale(amount decimal.Decimal, scale int32) bool {
	return amount.Equal(amount.Truncate(scale))
}

// SplitExpense works out how much of amount each participant owes.
// Rounding never loses or creates money: leftover minor units go to participants in ascending id order.
func SplitExpense(amount decimal.Decimal, scale int32, splitType models.SplitType, shares []ShareInput) (map[int64]decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, badRequest("amount must be positive")
	}
	if !fitsScale(amount, scale) {
		return nil, badRequest("amount %s has more than %d decimal places", amount, scale)
	}
	if len(shares) == 0 {
		return nil, badRequest("at least one participant is required")
	}

	ids := make([]int64, 0, len(shares))
	values := make(map[int64]decimal.Decimal, len(shares))
	for _, s := range shares {
		if s.UserID <= 0 {
			return nil, badRequest("invalid participant id %d", s.UserID)
		}
		if _, dup := values[s.UserID]; dup {
			return nil, badRequest("participant %d listed twice", s.UserID)
		}
		values[s.UserID] = s.Value
		ids = append(ids, s.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	switch splitType {
	case models.SplitTypeEqual:
		weights := make(map[int64]decimal.Decimal, len(ids))
		for _, id := range ids {
			weights[id] = decimal.NewFromInt(1)
		}
		return allocate(amount, scale, ids, weights), nil

	case models.SplitTypePercentage:
		total, err := sumNonNegative(ids, values)
		if err != nil {
			return nil, err
		}
		if !total.Equal(hundred) {
			return nil, badRequest("percentages sum to %s, expected 100", total)
		}
		return allocate(amount, scale, ids, values), nil

	case models.SplitTypeShare:
		total, err := sumNonNegative(ids, values)
		if err != nil {
			return nil, err
		}
		if !total.IsPositive() {
			return nil, badRequest("shares must sum to more than zero")
		}
		return allocate(amount, scale, ids, values), nil

	case models.SplitTypeExact, models.SplitTypeSettlement:
		if splitType == models.SplitTypeSettlement && len(ids) != 1 {
			return nil, badRequest("a settlement has exactly one recipient")
		}
		total, err := sumNonNegative(ids, values)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !fitsScale(values[id], scale) {
				return nil, badRequest("amount for participant %d has more than %d decimal places", id, scale)
			}
		}
		if !total.Equal(amount) {
			return nil, badRequest("exact amounts sum to %s, expected %s", total, amount)
		}
		owed := make(map[int64]decimal.Decimal, len(ids))
		for _, id := range ids {
			owed[id] = values[id]
		}
		return owed, nil

	case models.SplitTypeAdjustment:
		adjustments := decimal.Zero
		for _, id := range ids {
			if !fitsScale(values[id], scale) {
				return nil, badRequest("adjustment for participant %d has more than %d decimal places", id, scale)
			}
			adjustments = adjustments.Add(values[id])
		}
		remaining := amount.Sub(adjustments)
		if remaining.IsNegative() {
			return nil, badRequest("adjustments of %s exceed the amount %s", adjustments, amount)
		}
		weights := make(map[int64]decimal.Decimal, len(ids))
		for _, id := range ids {
			weights[id] = decimal.NewFromInt(1)
		}
		owed := allocate(remaining, scale, ids, weights)
		for _, id := range ids {
			owed[id] = owed[id].Add(values[id])
			if owed[id].IsNegative() {
				return nil, badRequest("participant %d would owe a negative amount", id)
			}
		}
		return owed, nil
	}

	return nil, badRequest("unknown split type %q", splitType)
}

func sumNonNegative(ids []int64, values map[int64]decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, id := range ids {
		if values[id].IsNegative() {
			return decimal.Zero, badRequest("value for participant %d must not be negative", id)
		}
		total = total.Add(values[id])
	}
	return total, nil
}

// allocate divides amount proportionally to weights, truncating to scale and handing out the
// remaining minor units one at a time in id order. ids must be sorted and weights must sum above zero.
func allocate(amount decimal.Decimal, scale int32, ids []int64, weights map[int64]decimal.Decimal) map[int64]decimal.Decimal {
	total := decimal.Zero
	for _, id := range ids {
		total = total.Add(weights[id])
	}

	result := make(map[int64]decimal.Decimal, len(ids))
	allocated := decimal.Zero
	for _, id := range ids {
		share := amount.Mul(weights[id]).Div(total).Truncate(scale)
		result[id] = share
		allocated = allocated.Add(share)
	}

	unit := decimal.New(1, -scale)
	remainder := amount.Sub(allocated)
	for i := 0; remainder.GreaterThanOrEqual(unit); i = (i + 1) % len(ids) {
		if !weights[ids[i]].IsPositive() {
			continue
		}
		result[ids[i]] = result[ids[i]].Add(unit)
		remainder = remainder.Sub(unit)
	}

	return result
}

// BuildParticipants turns owed amounts into signed contributions ordered by user id.
// The payer is always included; their contribution is what they paid minus their own share.
func BuildParticipants(paidBy int64, amount decimal.Decimal, owed map[int64]decimal.Decimal) []*models.ExpenseParticipant {
	ids := make([]int64, 0, len(owed)+1)
	for id := range owed {
		ids = append(ids, id)
	}
	if _, ok := owed[paidBy]; !ok {
		ids = append(ids, paidBy)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	participants := make([]*models.ExpenseParticipant, 0, len(ids))
	for _, id := range ids {
		contribution := owed[id].Neg()
		if id == paidBy {
			contribution = amount.Sub(owed[id])
		}
		participants = append(participants, &models.ExpenseParticipant{
			UserID: id,
			Amount: contribution,
		})
	}
	return participants
}
