package service

import (
	"errors"
	"testing"

	"splitledger/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertOwed(t *testing.T, expected map[int64]string, actual map[int64]decimal.Decimal) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for id, amount := range expected {
		assert.Truef(t, d(amount).Equal(actual[id]), "user %d: expected %s, got %s", id, amount, actual[id])
	}
}

func sumOwed(owed map[int64]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range owed {
		total = total.Add(v)
	}
	return total
}

func TestSplitExpense(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		scale     int32
		splitType models.SplitType
		shares    []ShareInput
		expected  map[int64]string
	}{
		{
			name:      "equal split hands leftover cents to lowest ids",
			amount:    "10",
			scale:     2,
			splitType: models.SplitTypeEqual,
			shares:    []ShareInput{{UserID: 3}, {UserID: 1}, {UserID: 2}},
			expected:  map[int64]string{1: "3.34", 2: "3.33", 3: "3.33"},
		},
		{
			name:      "equal split in a zero decimal currency",
			amount:    "1000",
			scale:     0,
			splitType: models.SplitTypeEqual,
			shares:    []ShareInput{{UserID: 1}, {UserID: 2}, {UserID: 3}},
			expected:  map[int64]string{1: "334", 2: "333", 3: "333"},
		},
		{
			name:      "percentage split",
			amount:    "200",
			scale:     2,
			splitType: models.SplitTypePercentage,
			shares:    []ShareInput{{UserID: 1, Value: d("25")}, {UserID: 2, Value: d("75")}},
			expected:  map[int64]string{1: "50", 2: "150"},
		},
		{
			name:      "share split",
			amount:    "100",
			scale:     2,
			splitType: models.SplitTypeShare,
			shares:    []ShareInput{{UserID: 1, Value: d("1")}, {UserID: 2, Value: d("2")}},
			expected:  map[int64]string{1: "33.34", 2: "66.66"},
		},
		{
			name:      "zero share receives nothing",
			amount:    "0.05",
			scale:     2,
			splitType: models.SplitTypeShare,
			shares:    []ShareInput{{UserID: 1, Value: d("0")}, {UserID: 2, Value: d("1")}, {UserID: 3, Value: d("1")}},
			expected:  map[int64]string{1: "0", 2: "0.03", 3: "0.02"},
		},
		{
			name:      "exact split",
			amount:    "30",
			scale:     2,
			splitType: models.SplitTypeExact,
			shares:    []ShareInput{{UserID: 1, Value: d("10.50")}, {UserID: 2, Value: d("19.50")}},
			expected:  map[int64]string{1: "10.50", 2: "19.50"},
		},
		{
			name:      "adjustment split",
			amount:    "50",
			scale:     2,
			splitType: models.SplitTypeAdjustment,
			shares:    []ShareInput{{UserID: 1, Value: d("10")}, {UserID: 2, Value: d("0")}},
			expected:  map[int64]string{1: "30", 2: "20"},
		},
		{
			name:      "settlement",
			amount:    "15",
			scale:     2,
			splitType: models.SplitTypeSettlement,
			shares:    []ShareInput{{UserID: 2, Value: d("15")}},
			expected:  map[int64]string{2: "15"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owed, err := SplitExpense(d(tt.amount), tt.scale, tt.splitType, tt.shares)
			require.NoError(t, err)
			assertOwed(t, tt.expected, owed)
			assert.True(t, sumOwed(owed).Equal(d(tt.amount)), "split must cover the whole amount")
		})
	}
}

func TestSplitExpense_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		splitType models.SplitType
		shares    []ShareInput
	}{
		{"non positive amount", "0", models.SplitTypeEqual, []ShareInput{{UserID: 1}}},
		{"too many decimals", "1.005", models.SplitTypeEqual, []ShareInput{{UserID: 1}}},
		{"no participants", "10", models.SplitTypeEqual, nil},
		{"duplicate participant", "10", models.SplitTypeEqual, []ShareInput{{UserID: 1}, {UserID: 1}}},
		{"percentages not 100", "10", models.SplitTypePercentage, []ShareInput{{UserID: 1, Value: d("40")}, {UserID: 2, Value: d("40")}}},
		{"negative share", "10", models.SplitTypeShare, []ShareInput{{UserID: 1, Value: d("-1")}, {UserID: 2, Value: d("2")}}},
		{"all zero shares", "10", models.SplitTypeShare, []ShareInput{{UserID: 1, Value: d("0")}}},
		{"exact mismatch", "10", models.SplitTypeExact, []ShareInput{{UserID: 1, Value: d("4")}, {UserID: 2, Value: d("5")}}},
		{"adjustments exceed amount", "10", models.SplitTypeAdjustment, []ShareInput{{UserID: 1, Value: d("11")}}},
		{"settlement with two recipients", "10", models.SplitTypeSettlement, []ShareInput{{UserID: 1, Value: d("5")}, {UserID: 2, Value: d("5")}}},
		{"unknown type", "10", models.SplitType("RANDOM"), []ShareInput{{UserID: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitExpense(d(tt.amount), 2, tt.splitType, tt.shares)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadRequest))
		})
	}
}

func TestBuildParticipants(t *testing.T) {
	owed := map[int64]decimal.Decimal{1: d("5"), 2: d("5")}

	participants := BuildParticipants(1, d("10"), owed)
	require.Len(t, participants, 2)
	assert.Equal(t, int64(1), participants[0].UserID)
	assert.True(t, participants[0].Amount.Equal(d("5")))
	assert.True(t, participants[1].Amount.Equal(d("-5")))

	t.Run("payer outside the split is added", func(t *testing.T) {
		participants := BuildParticipants(9, d("10"), owed)
		require.Len(t, participants, 3)
		assert.Equal(t, int64(9), participants[2].UserID)
		assert.True(t, participants[2].Amount.Equal(d("10")))

		expense := &models.Expense{Participants: participants}
		assert.True(t, expense.ContributionTotal().IsZero())
	})
}

func TestNormalizeCurrency(t *testing.T) {
	code, scale, err := normalizeCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", code)
	assert.Equal(t, int32(2), scale)

	code, scale, err = normalizeCurrency("JPY")
	require.NoError(t, err)
	assert.Equal(t, "JPY", code)
	assert.Equal(t, int32(0), scale)

	_, _, err = normalizeCurrency("ZZZ")
	assert.ErrorIs(t, err, ErrBadRequest)
}

// decEq matches a decimal argument by value, ignoring its internal exponent
func decEq(s string) any {
	return mock.MatchedBy(func(v decimal.Decimal) bool {
		return v.Equal(d(s))
	})
}
