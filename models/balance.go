package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PairKey identifies a ledger row: an unordered user pair within an optional group scope and a currency.
// UserA is always the lower id.
type PairKey struct {
	GroupID  *int64
	UserA    int64
	UserB    int64
	Currency string
}

// NewPairKey builds the canonical key for two users.
func NewPairKey(groupID *int64, userID, friendID int64, currency string) PairKey {
	a, b := userID, friendID
	if b < a {
		a, b = b, a
	}
	return PairKey{GroupID: groupID, UserA: a, UserB: b, Currency: currency}
}

// CanonicalDelta converts an amount expressed from userID's side into the sign stored on the pair row.
func CanonicalDelta(userID, friendID int64, amount decimal.Decimal) decimal.Decimal {
	if userID < friendID {
		return amount
	}
	return amount.Neg()
}

// LedgerRow is a stored balance row. Amount > 0 means UserB owes UserA.
type LedgerRow struct {
	ID        int64           `db:"id"`
	GroupID   *int64          `db:"group_id"`
	UserA     int64           `db:"user_a_id"`
	UserB     int64           `db:"user_b_id"`
	Currency  string          `db:"currency"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Involves reports whether the user is one side of the row.
func (r *LedgerRow) Involves(userID int64) bool {
	return r.UserA == userID || r.UserB == userID
}

// OrientFor returns the row as seen by userID. The caller must ensure the user is involved.
func (r *LedgerRow) OrientFor(userID int64) *Balance {
	b := &Balance{
		GroupID:  r.GroupID,
		Currency: r.Currency,
	}
	if userID == r.UserA {
		b.UserID, b.FriendID, b.Amount = r.UserA, r.UserB, r.Amount
	} else {
		b.UserID, b.FriendID, b.Amount = r.UserB, r.UserA, r.Amount.Neg()
	}
	return b
}

// Balance is a signed amount between two users from UserID's point of view.
// Positive: FriendID owes UserID. Negative: UserID owes FriendID.
type Balance struct {
	UserID   int64           `json:"user_id"`
	FriendID int64           `json:"friend_id"`
	GroupID  *int64          `json:"group_id,omitempty"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// Mirror returns the same balance seen from the friend's side.
func (b *Balance) Mirror() *Balance {
	return &Balance{
		UserID:   b.FriendID,
		FriendID: b.UserID,
		GroupID:  b.GroupID,
		Currency: b.Currency,
		Amount:   b.Amount.Neg(),
	}
}

// IsSettled returns true when nothing is owed in either direction
func (b *Balance) IsSettled() bool {
	return b.Amount.IsZero()
}

// CurrencyAmount is an amount in a single currency
type CurrencyAmount struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// BalanceSheet separates what others owe the user from what the user owes.
// Both lists are sorted by currency code and never contain zero amounts.
type BalanceSheet struct {
	Owed []CurrencyAmount `json:"owed"`
	Owes []CurrencyAmount `json:"owes"`
}

// IsEmpty returns true if nothing is outstanding
func (s *BalanceSheet) IsEmpty() bool {
	return len(s.Owed) == 0 && len(s.Owes) == 0
}

// NewBalanceSheet sums oriented balances per currency and splits them by sign.
func NewBalanceSheet(balances []*Balance) *BalanceSheet {
	totals := make(map[string]decimal.Decimal)
	for _, b := range balances {
		totals[b.Currency] = totals[b.Currency].Add(b.Amount)
	}

	sheet := &BalanceSheet{
		Owed: []CurrencyAmount{},
		Owes: []CurrencyAmount{},
	}
	for currency, amount := range totals {
		switch {
		case amount.IsPositive():
			sheet.Owed = append(sheet.Owed, CurrencyAmount{Currency: currency, Amount: amount})
		case amount.IsNegative():
			sheet.Owes = append(sheet.Owes, CurrencyAmount{Currency: currency, Amount: amount})
		}
	}

	sortByCurrency(sheet.Owed)
	sortByCurrency(sheet.Owes)
	return sheet
}

func sortByCurrency(amounts []CurrencyAmount) {
	sort.Slice(amounts, func(i, j int) bool {
		return amounts[i].Currency < amounts[j].Currency
	})
}

// FriendBalance is the outstanding position between the user and one friend
type FriendBalance struct {
	Friend *User         `json:"friend"`
	Sheet  *BalanceSheet `json:"balances"`
}

// BalanceSummary aggregates the user's position across every friend
type BalanceSummary struct {
	UserID  int64            `json:"user_id"`
	Friends []*FriendBalance `json:"friends"`
	Total   *BalanceSheet    `json:"total"`
}

// GroupBalances is the balance view of a single group
type GroupBalances struct {
	GroupID int64         `json:"group_id"`
	Rows    []*Balance    `json:"rows"`
	Sheet   *BalanceSheet `json:"sheet"`
}
