package models

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Splitwise data as exported by its API. These records are consumed once by the importer.

const (
	// SplitwiseProvider names the provider in external identity mappings
	SplitwiseProvider = "splitwise"

	// SplitwiseNoGroupID is the placeholder group Splitwise uses for non-group expenses
	SplitwiseNoGroupID int64 = 0

	// SplitwiseRegistrationConfirmed marks a friend who has a real Splitwise account
	SplitwiseRegistrationConfirmed = "confirmed"
)

// SplitwiseBalance is one currency entry of a friend's balance. Amount is a decimal string;
// positive means the friend owes the importing user.
type SplitwiseBalance struct {
	CurrencyCode string `json:"currency_code"`
	Amount       string `json:"amount"`
}

// SplitwiseFriend is a friend record with balances
type SplitwiseFriend struct {
	ID                 int64              `json:"id"`
	FirstName          string             `json:"first_name"`
	LastName           string             `json:"last_name"`
	Email              string             `json:"email"`
	RegistrationStatus string             `json:"registration_status"`
	Balance            []SplitwiseBalance `json:"balance"`
}

// FullName joins first and last name
func (f *SplitwiseFriend) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName))
}

// ExternalID returns the id as stored in identity mappings
func (f *SplitwiseFriend) ExternalID() string {
	return strconv.FormatInt(f.ID, 10)
}

// SplitwiseMember is a group member record
type SplitwiseMember struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName joins first and last name
func (m *SplitwiseMember) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(m.FirstName) + " " + strings.TrimSpace(m.LastName))
}

// SplitwiseGroup is a group record with its members
type SplitwiseGroup struct {
	ID      int64             `json:"id"`
	Name    string            `json:"name"`
	Members []SplitwiseMember `json:"members"`
}

// ExternalID returns the id as stored in identity mappings
func (g *SplitwiseGroup) ExternalID() string {
	return strconv.FormatInt(g.ID, 10)
}

// SplitwiseExport is the payload accepted by the importer
type SplitwiseExport struct {
	Friends []SplitwiseFriend `json:"friends"`
	Groups  []SplitwiseGroup  `json:"groups"`
}

// ParsedAmount parses the balance amount; an empty string is treated as zero
func (b SplitwiseBalance) ParsedAmount() (decimal.Decimal, error) {
	if strings.TrimSpace(b.Amount) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(b.Amount))
}

// ExternalIdentityType is the kind of local entity an external id maps to
type ExternalIdentityType string

const (
	ExternalIdentityUser  ExternalIdentityType = "user"
	ExternalIdentityGroup ExternalIdentityType = "group"
)

// ExternalIdentity maps an external record to a local row
type ExternalIdentity struct {
	Provider   string               `db:"provider"`
	EntityType ExternalIdentityType `db:"entity_type"`
	ExternalID string               `db:"external_id"`
	LocalID    int64                `db:"local_id"`
}

// ImportFailure describes a record the importer could not apply
type ImportFailure struct {
	Kind       ExternalIdentityType `json:"kind"`
	ExternalID string               `json:"external_id"`
	Error      string               `json:"error"`
}

// ImportResult reports what a Splitwise import did
type ImportResult struct {
	ImportID         string          `json:"import_id"`
	UsersCreated     int             `json:"users_created"`
	UsersReused      int             `json:"users_reused"`
	BalancesApplied  int             `json:"balances_applied"`
	GroupsCreated    int             `json:"groups_created"`
	GroupsReused     int             `json:"groups_reused"`
	MembershipsAdded int             `json:"memberships_added"`
	FriendsSkipped   int             `json:"friends_skipped"`
	GroupsSkipped    int             `json:"groups_skipped"`
	Failures         []ImportFailure `json:"failures,omitempty"`
}

// HasFailures returns true if any record failed
func (r *ImportResult) HasFailures() bool {
	return len(r.Failures) > 0
}
