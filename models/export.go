package models

import "time"

// GroupExport is a group with members and the exporting user's balances in it
type GroupExport struct {
	Group    *Group        `json:"group"`
	Members  []*User       `json:"members"`
	Balances *BalanceSheet `json:"balances"`
}

// DataExport is the full snapshot returned by downloadData
type DataExport struct {
	ExportedAt time.Time        `json:"exported_at"`
	User       *User            `json:"user"`
	Friends    []*FriendBalance `json:"friends"`
	Groups     []*GroupExport   `json:"groups"`
	Expenses   []*Expense       `json:"expenses"`
}
