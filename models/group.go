package models

import "time"

// Group is a named set of users sharing expenses
type Group struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy int64     `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GroupMember links a user to a group
type GroupMember struct {
	GroupID  int64     `db:"group_id" json:"group_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// GroupDetail is a group with its members
type GroupDetail struct {
	Group   *Group  `json:"group"`
	Members []*User `json:"members"`
}

// HasMember checks if the user belongs to the group
func (d *GroupDetail) HasMember(userID int64) bool {
	for _, m := range d.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}
