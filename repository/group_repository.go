package repository

import (
	"context"
	"errors"
	"fmt"

	"splitledger/database"
	"splitledger/models"

	"github.com/jackc/pgx/v5"
)

// GroupRepository implements the GroupRepository interface
type GroupRepository struct {
	q queryable
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *database.DB) *GroupRepository {
	return &GroupRepository{q: db.Pool}
}

// newGroupRepositoryWithTx creates a new group repository with a transaction
func newGroupRepositoryWithTx(tx queryable) *GroupRepository {
	return &GroupRepository{q: tx}
}

// Create inserts a new group
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (name, created_by)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, group.Name, group.CreatedBy).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create group %q: %w", group.Name, err)
	}
	return nil
}

// GetByID retrieves a group by id
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	query := `
		SELECT id, name, created_by, created_at, updated_at
		FROM groups
		WHERE id = $1
	`

	var group models.Group
	err := r.q.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.CreatedBy,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	return &group, nil
}

// Delete removes a group; memberships, balances and expenses cascade
func (r *GroupRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("group %d not found", id)
	}
	return nil
}

// AddMember inserts a membership if it does not exist yet
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `
		INSERT INTO group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add user %d to group %d: %w", userID, groupID, err)
	}
	return result.RowsAffected() > 0, nil
}

// RemoveMember deletes a membership
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove user %d from group %d: %w", userID, groupID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d is not a member of group %d", userID, groupID)
	}
	return nil
}

// IsMember checks whether the user belongs to the group
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, groupID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership of user %d in group %d: %w", userID, groupID, err)
	}
	return exists, nil
}

// GetMembers returns the members of a group ordered by join time
func (r *GroupRepository) GetMembers(ctx context.Context, groupID int64) ([]*models.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.currency, u.language, u.created_at, u.updated_at
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at, u.id
	`

	rows, err := r.q.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of group %d: %w", groupID, err)
	}
	defer rows.Close()

	members := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// ListByUser returns the groups a user belongs to
func (r *GroupRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Group, error) {
	query := `
		SELECT g.id, g.name, g.created_by, g.created_at, g.updated_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.created_at, g.id
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for user %d: %w", userID, err)
	}
	defer rows.Close()

	groups := []*models.Group{}
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}
