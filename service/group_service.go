package service

import (
	"context"
	"fmt"
	"strings"

	"splitledger/events"
	"splitledger/models"

	log "github.com/sirupsen/logrus"
)

type groupService struct {
	uowFactory UnitOfWorkFactory
}

// NewGroupService creates a new group service
func NewGroupService(uowFactory UnitOfWorkFactory) GroupService {
	return &groupService{
		uowFactory: uowFactory,
	}
}

// CreateGroup creates a group with the acting user as its first member
func (s *groupService) CreateGroup(ctx context.Context, actingUserID int64, name string) (*models.GroupDetail, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, badRequest("group name cannot be empty")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	creator, err := uow.UserRepository().GetByID(ctx, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	if creator == nil {
		return nil, notFound("user %d", actingUserID)
	}

	group := &models.Group{Name: name, CreatedBy: actingUserID}
	if err := uow.GroupRepository().Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	if _, err := uow.GroupRepository().AddMember(ctx, group.ID, actingUserID); err != nil {
		return nil, fmt.Errorf("failed to add creator to group: %w", err)
	}

	uow.EventBus().Publish(events.GroupMemberAddedEvent{
		GroupID: group.ID,
		UserID:  actingUserID,
		AddedBy: actingUserID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"groupID":   group.ID,
		"createdBy": actingUserID,
	}).Info("Group created")

	return &models.GroupDetail{Group: group, Members: []*models.User{creator}}, nil
}

// GetGroup returns a group and its members to one of them
func (s *groupService) GetGroup(ctx context.Context, groupID, actingUserID int64) (*models.GroupDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	group, err := requireGroupMember(ctx, uow, groupID, actingUserID)
	if err != nil {
		return nil, err
	}

	members, err := uow.GroupRepository().GetMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}

	return &models.GroupDetail{Group: group, Members: members}, nil
}

// ListGroups returns the groups the acting user belongs to
func (s *groupService) ListGroups(ctx context.Context, actingUserID int64) ([]*models.Group, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	groups, err := uow.GroupRepository().ListByUser(ctx, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// AddMember adds a user to a group; adding an existing member is a no-op
func (s *groupService) AddMember(ctx context.Context, groupID, actingUserID, memberID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireGroupMember(ctx, uow, groupID, actingUserID); err != nil {
		return err
	}

	member, err := uow.UserRepository().GetByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if member == nil {
		return notFound("user %d", memberID)
	}

	added, err := uow.GroupRepository().AddMember(ctx, groupID, memberID)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	if !added {
		return nil
	}

	uow.EventBus().Publish(events.GroupMemberAddedEvent{
		GroupID: groupID,
		UserID:  memberID,
		AddedBy: actingUserID,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"groupID":  groupID,
		"memberID": memberID,
		"addedBy":  actingUserID,
	}).Info("Group member added")

	return nil
}

// LeaveGroup removes the acting user once their balances in the group are settled
func (s *groupService) LeaveGroup(ctx context.Context, groupID, actingUserID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireGroupMember(ctx, uow, groupID, actingUserID); err != nil {
		return err
	}

	rows, err := uow.BalanceRepository().GetByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to get group balances: %w", err)
	}
	sheet := models.NewBalanceSheet(orientRows(rows, actingUserID))
	if !sheet.IsEmpty() {
		return outstandingBalance("settle your balances in group %d before leaving", groupID)
	}

	if err := uow.GroupRepository().RemoveMember(ctx, groupID, actingUserID); err != nil {
		return fmt.Errorf("failed to leave group: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"groupID": groupID,
		"userID":  actingUserID,
	}).Info("User left group")

	return nil
}

// DeleteGroup removes a settled group. Only its creator may delete it.
func (s *groupService) DeleteGroup(ctx context.Context, groupID, actingUserID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	group, err := requireGroupMember(ctx, uow, groupID, actingUserID)
	if err != nil {
		return err
	}
	if group.CreatedBy != actingUserID {
		return unauthorized("only the creator can delete group %d", groupID)
	}

	rows, err := uow.BalanceRepository().GetByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to get group balances: %w", err)
	}
	for _, row := range rows {
		if !row.Amount.IsZero() {
			return outstandingBalance("group %d still has unsettled balances", groupID)
		}
	}

	if err := uow.GroupRepository().Delete(ctx, groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"groupID":   groupID,
		"deletedBy": actingUserID,
	}).Info("Group deleted")

	return nil
}
