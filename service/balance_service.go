package service

import (
	"context"
	"fmt"
	"sort"

	"splitledger/models"
)

type balanceService struct {
	uowFactory UnitOfWorkFactory
}

// NewBalanceService creates a new balance query service
func NewBalanceService(uowFactory UnitOfWorkFactory) BalanceService {
	return &balanceService{
		uowFactory: uowFactory,
	}
}

// GetBalances summarizes what the user owes and is owed, per friend and in total
func (s *balanceService) GetBalances(ctx context.Context, userID int64) (*models.BalanceSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return summarizeBalances(ctx, uow, userID)
}

// GetBalancesWithFriend returns the position between two users across every scope
func (s *balanceService) GetBalancesWithFriend(ctx context.Context, userID, friendID int64) (*models.BalanceSheet, error) {
	if userID == friendID {
		return nil, badRequest("cannot get balances with yourself")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	friend, err := uow.UserRepository().GetByID(ctx, friendID)
	if err != nil {
		return nil, fmt.Errorf("failed to get friend: %w", err)
	}
	if friend == nil {
		return nil, notFound("user %d", friendID)
	}

	rows, err := uow.BalanceRepository().GetPair(ctx, userID, friendID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	return models.NewBalanceSheet(orientRows(rows, userID)), nil
}

// GetGroupBalances returns every non-zero pair in a group to one of its members.
// Pairs involving the caller are oriented to them; the sheet covers the caller's own position.
func (s *balanceService) GetGroupBalances(ctx context.Context, groupID, userID int64) (*models.GroupBalances, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireGroupMember(ctx, uow, groupID, userID); err != nil {
		return nil, err
	}

	rows, err := uow.BalanceRepository().GetByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group balances: %w", err)
	}

	return groupBalances(groupID, rows, userID), nil
}

func groupBalances(groupID int64, rows []*models.LedgerRow, userID int64) *models.GroupBalances {
	result := &models.GroupBalances{
		GroupID: groupID,
		Rows:    []*models.Balance{},
	}
	for _, row := range rows {
		if row.Amount.IsZero() {
			continue
		}
		if row.Involves(userID) {
			result.Rows = append(result.Rows, row.OrientFor(userID))
		} else {
			result.Rows = append(result.Rows, row.OrientFor(row.UserA))
		}
	}
	result.Sheet = models.NewBalanceSheet(orientRows(rows, userID))
	return result
}

// summarizeBalances builds the per-friend view of every row involving userID
func summarizeBalances(ctx context.Context, uow UnitOfWork, userID int64) (*models.BalanceSummary, error) {
	rows, err := uow.BalanceRepository().GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	oriented := orientRows(rows, userID)
	byFriend := make(map[int64][]*models.Balance)
	for _, b := range oriented {
		byFriend[b.FriendID] = append(byFriend[b.FriendID], b)
	}

	friendIDs := make([]int64, 0, len(byFriend))
	for id, balances := range byFriend {
		if !models.NewBalanceSheet(balances).IsEmpty() {
			friendIDs = append(friendIDs, id)
		}
	}
	sort.Slice(friendIDs, func(i, j int) bool { return friendIDs[i] < friendIDs[j] })

	friends, err := uow.UserRepository().GetByIDs(ctx, friendIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}

	summary := &models.BalanceSummary{
		UserID:  userID,
		Friends: make([]*models.FriendBalance, 0, len(friends)),
		Total:   models.NewBalanceSheet(oriented),
	}
	for _, friend := range friends {
		summary.Friends = append(summary.Friends, &models.FriendBalance{
			Friend: friend,
			Sheet:  models.NewBalanceSheet(byFriend[friend.ID]),
		})
	}

	return summary, nil
}
