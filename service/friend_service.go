package service

import (
	"context"
	"fmt"
	"strings"

	"splitledger/events"
	"splitledger/models"

	log "github.com/sirupsen/logrus"
)

type friendService struct {
	uowFactory UnitOfWorkFactory
}

// NewFriendService creates a new friend service
func NewFriendService(uowFactory UnitOfWorkFactory) FriendService {
	return &friendService{
		uowFactory: uowFactory,
	}
}

// DeleteFriend removes the direct balance rows between two users.
// Any non-zero balance between them, in any group or currency, blocks the removal.
// Settled group rows stay with their group, so a pair with no direct rows left is not found.
func (s *friendService) DeleteFriend(ctx context.Context, friendID, actingUserID int64) error {
	if friendID == actingUserID {
		return badRequest("cannot remove yourself as a friend")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rows, err := uow.BalanceRepository().GetPair(ctx, actingUserID, friendID, true)
	if err != nil {
		return fmt.Errorf("failed to get balances: %w", err)
	}
	if len(rows) == 0 {
		return notFound("user %d is not a friend of user %d", friendID, actingUserID)
	}

	var outstanding []string
	direct := false
	for _, row := range rows {
		if row.GroupID == nil {
			direct = true
		}
		if !row.Amount.IsZero() {
			b := row.OrientFor(actingUserID)
			outstanding = append(outstanding, fmt.Sprintf("%s %s", b.Amount.String(), b.Currency))
		}
	}
	if len(outstanding) > 0 {
		return outstandingBalance("settle %s with user %d first", strings.Join(outstanding, ", "), friendID)
	}
	if !direct {
		return notFound("user %d is not a friend of user %d", friendID, actingUserID)
	}

	removed, err := uow.BalanceRepository().DeleteDirect(ctx, actingUserID, friendID)
	if err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}

	uow.EventBus().Publish(events.FriendRemovedEvent{
		UserID:   actingUserID,
		FriendID: friendID,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":      actingUserID,
		"friendID":    friendID,
		"rowsRemoved": removed,
	}).Info("Friend removed")

	return nil
}

// orientRows returns the rows involving userID as seen from their side
func orientRows(rows []*models.LedgerRow, userID int64) []*models.Balance {
	balances := make([]*models.Balance, 0, len(rows))
	for _, row := range rows {
		if row.Involves(userID) {
			balances = append(balances, row.OrientFor(userID))
		}
	}
	return balances
}
