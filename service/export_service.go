package service

import (
	"context"
	"fmt"
	"time"

	"splitledger/models"
)

type exportService struct {
	uowFactory UnitOfWorkFactory
}

// NewExportService creates a new export service
func NewExportService(uowFactory UnitOfWorkFactory) ExportService {
	return &exportService{
		uowFactory: uowFactory,
	}
}

// DownloadData returns a snapshot of everything the user can see, read in a single transaction
func (s *exportService) DownloadData(ctx context.Context, userID int64) (*models.DataExport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user %d", userID)
	}

	summary, err := summarizeBalances(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	groups, err := uow.GroupRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	groupExports := make([]*models.GroupExport, 0, len(groups))
	for _, group := range groups {
		members, err := uow.GroupRepository().GetMembers(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get members of group %d: %w", group.ID, err)
		}
		rows, err := uow.BalanceRepository().GetByGroup(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get balances of group %d: %w", group.ID, err)
		}
		groupExports = append(groupExports, &models.GroupExport{
			Group:    group,
			Members:  members,
			Balances: models.NewBalanceSheet(orientRows(rows, userID)),
		})
	}

	expenses, err := uow.ExpenseRepository().ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	return &models.DataExport{
		ExportedAt: time.Now().UTC(),
		User:       user,
		Friends:    summary.Friends,
		Groups:     groupExports,
		Expenses:   expenses,
	}, nil
}
