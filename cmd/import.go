package cmd

import (
	"context"
	"fmt"
	"os"

	"splitledger/config"
	"splitledger/database"
	"splitledger/events"
	"splitledger/repository"
	"splitledger/service"

	log "github.com/sirupsen/logrus"
)

// ImportFile imports a Splitwise export file on behalf of the user with email, creating the user if needed
func ImportFile(ctx context.Context, email, path string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer file.Close()

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uowFactory := repository.NewUnitOfWorkFactory(db, events.NewBus())
	importService := service.NewImportService(uowFactory)

	export, err := importService.ParseExport(file)
	if err != nil {
		return err
	}

	user, err := service.NewUserService(uowFactory, cfg).GetOrCreateUser(ctx, email, "")
	if err != nil {
		return err
	}

	result, err := importService.ImportFromSplitwise(ctx, user.ID, export.Friends, export.Groups)
	if result != nil {
		log.WithFields(log.Fields{
			"importID":         result.ImportID,
			"usersCreated":     result.UsersCreated,
			"usersReused":      result.UsersReused,
			"balancesApplied":  result.BalancesApplied,
			"groupsCreated":    result.GroupsCreated,
			"groupsReused":     result.GroupsReused,
			"membershipsAdded": result.MembershipsAdded,
			"friendsSkipped":   result.FriendsSkipped,
			"groupsSkipped":    result.GroupsSkipped,
		}).Info("Import summary")
		for _, f := range result.Failures {
			log.WithFields(log.Fields{
				"kind":       f.Kind,
				"externalID": f.ExternalID,
			}).Warn(f.Error)
		}
	}
	return err
}
