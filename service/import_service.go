package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"splitledger/events"
	"splitledger/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type importService struct {
	uowFactory UnitOfWorkFactory
}

// NewImportService creates a new Splitwise import service
func NewImportService(uowFactory UnitOfWorkFactory) ImportService {
	return &importService{
		uowFactory: uowFactory,
	}
}

// Wire shapes use pointers so that absent ids can be told apart from the 0 sentinel.
type splitwiseMemberWire struct {
	ID        *int64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type splitwiseGroupWire struct {
	ID      *int64                `json:"id"`
	Name    string                `json:"name"`
	Members []splitwiseMemberWire `json:"members"`
}

type splitwiseFriendWire struct {
	ID                 *int64                    `json:"id"`
	FirstName          string                    `json:"first_name"`
	LastName           string                    `json:"last_name"`
	Email              string                    `json:"email"`
	RegistrationStatus string                    `json:"registration_status"`
	Balance            []models.SplitwiseBalance `json:"balance"`
}

type splitwiseExportWire struct {
	Friends []splitwiseFriendWire `json:"friends"`
	Groups  []splitwiseGroupWire  `json:"groups"`
}

// ParseExport decodes a Splitwise export
func (s *importService) ParseExport(r io.Reader) (*models.SplitwiseExport, error) {
	return ParseSplitwiseExport(r)
}

// ParseSplitwiseExport decodes a Splitwise export. Any structural problem is reported as ErrImportFailed.
func ParseSplitwiseExport(r io.Reader) (*models.SplitwiseExport, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var wire splitwiseExportWire
	if err := decoder.Decode(&wire); err != nil {
		return nil, importFailed("malformed export: %v", err)
	}
	if decoder.More() {
		return nil, importFailed("malformed export: trailing data after JSON document")
	}

	export := &models.SplitwiseExport{
		Friends: make([]models.SplitwiseFriend, 0, len(wire.Friends)),
		Groups:  make([]models.SplitwiseGroup, 0, len(wire.Groups)),
	}

	for i, f := range wire.Friends {
		if f.ID == nil {
			return nil, importFailed("friend at index %d has no id", i)
		}
		export.Friends = append(export.Friends, models.SplitwiseFriend{
			ID:                 *f.ID,
			FirstName:          f.FirstName,
			LastName:           f.LastName,
			Email:              f.Email,
			RegistrationStatus: f.RegistrationStatus,
			Balance:            f.Balance,
		})
	}

	for i, g := range wire.Groups {
		if g.ID == nil {
			return nil, importFailed("group at index %d has no id", i)
		}
		group := models.SplitwiseGroup{
			ID:      *g.ID,
			Name:    g.Name,
			Members: make([]models.SplitwiseMember, 0, len(g.Members)),
		}
		for j, m := range g.Members {
			if m.ID == nil {
				return nil, importFailed("member at index %d of group %d has no id", j, *g.ID)
			}
			group.Members = append(group.Members, models.SplitwiseMember{
				ID:        *m.ID,
				FirstName: m.FirstName,
				LastName:  m.LastName,
				Email:     m.Email,
			})
		}
		export.Groups = append(export.Groups, group)
	}

	for _, f := range export.Friends {
		for _, b := range f.Balance {
			if _, err := b.ParsedAmount(); err != nil {
				return nil, importFailed("friend %d has an unparsable %s amount %q", f.ID, b.CurrencyCode, b.Amount)
			}
		}
	}

	return export, nil
}

// FilterFriends keeps confirmed friends with at least one non-zero balance entry
func FilterFriends(friends []models.SplitwiseFriend) []models.SplitwiseFriend {
	retained := make([]models.SplitwiseFriend, 0, len(friends))
	for _, f := range friends {
		if f.RegistrationStatus != models.SplitwiseRegistrationConfirmed {
			continue
		}
		for _, b := range f.Balance {
			amount, err := b.ParsedAmount()
			if err == nil && strings.TrimSpace(b.Amount) != "" && !amount.IsZero() {
				retained = append(retained, f)
				break
			}
		}
	}
	return retained
}

// FilterGroups keeps groups with members, dropping the "non-group expenses" placeholder
func FilterGroups(groups []models.SplitwiseGroup) []models.SplitwiseGroup {
	retained := make([]models.SplitwiseGroup, 0, len(groups))
	for _, g := range groups {
		if g.ID == models.SplitwiseNoGroupID || len(g.Members) == 0 {
			continue
		}
		retained = append(retained, g)
	}
	return retained
}

// friendBalances sums a friend's entries per normalized currency code
func friendBalances(f models.SplitwiseFriend) (map[string]decimal.Decimal, error) {
	totals := make(map[string]decimal.Decimal)
	for _, b := range f.Balance {
		amount, err := b.ParsedAmount()
		if err != nil {
			return nil, importFailed("friend %d has an unparsable %s amount %q", f.ID, b.CurrencyCode, b.Amount)
		}
		code, _, err := normalizeCurrency(b.CurrencyCode)
		if err != nil {
			return nil, importFailed("friend %d has an unknown currency %q", f.ID, b.CurrencyCode)
		}
		totals[code] = totals[code].Add(amount)
	}
	return totals, nil
}

func validEmail(email string) bool {
	email = models.NormalizeEmail(email)
	return email != "" && strings.Contains(email, "@")
}

// validateRecords checks the retained records before anything is written
func validateRecords(friends []models.SplitwiseFriend, groups []models.SplitwiseGroup) error {
	for _, f := range friends {
		if !validEmail(f.Email) {
			return importFailed("friend %d has no usable email", f.ID)
		}
		if _, err := friendBalances(f); err != nil {
			return err
		}
	}
	for _, g := range groups {
		for _, m := range g.Members {
			if !validEmail(m.Email) {
				return importFailed("member %d of group %d has no usable email", m.ID, g.ID)
			}
		}
	}
	return nil
}

// ImportFromSplitwise merges friends, balances and groups into the ledger.
// Each friend and each group is imported in its own transaction; a failing record is reported
// in the result and does not undo records already imported. Re-running with the same data
// changes nothing, and re-running after a failure completes what was missing.
func (s *importService) ImportFromSplitwise(ctx context.Context, actingUserID int64, friends []models.SplitwiseFriend, groups []models.SplitwiseGroup) (*models.ImportResult, error) {
	retainedFriends := FilterFriends(friends)
	retainedGroups := FilterGroups(groups)

	if err := validateRecords(retainedFriends, retainedGroups); err != nil {
		return nil, err
	}

	importer, err := s.loadImporter(ctx, actingUserID)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{
		ImportID:       uuid.NewString(),
		FriendsSkipped: len(friends) - len(retainedFriends),
		GroupsSkipped:  len(groups) - len(retainedGroups),
	}

	logger := log.WithFields(log.Fields{
		"importID": result.ImportID,
		"userID":   actingUserID,
	})
	logger.WithFields(log.Fields{
		"friends": len(retainedFriends),
		"groups":  len(retainedGroups),
	}).Info("Starting Splitwise import")

	var errs []error
	for _, f := range retainedFriends {
		if err := s.importFriend(ctx, importer, f, result); err != nil {
			logger.WithError(err).WithField("splitwiseFriendID", f.ID).Warn("Failed to import friend")
			result.Failures = append(result.Failures, models.ImportFailure{
				Kind:       models.ExternalIdentityUser,
				ExternalID: f.ExternalID(),
				Error:      err.Error(),
			})
			errs = append(errs, fmt.Errorf("friend %s: %w", f.ExternalID(), err))
		}
	}

	for _, g := range retainedGroups {
		if err := s.importGroup(ctx, importer, g, result); err != nil {
			logger.WithError(err).WithField("splitwiseGroupID", g.ID).Warn("Failed to import group")
			result.Failures = append(result.Failures, models.ImportFailure{
				Kind:       models.ExternalIdentityGroup,
				ExternalID: g.ExternalID(),
				Error:      err.Error(),
			})
			errs = append(errs, fmt.Errorf("group %s: %w", g.ExternalID(), err))
		}
	}

	if err := s.publishFinished(ctx, importer.ID, result); err != nil {
		logger.WithError(err).Warn("Failed to publish import summary")
	}

	logger.WithFields(log.Fields{
		"usersCreated":     result.UsersCreated,
		"balancesApplied":  result.BalancesApplied,
		"groupsCreated":    result.GroupsCreated,
		"membershipsAdded": result.MembershipsAdded,
		"failures":         len(result.Failures),
	}).Info("Splitwise import finished")

	return result, errors.Join(errs...)
}

func (s *importService) loadImporter(ctx context.Context, userID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get importing user: %w", err)
	}
	if user == nil {
		return nil, notFound("user %d", userID)
	}
	return user, nil
}

// resolveUser reuses the local user with the email or creates one with the importer's preferences,
// then links the Splitwise id to it
func resolveUser(ctx context.Context, uow UnitOfWork, importer *models.User, externalID, email, name string) (*models.User, bool, error) {
	user, err := uow.UserRepository().GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up user by email: %w", err)
	}

	created := false
	if user == nil {
		user = &models.User{
			Email:    email,
			Name:     name,
			Currency: importer.Currency,
			Language: importer.Language,
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("failed to create user: %w", err)
		}
		created = true
	}

	if err := uow.ImportRepository().LinkIdentity(ctx, &models.ExternalIdentity{
		Provider:   models.SplitwiseProvider,
		EntityType: models.ExternalIdentityUser,
		ExternalID: externalID,
		LocalID:    user.ID,
	}); err != nil {
		return nil, false, err
	}

	return user, created, nil
}

func (s *importService) importFriend(ctx context.Context, importer *models.User, f models.SplitwiseFriend, result *models.ImportResult) error {
	balances, err := friendBalances(f)
	if err != nil {
		return err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	friend, created, err := resolveUser(ctx, uow, importer, f.ExternalID(), f.Email, f.FullName())
	if err != nil {
		return err
	}
	if friend.ID == importer.ID {
		return badRequest("friend %d resolves to the importing user", f.ID)
	}

	currencies := make([]string, 0, len(balances))
	for code := range balances {
		currencies = append(currencies, code)
	}
	sort.Strings(currencies)

	applied := 0
	for _, code := range currencies {
		key := models.NewPairKey(nil, importer.ID, friend.ID, code)
		target := models.CanonicalDelta(importer.ID, friend.ID, balances[code])
		previous, err := uow.ImportRepository().ClaimImportedBalance(ctx, key)
		if err != nil {
			return err
		}

		delta := target.Sub(previous)
		if delta.IsZero() {
			continue
		}
		if err := applyPairDelta(ctx, uow, nil, importer.ID, friend.ID, code, models.CanonicalDelta(importer.ID, friend.ID, delta), nil); err != nil {
			return err
		}
		if err := uow.ImportRepository().SetImportedBalance(ctx, key, target); err != nil {
			return err
		}
		applied++
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if created {
		result.UsersCreated++
	} else {
		result.UsersReused++
	}
	result.BalancesApplied += applied
	return nil
}

func (s *importService) importGroup(ctx context.Context, importer *models.User, g models.SplitwiseGroup, result *models.ImportResult) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	group, created, err := s.resolveGroup(ctx, uow, importer, g)
	if err != nil {
		return err
	}

	usersCreated, usersReused, membershipsAdded := 0, 0, 0

	added, err := uow.GroupRepository().AddMember(ctx, group.ID, importer.ID)
	if err != nil {
		return err
	}
	if added {
		membershipsAdded++
	}

	for _, m := range g.Members {
		member, memberCreated, err := resolveUser(ctx, uow, importer, fmt.Sprintf("%d", m.ID), m.Email, m.FullName())
		if err != nil {
			return err
		}
		if member.ID != importer.ID {
			if memberCreated {
				usersCreated++
			} else {
				usersReused++
			}
		}

		added, err := uow.GroupRepository().AddMember(ctx, group.ID, member.ID)
		if err != nil {
			return err
		}
		if added {
			membershipsAdded++
			uow.EventBus().Publish(events.GroupMemberAddedEvent{
				GroupID: group.ID,
				UserID:  member.ID,
				AddedBy: importer.ID,
			})
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if created {
		result.GroupsCreated++
	} else {
		result.GroupsReused++
	}
	result.UsersCreated += usersCreated
	result.UsersReused += usersReused
	result.MembershipsAdded += membershipsAdded
	return nil
}

// resolveGroup reuses the group linked to the Splitwise id or creates and links a new one
func (s *importService) resolveGroup(ctx context.Context, uow UnitOfWork, importer *models.User, g models.SplitwiseGroup) (*models.Group, bool, error) {
	identity, err := uow.ImportRepository().FindIdentity(ctx, models.SplitwiseProvider, models.ExternalIdentityGroup, g.ExternalID())
	if err != nil {
		return nil, false, err
	}

	if identity != nil {
		group, err := uow.GroupRepository().GetByID(ctx, identity.LocalID)
		if err != nil {
			return nil, false, err
		}
		if group != nil {
			return group, false, nil
		}
	}

	name := strings.TrimSpace(g.Name)
	if name == "" {
		name = fmt.Sprintf("Splitwise group %d", g.ID)
	}

	group := &models.Group{Name: name, CreatedBy: importer.ID}
	if err := uow.GroupRepository().Create(ctx, group); err != nil {
		return nil, false, err
	}

	if err := uow.ImportRepository().LinkIdentity(ctx, &models.ExternalIdentity{
		Provider:   models.SplitwiseProvider,
		EntityType: models.ExternalIdentityGroup,
		ExternalID: g.ExternalID(),
		LocalID:    group.ID,
	}); err != nil {
		return nil, false, err
	}

	return group, true, nil
}

func (s *importService) publishFinished(ctx context.Context, userID int64, result *models.ImportResult) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	uow.EventBus().Publish(events.SplitwiseImportFinishedEvent{
		ImportID:        result.ImportID,
		UserID:          userID,
		UsersCreated:    result.UsersCreated,
		GroupsCreated:   result.GroupsCreated,
		BalancesApplied: result.BalancesApplied,
		Failures:        len(result.Failures),
	})

	return uow.Commit()
}
