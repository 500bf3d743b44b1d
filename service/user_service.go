package service

import (
	"context"
	"fmt"
	"strings"

	"splitledger/config"
	"splitledger/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, cfg *config.Config) UserService {
	return &userService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// normalizeLanguage validates a BCP 47 tag and returns its canonical form
func normalizeLanguage(tag string) (string, error) {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", badRequest("unknown language %q", tag)
	}
	return parsed.String(), nil
}

// GetOrCreateUser retrieves an existing user by email or creates one with default preferences
func (s *userService) GetOrCreateUser(ctx context.Context, email, name string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, badRequest("invalid email %q", email)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user = &models.User{
		Email:    email,
		Name:     strings.TrimSpace(name),
		Currency: s.config.DefaultCurrency,
		Language: s.config.DefaultLanguage,
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID": user.ID,
	}).Info("User created")

	return user, nil
}

// GetUser returns a user by id
func (s *userService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
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
	return user, nil
}

// UpdateDetails changes the fields set in details
func (s *userService) UpdateDetails(ctx context.Context, userID int64, details models.UserDetails) (*models.User, error) {
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

	if details.Name != nil {
		name := strings.TrimSpace(*details.Name)
		if name == "" {
			return nil, badRequest("name cannot be empty")
		}
		user.Name = name
	}
	if details.Currency != nil {
		code, _, err := normalizeCurrency(*details.Currency)
		if err != nil {
			return nil, err
		}
		user.Currency = code
	}
	if details.Language != nil {
		tag, err := normalizeLanguage(*details.Language)
		if err != nil {
			return nil, err
		}
		user.Language = tag
	}

	if err := uow.UserRepository().UpdateDetails(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}
