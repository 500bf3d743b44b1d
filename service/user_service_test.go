package service

import (
	"context"
	"testing"

	"splitledger/config"
	"splitledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserServiceWithMocks(ctx context.Context) (UserService, *MockUnitOfWork) {
	mockFactory := new(MockUnitOfWorkFactory)
	mockUoW := NewMockUnitOfWork()
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	cfg := config.NewTestConfig()
	cfg.DefaultCurrency = "EUR"
	cfg.DefaultLanguage = "fr"
	return NewUserService(mockFactory, cfg), mockUoW
}

func TestUserService_GetOrCreateUser_ExistingUser(t *testing.T) {
	ctx := context.Background()
	service, mockUoW := newUserServiceWithMocks(ctx)

	existing := &models.User{ID: 4, Email: "alice@example.com"}
	mockUoW.UserRepo.On("GetByEmail", ctx, "alice@example.com").Return(existing, nil)

	user, err := service.GetOrCreateUser(ctx, " Alice@Example.com", "Alice")

	require.NoError(t, err)
	assert.Equal(t, existing, user)
	// No Commit() expected since nothing changed
	mockUoW.AssertNotCalled(t, "Commit")
	mockUoW.UserRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_GetOrCreateUser_NewUserGetsDefaults(t *testing.T) {
	ctx := context.Background()
	service, mockUoW := newUserServiceWithMocks(ctx)
	mockUoW.On("Commit").Return(nil)

	mockUoW.UserRepo.On("GetByEmail", ctx, "new@example.com").Return(nil, nil)
	mockUoW.UserRepo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Currency == "EUR" && u.Language == "fr" && u.Name == "New"
	})).Return(nil)

	_, err := service.GetOrCreateUser(ctx, "new@example.com", " New ")

	require.NoError(t, err)
	mockUoW.AssertCalled(t, "Commit")
}

func TestUserService_GetOrCreateUser_InvalidEmail(t *testing.T) {
	ctx := context.Background()
	service, _ := newUserServiceWithMocks(ctx)

	_, err := service.GetOrCreateUser(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestUserService_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	currency := "jpy"
	lang := "pt-br"
	blank := "  "

	t.Run("normalizes currency and language", func(t *testing.T) {
		service, mockUoW := newUserServiceWithMocks(ctx)
		mockUoW.On("Commit").Return(nil)
		mockUoW.UserRepo.On("GetByID", ctx, int64(1)).Return(&models.User{ID: 1, Name: "A", Currency: "USD", Language: "en"}, nil)
		mockUoW.UserRepo.On("UpdateDetails", ctx, mock.Anything).Return(nil)

		user, err := service.UpdateDetails(ctx, 1, models.UserDetails{Currency: &currency, Language: &lang})

		require.NoError(t, err)
		assert.Equal(t, "JPY", user.Currency)
		assert.Equal(t, "pt-BR", user.Language)
		assert.Equal(t, "A", user.Name)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		service, mockUoW := newUserServiceWithMocks(ctx)
		mockUoW.UserRepo.On("GetByID", ctx, int64(1)).Return(&models.User{ID: 1}, nil)

		_, err := service.UpdateDetails(ctx, 1, models.UserDetails{Name: &blank})
		assert.ErrorIs(t, err, ErrBadRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		service, mockUoW := newUserServiceWithMocks(ctx)
		mockUoW.UserRepo.On("GetByID", ctx, int64(9)).Return(nil, nil)

		_, err := service.UpdateDetails(ctx, 9, models.UserDetails{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
