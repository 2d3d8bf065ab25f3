package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weddia/escrow-api/internal/config"
	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/repository"
)

type mockAuthUserRepo struct {
	repository.UserRepository
	mockCreate      func(ctx context.Context, user *models.User) error
	mockFindByEmail func(ctx context.Context, email string) (*models.User, error)
	mockFindByID    func(ctx context.Context, id uint) (*models.User, error)
}

func (m *mockAuthUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.mockFindByEmail(ctx, email)
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return m.mockFindByID(ctx, id)
}

type mockRefreshTokenRepo struct {
	repository.RefreshTokenRepository
	mockCreate      func(ctx context.Context, token *models.RefreshToken) error
	mockFindByToken func(ctx context.Context, token string) (*models.RefreshToken, error)
	mockDelete      func(ctx context.Context, token string) error
}

func (m *mockRefreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, token)
	}
	return nil
}

func (m *mockRefreshTokenRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return m.mockFindByToken(ctx, token)
}

func (m *mockRefreshTokenRepo) Delete(ctx context.Context, token string) error {
	if m.mockDelete != nil {
		return m.mockDelete(ctx, token)
	}
	return nil
}

func authTestConfig() *config.Config {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	cfg.JWTExpirationHours = 24
	return cfg
}

func TestAuthService_Register_RejectsAdminRole(t *testing.T) {
	service := NewAuthService(&mockAuthUserRepo{}, &mockRefreshTokenRepo{}, authTestConfig())

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "admin@example.com",
		Password: "password123",
		FullName: "Wannabe Admin",
		Role:     models.RoleAdmin,
	})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestAuthService_Register_DefaultsToCustomer(t *testing.T) {
	repo := &mockAuthUserRepo{}
	repo.mockCreate = func(ctx context.Context, user *models.User) error {
		user.ID = 5
		return nil
	}
	service := NewAuthService(repo, &mockRefreshTokenRepo{}, authTestConfig())

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "couple@example.com",
		Password: "password123",
		FullName: "Jane Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.NotEqual(t, "password123", user.EncryptedPassword)
	assert.True(t, VerifyPassword("password123", user.EncryptedPassword))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	hash, _ := HashPassword("correct-password")
	repo := &mockAuthUserRepo{}
	repo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email, EncryptedPassword: hash, Status: models.StatusActive}, nil
	}
	service := NewAuthService(repo, &mockRefreshTokenRepo{}, authTestConfig())

	result, err := service.Login(context.Background(), "couple@example.com", "wrong-password")
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	repo := &mockAuthUserRepo{}
	repo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email, Status: models.StatusSuspended}, nil
	}
	service := NewAuthService(repo, &mockRefreshTokenRepo{}, authTestConfig())

	result, err := service.Login(context.Background(), "suspended@example.com", "password")
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestAuthService_Login_ReturnsTokens(t *testing.T) {
	hash, _ := HashPassword("correct-password")
	repo := &mockAuthUserRepo{}
	repo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email, Role: models.RoleCustomer, EncryptedPassword: hash, Status: models.StatusActive}, nil
	}
	service := NewAuthService(repo, &mockRefreshTokenRepo{}, authTestConfig())

	result, err := service.Login(context.Background(), "couple@example.com", "correct-password")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, uint(1), result.User.ID)
}

func TestAuthService_RefreshToken_ExpiredTokenDeleted(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	deleted := false
	rtRepo := &mockRefreshTokenRepo{}
	rtRepo.mockFindByToken = func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 1, Token: token, ExpiresAt: &expired}, nil
	}
	rtRepo.mockDelete = func(ctx context.Context, token string) error {
		deleted = true
		return nil
	}
	service := NewAuthService(&mockAuthUserRepo{}, rtRepo, authTestConfig())

	result, err := service.RefreshToken(context.Background(), "stale")
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
	assert.True(t, deleted)
}

func TestAuthService_RefreshToken_RotatesToken(t *testing.T) {
	future := time.Now().Add(time.Hour)
	var deletedToken string
	rtRepo := &mockRefreshTokenRepo{}
	rtRepo.mockFindByToken = func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 1, Token: token, ExpiresAt: &future}, nil
	}
	rtRepo.mockDelete = func(ctx context.Context, token string) error {
		deletedToken = token
		return nil
	}
	userRepo := &mockAuthUserRepo{}
	userRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Email: "couple@example.com", Role: models.RoleCustomer, Status: models.StatusActive}, nil
	}
	service := NewAuthService(userRepo, rtRepo, authTestConfig())

	result, err := service.RefreshToken(context.Background(), "old-token")
	require.NoError(t, err)
	assert.Equal(t, "old-token", deletedToken)
	assert.NotEqual(t, "old-token", result.RefreshToken)
	assert.NotEmpty(t, result.Token)
}
