package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weddia/escrow-api/internal/jobs"
	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/repository"
)

// Mock DisputeRepository
type mockDisputeRepo struct {
	repository.DisputeRepository
	mockOpen     func(ctx context.Context, dispute *models.Dispute) error
	mockFindByID func(ctx context.Context, id uint) (*models.Dispute, error)
	mockUpdate   func(ctx context.Context, dispute *models.Dispute) error
	mockResolve  func(ctx context.Context, id uint, resolution models.Resolution) (*models.Dispute, *models.EscrowAccount, error)
	mockClose    func(ctx context.Context, id uint, actorID uint) (*models.Dispute, error)
}

func (m *mockDisputeRepo) Open(ctx context.Context, dispute *models.Dispute) error {
	if m.mockOpen != nil {
		return m.mockOpen(ctx, dispute)
	}
	dispute.ID = 1
	dispute.Status = models.DisputeStatusOpen
	return nil
}

func (m *mockDisputeRepo) FindByID(ctx context.Context, id uint) (*models.Dispute, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockDisputeRepo) Update(ctx context.Context, dispute *models.Dispute) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, dispute)
	}
	return nil
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, id uint, resolution models.Resolution) (*models.Dispute, *models.EscrowAccount, error) {
	return m.mockResolve(ctx, id, resolution)
}

func (m *mockDisputeRepo) Close(ctx context.Context, id uint, actorID uint) (*models.Dispute, error) {
	return m.mockClose(ctx, id, actorID)
}

func newTestDisputeService(repo repository.DisputeRepository, escrowRepo repository.EscrowRepository) *DisputeService {
	worker := jobs.NewWorker(1)
	notificationSvc := NewNotificationService(&mockNotificationRepo{}, &mockUserRepo{})
	auditSvc := NewAuditService(&mockAuditRepo{})
	return NewDisputeService(repo, escrowRepo, notificationSvc, auditSvc, worker)
}

func escrowRepoReturning(account *models.EscrowAccount) *mockEscrowRepo {
	repo := &mockEscrowRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.EscrowAccount, error) {
		return account, nil
	}
	return repo
}

func TestDisputeService_Create_OnlyPartiesMayRaise(t *testing.T) {
	service := newTestDisputeService(&mockDisputeRepo{}, escrowRepoReturning(fundedTestAccount(1)))

	_, err := service.Create(context.Background(), CreateDisputeInput{
		EscrowAccountID: 1,
		DisputeType:     models.DisputeTypeQualityIssue,
		Reason:          "cold food",
	}, 99)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestDisputeService_Create_RejectsUnknownType(t *testing.T) {
	service := newTestDisputeService(&mockDisputeRepo{}, escrowRepoReturning(fundedTestAccount(1)))

	_, err := service.Create(context.Background(), CreateDisputeInput{
		EscrowAccountID: 1,
		DisputeType:     "vibes",
		Reason:          "bad vibes",
	}, 10)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestDisputeService_Create_AmountCannotExceedRemaining(t *testing.T) {
	service := newTestDisputeService(&mockDisputeRepo{}, escrowRepoReturning(fundedTestAccount(1)))

	amount := 950.0 // remaining is 900
	_, err := service.Create(context.Background(), CreateDisputeInput{
		EscrowAccountID: 1,
		DisputeType:     models.DisputeTypeOvercharge,
		Reason:          "charged twice",
		Amount:          &amount,
	}, 10)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestDisputeService_Create_OpensAndFillsDefaults(t *testing.T) {
	repo := &mockDisputeRepo{}
	repo.mockOpen = func(ctx context.Context, dispute *models.Dispute) error {
		assert.Equal(t, uint(10), dispute.RaisedBy)
		assert.Equal(t, models.DisputeTypeServiceNotProvided, dispute.DisputeType)
		dispute.ID = 42
		dispute.Status = models.DisputeStatusOpen
		return nil
	}
	service := newTestDisputeService(repo, escrowRepoReturning(fundedTestAccount(1)))

	dispute, err := service.Create(context.Background(), CreateDisputeInput{
		EscrowAccountID: 1,
		DisputeType:     models.DisputeTypeServiceNotProvided,
		Reason:          "band never showed",
	}, 10)
	require.NoError(t, err)
	assert.Equal(t, uint(42), dispute.ID)
	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
}

func TestDisputeService_Create_SecondActiveDisputeRejected(t *testing.T) {
	repo := &mockDisputeRepo{}
	repo.mockOpen = func(ctx context.Context, dispute *models.Dispute) error {
		return models.ErrDuplicateActiveDispute
	}
	service := newTestDisputeService(repo, escrowRepoReturning(fundedTestAccount(1)))

	_, err := service.Create(context.Background(), CreateDisputeInput{
		EscrowAccountID: 1,
		DisputeType:     models.DisputeTypeOther,
		Reason:          "again",
	}, 10)
	assert.True(t, errors.Is(err, models.ErrDuplicateActiveDispute))
}

func TestDisputeService_MarkUnderReview_AdminOnly(t *testing.T) {
	service := newTestDisputeService(&mockDisputeRepo{}, &mockEscrowRepo{})

	customer := &models.User{ID: 10, Role: models.RoleCustomer}
	_, err := service.MarkUnderReview(context.Background(), 1, customer)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestDisputeService_MarkUnderReview_Transitions(t *testing.T) {
	repo := &mockDisputeRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.Dispute, error) {
		return &models.Dispute{ID: id, Status: models.DisputeStatusOpen}, nil
	}
	service := newTestDisputeService(repo, &mockEscrowRepo{})

	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	dispute, err := service.MarkUnderReview(context.Background(), 1, admin)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusUnderReview, dispute.Status)
}

func TestDisputeService_MarkUnderReview_ResolvedIsFinal(t *testing.T) {
	repo := &mockDisputeRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.Dispute, error) {
		return &models.Dispute{ID: id, Status: models.DisputeStatusResolved}, nil
	}
	service := newTestDisputeService(repo, &mockEscrowRepo{})

	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	_, err := service.MarkUnderReview(context.Background(), 1, admin)
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestDisputeService_Resolve_AdminOnly(t *testing.T) {
	service := newTestDisputeService(&mockDisputeRepo{}, &mockEscrowRepo{})

	vendor := &models.User{ID: 20, Role: models.RoleVendor}
	_, err := service.Resolve(context.Background(), 1, ResolveDisputeInput{
		Action: models.ResolutionFullRefund, RefundAmount: 900,
	}, vendor)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestDisputeService_Resolve_SplitMustMatchDisputedAmount(t *testing.T) {
	disputed := 500.0
	repo := &mockDisputeRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.Dispute, error) {
		return &models.Dispute{ID: id, Status: models.DisputeStatusOpen, Amount: &disputed}, nil
	}
	service := newTestDisputeService(repo, &mockEscrowRepo{})

	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	_, err := service.Resolve(context.Background(), 1, ResolveDisputeInput{
		Action: models.ResolutionSplit, RefundAmount: 100, ReleaseAmount: 100,
	}, admin)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestDisputeService_Resolve_Split(t *testing.T) {
	disputed := 500.0
	repo := &mockDisputeRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.Dispute, error) {
		return &models.Dispute{ID: id, Status: models.DisputeStatusOpen, Amount: &disputed}, nil
	}
	repo.mockResolve = func(ctx context.Context, id uint, resolution models.Resolution) (*models.Dispute, *models.EscrowAccount, error) {
		assert.Equal(t, models.ResolutionSplit, resolution.Action)
		assert.Equal(t, 200.0, resolution.RefundAmount)
		assert.Equal(t, 300.0, resolution.ReleaseAmount)

		account := fundedTestAccount(1)
		require.NoError(t, account.ApplyRefund(resolution.RefundAmount))
		require.NoError(t, account.ApplyRelease(resolution.ReleaseAmount))
		now := time.Now()
		action := resolution.Action
		return &models.Dispute{
			ID: id, Status: models.DisputeStatusResolved,
			ResolutionAction: &action, ResolvedAt: &now,
		}, account, nil
	}
	service := newTestDisputeService(repo, &mockEscrowRepo{})

	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	dispute, err := service.Resolve(context.Background(), 1, ResolveDisputeInput{
		Action: models.ResolutionSplit, RefundAmount: 200, ReleaseAmount: 300,
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, dispute.Status)
}

func TestDisputeService_Close_RaiserOrAdminOnly(t *testing.T) {
	repo := &mockDisputeRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.Dispute, error) {
		return &models.Dispute{ID: id, Status: models.DisputeStatusOpen, RaisedBy: 10}, nil
	}
	repo.mockClose = func(ctx context.Context, id uint, actorID uint) (*models.Dispute, error) {
		return &models.Dispute{ID: id, Status: models.DisputeStatusClosed, RaisedBy: 10}, nil
	}
	service := newTestDisputeService(repo, &mockEscrowRepo{})

	vendor := &models.User{ID: 20, Role: models.RoleVendor}
	_, err := service.Close(context.Background(), 1, vendor)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	raiser := &models.User{ID: 10, Role: models.RoleCustomer}
	closed, err := service.Close(context.Background(), 1, raiser)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusClosed, closed.Status)
}
