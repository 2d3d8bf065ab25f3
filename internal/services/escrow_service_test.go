package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weddia/escrow-api/internal/config"
	"github.com/weddia/escrow-api/internal/gateway"
	"github.com/weddia/escrow-api/internal/jobs"
	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/repository"
)

// Mock EscrowRepository (using embedding to avoid implementing all methods)
type mockEscrowRepo struct {
	repository.EscrowRepository
	mockCreate             func(ctx context.Context, account *models.EscrowAccount) error
	mockFindByID           func(ctx context.Context, id uint) (*models.EscrowAccount, error)
	mockMarkFunded         func(ctx context.Context, id uint, paymentRef string, actorID uint) (*models.EscrowAccount, error)
	mockApplyMovement      func(ctx context.Context, id uint, movement repository.Movement) (*models.EscrowAccount, error)
	mockFindAutoReleasable func(ctx context.Context, now time.Time, limit int) ([]models.EscrowAccount, error)
}

func (m *mockEscrowRepo) Create(ctx context.Context, account *models.EscrowAccount) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, account)
	}
	return nil
}

func (m *mockEscrowRepo) FindByID(ctx context.Context, id uint) (*models.EscrowAccount, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockEscrowRepo) MarkFunded(ctx context.Context, id uint, paymentRef string, actorID uint) (*models.EscrowAccount, error) {
	return m.mockMarkFunded(ctx, id, paymentRef, actorID)
}

func (m *mockEscrowRepo) ApplyMovement(ctx context.Context, id uint, movement repository.Movement) (*models.EscrowAccount, error) {
	return m.mockApplyMovement(ctx, id, movement)
}

func (m *mockEscrowRepo) FindAutoReleasable(ctx context.Context, now time.Time, limit int) ([]models.EscrowAccount, error) {
	return m.mockFindAutoReleasable(ctx, now, limit)
}

// Mock TransactionRepository
type mockTransactionRepo struct {
	repository.TransactionRepository
	mockSumByType     func(ctx context.Context, escrowAccountID uint) (map[string]float64, error)
	mockLedgerBalance func(ctx context.Context, escrowAccountID uint) (float64, error)
}

func (m *mockTransactionRepo) SumByType(ctx context.Context, escrowAccountID uint) (map[string]float64, error) {
	return m.mockSumByType(ctx, escrowAccountID)
}

func (m *mockTransactionRepo) LedgerBalance(ctx context.Context, escrowAccountID uint) (float64, error) {
	return m.mockLedgerBalance(ctx, escrowAccountID)
}

// Mock PaymentGateway
type mockGateway struct {
	mockCreateOrder   func(ctx context.Context, bookingID uint, amount float64) (*gateway.Order, error)
	mockVerifyPayment func(ctx context.Context, paymentRef string) (*gateway.PaymentStatus, error)
}

func (m *mockGateway) CreateOrder(ctx context.Context, bookingID uint, amount float64) (*gateway.Order, error) {
	return m.mockCreateOrder(ctx, bookingID, amount)
}

func (m *mockGateway) VerifyPayment(ctx context.Context, paymentRef string) (*gateway.PaymentStatus, error) {
	return m.mockVerifyPayment(ctx, paymentRef)
}

// Mock NotificationRepository
type mockNotificationRepo struct {
	repository.NotificationRepository
	mockCreate func(ctx context.Context, notification *models.Notification) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, notification)
	}
	return nil
}

// Mock UserRepository
type mockUserRepo struct {
	repository.UserRepository
	mockList func(ctx context.Context, role string, limit, offset int) ([]models.User, int64, error)
}

func (m *mockUserRepo) List(ctx context.Context, role string, limit, offset int) ([]models.User, int64, error) {
	if m.mockList != nil {
		return m.mockList(ctx, role, limit, offset)
	}
	return nil, 0, nil
}

// Mock AuditRepository
type mockAuditRepo struct {
	repository.AuditRepository
	mockCreate func(ctx context.Context, entry *models.AuditLog) error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, entry)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		AdvancePercentage:    30,
		CommissionPercentage: 10,
		AutoReleaseHoldDays:  7,
		GatewayTimeout:       time.Second,
		SweepInterval:        time.Hour,
	}
}

func newTestEscrowService(repo repository.EscrowRepository, txRepo repository.TransactionRepository, gw gateway.PaymentGateway) *EscrowService {
	worker := jobs.NewWorker(1)
	notificationSvc := NewNotificationService(&mockNotificationRepo{}, &mockUserRepo{})
	auditSvc := NewAuditService(&mockAuditRepo{})
	return NewEscrowService(repo, txRepo, gw, notificationSvc, auditSvc, worker, testConfig())
}

func fundedTestAccount(id uint) *models.EscrowAccount {
	account, _ := models.NewEscrowAccount(1, 10, 20, 1000, 30, 10, 7)
	account.ID = id
	account.Status = models.EscrowStatusFunded
	now := time.Now()
	account.FundedAt = &now
	return account
}

func TestEscrowService_Create_GatewayFailurePersistsNothing(t *testing.T) {
	persisted := false
	repo := &mockEscrowRepo{}
	repo.mockCreate = func(ctx context.Context, account *models.EscrowAccount) error {
		persisted = true
		return nil
	}
	gw := &mockGateway{
		mockCreateOrder: func(ctx context.Context, bookingID uint, amount float64) (*gateway.Order, error) {
			return nil, models.ErrExternalService
		},
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, gw)

	_, err := service.Create(context.Background(), CreateEscrowInput{
		BookingID: 1, CustomerID: 10, VendorID: 20, TotalAmount: 1000,
	}, 10)
	assert.True(t, errors.Is(err, models.ErrExternalService))
	assert.False(t, persisted)
}

func TestEscrowService_Create_OrdersAdvanceBeforePersisting(t *testing.T) {
	repo := &mockEscrowRepo{}
	repo.mockCreate = func(ctx context.Context, account *models.EscrowAccount) error {
		// the gateway order is already attached when the row is written
		require.NotNil(t, account.GatewayOrderID)
		account.ID = 7
		return nil
	}
	gw := &mockGateway{
		mockCreateOrder: func(ctx context.Context, bookingID uint, amount float64) (*gateway.Order, error) {
			assert.Equal(t, uint(1), bookingID)
			assert.Equal(t, 300.0, amount) // the advance, not the total
			return &gateway.Order{OrderID: "ord_123", Amount: amount, Status: "created"}, nil
		},
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, gw)

	account, err := service.Create(context.Background(), CreateEscrowInput{
		BookingID: 1, CustomerID: 10, VendorID: 20, TotalAmount: 1000,
	}, 10)
	require.NoError(t, err)
	require.NotNil(t, account.GatewayOrderID)
	assert.Equal(t, "ord_123", *account.GatewayOrderID)
	assert.Equal(t, 300.0, account.AdvanceAmount)
	assert.Equal(t, 100.0, account.CommissionAmount)
}

func TestEscrowService_Fund_RejectsUncapturedPayment(t *testing.T) {
	repo := &mockEscrowRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.EscrowAccount, error) {
		account := fundedTestAccount(1)
		account.Status = models.EscrowStatusPending
		return account, nil
	}
	repo.mockMarkFunded = func(ctx context.Context, id uint, paymentRef string, actorID uint) (*models.EscrowAccount, error) {
		t.Fatal("MarkFunded must not be called for an uncaptured payment")
		return nil, nil
	}
	gw := &mockGateway{
		mockVerifyPayment: func(ctx context.Context, paymentRef string) (*gateway.PaymentStatus, error) {
			return &gateway.PaymentStatus{PaymentRef: paymentRef, Amount: 1000, Captured: false}, nil
		},
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, gw)

	_, err := service.Fund(context.Background(), 1, "pay_1", 10)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestEscrowService_Fund_RejectsAmountMismatch(t *testing.T) {
	repo := &mockEscrowRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.EscrowAccount, error) {
		account := fundedTestAccount(1)
		account.Status = models.EscrowStatusPending
		return account, nil
	}
	gw := &mockGateway{
		mockVerifyPayment: func(ctx context.Context, paymentRef string) (*gateway.PaymentStatus, error) {
			// the contract total was captured, but only the 300 advance is due
			return &gateway.PaymentStatus{PaymentRef: paymentRef, Amount: 1000, Captured: true}, nil
		},
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, gw)

	_, err := service.Fund(context.Background(), 1, "pay_1", 10)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestEscrowService_Fund_GatewayErrorSurfaces(t *testing.T) {
	repo := &mockEscrowRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.EscrowAccount, error) {
		return fundedTestAccount(1), nil
	}
	gw := &mockGateway{
		mockVerifyPayment: func(ctx context.Context, paymentRef string) (*gateway.PaymentStatus, error) {
			return nil, models.ErrExternalService
		},
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, gw)

	_, err := service.Fund(context.Background(), 1, "pay_1", 10)
	assert.True(t, errors.Is(err, models.ErrExternalService))
}

func TestEscrowService_Release_VendorCannotPayItself(t *testing.T) {
	repo := &mockEscrowRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.EscrowAccount, error) {
		return fundedTestAccount(1), nil
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, &mockGateway{})

	vendor := &models.User{ID: 20, Role: models.RoleVendor}
	_, err := service.Release(context.Background(), 1, 100, "", vendor)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestEscrowService_Refund_CustomerCannotRefundItself(t *testing.T) {
	repo := &mockEscrowRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.EscrowAccount, error) {
		return fundedTestAccount(1), nil
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, &mockGateway{})

	customer := &models.User{ID: 10, Role: models.RoleCustomer}
	_, err := service.Refund(context.Background(), 1, 100, "", customer)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestEscrowService_SweepAutoRelease_SkipsFailedAccounts(t *testing.T) {
	first := fundedTestAccount(1)
	second := fundedTestAccount(2)

	repo := &mockEscrowRepo{}
	repo.mockFindAutoReleasable = func(ctx context.Context, now time.Time, limit int) ([]models.EscrowAccount, error) {
		return []models.EscrowAccount{*first, *second}, nil
	}
	repo.mockApplyMovement = func(ctx context.Context, id uint, movement repository.Movement) (*models.EscrowAccount, error) {
		assert.True(t, movement.ReleaseRemaining)
		assert.Equal(t, models.TransactionTypeRelease, movement.Type)
		if id == 1 {
			// disputed between the scan and the lock
			return nil, models.ErrInvalidState
		}
		account := fundedTestAccount(id)
		require.NoError(t, account.ApplyRelease(account.RemainingBalance()))
		return account, nil
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, &mockGateway{})

	released, err := service.SweepAutoRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)
}

func TestEscrowService_VerifyLedger_FlagsDrift(t *testing.T) {
	account := fundedTestAccount(1)
	require.NoError(t, account.ApplyRelease(500))

	repo := &mockEscrowRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.EscrowAccount, error) {
		return account, nil
	}
	txRepo := &mockTransactionRepo{}
	txRepo.mockSumByType = func(ctx context.Context, escrowAccountID uint) (map[string]float64, error) {
		return map[string]float64{
			models.TransactionTypeDeposit: 300,
			models.TransactionTypeRelease: 400, // ledger disagrees with the stored 500
		}, nil
	}
	txRepo.mockLedgerBalance = func(ctx context.Context, escrowAccountID uint) (float64, error) {
		return 600, nil
	}
	service := newTestEscrowService(repo, txRepo, &mockGateway{})

	report, err := service.VerifyLedger(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, 500.0, report.StoredReleased)
}

func TestEscrowService_VerifyLedger_ConsistentAccount(t *testing.T) {
	account := fundedTestAccount(1)
	require.NoError(t, account.ApplyRelease(500))

	repo := &mockEscrowRepo{}
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.EscrowAccount, error) {
		return account, nil
	}
	txRepo := &mockTransactionRepo{}
	txRepo.mockSumByType = func(ctx context.Context, escrowAccountID uint) (map[string]float64, error) {
		return map[string]float64{
			models.TransactionTypeDeposit: 300, // the funded advance
			models.TransactionTypeRelease: 500,
		}, nil
	}
	txRepo.mockLedgerBalance = func(ctx context.Context, escrowAccountID uint) (float64, error) {
		return 500, nil
	}
	service := newTestEscrowService(repo, txRepo, &mockGateway{})

	report, err := service.VerifyLedger(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 400.0, report.RemainingBalance)
}

// fakeLedgerEscrowRepo keeps one account in memory and serializes movements
// behind a mutex the way the row lock does in postgres.
type fakeLedgerEscrowRepo struct {
	repository.EscrowRepository
	mu       sync.Mutex
	account  *models.EscrowAccount
	deposits []models.EscrowTransaction
}

func (f *fakeLedgerEscrowRepo) FindByID(ctx context.Context, id uint) (*models.EscrowAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *f.account
	return &copied, nil
}

func (f *fakeLedgerEscrowRepo) MarkFunded(ctx context.Context, id uint, paymentRef string, actorID uint) (*models.EscrowAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	replay, err := f.account.ApplyFunding(paymentRef, time.Now())
	if err != nil {
		return nil, err
	}
	if !replay {
		f.deposits = append(f.deposits, f.account.NewDeposit(actorID))
	}
	copied := *f.account
	return &copied, nil
}

func (f *fakeLedgerEscrowRepo) ApplyMovement(ctx context.Context, id uint, movement repository.Movement) (*models.EscrowAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	amount := movement.Amount
	if movement.ReleaseRemaining {
		amount = f.account.RemainingBalance()
	}
	var err error
	switch movement.Type {
	case models.TransactionTypeRelease:
		err = f.account.ApplyRelease(amount)
	case models.TransactionTypeRefund:
		err = f.account.ApplyRefund(amount)
	}
	if err != nil {
		return nil, err
	}
	copied := *f.account
	return &copied, nil
}

func TestEscrowService_Fund_RecordsSingleAdvanceDeposit(t *testing.T) {
	account := fundedTestAccount(1)
	account.Status = models.EscrowStatusPending
	account.PaymentRef = nil
	account.FundedAt = nil
	repo := &fakeLedgerEscrowRepo{account: account}
	gw := &mockGateway{
		mockVerifyPayment: func(ctx context.Context, paymentRef string) (*gateway.PaymentStatus, error) {
			return &gateway.PaymentStatus{PaymentRef: paymentRef, Amount: 300, Captured: true}, nil
		},
	}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, gw)

	funded, err := service.Fund(context.Background(), 1, "P1", 10)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowStatusFunded, funded.Status)

	// webhook replay of the same reference
	_, err = service.Fund(context.Background(), 1, "P1", 10)
	require.NoError(t, err)

	require.Len(t, repo.deposits, 1)
	assert.Equal(t, models.TransactionTypeDeposit, repo.deposits[0].Type)
	assert.Equal(t, 300.0, repo.deposits[0].Amount)
}

func TestEscrowService_ConcurrentRefunds_ExactlyOneOverdrawFails(t *testing.T) {
	// 900 releasable; two concurrent 600 refunds cannot both succeed.
	repo := &fakeLedgerEscrowRepo{account: fundedTestAccount(1)}
	service := newTestEscrowService(repo, &mockTransactionRepo{}, &mockGateway{})
	vendor := &models.User{ID: 20, Role: models.RoleVendor}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Refund(context.Background(), 1, 600, "", vendor)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, errors.Is(err, models.ErrInsufficientBalance))
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 600.0, repo.account.RefundedAmount)
	assert.Equal(t, 300.0, repo.account.RemainingBalance())
}
