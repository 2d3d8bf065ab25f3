package services

import (
	"context"
	"fmt"
	"time"

	"github.com/weddia/escrow-api/internal/config"
	"github.com/weddia/escrow-api/internal/gateway"
	"github.com/weddia/escrow-api/internal/jobs"
	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/repository"
	"github.com/weddia/escrow-api/pkg/logger"
)

// CreateEscrowInput is the creation request for an escrow account
type CreateEscrowInput struct {
	BookingID   uint    `json:"booking_id" binding:"required"`
	CustomerID  uint    `json:"customer_id" binding:"required"`
	VendorID    uint    `json:"vendor_id" binding:"required"`
	TotalAmount float64 `json:"total_amount" binding:"required,gt=0"`
	// Optional overrides; policy defaults apply when omitted.
	AdvancePercentage    *float64 `json:"advance_percentage" binding:"omitempty,gte=0,lte=100"`
	CommissionPercentage *float64 `json:"commission_percentage" binding:"omitempty,gte=0,lte=100"`
	HoldDays             *int     `json:"hold_days" binding:"omitempty,gte=0"`
}

// LedgerReport compares an account's stored amounts against sums derived
// from its append-only transaction log.
type LedgerReport struct {
	EscrowAccountID  uint               `json:"escrow_account_id"`
	Status           string             `json:"status"`
	StoredReleased   float64            `json:"stored_released"`
	StoredRefunded   float64            `json:"stored_refunded"`
	LedgerSums       map[string]float64 `json:"ledger_sums"`
	LedgerBalance    float64            `json:"ledger_balance"`
	RemainingBalance float64            `json:"remaining_balance"`
	Consistent       bool               `json:"consistent"`
}

// EscrowService implements the escrow account lifecycle: create, fund via
// the payment gateway, release, refund, and the auto-release sweep.
type EscrowService struct {
	repo            repository.EscrowRepository
	transactionRepo repository.TransactionRepository
	gateway         gateway.PaymentGateway
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
	cfg             *config.Config
}

func NewEscrowService(
	repo repository.EscrowRepository,
	transactionRepo repository.TransactionRepository,
	gw gateway.PaymentGateway,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
	cfg *config.Config,
) *EscrowService {
	return &EscrowService{
		repo:            repo,
		transactionRepo: transactionRepo,
		gateway:         gw,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
		cfg:             cfg,
	}
}

// Create opens a pending escrow account for a booking. The payment order
// for the advance is registered with the gateway before anything is
// persisted, so a gateway outage fails the request and leaves no account
// behind.
func (s *EscrowService) Create(ctx context.Context, input CreateEscrowInput, actorID uint) (*models.EscrowAccount, error) {
	advancePct := s.cfg.AdvancePercentage
	if input.AdvancePercentage != nil {
		advancePct = *input.AdvancePercentage
	}
	commissionPct := s.cfg.CommissionPercentage
	if input.CommissionPercentage != nil {
		commissionPct = *input.CommissionPercentage
	}
	holdDays := s.cfg.AutoReleaseHoldDays
	if input.HoldDays != nil {
		holdDays = *input.HoldDays
	}

	account, err := models.NewEscrowAccount(
		input.BookingID, input.CustomerID, input.VendorID,
		input.TotalAmount, advancePct, commissionPct, holdDays,
	)
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	order, err := s.gateway.CreateOrder(gwCtx, account.BookingID, account.AdvanceAmount)
	if err != nil {
		return nil, err
	}
	account.GatewayOrderID = &order.OrderID

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.recordAudit(actorID, "CREATE", "EscrowAccount", account.ID,
		fmt.Sprintf("escrow opened for booking %d, total %.2f", account.BookingID, account.TotalAmount))

	return account, nil
}

// Fund verifies the payment with the gateway and marks the account
// funded. The gateway call is synchronous; a timeout or outage returns
// ErrExternalService and the account stays pending. Replaying the same
// payment reference is idempotent.
func (s *EscrowService) Fund(ctx context.Context, id uint, paymentRef string, actorID uint) (*models.EscrowAccount, error) {
	if paymentRef == "" {
		return nil, fmt.Errorf("%w: payment reference is required", models.ErrValidation)
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	status, err := s.gateway.VerifyPayment(gwCtx, paymentRef)
	if err != nil {
		return nil, err
	}
	if !status.Captured {
		return nil, fmt.Errorf("%w: payment %s is not captured", models.ErrValidation, paymentRef)
	}
	if !models.AmountEqual(status.Amount, account.AdvanceAmount) {
		return nil, fmt.Errorf("%w: payment amount %.2f does not match the advance due %.2f",
			models.ErrValidation, status.Amount, account.AdvanceAmount)
	}

	funded, err := s.repo.MarkFunded(ctx, id, paymentRef, actorID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(actorID, "FUND", "EscrowAccount", funded.ID,
		fmt.Sprintf("funded with payment %s", paymentRef))
	s.notifyParties(funded, "Escrow funded",
		fmt.Sprintf("Escrow for booking %d is now funded with an advance of %.2f", funded.BookingID, funded.AdvanceAmount),
		models.NotificationTypeEscrowFunded)

	return funded, nil
}

// Release pays part of the held balance out to the vendor. Only the
// customer or an admin may release; the vendor cannot pay itself.
func (s *EscrowService) Release(ctx context.Context, id uint, amount float64, notes string, actor *models.User) (*models.EscrowAccount, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != account.CustomerID {
		return nil, fmt.Errorf("%w: only the customer or an admin may release funds", models.ErrForbidden)
	}

	updated, err := s.repo.ApplyMovement(ctx, id, repository.Movement{
		Type:    models.TransactionTypeRelease,
		Amount:  amount,
		Notes:   notes,
		ActorID: actor.ID,
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(actor.ID, "RELEASE", "EscrowAccount", updated.ID,
		fmt.Sprintf("released %.2f to vendor", amount))
	s.notifyParties(updated, "Funds released",
		fmt.Sprintf("%.2f released to the vendor for booking %d", amount, updated.BookingID),
		models.NotificationTypeFundsReleased)

	return updated, nil
}

// Refund returns part of the held balance to the customer. Only the
// vendor or an admin may refund.
func (s *EscrowService) Refund(ctx context.Context, id uint, amount float64, notes string, actor *models.User) (*models.EscrowAccount, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != account.VendorID {
		return nil, fmt.Errorf("%w: only the vendor or an admin may refund", models.ErrForbidden)
	}

	updated, err := s.repo.ApplyMovement(ctx, id, repository.Movement{
		Type:    models.TransactionTypeRefund,
		Amount:  amount,
		Notes:   notes,
		ActorID: actor.ID,
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(actor.ID, "REFUND", "EscrowAccount", updated.ID,
		fmt.Sprintf("refunded %.2f to customer", amount))
	s.notifyParties(updated, "Funds refunded",
		fmt.Sprintf("%.2f refunded to the customer for booking %d", amount, updated.BookingID),
		models.NotificationTypeFundsRefunded)

	return updated, nil
}

// SetManualHold exempts an account from the auto-release sweep (or lifts
// the exemption). Admin only; the handler enforces the role.
func (s *EscrowService) SetManualHold(ctx context.Context, id uint, hold bool, actorID uint) error {
	if err := s.repo.SetManualHold(ctx, id, hold); err != nil {
		return err
	}
	s.recordAudit(actorID, "HOLD", "EscrowAccount", id, fmt.Sprintf("manual hold set to %t", hold))
	return nil
}

// SweepAutoRelease releases the remaining balance of every funded account
// whose hold period has elapsed. Eligibility is re-checked under the row
// lock, so an account disputed between the scan and the release is
// skipped rather than drained.
func (s *EscrowService) SweepAutoRelease(ctx context.Context) (int, error) {
	accounts, err := s.repo.FindAutoReleasable(ctx, time.Now(), 100)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, account := range accounts {
		updated, err := s.repo.ApplyMovement(ctx, account.ID, repository.Movement{
			Type:             models.TransactionTypeRelease,
			ReleaseRemaining: true,
			Notes:            "automatic release after hold period",
		})
		if err != nil {
			logger.Warn("auto release skipped",
				"escrow_account_id", account.ID, "error", err)
			continue
		}
		released++
		s.recordAudit(0, "RELEASE", "EscrowAccount", updated.ID, "automatic release after hold period")
		s.notifyParties(updated, "Funds released",
			fmt.Sprintf("Escrow for booking %d was released automatically after the hold period", updated.BookingID),
			models.NotificationTypeAutoRelease)
	}

	if released > 0 {
		logger.Info("auto release sweep finished", "released", released, "scanned", len(accounts))
	}
	return released, nil
}

// VerifyLedger cross-checks an account's stored amounts against its
// transaction log and flags any drift.
func (s *EscrowService) VerifyLedger(ctx context.Context, id uint) (*LedgerReport, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sums, err := s.transactionRepo.SumByType(ctx, id)
	if err != nil {
		return nil, err
	}
	balance, err := s.transactionRepo.LedgerBalance(ctx, id)
	if err != nil {
		return nil, err
	}

	consistent := models.AmountEqual(sums[models.TransactionTypeRelease], account.ReleasedAmount) &&
		models.AmountEqual(sums[models.TransactionTypeRefund], account.RefundedAmount)
	if account.FundedAt != nil {
		consistent = consistent && models.AmountEqual(sums[models.TransactionTypeDeposit], account.AdvanceAmount)
	}
	if account.CommissionRecorded {
		consistent = consistent && models.AmountEqual(sums[models.TransactionTypeCommission], account.CommissionAmount)
	}

	return &LedgerReport{
		EscrowAccountID:  account.ID,
		Status:           account.Status,
		StoredReleased:   account.ReleasedAmount,
		StoredRefunded:   account.RefundedAmount,
		LedgerSums:       sums,
		LedgerBalance:    balance,
		RemainingBalance: account.RemainingBalance(),
		Consistent:       consistent,
	}, nil
}

// FindByID retrieves an escrow account with its transaction history
func (s *EscrowService) FindByID(ctx context.Context, id uint) (*models.EscrowAccount, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByBookingID retrieves the escrow account for a booking
func (s *EscrowService) FindByBookingID(ctx context.Context, bookingID uint) (*models.EscrowAccount, error) {
	return s.repo.FindByBookingID(ctx, bookingID)
}

// List retrieves escrow accounts, optionally filtered by status
func (s *EscrowService) List(ctx context.Context, status string, limit, offset int) ([]models.EscrowAccount, int64, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// Transactions retrieves an account's ledger entries
func (s *EscrowService) Transactions(ctx context.Context, id uint) ([]models.EscrowTransaction, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.transactionRepo.FindByEscrowAccountID(ctx, id)
}

func (s *EscrowService) recordAudit(userID uint, action, entity string, entityID uint, details string) {
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.auditSvc.Record(ctx, userID, action, entity, entityID, details)
	})
}

func (s *EscrowService) notifyParties(account *models.EscrowAccount, title, message, notifType string) {
	customerID := account.CustomerID
	vendorID := account.VendorID
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		if err := s.notificationSvc.NotifyUser(ctx, customerID, title, message, notifType); err != nil {
			return err
		}
		return s.notificationSvc.NotifyUser(ctx, vendorID, title, message, notifType)
	})
}
