package services

import (
	"context"
	"fmt"

	"github.com/weddia/escrow-api/internal/jobs"
	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/repository"
	"github.com/weddia/escrow-api/internal/statemachine"
)

// CreateDisputeInput is the creation request for a dispute
type CreateDisputeInput struct {
	EscrowAccountID uint     `json:"escrow_account_id" binding:"required"`
	DisputeType     string   `json:"dispute_type" binding:"required"`
	Reason          string   `json:"reason" binding:"required"`
	Amount          *float64 `json:"amount" binding:"omitempty,gt=0"`
}

// ResolveDisputeInput is the arbitration request
type ResolveDisputeInput struct {
	Action        string  `json:"action" binding:"required"`
	RefundAmount  float64 `json:"refund_amount" binding:"omitempty,gte=0"`
	ReleaseAmount float64 `json:"release_amount" binding:"omitempty,gte=0"`
	Notes         string  `json:"notes"`
}

// DisputeService implements the dispute lifecycle: open, review, resolve
// or withdraw.
type DisputeService struct {
	repo            repository.DisputeRepository
	escrowRepo      repository.EscrowRepository
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
}

func NewDisputeService(
	repo repository.DisputeRepository,
	escrowRepo repository.EscrowRepository,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
) *DisputeService {
	return &DisputeService{
		repo:            repo,
		escrowRepo:      escrowRepo,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
	}
}

// Create opens a dispute and freezes the escrow account. Only a party to
// the escrow may raise one; a second active dispute on the same account
// is rejected by the storage layer.
func (s *DisputeService) Create(ctx context.Context, input CreateDisputeInput, raisedBy uint) (*models.Dispute, error) {
	if !validDisputeType(input.DisputeType) {
		return nil, fmt.Errorf("%w: unknown dispute type %q", models.ErrValidation, input.DisputeType)
	}

	account, err := s.escrowRepo.FindByID(ctx, input.EscrowAccountID)
	if err != nil {
		return nil, err
	}
	if raisedBy != account.CustomerID && raisedBy != account.VendorID {
		return nil, fmt.Errorf("%w: only a party to the escrow may raise a dispute", models.ErrForbidden)
	}
	if input.Amount != nil && models.AmountGreaterThan(*input.Amount, account.RemainingBalance()) {
		return nil, fmt.Errorf("%w: disputed amount %.2f exceeds remaining balance %.2f",
			models.ErrValidation, *input.Amount, account.RemainingBalance())
	}

	dispute := &models.Dispute{
		EscrowAccountID: input.EscrowAccountID,
		DisputeType:     input.DisputeType,
		Reason:          input.Reason,
		Amount:          input.Amount,
		RaisedBy:        raisedBy,
	}
	if err := s.repo.Open(ctx, dispute); err != nil {
		return nil, err
	}

	s.recordAudit(raisedBy, "CREATE", "Dispute", dispute.ID,
		fmt.Sprintf("dispute opened on escrow account %d: %s", account.ID, input.DisputeType))

	// Notify the counterpart and the admins.
	counterpart := account.CustomerID
	if raisedBy == account.CustomerID {
		counterpart = account.VendorID
	}
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		message := fmt.Sprintf("A dispute was opened for booking %d: %s", account.BookingID, dispute.Reason)
		if err := s.notificationSvc.NotifyUser(ctx, counterpart, "Dispute opened", message, models.NotificationTypeDisputeOpened); err != nil {
			return err
		}
		return s.notificationSvc.NotifyAdmins(ctx, "Dispute opened", message, models.NotificationTypeDisputeOpened)
	})

	return dispute, nil
}

// MarkUnderReview moves an open dispute to under_review
func (s *DisputeService) MarkUnderReview(ctx context.Context, id uint, reviewer *models.User) (*models.Dispute, error) {
	if !reviewer.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin may review disputes", models.ErrForbidden)
	}

	dispute, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fsm := statemachine.NewDisputeFSM(dispute)
	if err := fsm.Review(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, dispute); err != nil {
		return nil, err
	}

	s.recordAudit(reviewer.ID, "REVIEW", "Dispute", dispute.ID, "dispute under review")
	return dispute, nil
}

// Resolve arbitrates an active dispute. Only admins resolve; a split
// resolution must name both amounts, and when the dispute carries a
// disputed amount the split must account for exactly that amount.
func (s *DisputeService) Resolve(ctx context.Context, id uint, input ResolveDisputeInput, resolver *models.User) (*models.Dispute, error) {
	if !resolver.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin may resolve disputes", models.ErrForbidden)
	}

	dispute, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resolution := models.Resolution{
		Action:        input.Action,
		RefundAmount:  input.RefundAmount,
		ReleaseAmount: input.ReleaseAmount,
		Notes:         input.Notes,
		ResolvedBy:    resolver.ID,
	}
	if input.Action == models.ResolutionSplit && dispute.Amount != nil &&
		!models.AmountEqual(resolution.Total(), *dispute.Amount) {
		return nil, fmt.Errorf("%w: split amounts %.2f must sum to the disputed amount %.2f",
			models.ErrValidation, resolution.Total(), *dispute.Amount)
	}

	resolved, account, err := s.repo.Resolve(ctx, id, resolution)
	if err != nil {
		return nil, err
	}

	s.recordAudit(resolver.ID, "RESOLVE", "Dispute", resolved.ID,
		fmt.Sprintf("resolved as %s: refund %.2f, release %.2f", input.Action, input.RefundAmount, input.ReleaseAmount))

	message := fmt.Sprintf("The dispute for booking %d was resolved: %s", account.BookingID, input.Action)
	customerID := account.CustomerID
	vendorID := account.VendorID
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		if err := s.notificationSvc.NotifyUser(ctx, customerID, "Dispute resolved", message, models.NotificationTypeDisputeResolved); err != nil {
			return err
		}
		return s.notificationSvc.NotifyUser(ctx, vendorID, "Dispute resolved", message, models.NotificationTypeDisputeResolved)
	})

	return resolved, nil
}

// Close withdraws an active dispute without moving funds. The raiser or
// an admin may close.
func (s *DisputeService) Close(ctx context.Context, id uint, actor *models.User) (*models.Dispute, error) {
	dispute, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != dispute.RaisedBy {
		return nil, fmt.Errorf("%w: only the raiser or an admin may close a dispute", models.ErrForbidden)
	}

	closed, err := s.repo.Close(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(actor.ID, "CLOSE", "Dispute", closed.ID, "dispute withdrawn")
	return closed, nil
}

// FindByID retrieves a dispute
func (s *DisputeService) FindByID(ctx context.Context, id uint) (*models.Dispute, error) {
	return s.repo.FindByID(ctx, id)
}

// List retrieves disputes, optionally filtered by status
func (s *DisputeService) List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, int64, error) {
	return s.repo.List(ctx, status, limit, offset)
}

func validDisputeType(disputeType string) bool {
	switch disputeType {
	case models.DisputeTypeServiceNotProvided,
		models.DisputeTypeQualityIssue,
		models.DisputeTypeCancellation,
		models.DisputeTypeOvercharge,
		models.DisputeTypeOther:
		return true
	}
	return false
}

func (s *DisputeService) recordAudit(userID uint, action, entity string, entityID uint, details string) {
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.auditSvc.Record(ctx, userID, action, entity, entityID, details)
	})
}
