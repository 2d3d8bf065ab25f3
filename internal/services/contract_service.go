package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/weddia/escrow-api/internal/jobs"
	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/repository"
	"github.com/weddia/escrow-api/internal/statemachine"
)

// CreateContractInput is the creation request for a contract with its
// milestone schedule
type CreateContractInput struct {
	BookingID   uint                    `json:"booking_id" binding:"required"`
	CustomerID  uint                    `json:"customer_id" binding:"required"`
	VendorID    uint                    `json:"vendor_id" binding:"required"`
	TemplateID  *uint                   `json:"template_id"`
	Body        string                  `json:"body"`
	TotalAmount float64                 `json:"total_amount" binding:"required,gt=0"`
	EventDate   *time.Time              `json:"event_date"`
	Milestones  []models.MilestoneInput `json:"milestones" binding:"required,min=1,dive"`
}

// ContractService implements contract generation, signing and the
// milestone lifecycle.
type ContractService struct {
	repo            repository.ContractRepository
	escrowRepo      repository.EscrowRepository
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
}

func NewContractService(
	repo repository.ContractRepository,
	escrowRepo repository.EscrowRepository,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
) *ContractService {
	return &ContractService{
		repo:            repo,
		escrowRepo:      escrowRepo,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
	}
}

// GenerateFromTemplate renders a template body by substituting
// {{key}} placeholders with the supplied variables.
func (s *ContractService) GenerateFromTemplate(ctx context.Context, templateID uint, variables map[string]string) (string, error) {
	template, err := s.repo.FindTemplateByID(ctx, templateID)
	if err != nil {
		return "", err
	}

	pairs := make([]string, 0, len(variables)*2)
	for key, value := range variables {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	body := strings.NewReplacer(pairs...).Replace(template.Body)

	if idx := strings.Index(body, "{{"); idx >= 0 {
		end := strings.Index(body[idx:], "}}")
		if end > 0 {
			return "", fmt.Errorf("%w: unresolved template variable %s", models.ErrValidation, body[idx:idx+end+2])
		}
	}
	return body, nil
}

// CreateWithMilestones creates a draft contract and its milestone
// schedule in one transaction. Milestone percentages must sum to 100.
func (s *ContractService) CreateWithMilestones(ctx context.Context, input CreateContractInput, actorID uint) (*models.Contract, error) {
	body := input.Body
	if input.TemplateID != nil && body == "" {
		rendered, err := s.GenerateFromTemplate(ctx, *input.TemplateID, map[string]string{
			"booking_id":   fmt.Sprintf("%d", input.BookingID),
			"total_amount": fmt.Sprintf("%.2f", input.TotalAmount),
		})
		if err != nil {
			return nil, err
		}
		body = rendered
	}
	if body == "" {
		return nil, fmt.Errorf("%w: contract body or template is required", models.ErrValidation)
	}

	milestones, err := models.BuildMilestones(input.TotalAmount, input.Milestones)
	if err != nil {
		return nil, err
	}

	contract := &models.Contract{
		BookingID:      input.BookingID,
		CustomerID:     input.CustomerID,
		VendorID:       input.VendorID,
		ContractNumber: contractNumber(input.BookingID),
		TemplateID:     input.TemplateID,
		Body:           body,
		TotalAmount:    models.Round2(input.TotalAmount),
		EventDate:      input.EventDate,
		Status:         models.ContractStatusDraft,
	}

	if err := s.repo.CreateWithMilestones(ctx, contract, milestones); err != nil {
		return nil, err
	}

	s.recordAudit(actorID, "CREATE", "Contract", contract.ID,
		fmt.Sprintf("contract %s created for booking %d", contract.ContractNumber, contract.BookingID))

	return contract, nil
}

// Sign records a party's signature and advances the contract state. When
// the second signature lands the contract becomes fully signed and then
// active. The whole step runs under the contract row lock so two
// signatures arriving together cannot lose one another or double-fire
// activation. Every signature appends an audit entry.
func (s *ContractService) Sign(ctx context.Context, contractID, userID uint, signature, ip string) (*models.Contract, error) {
	contract, err := s.repo.UpdateLocked(ctx, contractID, func(contract *models.Contract) error {
		if err := contract.RecordSignature(userID, signature, ip, time.Now()); err != nil {
			return err
		}

		fsm := statemachine.NewContractFSM(contract)
		if err := fsm.Sign(ctx); err != nil {
			return err
		}
		if contract.Status == models.ContractStatusFullySigned {
			if err := fsm.Activate(ctx); err != nil {
				return err
			}
			now := time.Now()
			contract.ActivatedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	party := contract.PartyOf(userID)
	s.recordAudit(userID, "SIGN", "Contract", contract.ID,
		fmt.Sprintf("signed by %s from %s", party, ip))

	if contract.Status == models.ContractStatusActive {
		s.notifyContractParties(contract, "Contract active",
			fmt.Sprintf("Contract %s is fully signed and active", contract.ContractNumber),
			models.NotificationTypeContractActive)
	} else {
		s.notifyContractParties(contract, "Contract signed",
			fmt.Sprintf("Contract %s was signed by the %s", contract.ContractNumber, party),
			models.NotificationTypeContractSigned)
	}

	return contract, nil
}

// Cancel cancels a contract under the same row lock as signing
func (s *ContractService) Cancel(ctx context.Context, contractID uint, actorID uint) (*models.Contract, error) {
	contract, err := s.repo.UpdateLocked(ctx, contractID, func(contract *models.Contract) error {
		return statemachine.NewContractFSM(contract).Cancel(ctx)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(actorID, "CANCEL", "Contract", contract.ID, "contract cancelled")
	return contract, nil
}

// RefundPreview computes the cancellation proration without mutating
// anything.
func (s *ContractService) RefundPreview(ctx context.Context, contractID uint, cancellationDate time.Time) (*models.RefundBreakdown, error) {
	contract, err := s.repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	breakdown := contract.CalculateRefund(cancellationDate)
	return &breakdown, nil
}

// UpdateMilestoneStatus moves a milestone through the strict
// pending → verified → completed ordering. Only the vendor's counterpart
// (the customer) or an admin verifies and completes work.
func (s *ContractService) UpdateMilestoneStatus(ctx context.Context, contractID, milestoneID uint, status string, actor *models.User) (*models.ContractMilestone, error) {
	contract, err := s.repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != contract.CustomerID {
		return nil, fmt.Errorf("%w: only the customer or an admin may update milestones", models.ErrForbidden)
	}

	milestone, err := s.repo.FindMilestone(ctx, contractID, milestoneID)
	if err != nil {
		return nil, err
	}

	if err := milestone.Transition(status, actor.ID, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMilestone(ctx, milestone); err != nil {
		return nil, err
	}

	s.recordAudit(actor.ID, "MILESTONE", "Contract", contract.ID,
		fmt.Sprintf("milestone %d marked %s", milestone.MilestoneNumber, status))
	s.notifyContractParties(contract, "Milestone updated",
		fmt.Sprintf("Milestone %q on contract %s is now %s", milestone.Title, contract.ContractNumber, status),
		models.NotificationTypeMilestoneUpdated)

	return milestone, nil
}

// FindByID retrieves a contract with its milestones
func (s *ContractService) FindByID(ctx context.Context, id uint) (*models.Contract, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByBookingID retrieves the contract for a booking
func (s *ContractService) FindByBookingID(ctx context.Context, bookingID uint) (*models.Contract, error) {
	return s.repo.FindByBookingID(ctx, bookingID)
}

// List retrieves contracts, optionally filtered by status
func (s *ContractService) List(ctx context.Context, status string, limit, offset int) ([]models.Contract, int64, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// CreateTemplate persists a reusable contract template
func (s *ContractService) CreateTemplate(ctx context.Context, template *models.ContractTemplate) error {
	return s.repo.CreateTemplate(ctx, template)
}

func contractNumber(bookingID uint) string {
	return fmt.Sprintf("WED-%d-%06d", time.Now().Year(), bookingID)
}

func (s *ContractService) recordAudit(userID uint, action, entity string, entityID uint, details string) {
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.auditSvc.Record(ctx, userID, action, entity, entityID, details)
	})
}

func (s *ContractService) notifyContractParties(contract *models.Contract, title, message, notifType string) {
	customerID := contract.CustomerID
	vendorID := contract.VendorID
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		if err := s.notificationSvc.NotifyUser(ctx, customerID, title, message, notifType); err != nil {
			return err
		}
		return s.notificationSvc.NotifyUser(ctx, vendorID, title, message, notifType)
	})
}
