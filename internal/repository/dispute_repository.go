package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/statemachine"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DisputeRepository defines the interface for dispute data access. Open
// and Resolve mutate the escrow account in the same database transaction
// as the dispute row.
type DisputeRepository interface {
	Open(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, id uint) (*models.Dispute, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, int64, error)
	Update(ctx context.Context, dispute *models.Dispute) error
	Resolve(ctx context.Context, id uint, resolution models.Resolution) (*models.Dispute, *models.EscrowAccount, error)
	Close(ctx context.Context, id uint, actorID uint) (*models.Dispute, error)
}

// disputeRepository handles database operations for disputes
type disputeRepository struct {
	db *gorm.DB
}

// NewDisputeRepository creates a new dispute repository
func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

// Open creates a dispute and freezes the escrow account. The partial
// unique index on active disputes turns a concurrent second open into
// ErrDuplicateActiveDispute instead of a double freeze.
func (r *disputeRepository) Open(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.EscrowAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, dispute.EscrowAccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: escrow account %d", models.ErrNotFound, dispute.EscrowAccountID)
			}
			return err
		}

		if !account.MayDispute() {
			return fmt.Errorf("%w: cannot dispute escrow account while %s", models.ErrInvalidState, account.Status)
		}

		dispute.BookingID = account.BookingID
		dispute.Status = models.DisputeStatusOpen
		if err := tx.Create(dispute).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrDuplicateActiveDispute
			}
			return err
		}

		return tx.Model(&account).Update("status", models.EscrowStatusDisputed).Error
	})
}

// FindByID retrieves a dispute with its escrow account
func (r *disputeRepository) FindByID(ctx context.Context, id uint) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Preload("EscrowAccount").
		First(&dispute, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: dispute %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// List retrieves disputes, optionally filtered by status
func (r *disputeRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, int64, error) {
	var disputes []models.Dispute
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Dispute{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&disputes).Error
	return disputes, total, err
}

// Update saves dispute changes
func (r *disputeRepository) Update(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Save(dispute).Error
}

// Resolve arbitrates a dispute: advances it through its state machine,
// validates the resolution against the remaining balance, unfreezes the
// account, applies the refund and release movements with their ledger
// rows, and stamps the dispute, all inside one database transaction.
func (r *disputeRepository) Resolve(ctx context.Context, id uint, resolution models.Resolution) (*models.Dispute, *models.EscrowAccount, error) {
	var dispute models.Dispute
	var account models.EscrowAccount

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&dispute, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: dispute %d", models.ErrNotFound, id)
			}
			return err
		}

		if err := statemachine.NewDisputeFSM(&dispute).Resolve(ctx); err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, dispute.EscrowAccountID).Error; err != nil {
			return err
		}

		if err := resolution.Validate(account.RemainingBalance()); err != nil {
			return err
		}

		account.ResumeFromDispute()

		reference := fmt.Sprintf("dispute-%d", dispute.ID)
		if resolution.RefundAmount > 0 {
			if err := account.ApplyRefund(resolution.RefundAmount); err != nil {
				return err
			}
			entry := models.EscrowTransaction{
				EscrowAccountID: account.ID,
				Type:            models.TransactionTypeRefund,
				Amount:          resolution.RefundAmount,
				FromParty:       models.PartyEscrow,
				ToParty:         models.PartyCustomer,
				Status:          models.TransactionStatusCompleted,
				Reference:       &reference,
				Notes:           resolution.Notes,
				CreatedBy:       resolution.ResolvedBy,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		if resolution.ReleaseAmount > 0 {
			// A refund may have settled the account partial_released;
			// ApplyRelease accepts that state.
			if err := account.ApplyRelease(resolution.ReleaseAmount); err != nil {
				return err
			}
			entry := models.EscrowTransaction{
				EscrowAccountID: account.ID,
				Type:            models.TransactionTypeRelease,
				Amount:          resolution.ReleaseAmount,
				FromParty:       models.PartyEscrow,
				ToParty:         models.PartyVendor,
				Status:          models.TransactionStatusCompleted,
				Reference:       &reference,
				Notes:           resolution.Notes,
				CreatedBy:       resolution.ResolvedBy,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		if err := recordCommissionIfTerminal(tx, &account, resolution.ResolvedBy); err != nil {
			return err
		}
		if err := tx.Save(&account).Error; err != nil {
			return err
		}

		now := time.Now()
		total := resolution.Total()
		dispute.ResolutionAction = &resolution.Action
		dispute.ResolutionAmount = &total
		dispute.RefundAmount = &resolution.RefundAmount
		dispute.ReleaseAmount = &resolution.ReleaseAmount
		dispute.ResolutionNotes = &resolution.Notes
		dispute.ResolvedBy = &resolution.ResolvedBy
		dispute.ResolvedAt = &now
		return tx.Save(&dispute).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &dispute, &account, nil
}

// Close withdraws an active dispute without moving funds and returns the
// escrow account to its operating state.
func (r *disputeRepository) Close(ctx context.Context, id uint, actorID uint) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&dispute, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: dispute %d", models.ErrNotFound, id)
			}
			return err
		}

		if err := statemachine.NewDisputeFSM(&dispute).Close(ctx); err != nil {
			return err
		}

		var account models.EscrowAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, dispute.EscrowAccountID).Error; err != nil {
			return err
		}

		account.ResumeFromDispute()
		if err := tx.Save(&account).Error; err != nil {
			return err
		}

		now := time.Now()
		dispute.ResolvedBy = &actorID
		dispute.ResolvedAt = &now
		return tx.Save(&dispute).Error
	})
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}
