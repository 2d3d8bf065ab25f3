package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weddia/escrow-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Movement describes a single release or refund against an escrow account.
// ReleaseRemaining asks for whatever balance is left at commit time, which
// is what the auto-release sweep uses so a concurrent partial release never
// overdraws the account.
type Movement struct {
	Type             string // models.TransactionTypeRelease or models.TransactionTypeRefund
	Amount           float64
	ReleaseRemaining bool
	Reference        *string
	Notes            string
	ActorID          uint
}

// EscrowRepository defines the interface for escrow account data access.
// Every mutation locks the account row and appends the matching ledger
// transaction inside one database transaction.
type EscrowRepository interface {
	Create(ctx context.Context, account *models.EscrowAccount) error
	FindByID(ctx context.Context, id uint) (*models.EscrowAccount, error)
	FindByBookingID(ctx context.Context, bookingID uint) (*models.EscrowAccount, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.EscrowAccount, int64, error)
	SetManualHold(ctx context.Context, id uint, hold bool) error
	MarkFunded(ctx context.Context, id uint, paymentRef string, actorID uint) (*models.EscrowAccount, error)
	ApplyMovement(ctx context.Context, id uint, movement Movement) (*models.EscrowAccount, error)
	FindAutoReleasable(ctx context.Context, now time.Time, limit int) ([]models.EscrowAccount, error)
}

// escrowRepository handles database operations for escrow accounts
type escrowRepository struct {
	db *gorm.DB
}

// NewEscrowRepository creates a new escrow repository
func NewEscrowRepository(db *gorm.DB) EscrowRepository {
	return &escrowRepository{db: db}
}

// Create persists a new escrow account. The unique index on booking_id
// rejects a second account for the same booking.
func (r *escrowRepository) Create(ctx context.Context, account *models.EscrowAccount) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: escrow account already exists for booking %d", models.ErrValidation, account.BookingID)
	}
	return err
}

// FindByID retrieves an escrow account with its transactions
func (r *escrowRepository) FindByID(ctx context.Context, id uint) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	err := r.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: escrow account %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByBookingID retrieves the escrow account for a booking
func (r *escrowRepository) FindByBookingID(ctx context.Context, bookingID uint) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no escrow account for booking %d", models.ErrNotFound, bookingID)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// List retrieves escrow accounts, optionally filtered by status
func (r *escrowRepository) List(ctx context.Context, status string, limit, offset int) ([]models.EscrowAccount, int64, error) {
	var accounts []models.EscrowAccount
	var total int64

	query := r.db.WithContext(ctx).Model(&models.EscrowAccount{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&accounts).Error
	return accounts, total, err
}

// SetManualHold toggles the manual release flag that exempts an account
// from the auto-release sweep
func (r *escrowRepository) SetManualHold(ctx context.Context, id uint, hold bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.EscrowAccount{}).
		Where("id = ?", id).
		Update("manual_release_required", hold)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: escrow account %d", models.ErrNotFound, id)
	}
	return nil
}

// MarkFunded moves a pending account to funded and appends the deposit
// transaction for the captured advance. Calling it again with the same
// payment reference is a no-op so gateway webhook retries stay safe.
func (r *escrowRepository) MarkFunded(ctx context.Context, id uint, paymentRef string, actorID uint) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: escrow account %d", models.ErrNotFound, id)
			}
			return err
		}

		replay, err := account.ApplyFunding(paymentRef, time.Now())
		if err != nil {
			return err
		}
		if replay {
			return nil
		}
		if err := tx.Save(&account).Error; err != nil {
			return err
		}

		deposit := account.NewDeposit(actorID)
		return tx.Create(&deposit).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ApplyMovement releases or refunds funds against a locked account. The
// balance change and the ledger row commit together or not at all. The
// platform commission transaction is appended exactly once, when the
// account reaches a terminal state.
func (r *escrowRepository) ApplyMovement(ctx context.Context, id uint, movement Movement) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: escrow account %d", models.ErrNotFound, id)
			}
			return err
		}

		amount := movement.Amount
		if movement.ReleaseRemaining {
			amount = account.RemainingBalance()
		}

		var toParty string
		switch movement.Type {
		case models.TransactionTypeRelease:
			if err := account.ApplyRelease(amount); err != nil {
				return err
			}
			toParty = models.PartyVendor
		case models.TransactionTypeRefund:
			if err := account.ApplyRefund(amount); err != nil {
				return err
			}
			toParty = models.PartyCustomer
		default:
			return fmt.Errorf("%w: unknown movement type %q", models.ErrValidation, movement.Type)
		}

		entry := models.EscrowTransaction{
			EscrowAccountID: account.ID,
			Type:            movement.Type,
			Amount:          amount,
			FromParty:       models.PartyEscrow,
			ToParty:         toParty,
			Status:          models.TransactionStatusCompleted,
			Reference:       movement.Reference,
			Notes:           movement.Notes,
			CreatedBy:       movement.ActorID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if err := recordCommissionIfTerminal(tx, &account, movement.ActorID); err != nil {
			return err
		}

		return tx.Save(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// recordCommissionIfTerminal appends the platform commission transaction
// exactly once, when the account reaches a terminal state. Callers must
// hold the account row lock and save the account afterwards.
func recordCommissionIfTerminal(tx *gorm.DB, account *models.EscrowAccount, actorID uint) error {
	if !account.IsTerminal() || account.CommissionRecorded || account.CommissionAmount <= 0 {
		return nil
	}
	commission := models.EscrowTransaction{
		EscrowAccountID: account.ID,
		Type:            models.TransactionTypeCommission,
		Amount:          account.CommissionAmount,
		FromParty:       models.PartyEscrow,
		ToParty:         models.PartyPlatform,
		Status:          models.TransactionStatusCompleted,
		Notes:           "platform commission",
		CreatedBy:       actorID,
	}
	if err := tx.Create(&commission).Error; err != nil {
		return err
	}
	account.CommissionRecorded = true
	return nil
}

// FindAutoReleasable retrieves funded accounts whose hold period has
// elapsed and that carry no manual hold. The sweep re-checks eligibility
// under the row lock when it applies the release.
func (r *escrowRepository) FindAutoReleasable(ctx context.Context, now time.Time, limit int) ([]models.EscrowAccount, error) {
	var accounts []models.EscrowAccount
	err := r.db.WithContext(ctx).
		Where("status = ?", models.EscrowStatusFunded).
		Where("manual_release_required = ?", false).
		Where("auto_release_date <= ?", now).
		Order("auto_release_date ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}
