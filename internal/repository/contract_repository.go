package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/weddia/escrow-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContractRepository defines the interface for contract data access
type ContractRepository interface {
	CreateWithMilestones(ctx context.Context, contract *models.Contract, milestones []models.ContractMilestone) error
	FindByID(ctx context.Context, id uint) (*models.Contract, error)
	FindByBookingID(ctx context.Context, bookingID uint) (*models.Contract, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Contract, int64, error)
	UpdateLocked(ctx context.Context, id uint, mutate func(*models.Contract) error) (*models.Contract, error)
	FindMilestone(ctx context.Context, contractID, milestoneID uint) (*models.ContractMilestone, error)
	UpdateMilestone(ctx context.Context, milestone *models.ContractMilestone) error
	FindTemplateByID(ctx context.Context, id uint) (*models.ContractTemplate, error)
	FindTemplateByName(ctx context.Context, name string) (*models.ContractTemplate, error)
	CreateTemplate(ctx context.Context, template *models.ContractTemplate) error
}

// contractRepository handles database operations for contracts
type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

// CreateWithMilestones persists the contract and its milestone schedule in
// a single transaction so a half-created schedule never exists.
func (r *contractRepository) CreateWithMilestones(ctx context.Context, contract *models.Contract, milestones []models.ContractMilestone) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(contract).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: contract already exists for booking %d", models.ErrValidation, contract.BookingID)
			}
			return err
		}
		for i := range milestones {
			milestones[i].ContractID = contract.ID
		}
		if err := tx.Create(&milestones).Error; err != nil {
			return err
		}
		contract.Milestones = milestones
		return nil
	})
}

// FindByID retrieves a contract with its milestones
func (r *contractRepository) FindByID(ctx context.Context, id uint) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("milestone_number ASC")
		}).
		First(&contract, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: contract %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// FindByBookingID retrieves the contract for a booking
func (r *contractRepository) FindByBookingID(ctx context.Context, bookingID uint) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("milestone_number ASC")
		}).
		Where("booking_id = ?", bookingID).
		First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no contract for booking %d", models.ErrNotFound, bookingID)
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// List retrieves contracts, optionally filtered by status
func (r *contractRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Contract, int64, error) {
	var contracts []models.Contract
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Contract{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&contracts).Error
	return contracts, total, err
}

// UpdateLocked loads the contract under a row lock, applies mutate and
// saves the result in one database transaction. Concurrent signatures
// serialize here instead of overwriting each other.
func (r *contractRepository) UpdateLocked(ctx context.Context, id uint, mutate func(*models.Contract) error) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Milestones", func(db *gorm.DB) *gorm.DB {
				return db.Order("milestone_number ASC")
			}).
			First(&contract, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contract %d", models.ErrNotFound, id)
			}
			return err
		}
		if err := mutate(&contract); err != nil {
			return err
		}
		return tx.Omit("Milestones").Save(&contract).Error
	})
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// FindMilestone retrieves a milestone scoped to its contract
func (r *contractRepository) FindMilestone(ctx context.Context, contractID, milestoneID uint) (*models.ContractMilestone, error) {
	var milestone models.ContractMilestone
	err := r.db.WithContext(ctx).
		Where("id = ? AND contract_id = ?", milestoneID, contractID).
		First(&milestone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: milestone %d on contract %d", models.ErrNotFound, milestoneID, contractID)
	}
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

// UpdateMilestone saves milestone changes
func (r *contractRepository) UpdateMilestone(ctx context.Context, milestone *models.ContractMilestone) error {
	return r.db.WithContext(ctx).Save(milestone).Error
}

// FindTemplateByID retrieves a contract template
func (r *contractRepository) FindTemplateByID(ctx context.Context, id uint) (*models.ContractTemplate, error) {
	var template models.ContractTemplate
	err := r.db.WithContext(ctx).First(&template, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: contract template %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// FindTemplateByName retrieves a contract template by its unique name
func (r *contractRepository) FindTemplateByName(ctx context.Context, name string) (*models.ContractTemplate, error) {
	var template models.ContractTemplate
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: contract template %q", models.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// CreateTemplate persists a new contract template
func (r *contractRepository) CreateTemplate(ctx context.Context, template *models.ContractTemplate) error {
	err := r.db.WithContext(ctx).Create(template).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: template %q already exists", models.ErrValidation, template.Name)
	}
	return err
}
