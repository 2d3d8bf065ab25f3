package models

import (
	"fmt"
	"time"
)

// ContractMilestone is a contractually scheduled partial payment tied to
// a percentage of the contract total.
type ContractMilestone struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ContractID        uint       `gorm:"not null;index" json:"contract_id"`
	MilestoneNumber   int        `gorm:"not null" json:"milestone_number"`
	Title             string     `gorm:"not null" json:"title"`
	PaymentPercentage float64    `gorm:"type:decimal;not null" json:"payment_percentage"`
	PaymentAmount     float64    `gorm:"type:decimal;not null" json:"payment_amount"`
	Status            string     `gorm:"default:pending;index" json:"status"`
	DueDate           time.Time  `gorm:"not null;index" json:"due_date"`
	RefundEligible    bool       `gorm:"default:true" json:"refund_eligible"`
	VerifiedBy        *uint      `json:"verified_by"`
	CompletionDate    *time.Time `json:"completion_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Associations
	Contract *Contract `gorm:"foreignKey:ContractID" json:"-"`
}

// TableName specifies the table name for ContractMilestone
func (ContractMilestone) TableName() string {
	return "contract_milestones"
}

// Milestone status constants
const (
	MilestoneStatusPending   = "pending"
	MilestoneStatusVerified  = "verified"
	MilestoneStatusCompleted = "completed"
)

// Transition enforces the strict pending → verified → completed ordering.
// Completing a milestone records the completion date.
func (m *ContractMilestone) Transition(status string, verifierID uint, at time.Time) error {
	switch status {
	case MilestoneStatusVerified:
		if m.Status != MilestoneStatusPending {
			return fmt.Errorf("%w: milestone %d cannot be verified from %s", ErrInvalidState, m.MilestoneNumber, m.Status)
		}
		m.Status = MilestoneStatusVerified
		m.VerifiedBy = &verifierID
	case MilestoneStatusCompleted:
		if m.Status != MilestoneStatusVerified {
			return fmt.Errorf("%w: milestone %d must be verified before completion", ErrInvalidState, m.MilestoneNumber)
		}
		m.Status = MilestoneStatusCompleted
		m.CompletionDate = &at
	default:
		return fmt.Errorf("%w: unknown milestone status %q", ErrValidation, status)
	}
	return nil
}

// MilestoneInput is the creation shape for a milestone before amounts are
// derived from the contract total.
type MilestoneInput struct {
	Title             string    `json:"title" binding:"required"`
	PaymentPercentage float64   `json:"payment_percentage" binding:"required,gt=0"`
	DueDate           time.Time `json:"due_date" binding:"required"`
	RefundEligible    *bool     `json:"refund_eligible"`
}

// BuildMilestones validates that percentages sum to 100 and derives each
// milestone's payment amount from the contract total. The last milestone
// absorbs the rounding remainder so the amounts always sum to the total.
func BuildMilestones(totalAmount float64, inputs []MilestoneInput) ([]ContractMilestone, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one milestone is required", ErrValidation)
	}
	var pctSum float64
	for _, in := range inputs {
		pctSum = AddAmounts(pctSum, in.PaymentPercentage)
	}
	if !AmountEqual(pctSum, 100) {
		return nil, fmt.Errorf("%w: milestone percentages sum to %.2f, expected 100", ErrValidation, pctSum)
	}

	milestones := make([]ContractMilestone, 0, len(inputs))
	var allocated float64
	for i, in := range inputs {
		amount := PercentOf(totalAmount, in.PaymentPercentage)
		if i == len(inputs)-1 {
			amount = SubAmounts(totalAmount, allocated)
		}
		allocated = AddAmounts(allocated, amount)

		refundEligible := true
		if in.RefundEligible != nil {
			refundEligible = *in.RefundEligible
		}
		milestones = append(milestones, ContractMilestone{
			MilestoneNumber:   i + 1,
			Title:             in.Title,
			PaymentPercentage: in.PaymentPercentage,
			PaymentAmount:     amount,
			Status:            MilestoneStatusPending,
			DueDate:           in.DueDate,
			RefundEligible:    refundEligible,
		})
	}
	return milestones, nil
}
