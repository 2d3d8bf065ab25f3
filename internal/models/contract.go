package models

import (
	"fmt"
	"time"
)

// Contract represents a service contract between a customer and a vendor
// for a booking. Fund movement is governed by the escrow account created
// for the same booking; the contract carries the milestone schedule and
// both parties' signatures.
type Contract struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	BookingID      uint       `gorm:"not null;uniqueIndex" json:"booking_id"`
	CustomerID     uint       `gorm:"not null;index" json:"customer_id"`
	VendorID       uint       `gorm:"not null;index" json:"vendor_id"`
	ContractNumber string     `gorm:"uniqueIndex;not null" json:"contract_number"`
	TemplateID     *uint      `json:"template_id"`
	Body           string     `gorm:"type:text" json:"body"`
	TotalAmount    float64    `gorm:"type:decimal;not null" json:"total_amount"`
	EventDate      *time.Time `json:"event_date"`
	Status         string     `gorm:"default:draft;index" json:"status"`

	CustomerSigned    bool       `gorm:"default:false" json:"customer_signed"`
	CustomerSignedAt  *time.Time `json:"customer_signed_at"`
	CustomerSignature *string    `json:"-"`
	CustomerSignIP    *string    `gorm:"size:45" json:"-"`
	VendorSigned      bool       `gorm:"default:false" json:"vendor_signed"`
	VendorSignedAt    *time.Time `json:"vendor_signed_at"`
	VendorSignature   *string    `json:"-"`
	VendorSignIP      *string    `gorm:"size:45" json:"-"`

	ActivatedAt *time.Time `json:"activated_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Associations
	Milestones []ContractMilestone `gorm:"foreignKey:ContractID" json:"milestones,omitempty"`
}

// TableName specifies the table name for Contract
func (Contract) TableName() string {
	return "contracts"
}

// Contract status constants
const (
	ContractStatusDraft           = "draft"
	ContractStatusPartiallySigned = "partially_signed"
	ContractStatusFullySigned     = "fully_signed"
	ContractStatusActive          = "active"
	ContractStatusCancelled       = "cancelled"
)

// PartyOf resolves a user id to its role on this contract. Non-parties
// get an empty string.
func (c *Contract) PartyOf(userID uint) string {
	switch userID {
	case c.CustomerID:
		return PartyCustomer
	case c.VendorID:
		return PartyVendor
	}
	return ""
}

// MaySign returns true while signatures are still being collected.
func (c *Contract) MaySign() bool {
	return c.Status == ContractStatusDraft || c.Status == ContractStatusPartiallySigned
}

// FullySigned returns true once both parties have signed.
func (c *Contract) FullySigned() bool {
	return c.CustomerSigned && c.VendorSigned
}

// RecordSignature stores a party's signature. It rejects third parties
// and double-signing; status transitions are driven by the caller through
// the contract state machine.
func (c *Contract) RecordSignature(userID uint, signature, ip string, at time.Time) error {
	if signature == "" {
		return fmt.Errorf("%w: signature is required", ErrValidation)
	}
	if !c.MaySign() {
		return fmt.Errorf("%w: contract cannot be signed while %s", ErrInvalidState, c.Status)
	}
	switch c.PartyOf(userID) {
	case PartyCustomer:
		if c.CustomerSigned {
			return fmt.Errorf("%w: customer has already signed", ErrInvalidState)
		}
		c.CustomerSigned = true
		c.CustomerSignedAt = &at
		c.CustomerSignature = &signature
		c.CustomerSignIP = &ip
	case PartyVendor:
		if c.VendorSigned {
			return fmt.Errorf("%w: vendor has already signed", ErrInvalidState)
		}
		c.VendorSigned = true
		c.VendorSignedAt = &at
		c.VendorSignature = &signature
		c.VendorSignIP = &ip
	default:
		return fmt.Errorf("%w: user %d is not a party to this contract", ErrForbidden, userID)
	}
	return nil
}

// RefundBreakdown is the cancellation proration result.
type RefundBreakdown struct {
	RefundableAmount     float64 `json:"refundable_amount"`
	NonRefundableAmount  float64 `json:"non_refundable_amount"`
	RefundableMilestones []uint  `json:"refundable_milestone_ids"`
}

// CalculateRefund applies the exact cancellation policy: a milestone is
// refundable iff it is not completed, is refund-eligible, and its due
// date falls after the cancellation date. Everything else is kept.
func (c *Contract) CalculateRefund(cancellationDate time.Time) RefundBreakdown {
	var breakdown RefundBreakdown
	for _, m := range c.Milestones {
		if m.Status != MilestoneStatusCompleted && m.RefundEligible && m.DueDate.After(cancellationDate) {
			breakdown.RefundableAmount = AddAmounts(breakdown.RefundableAmount, m.PaymentAmount)
			breakdown.RefundableMilestones = append(breakdown.RefundableMilestones, m.ID)
		} else {
			breakdown.NonRefundableAmount = AddAmounts(breakdown.NonRefundableAmount, m.PaymentAmount)
		}
	}
	return breakdown
}

// ContractResponse is the JSON response format for contracts
type ContractResponse struct {
	ID               uint                `json:"id"`
	BookingID        uint                `json:"booking_id"`
	CustomerID       uint                `json:"customer_id"`
	VendorID         uint                `json:"vendor_id"`
	ContractNumber   string              `json:"contract_number"`
	TotalAmount      float64             `json:"total_amount"`
	EventDate        *time.Time          `json:"event_date"`
	Status           string              `json:"status"`
	CustomerSigned   bool                `json:"customer_signed"`
	CustomerSignedAt *time.Time          `json:"customer_signed_at"`
	VendorSigned     bool                `json:"vendor_signed"`
	VendorSignedAt   *time.Time          `json:"vendor_signed_at"`
	ActivatedAt      *time.Time          `json:"activated_at"`
	CreatedAt        time.Time           `json:"created_at"`
	Milestones       []ContractMilestone `json:"milestones,omitempty"`
}

// ToResponse converts Contract to ContractResponse
func (c *Contract) ToResponse() ContractResponse {
	return ContractResponse{
		ID:               c.ID,
		BookingID:        c.BookingID,
		CustomerID:       c.CustomerID,
		VendorID:         c.VendorID,
		ContractNumber:   c.ContractNumber,
		TotalAmount:      c.TotalAmount,
		EventDate:        c.EventDate,
		Status:           c.Status,
		CustomerSigned:   c.CustomerSigned,
		CustomerSignedAt: c.CustomerSignedAt,
		VendorSigned:     c.VendorSigned,
		VendorSignedAt:   c.VendorSignedAt,
		ActivatedAt:      c.ActivatedAt,
		CreatedAt:        c.CreatedAt,
		Milestones:       c.Milestones,
	}
}

// ContractTemplate is a reusable contract body with {{placeholder}}
// variables substituted at generation time.
type ContractTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for ContractTemplate
func (ContractTemplate) TableName() string {
	return "contract_templates"
}
