package models

import (
	"fmt"
	"time"
)

// Dispute freezes an escrow account until an admin arbitrates. At most one
// active (open/under_review) dispute may exist per escrow account; the
// storage layer backs this with a partial unique index.
type Dispute struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	EscrowAccountID uint     `gorm:"not null;index" json:"escrow_account_id"`
	BookingID       uint     `gorm:"not null;index" json:"booking_id"`
	DisputeType     string   `gorm:"not null" json:"dispute_type"`
	Reason          string   `gorm:"type:text;not null" json:"reason"`
	Amount          *float64 `gorm:"type:decimal" json:"amount"`
	Status          string   `gorm:"default:open;index" json:"status"`
	RaisedBy        uint     `gorm:"not null" json:"raised_by"`

	ResolutionAction *string    `json:"resolution_action"`
	ResolutionAmount *float64   `gorm:"type:decimal" json:"resolution_amount"`
	RefundAmount     *float64   `gorm:"type:decimal" json:"refund_amount"`
	ReleaseAmount    *float64   `gorm:"type:decimal" json:"release_amount"`
	ResolutionNotes  *string    `gorm:"type:text" json:"resolution_notes"`
	ResolvedBy       *uint      `json:"resolved_by"`
	ResolvedAt       *time.Time `json:"resolved_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	EscrowAccount *EscrowAccount `gorm:"foreignKey:EscrowAccountID" json:"-"`
}

// TableName specifies the table name for Dispute
func (Dispute) TableName() string {
	return "disputes"
}

// Dispute status constants
const (
	DisputeStatusOpen        = "open"
	DisputeStatusUnderReview = "under_review"
	DisputeStatusResolved    = "resolved"
	DisputeStatusClosed      = "closed"
)

// Resolution action constants
const (
	ResolutionFullRefund      = "full_refund"
	ResolutionPartialRefund   = "partial_refund"
	ResolutionReleaseToVendor = "release_to_vendor"
	ResolutionSplit           = "split"
)

// Dispute type constants
const (
	DisputeTypeServiceNotProvided = "service_not_provided"
	DisputeTypeQualityIssue       = "quality_issue"
	DisputeTypeCancellation       = "cancellation"
	DisputeTypeOvercharge         = "overcharge"
	DisputeTypeOther              = "other"
)

// IsActive returns true while the dispute still freezes the escrow.
func (d *Dispute) IsActive() bool {
	return d.Status == DisputeStatusOpen || d.Status == DisputeStatusUnderReview
}

// MayResolve returns true if the dispute can still be arbitrated.
func (d *Dispute) MayResolve() bool {
	return d.IsActive()
}

// Resolution carries the arbitration outcome. Split resolutions must name
// both sides explicitly; the single resolution amount is not divisible on
// its own.
type Resolution struct {
	Action        string
	RefundAmount  float64
	ReleaseAmount float64
	Notes         string
	ResolvedBy    uint
}

// Validate checks the resolution against the dispute and the remaining
// escrow balance before any mutation happens.
func (r *Resolution) Validate(remaining float64) error {
	switch r.Action {
	case ResolutionFullRefund:
		if !AmountEqual(r.RefundAmount, remaining) {
			return fmt.Errorf("%w: full refund must equal the remaining balance %.2f", ErrValidation, remaining)
		}
		if r.ReleaseAmount != 0 {
			return fmt.Errorf("%w: full refund cannot carry a release amount", ErrValidation)
		}
	case ResolutionPartialRefund:
		if r.RefundAmount <= 0 {
			return fmt.Errorf("%w: partial refund requires a positive refund amount", ErrValidation)
		}
		if r.ReleaseAmount != 0 {
			return fmt.Errorf("%w: partial refund cannot carry a release amount", ErrValidation)
		}
	case ResolutionReleaseToVendor:
		if r.ReleaseAmount <= 0 {
			return fmt.Errorf("%w: release requires a positive release amount", ErrValidation)
		}
		if r.RefundAmount != 0 {
			return fmt.Errorf("%w: release cannot carry a refund amount", ErrValidation)
		}
	case ResolutionSplit:
		if r.RefundAmount <= 0 || r.ReleaseAmount <= 0 {
			return fmt.Errorf("%w: split requires explicit refund and release amounts", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown resolution action %q", ErrValidation, r.Action)
	}
	if AmountGreaterThan(AddAmounts(r.RefundAmount, r.ReleaseAmount), remaining) {
		return fmt.Errorf("%w: resolution total %.2f exceeds remaining balance %.2f",
			ErrInsufficientBalance, AddAmounts(r.RefundAmount, r.ReleaseAmount), remaining)
	}
	return nil
}

// Total is the combined amount leaving escrow under this resolution.
func (r *Resolution) Total() float64 {
	return AddAmounts(r.RefundAmount, r.ReleaseAmount)
}
