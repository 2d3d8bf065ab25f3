package models

import (
	"fmt"
	"time"
)

// EscrowAccount holds customer funds in trust for a single booking until
// they are released to the vendor or refunded. It is mutated only through
// EscrowRepository operations, which lock the row and append the matching
// EscrowTransaction in the same database transaction.
type EscrowAccount struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	BookingID             uint       `gorm:"not null;uniqueIndex" json:"booking_id"`
	CustomerID            uint       `gorm:"not null;index" json:"customer_id"`
	VendorID              uint       `gorm:"not null;index" json:"vendor_id"`
	TotalAmount           float64    `gorm:"type:decimal;not null" json:"total_amount"`
	AdvanceAmount         float64    `gorm:"type:decimal;not null" json:"advance_amount"`
	BalanceAmount         float64    `gorm:"type:decimal;not null" json:"balance_amount"`
	ReleasedAmount        float64    `gorm:"type:decimal;default:0" json:"released_amount"`
	RefundedAmount        float64    `gorm:"type:decimal;default:0" json:"refunded_amount"`
	CommissionAmount      float64    `gorm:"type:decimal;not null" json:"commission_amount"`
	CommissionPercentage  float64    `gorm:"type:decimal;not null" json:"commission_percentage"`
	Status                string     `gorm:"default:pending;index" json:"status"`
	PaymentRef            *string    `gorm:"index" json:"payment_ref"`
	GatewayOrderID        *string    `json:"gateway_order_id"`
	AutoReleaseDate       time.Time  `gorm:"index" json:"auto_release_date"`
	ManualReleaseRequired bool       `gorm:"default:false" json:"manual_release_required"`
	CommissionRecorded    bool       `gorm:"default:false" json:"-"`
	FundedAt              *time.Time `json:"funded_at"`
	ClosedAt              *time.Time `json:"closed_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	// Associations
	Transactions []EscrowTransaction `gorm:"foreignKey:EscrowAccountID" json:"transactions,omitempty"`
	Disputes     []Dispute           `gorm:"foreignKey:EscrowAccountID" json:"disputes,omitempty"`
}

// TableName specifies the table name for EscrowAccount
func (EscrowAccount) TableName() string {
	return "escrow_accounts"
}

// Escrow status constants
const (
	EscrowStatusPending         = "pending"
	EscrowStatusFunded          = "funded"
	EscrowStatusPartialReleased = "partial_released"
	EscrowStatusDisputed        = "disputed"
	EscrowStatusReleased        = "released"
	EscrowStatusRefunded        = "refunded"
	EscrowStatusClosed          = "closed"
)

// NewEscrowAccount validates input and derives advance, balance and
// commission deterministically. The returned account is in pending state.
func NewEscrowAccount(bookingID, customerID, vendorID uint, totalAmount, advancePct, commissionPct float64, holdDays int) (*EscrowAccount, error) {
	if totalAmount <= 0 {
		return nil, fmt.Errorf("%w: total amount must be greater than 0", ErrValidation)
	}
	if advancePct < 0 || advancePct > 100 {
		return nil, fmt.Errorf("%w: advance percentage must be between 0 and 100", ErrValidation)
	}
	if commissionPct < 0 || commissionPct > 100 {
		return nil, fmt.Errorf("%w: commission percentage must be between 0 and 100", ErrValidation)
	}
	if holdDays < 0 {
		return nil, fmt.Errorf("%w: hold days cannot be negative", ErrValidation)
	}
	if bookingID == 0 || customerID == 0 || vendorID == 0 {
		return nil, fmt.Errorf("%w: booking, customer and vendor are required", ErrValidation)
	}

	advance := PercentOf(totalAmount, advancePct)
	return &EscrowAccount{
		BookingID:            bookingID,
		CustomerID:           customerID,
		VendorID:             vendorID,
		TotalAmount:          Round2(totalAmount),
		AdvanceAmount:        advance,
		BalanceAmount:        SubAmounts(totalAmount, advance),
		CommissionAmount:     PercentOf(totalAmount, commissionPct),
		CommissionPercentage: commissionPct,
		Status:               EscrowStatusPending,
		AutoReleaseDate:      time.Now().AddDate(0, 0, holdDays),
	}, nil
}

// ReleasableTotal is the amount that may ever leave the escrow toward
// either party: total minus the platform commission.
func (e *EscrowAccount) ReleasableTotal() float64 {
	return SubAmounts(e.TotalAmount, e.CommissionAmount)
}

// RemainingBalance is what is still held and releasable/refundable.
func (e *EscrowAccount) RemainingBalance() float64 {
	return SubAmounts(e.ReleasableTotal(), AddAmounts(e.ReleasedAmount, e.RefundedAmount))
}

// IsTerminal returns true once no further ledger operations are allowed.
func (e *EscrowAccount) IsTerminal() bool {
	return e.Status == EscrowStatusReleased ||
		e.Status == EscrowStatusRefunded ||
		e.Status == EscrowStatusClosed
}

// MayMoveFunds returns true if release/refund operations are allowed in
// the current state.
func (e *EscrowAccount) MayMoveFunds() bool {
	return e.Status == EscrowStatusFunded || e.Status == EscrowStatusPartialReleased
}

// MayDispute returns true if a dispute can freeze this account.
func (e *EscrowAccount) MayDispute() bool {
	return e.Status == EscrowStatusFunded || e.Status == EscrowStatusPartialReleased
}

// ApplyFunding moves a pending account to funded once the gateway has
// captured the advance. Replaying a payment reference that is already
// recorded reports replay=true and changes nothing, which keeps gateway
// webhook retries safe.
func (e *EscrowAccount) ApplyFunding(paymentRef string, at time.Time) (replay bool, err error) {
	if e.PaymentRef != nil && *e.PaymentRef == paymentRef {
		return true, nil
	}
	if e.Status != EscrowStatusPending {
		return false, fmt.Errorf("%w: escrow account is %s, expected pending", ErrInvalidState, e.Status)
	}
	e.Status = EscrowStatusFunded
	e.PaymentRef = &paymentRef
	e.FundedAt = &at
	return false, nil
}

// NewDeposit builds the ledger entry appended when the account is funded.
// The deposit equals the advance collected from the customer at booking
// time, not the contract total.
func (e *EscrowAccount) NewDeposit(actorID uint) EscrowTransaction {
	return EscrowTransaction{
		EscrowAccountID: e.ID,
		Type:            TransactionTypeDeposit,
		Amount:          e.AdvanceAmount,
		FromParty:       PartyCustomer,
		ToParty:         PartyEscrow,
		Status:          TransactionStatusCompleted,
		Reference:       e.PaymentRef,
		Notes:           fmt.Sprintf("booking %d funded", e.BookingID),
		CreatedBy:       actorID,
	}
}

// AutoReleaseEligible is the pure scheduler predicate: funded, no manual
// hold, and the hold period has elapsed.
func (e *EscrowAccount) AutoReleaseEligible(now time.Time) bool {
	return e.Status == EscrowStatusFunded &&
		!e.ManualReleaseRequired &&
		!now.Before(e.AutoReleaseDate)
}

// ApplyRelease moves amount toward the vendor. The caller must hold the
// row lock; the matching release transaction must be appended in the same
// database transaction.
func (e *EscrowAccount) ApplyRelease(amount float64) error {
	if err := e.checkMovement(amount); err != nil {
		return err
	}
	e.ReleasedAmount = AddAmounts(e.ReleasedAmount, amount)
	e.settle()
	return nil
}

// ApplyRefund moves amount back toward the customer under the same rules
// as ApplyRelease.
func (e *EscrowAccount) ApplyRefund(amount float64) error {
	if err := e.checkMovement(amount); err != nil {
		return err
	}
	e.RefundedAmount = AddAmounts(e.RefundedAmount, amount)
	e.settle()
	return nil
}

func (e *EscrowAccount) checkMovement(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	}
	if !e.MayMoveFunds() {
		return fmt.Errorf("%w: cannot move funds while escrow is %s", ErrInvalidState, e.Status)
	}
	if AmountGreaterThan(amount, e.RemainingBalance()) {
		return fmt.Errorf("%w: requested %.2f, remaining %.2f", ErrInsufficientBalance, amount, e.RemainingBalance())
	}
	return nil
}

// settle recomputes status after a movement: partial_released while a
// balance remains, terminal once the releasable total is exhausted.
func (e *EscrowAccount) settle() {
	if AmountGreaterThan(e.RemainingBalance(), 0) {
		e.Status = EscrowStatusPartialReleased
		return
	}
	now := time.Now()
	e.ClosedAt = &now
	switch {
	case AmountEqual(e.RefundedAmount, 0):
		e.Status = EscrowStatusReleased
	case AmountEqual(e.ReleasedAmount, 0):
		e.Status = EscrowStatusRefunded
	default:
		e.Status = EscrowStatusClosed
	}
}

// ResumeFromDispute returns a frozen account to its operating state after
// a resolution: funded while a balance remains, terminal otherwise.
func (e *EscrowAccount) ResumeFromDispute() {
	if e.Status != EscrowStatusDisputed {
		return
	}
	if AmountGreaterThan(e.RemainingBalance(), 0) {
		e.Status = EscrowStatusFunded
		return
	}
	e.settle()
}

// EscrowAccountResponse is the JSON response format for escrow accounts
type EscrowAccountResponse struct {
	ID                    uint                `json:"id"`
	BookingID             uint                `json:"booking_id"`
	CustomerID            uint                `json:"customer_id"`
	VendorID              uint                `json:"vendor_id"`
	TotalAmount           float64             `json:"total_amount"`
	AdvanceAmount         float64             `json:"advance_amount"`
	BalanceAmount         float64             `json:"balance_amount"`
	ReleasedAmount        float64             `json:"released_amount"`
	RefundedAmount        float64             `json:"refunded_amount"`
	CommissionAmount      float64             `json:"commission_amount"`
	CommissionPercentage  float64             `json:"commission_percentage"`
	RemainingBalance      float64             `json:"remaining_balance"`
	Status                string              `json:"status"`
	AutoReleaseDate       time.Time           `json:"auto_release_date"`
	ManualReleaseRequired bool                `json:"manual_release_required"`
	FundedAt              *time.Time          `json:"funded_at"`
	ClosedAt              *time.Time          `json:"closed_at"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
	Transactions          []EscrowTransaction `json:"transactions,omitempty"`
}

// ToResponse converts EscrowAccount to EscrowAccountResponse
func (e *EscrowAccount) ToResponse() EscrowAccountResponse {
	return EscrowAccountResponse{
		ID:                    e.ID,
		BookingID:             e.BookingID,
		CustomerID:            e.CustomerID,
		VendorID:              e.VendorID,
		TotalAmount:           e.TotalAmount,
		AdvanceAmount:         e.AdvanceAmount,
		BalanceAmount:         e.BalanceAmount,
		ReleasedAmount:        e.ReleasedAmount,
		RefundedAmount:        e.RefundedAmount,
		CommissionAmount:      e.CommissionAmount,
		CommissionPercentage:  e.CommissionPercentage,
		RemainingBalance:      e.RemainingBalance(),
		Status:                e.Status,
		AutoReleaseDate:       e.AutoReleaseDate,
		ManualReleaseRequired: e.ManualReleaseRequired,
		FundedAt:              e.FundedAt,
		ClosedAt:              e.ClosedAt,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
		Transactions:          e.Transactions,
	}
}
