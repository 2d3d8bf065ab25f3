package models

import (
	"time"
)

// EscrowTransaction records a single balance-affecting event on an escrow
// account. Rows are immutable once written; the repository exposes no
// update or delete.
type EscrowTransaction struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	EscrowAccountID uint      `json:"escrow_account_id" gorm:"not null;index"`
	Type            string    `json:"type" gorm:"not null;index"` // deposit, release, refund, commission
	Amount          float64   `json:"amount" gorm:"type:decimal;not null"`
	FromParty       string    `json:"from_party" gorm:"not null"`
	ToParty         string    `json:"to_party" gorm:"not null"`
	Status          string    `json:"status" gorm:"default:completed"`
	Reference       *string   `json:"reference,omitempty" gorm:"index"`
	Notes           string    `json:"notes" gorm:"type:text"`
	CreatedBy       uint      `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`

	// Relationships
	EscrowAccount *EscrowAccount `json:"-" gorm:"foreignKey:EscrowAccountID"`
}

// Transaction type constants
const (
	TransactionTypeDeposit    = "deposit"    // customer funds captured into escrow
	TransactionTypeRelease    = "release"    // escrow paid out to vendor
	TransactionTypeRefund     = "refund"     // escrow returned to customer
	TransactionTypeCommission = "commission" // platform commission retained
)

// Transaction party constants
const (
	PartyCustomer = "customer"
	PartyVendor   = "vendor"
	PartyEscrow   = "escrow"
	PartyPlatform = "platform"
)

// Transaction status constants
const (
	TransactionStatusCompleted = "completed"
)

// TableName specifies the table name for GORM
func (EscrowTransaction) TableName() string {
	return "escrow_transactions"
}

// SignedAmount maps a transaction to its effect on the held balance:
// deposits add, releases/refunds/commission subtract.
func (t *EscrowTransaction) SignedAmount() float64 {
	if t.Type == TransactionTypeDeposit {
		return t.Amount
	}
	return -t.Amount
}
