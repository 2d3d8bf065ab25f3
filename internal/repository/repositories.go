package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Escrow       EscrowRepository
	Transaction  TransactionRepository
	Contract     ContractRepository
	Dispute      DisputeRepository
	Notification NotificationRepository
	RefreshToken RefreshTokenRepository
	Audit        AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Escrow:       NewEscrowRepository(db),
		Transaction:  NewTransactionRepository(db),
		Contract:     NewContractRepository(db),
		Dispute:      NewDisputeRepository(db),
		Notification: NewNotificationRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
		Audit:        NewAuditRepository(db),
	}
}
