package services

import (
	"github.com/weddia/escrow-api/internal/config"
	"github.com/weddia/escrow-api/internal/gateway"
	"github.com/weddia/escrow-api/internal/jobs"
	"github.com/weddia/escrow-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	Escrow       *EscrowService
	Contract     *ContractService
	Dispute      *DisputeService
	Notification *NotificationService
	Audit        *AuditService
	Export       *ExportService
	Document     *DocumentService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, gw gateway.PaymentGateway, cfg *config.Config) *Services {
	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	auditSvc := NewAuditService(repos.Audit)

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, cfg),
		Escrow:       NewEscrowService(repos.Escrow, repos.Transaction, gw, notificationSvc, auditSvc, worker, cfg),
		Contract:     NewContractService(repos.Contract, repos.Escrow, notificationSvc, auditSvc, worker),
		Dispute:      NewDisputeService(repos.Dispute, repos.Escrow, notificationSvc, auditSvc, worker),
		Notification: notificationSvc,
		Audit:        auditSvc,
		Export:       NewExportService(repos.Transaction, repos.Escrow),
		Document:     NewDocumentService(repos.Contract, repos.Escrow, repos.Transaction),
	}
}
