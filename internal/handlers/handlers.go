package handlers

import (
	"github.com/weddia/escrow-api/internal/jobs"
	"github.com/weddia/escrow-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Escrow       *EscrowHandler
	Contract     *ContractHandler
	Dispute      *DisputeHandler
	Notification *NotificationHandler
	Report       *ReportHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, worker *jobs.Worker) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(worker),
		Auth:         NewAuthHandler(svcs.Auth),
		Escrow:       NewEscrowHandler(svcs.Escrow),
		Contract:     NewContractHandler(svcs.Contract, svcs.Document),
		Dispute:      NewDisputeHandler(svcs.Dispute),
		Notification: NewNotificationHandler(svcs.Notification),
		Report:       NewReportHandler(svcs.Escrow, svcs.Export, svcs.Audit, svcs.Document),
	}
}
