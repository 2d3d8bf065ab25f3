package scheduler

import (
	"context"

	"github.com/weddia/escrow-api/internal/services"
	"github.com/weddia/escrow-api/pkg/logger"
)

// AutoReleaseJob periodically releases escrow balances whose hold period
// has elapsed.
type AutoReleaseJob struct {
	escrowSvc *services.EscrowService
}

// NewAutoReleaseJob creates the auto-release sweep job
func NewAutoReleaseJob(escrowSvc *services.EscrowService) *AutoReleaseJob {
	return &AutoReleaseJob{escrowSvc: escrowSvc}
}

// GetName returns the job name
func (j *AutoReleaseJob) GetName() string {
	return "escrow_auto_release"
}

// Execute runs one sweep
func (j *AutoReleaseJob) Execute() {
	released, err := j.escrowSvc.SweepAutoRelease(context.Background())
	if err != nil {
		logger.Error("Auto release sweep failed", "error", err)
		return
	}
	if released > 0 {
		logger.Info("Auto release sweep released accounts", "count", released)
	}
}
