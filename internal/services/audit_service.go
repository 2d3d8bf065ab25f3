package services

import (
	"context"

	"github.com/weddia/escrow-api/internal/models"
	"github.com/weddia/escrow-api/internal/repository"
)

// AuditService records who did what to which entity. Writes go through
// the worker pool so audit latency never sits on the request path.
type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record appends an audit entry
func (s *AuditService) Record(ctx context.Context, userID uint, action, entity string, entityID uint, details string) error {
	entry := &models.AuditLog{
		UserID:   userID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  details,
	}
	return s.repo.Create(ctx, entry)
}

// Trail returns the audit entries for one entity in order
func (s *AuditService) Trail(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	return s.repo.FindByEntity(ctx, entity, entityID)
}

// List returns recent audit entries
func (s *AuditService) List(ctx context.Context, limit, offset int) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, limit, offset)
}
