package scheduler

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/weddia/escrow-api/internal/config"
	"github.com/weddia/escrow-api/internal/services"
	"github.com/weddia/escrow-api/pkg/logger"
)

// Manager owns the periodic jobs. Singleton mode keeps a slow sweep from
// overlapping with the next tick.
type Manager struct {
	scheduler gocron.Scheduler
	services  *services.Services
	cfg       *config.Config
}

// NewManager creates a new job manager
func NewManager(svcs *services.Services, cfg *config.Config) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Manager{
		scheduler: s,
		services:  svcs,
		cfg:       cfg,
	}, nil
}

// Start registers all jobs and starts the scheduler
func (m *Manager) Start() error {
	if err := m.registerAutoReleaseJob(); err != nil {
		return err
	}

	m.scheduler.Start()
	logger.Info("Scheduler started", "sweep_interval", m.cfg.SweepInterval)
	return nil
}

func (m *Manager) registerAutoReleaseJob() error {
	job := NewAutoReleaseJob(m.services.Escrow)
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(m.cfg.SweepInterval),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.GetName(), err)
	}
	return nil
}

// Stop shuts the scheduler down
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler", "error", err)
	}
	logger.Info("Scheduler stopped")
}
