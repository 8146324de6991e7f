package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campusq/queuedesk/internal/clock"
	"github.com/campusq/queuedesk/internal/service"
)

// Scheduler runs the background jobs.
type Scheduler struct {
	emergencies *service.EmergencyService
	clock       clock.Clock
	cutoff      string
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
}

func NewScheduler(
	emergencies *service.EmergencyService,
	clk clock.Clock,
	cutoff string,
	interval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		emergencies: emergencies,
		clock:       clk,
		cutoff:      cutoff,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the background jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("sweep_interval", s.interval),
		zap.String("cutoff", s.cutoff),
	)

	go s.runAutoRejectTask(ctx)
}

// Stop halts the background jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runAutoRejectTask periodically closes out stale emergency requests.
func (s *Scheduler) runAutoRejectTask(ctx context.Context) {
	// First pass right away, so a restart after the cutoff still sweeps.
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Auto-reject task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Auto-reject task cancelled")
			return
		}
	}
}

// sweep auto-rejects pending emergency requests dated up to today once the
// counters have closed for the day.
func (s *Scheduler) sweep(ctx context.Context) {
	if !s.clock.IsPastCutoff(s.cutoff) {
		return
	}

	count, err := s.emergencies.SweepAutoReject(ctx)
	if err != nil {
		s.logger.Error("Failed to auto-reject emergency requests", zap.Error(err))
		return
	}

	if count > 0 {
		s.logger.Info("Auto-reject sweep completed", zap.Int("swept", count))
	}
}
