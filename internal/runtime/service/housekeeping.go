package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/store"
)

// HousekeepingService periodically deletes expired launch nonces and stale
// runtime events so the tables don't grow without bound. Checkpoints are
// deliberately untouched; they have no TTL.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// EventRetention is how long telemetry events are kept.
	EventRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the service. Interval defaults to 1 hour,
// event retention to 30 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:          st,
		Logger:         logger,
		Interval:       interval,
		EventRetention: retention,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background cleanup worker. Non-blocking; call Stop to
// shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress cleanup ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes independently; a failure in one sweep never stops the
// others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Info("starting housekeeping cleanup")

	if err := s.Store.LaunchNonces().DeleteExpiredLaunchNonces(ctx); err != nil {
		s.Logger.Error("failed to delete expired launch nonces", "error", err)
	} else {
		s.Logger.Debug("deleted expired launch nonces")
	}

	cutoff := time.Now().Add(-s.EventRetention)
	if err := s.Store.Events().DeleteEventsBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete stale runtime events", "error", err)
	} else {
		s.Logger.Debug("deleted stale runtime events", "cutoff", cutoff)
	}

	s.Logger.Info("housekeeping cleanup completed")
}
