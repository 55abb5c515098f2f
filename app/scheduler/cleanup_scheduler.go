// Package scheduler runs the periodic reservation cleanup job.
package scheduler

import (
	"context"
	"log"
	"time"

	businessflow "github.com/assetforge/code-allocator/business_flow"
	"github.com/robfig/cron/v3"
)

// CleanupScheduler periodically sweeps expired unconfirmed reservations.
// Sweeps are advisory housekeeping; a missed run never threatens code
// uniqueness, so overlapping or skipped executions need no coordination
// beyond the single-goroutine guarantee cron already gives.
type CleanupScheduler struct {
	flow     businessflow.AllocationFlow
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

// NewCleanupScheduler creates a scheduler for the given cron schedule spec.
func NewCleanupScheduler(flow businessflow.AllocationFlow, schedule string, timeout time.Duration) *CleanupScheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CleanupScheduler{
		flow:     flow,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(),
	}
}

// Start registers the sweep job and begins running it on the schedule.
func (s *CleanupScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("Reservation cleanup scheduler started, schedule:", s.schedule)
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to drain.
func (s *CleanupScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Reservation cleanup scheduler stopped")
}

func (s *CleanupScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resp, err := s.flow.CleanupExpired(ctx)
	if err != nil {
		log.Println("Reservation cleanup sweep failed:", err)
		return
	}
	if resp.Deleted > 0 {
		log.Println("Reservation cleanup removed", resp.Deleted, "expired reservations")
	}
}
