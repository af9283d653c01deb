// Package jobs runs the app's background tasks on a cron schedule.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"loopLife/domain"
)

// Scheduler manages the background jobs. Right now that is a nightly
// reconciliation of the denormalized like and comment counters: they are
// maintained transactionally, the job only repairs drift introduced outside
// the application.
type Scheduler struct {
	cron  *cron.Cron
	loops domain.LoopService
}

// NewScheduler returns a scheduler for the given loop service.
func NewScheduler(loops domain.LoopService) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		loops: loops,
	}
}

// Start registers and starts all background jobs.
func (s *Scheduler) Start(ctx context.Context) {
	_, err := s.cron.AddFunc("@daily", func() {
		log.Info("[CRON] reconciling loop counters")
		if err := s.loops.ReconcileCounters(ctx); err != nil {
			log.WithError(err).Error("[CRON] counter reconciliation failed")
		}
	})
	if err != nil {
		log.WithError(err).Error("[CRON] registering counter reconciliation failed")
	}
	s.cron.Start()
	log.Info("scheduler started")
}

// Stop stops the scheduler. Running jobs finish, no new ones start.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
