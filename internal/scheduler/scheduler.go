// Package scheduler triggers the aggregator on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/vytor/stepple/internal/jobs"
	"github.com/vytor/stepple/internal/logger"
)

type Scheduler struct {
	queue      jobs.JobQueue
	interval   time.Duration
	runOnStart bool
}

func New(queue jobs.JobQueue, interval time.Duration, runOnStart bool) *Scheduler {
	return &Scheduler{queue: queue, interval: interval, runOnStart: runOnStart}
}

// Run enqueues a sync every interval until ctx is done. A tick that finds
// the queue full is dropped, so runs never pile up behind a slow one.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("scheduler")
	log.Info("scheduling integration sync every %s", s.interval)

	if s.runOnStart {
		s.enqueue(log, "startup")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.enqueue(log, "schedule")
		}
	}
}

func (s *Scheduler) enqueue(log *logger.Logger, reason string) {
	if err := s.queue.EnqueueSync(reason); err != nil {
		log.Warn("skipping %s sync: %v", reason, err)
		return
	}
	log.Debug("enqueued %s sync", reason)
}
