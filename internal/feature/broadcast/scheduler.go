package broadcast

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tg_promo_directory_bot/internal/logging"
)

type runner interface {
	Run(ctx context.Context)
}

// Scheduler triggers a broadcast round at a fixed interval.
type Scheduler struct {
	interval time.Duration
	runner   runner
	logger   *logrus.Entry

	done chan struct{}
}

// NewScheduler constructs a Scheduler that invokes runner every interval.
func NewScheduler(interval time.Duration, runner runner, logger *logrus.Entry) *Scheduler {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Scheduler{
		interval: interval,
		runner:   runner,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the ticker loop until ctx is canceled. It returns immediately;
// use Wait to block for the loop to drain.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.runner == nil {
		return
	}

	s.logger.WithFields(logging.Fields{
		"event":    "scheduler_started",
		"interval": s.interval.String(),
	}).Info("broadcast scheduler started")

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.WithField("event", "scheduler_stopped").Info("broadcast scheduler stopped")
				return
			case <-ticker.C:
				s.runner.Run(ctx)
			}
		}
	}()
}

// Wait blocks until the scheduler loop has exited.
func (s *Scheduler) Wait() {
	if s == nil {
		return
	}
	<-s.done
}
