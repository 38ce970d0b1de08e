package reminders

import (
	"context"
	"time"

	"github.com/salonhq/booking-agent/pkg/logging"
)

// Scheduler fires the reminder worker once a day at a fixed local hour,
// mirroring a cron trigger without an external scheduler process.
type Scheduler struct {
	worker   *Worker
	hour     int
	location *time.Location
	logger   *logging.Logger
}

// NewScheduler creates a daily scheduler firing at the given hour in loc.
func NewScheduler(worker *Worker, hour int, loc *time.Location, logger *logging.Logger) *Scheduler {
	if worker == nil {
		panic("reminders: worker required")
	}
	if hour < 0 || hour > 23 {
		hour = 9
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{worker: worker, hour: hour, location: loc, logger: logger}
}

// Start runs the trigger loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
	s.logger.Info("reminder scheduler started", "hour", s.hour, "tz", s.location.String())
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		now := time.Now().In(s.location)
		next := s.nextTrigger(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		sent, err := s.worker.Run(runCtx, time.Now().In(s.location))
		cancel()
		if err != nil {
			s.logger.Error("reminder run failed", "error", err)
			continue
		}
		s.logger.Info("reminder run completed", "sent", sent)
	}
}

func (s *Scheduler) nextTrigger(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
