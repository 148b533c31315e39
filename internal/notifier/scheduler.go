package notifier

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/logger"
)

const (
	DefaultSchedule = "0 9 * * *"
	DefaultTimezone = "Europe/Moscow"
)

// Job is a mailing run started by the scheduler.
type Job interface {
	SendDaily(ctx context.Context) (Report, error)
}

type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    Job
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewScheduler validates the schedule. Empty spec and timezone fall back to the defaults.
func NewScheduler(spec, timezone string, job Job, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultSchedule
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	cronLog := logger.NewCronLogger(log)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		spec:   spec,
		job:    job,
		logger: log.Named("scheduler"),
	}, nil
}

// Start registers the job and starts the scheduler in its own goroutine.
// Runs use ctx and are cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	_, err := s.cron.AddFunc(s.spec, func() {
		report, err := s.job.SendDaily(ctx)
		if err != nil {
			s.logger.Error("daily mailing failed", zap.String(logger.FieldRunID, report.RunID), zap.Error(err))
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("scheduling daily mailing: %w", err)
	}

	s.cancel = cancel
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("schedule", s.spec), zap.String("timezone", s.cron.Location().String()))
	return nil
}

// Stop stops the scheduler and waits for a running job to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next returns the time of the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
