// Package scheduler keeps the process alive and runs the notifier on a cron
// schedule evaluated in the configured time zone.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// Job is one scheduled pass. Its error is logged; the schedule goes on.
type Job func(ctx context.Context) error

// Scheduler drives Job from a cron spec.
type Scheduler struct {
	spec string
	job  Job
	cron *cron.Cron
}

// New validates spec (5 fields or a descriptor such as "@daily") and prepares
// a scheduler in loc. A tick is skipped while the previous one still runs.
func New(spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, apperr.WrapUsage(err, "--%s: %s '%s'", config.FlagSchedule, config.ErrScheduleSpec, spec)
	}
	if loc == nil {
		loc = time.Local
	}

	logger := cronLogger{}
	return &Scheduler{
		spec: spec,
		job:  job,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running tick to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return apperr.WrapUsage(err, "--%s: %s '%s'", config.FlagSchedule, config.ErrScheduleSpec, s.spec)
	}

	s.cron.Start()
	log := slog.With(config.LogKeyComponent, config.CompScheduler, config.LogKeySpec, s.spec)
	log.Info(config.MsgSchedulerStart)

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	log.Info(config.MsgSchedulerStop)
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.job(ctx); err != nil {
		slog.Error(config.MsgTickFailed,
			config.LogKeyComponent, config.CompScheduler,
			config.LogKeySpec, s.spec,
			config.LogKeyError, err,
		)
	}
}

// cronLogger forwards the cron library's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, append([]any{config.LogKeyComponent, config.CompScheduler}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append([]any{config.LogKeyComponent, config.CompScheduler, config.LogKeyError, err}, keysAndValues...)...)
}
