// Package schedule replays recordings on a cron timetable.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. It should return once its replay has finished.
type Job func(ctx context.Context) error

// Options tunes a Scheduler.
type Options struct {
	// Location interprets the cron expression; defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// Scheduler fires a Job on a cron expression. A trigger that arrives while
// the previous run is still going is skipped, so only one replay drives the
// injector at a time.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	cron     *cron.Cron
	job      Job
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time

	running  atomic.Bool
	runs     atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64

	mu  sync.Mutex
	ctx context.Context
}

// New parses spec (standard five-field syntax or descriptors such as
// "@every 10m") and prepares a scheduler. It does not start it.
func New(spec string, job Job, opts Options) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("schedule: job must be provided")
	}
	parsed, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule: parse %q: %w", spec, err)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Scheduler{
		spec:     spec,
		schedule: parsed,
		job:      job,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		ctx:      context.Background(),
	}
	s.cron = cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger: logger}))
	s.cron.Schedule(parsed, cron.FuncJob(s.trigger))
	return s, nil
}

// Next returns the first fire time after t, in the scheduler's location.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// NextRun is the first fire time from now.
func (s *Scheduler) NextRun() time.Time {
	return s.Next(s.now())
}

// Run starts the timetable and blocks until ctx is done, then waits for an
// in-flight run to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("schedule started", "spec", s.spec, "next", s.NextRun())
	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("schedule stopped", "runs", s.runs.Load(), "skipped", s.skipped.Load(), "failures", s.failures.Load())
	return nil
}

func (s *Scheduler) trigger() {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("previous replay still running; trigger skipped", "spec", s.spec)
		return
	}
	defer s.running.Store(false)

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	s.runs.Add(1)
	if err := s.job(ctx); err != nil {
		s.failures.Add(1)
		s.logger.Error("scheduled replay failed", "error", err)
	}
}

// Stats reports completed runs, skipped triggers and failed runs.
func (s *Scheduler) Stats() (runs, skipped, failures int64) {
	return s.runs.Load(), s.skipped.Load(), s.failures.Load()
}

// cronLogger forwards cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
