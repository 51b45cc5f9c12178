// Package scheduler repeats connector runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openctemio/connector/internal/pipeline"
	"github.com/openctemio/connector/pkg/logger"
)

// RunFunc executes one connector run. Each call must build its own
// pipeline so no state leaks between runs.
type RunFunc func(ctx context.Context) (*pipeline.Result, error)

// Status describes the runs executed so far.
type Status struct {
	Running   bool
	Runs      int
	LastRunAt time.Time
	LastState pipeline.State
	LastError string
	NextRunAt time.Time
}

// Scheduler runs a RunFunc on a cron spec. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	run     RunFunc
	logger  *logger.Logger
	entryID cron.EntryID
	adhoc   sync.WaitGroup

	mu     sync.Mutex
	status Status
}

// parser accepts five-field expressions and descriptors such as @hourly.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec parses a standard five-field cron expression.
func ParseSpec(spec string) (cron.Schedule, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return schedule, nil
}

// New creates a scheduler for spec.
func New(spec string, run RunFunc, log *logger.Logger) (*Scheduler, error) {
	if _, err := ParseSpec(spec); err != nil {
		return nil, err
	}

	log = log.With("component", "scheduler")
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
	)

	return &Scheduler{cron: c, spec: spec, run: run, logger: log}, nil
}

// Start registers the job and starts the cron loop. Runs use ctx, so
// cancelling it aborts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() { _, _ = s.RunNow(ctx) })
	if err != nil {
		return fmt.Errorf("schedule run: %w", err)
	}
	s.entryID = id
	s.cron.Start()

	s.logger.Info("scheduler started", "cron", s.spec, "next_run", s.cron.Entry(id).Next)
	return nil
}

// RunAsync starts one run outside the cron schedule. Stop waits for it.
func (s *Scheduler) RunAsync(ctx context.Context) {
	s.adhoc.Add(1)
	go func() {
		defer s.adhoc.Done()
		_, _ = s.RunNow(ctx)
	}()
}

// Stop stops scheduling and waits for running jobs, scheduled or started
// with RunAsync, to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	idle := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.adhoc.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunNow executes one run and records its outcome.
func (s *Scheduler) RunNow(ctx context.Context) (*pipeline.Result, error) {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping")
		return nil, nil
	}
	s.status.Running = true
	s.mu.Unlock()

	result, err := s.run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.Runs++
	s.status.LastRunAt = time.Now().UTC()
	s.status.LastError = ""
	s.status.LastState = pipeline.StateDone
	if result != nil {
		s.status.LastState = result.State
	}
	if err != nil {
		s.status.LastState = pipeline.StateFailed
		s.status.LastError = err.Error()
	}
	return result, err
}

// Status returns a snapshot of the run status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()

	if s.entryID != 0 {
		st.NextRunAt = s.cron.Entry(s.entryID).Next
	}
	return st
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
