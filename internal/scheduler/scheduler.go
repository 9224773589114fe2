// Package scheduler owns the configured job set and drives it through a
// cron dispatcher. Each firing performs one full job run (execution, then
// output when configured); per-run failures are contained here and never
// stop the dispatcher. Jobs are loaded once and immutable for the
// scheduler's lifetime.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/aatumaykin/cronbot/internal/metrics"
	"github.com/aatumaykin/cronbot/internal/notify"
	"github.com/aatumaykin/cronbot/internal/output"
	"github.com/aatumaykin/cronbot/internal/schedule"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// notifyTimeout bounds the notification side effect so a throttled
// notifier cannot hold up shutdown drain.
const notifyTimeout = 30 * time.Second

// State is the scheduler lifecycle phase. Stopped is terminal.
type State string

const (
	StateIdle         State = "idle"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
)

// Executor runs a job's target and returns its textual result.
type Executor interface {
	Execute(ctx context.Context, job *jobs.Job) (string, error)
}

// OutputWriter persists a job's result according to its output spec.
type OutputWriter interface {
	Write(jobName, content string, spec *jobs.OutputSpec) (string, error)
}

// Config holds the scheduler's collaborators. Jobs, Executor and Logger
// are required; a nil Output falls back to a file writer, a nil Notifier
// disables notifications, a nil Metrics disables recording.
type Config struct {
	Jobs     *jobs.File
	Executor Executor
	Output   OutputWriter
	Notifier notify.Notifier
	Metrics  *metrics.SchedulerMetrics
	Logger   *logger.Logger

	// Timezone names the location triggers are evaluated in.
	// Empty means the host's local time.
	Timezone string
}

// Scheduler registers one recurring trigger per configured job and runs
// firings through the execution and output pipeline.
type Scheduler struct {
	cron     *cron.Cron
	parser   cron.Parser
	jobs     *jobs.File
	executor Executor
	output   OutputWriter
	notifier notify.Notifier
	metrics  *metrics.SchedulerMetrics
	logger   *logger.Logger

	mu      sync.Mutex
	state   State
	entries map[string]cron.EntryID
	running map[string]bool

	// inflight tracks RunOnce runs; dispatcher-spawned runs are drained
	// through the cron stop context.
	inflight sync.WaitGroup
}

// New creates a scheduler in the Idle state. Nothing is registered or
// activated until Start.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Jobs == nil {
		return nil, fmt.Errorf("jobs file cannot be nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Output == nil {
		cfg.Output = output.NewWriter(cfg.Logger)
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithParser(parser)),
		parser:   parser,
		jobs:     cfg.Jobs,
		executor: cfg.Executor,
		output:   cfg.Output,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		state:    StateIdle,
		entries:  make(map[string]cron.EntryID),
		running:  make(map[string]bool),
	}, nil
}

// State reports the current lifecycle phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start validates every job's schedule, registers the triggers, and
// activates the dispatcher. A single bad schedule aborts the whole start
// with nothing live. Valid only from Idle.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("scheduler cannot start from state %q", s.state)
	}

	// Every schedule must parse before any trigger goes live.
	type trigger struct {
		job  *jobs.Job
		expr string
	}
	triggers := make([]trigger, 0, len(s.jobs.Jobs))
	for i := range s.jobs.Jobs {
		job := &s.jobs.Jobs[i]
		expr, err := s.cronExpr(job)
		if err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
		triggers = append(triggers, trigger{job: job, expr: expr})
	}

	for _, t := range triggers {
		// A duplicate name replaces the earlier trigger, never joins it.
		if prev, ok := s.entries[t.job.Name]; ok {
			s.cron.Remove(prev)
		}
		entryID, err := s.cron.AddFunc(t.expr, s.runTriggered(t.job, t.expr))
		if err != nil {
			return fmt.Errorf("job %s: register trigger: %w", t.job.Name, err)
		}
		s.entries[t.job.Name] = entryID
		s.logger.Debug("Job trigger registered",
			logger.Field{Key: "job", Value: t.job.Name},
			logger.Field{Key: "schedule", Value: t.expr})
	}

	s.cron.Start()
	s.state = StateRunning
	s.metrics.SetJobCount(len(s.entries))
	s.logger.Info("Scheduler started",
		logger.Field{Key: "jobs", Value: len(s.entries)})
	return nil
}

// cronExpr normalizes a job's schedule and validates the rendered
// expression against the dispatcher's parser. Mapping-form field values
// are only range-checked here.
func (s *Scheduler) cronExpr(job *jobs.Job) (string, error) {
	fields, err := schedule.Parse(job.Schedule)
	if err != nil {
		return "", err
	}
	expr, err := fields.CronExpr()
	if err != nil {
		return "", err
	}
	if _, err := s.parser.Parse(expr); err != nil {
		return "", &schedule.InvalidScheduleError{Spec: expr, Reason: "cron syntax", Err: err}
	}
	return expr, nil
}

// RunOnce executes one named job immediately, bypassing the dispatcher,
// and returns once that run (execution and output) completes or fails.
// It does not need the dispatcher to be running.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.state == StateShuttingDown || s.state == StateStopped {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("scheduler is %s", state)
	}
	job, ok := s.jobs.Job(name)
	if !ok {
		s.mu.Unlock()
		return &JobNotFoundError{Name: name}
	}
	if s.running[name] {
		s.mu.Unlock()
		return fmt.Errorf("job %s is already running", name)
	}
	s.running[name] = true
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	defer s.release(name)

	return s.run(ctx, job)
}

// Stop transitions through ShuttingDown to Stopped, draining in-flight
// runs rather than interrupting them. New firings stop immediately. ctx
// bounds the drain wait; the state still reaches Stopped when it expires.
// Stopping an already stopping or stopped scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateShuttingDown || s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	s.state = StateShuttingDown
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	s.logger.Info("Scheduler shutting down, draining in-flight runs")

	drained := s.cron.Stop()
	err := s.waitDrain(ctx, drained)

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.logger.Info("Scheduler stopped")
	return nil
}

// waitDrain waits for dispatcher-spawned runs, then for RunOnce runs.
func (s *Scheduler) waitDrain(ctx context.Context, drained context.Context) error {
	select {
	case <-drained.Done():
	case <-ctx.Done():
		return fmt.Errorf("shutdown drain: %w", ctx.Err())
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown drain: %w", ctx.Err())
	}
}

// runTriggered wraps one job for the dispatcher. A firing that lands while
// the previous run of the same job is still in flight is skipped with a
// warning, never run concurrently and never queued.
func (s *Scheduler) runTriggered(job *jobs.Job, expr string) func() {
	return func() {
		if !s.acquire(job.Name) {
			s.logger.Warn("Job still running, skipping this firing",
				logger.Field{Key: "job", Value: job.Name},
				logger.Field{Key: "schedule", Value: expr})
			s.metrics.RecordSkip(job.Name)
			return
		}
		defer s.release(job.Name)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Job run panic recovered", fmt.Errorf("panic: %v", r),
					logger.Field{Key: "job", Value: job.Name})
			}
		}()

		// Failures are logged and notified inside run; the dispatcher
		// keeps going either way.
		_ = s.run(context.Background(), job)
	}
}

// run performs one full job run and handles its failure: log, metrics,
// notification. The error also returns to RunOnce callers.
func (s *Scheduler) run(ctx context.Context, job *jobs.Job) error {
	runID := uuid.NewString()
	start := time.Now()

	if job.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(job.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	s.logger.InfoCtx(ctx, "Job run started",
		logger.Field{Key: "job", Value: job.Name},
		logger.Field{Key: "run_id", Value: runID})

	text, err := s.executor.Execute(ctx, job)
	if err == nil && job.Output != nil {
		_, err = s.output.Write(job.Name, text, job.Output)
	}

	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordRun(job.Name, metrics.StatusFailed, duration)
		s.logger.ErrorCtx(ctx, "Job run failed", err,
			logger.Field{Key: "job", Value: job.Name},
			logger.Field{Key: "run_id", Value: runID},
			logger.Field{Key: "duration", Value: duration.String()})
		s.notifyFailure(ctx, job, err)
		return err
	}

	s.metrics.RecordRun(job.Name, metrics.StatusSucceeded, duration)
	s.logger.InfoCtx(ctx, "Job run completed",
		logger.Field{Key: "job", Value: job.Name},
		logger.Field{Key: "run_id", Value: runID},
		logger.Field{Key: "duration", Value: duration.String()})
	return nil
}

// notifyFailure raises the configured notification side effect. Its own
// failure is logged and never replaces the job failure.
func (s *Scheduler) notifyFailure(ctx context.Context, job *jobs.Job, jobErr error) {
	if !job.NotifyOnError || s.notifier == nil {
		return
	}
	// The run context may already be expired; the notification still
	// goes out, on its own deadline.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyError(nctx, job.Name, jobErr); err != nil {
		s.logger.ErrorCtx(ctx, "Failure notification failed", err,
			logger.Field{Key: "job", Value: job.Name})
	}
}

func (s *Scheduler) acquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}
