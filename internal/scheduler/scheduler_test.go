package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/aatumaykin/cronbot/internal/metrics"
	"github.com/aatumaykin/cronbot/internal/output"
	"github.com/aatumaykin/cronbot/internal/schedule"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, job *jobs.Job) (string, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, job *jobs.Job) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, job.Name)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, job)
	}
	return "result for " + job.Name, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordedWrite struct {
	job     string
	content string
	spec    *jobs.OutputSpec
}

type fakeWriter struct {
	mu     sync.Mutex
	writes []recordedWrite
	err    error
}

func (f *fakeWriter) Write(jobName, content string, spec *jobs.OutputSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.writes = append(f.writes, recordedWrite{job: jobName, content: content, spec: spec})
	return filepath.Join("out", jobName+".txt"), nil
}

func (f *fakeWriter) recorded() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedWrite(nil), f.writes...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []string
	causes   []error
	ctxLive  bool
	err      error
}

func (f *fakeNotifier) NotifyError(ctx context.Context, job string, jobErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, job)
	f.causes = append(f.causes, jobErr)
	f.ctxLive = ctx.Err() == nil
	return f.err
}

func (f *fakeNotifier) notifiedJobs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notified...)
}

func (f *fakeNotifier) wasCtxLive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctxLive
}

func newTestScheduler(t *testing.T, file *jobs.File, opts ...func(*Config)) (*Scheduler, *fakeExecutor) {
	t.Helper()

	exec := &fakeExecutor{}
	cfg := Config{
		Jobs:     file,
		Executor: exec,
		Output:   &fakeWriter{},
		Logger:   logger.Nop(),
		Timezone: "UTC",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s, err := New(cfg)
	require.NoError(t, err)
	return s, exec
}

// everySecond is the fastest recurring schedule the mapping form allows,
// used to get observable firings without waiting for wall-clock minutes.
func everySecond() map[string]any {
	return map[string]any{"second": "*"}
}

func TestNewValidation(t *testing.T) {
	exec := &fakeExecutor{}

	tests := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{
			name:     "nil jobs",
			cfg:      Config{Executor: exec, Logger: logger.Nop()},
			expected: "jobs file cannot be nil",
		},
		{
			name:     "nil executor",
			cfg:      Config{Jobs: &jobs.File{}, Logger: logger.Nop()},
			expected: "executor cannot be nil",
		},
		{
			name:     "nil logger",
			cfg:      Config{Jobs: &jobs.File{}, Executor: exec},
			expected: "logger cannot be nil",
		},
		{
			name:     "unknown timezone",
			cfg:      Config{Jobs: &jobs.File{}, Executor: exec, Logger: logger.Nop(), Timezone: "Mars/Olympus"},
			expected: "load timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestStartBadScheduleAbortsWholeStart(t *testing.T) {
	tests := []struct {
		name     string
		schedule any
	}{
		{name: "malformed string", schedule: "every now and then"},
		{name: "out of range mapping", schedule: map[string]any{"minute": 99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := &jobs.File{Jobs: []jobs.Job{
				{Name: "good", Schedule: "0 8 * * *", Agent: "a", Task: "report"},
				{Name: "bad", Schedule: tt.schedule, Agent: "a", Task: "report"},
			}}
			s, _ := newTestScheduler(t, file)

			err := s.Start()
			require.Error(t, err)

			var schedErr *schedule.InvalidScheduleError
			assert.ErrorAs(t, err, &schedErr)
			assert.Contains(t, err.Error(), "job bad")
			assert.Equal(t, StateIdle, s.State())
		})
	}
}

func TestStartOnlyFromIdle(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "yearly", Schedule: "0 0 1 1 *", Agent: "a", Task: "report"},
	}}
	s, _ := newTestScheduler(t, file)

	require.NoError(t, s.Start())
	assert.Equal(t, StateRunning, s.State())

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot start from state "running"`)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, StateStopped, s.State())

	err = s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot start from state "stopped"`)
}

func TestStartPublishesJobCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.InitSchedulerMetrics("test", reg)

	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "yearly", Schedule: "0 0 1 1 *", Agent: "a", Task: "report"},
		{Name: "weekly", Schedule: "30 6 * * 1", Agent: "a", Task: "digest"},
	}}
	s, _ := newTestScheduler(t, file, func(c *Config) { c.Metrics = m })

	require.NoError(t, s.Start())
	defer func() { _ = s.Stop(context.Background()) }()

	expected := `
# HELP test_jobs_configured Number of configured jobs
# TYPE test_jobs_configured gauge
test_jobs_configured 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_jobs_configured"))
}

func TestTriggeredRunFlowsThroughPipeline(t *testing.T) {
	spec := &jobs.OutputSpec{Type: "text", Path: "out"}
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "tick", Schedule: everySecond(), Agent: "a", Task: "report", Output: spec},
	}}
	writer := &fakeWriter{}
	s, exec := newTestScheduler(t, file, func(c *Config) { c.Output = writer })

	fires := make(chan struct{}, 16)
	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		fires <- struct{}{}
		return "tick output", nil
	}

	require.NoError(t, s.Start())

	select {
	case <-fires:
	case <-time.After(3 * time.Second):
		t.Fatal("trigger never fired")
	}

	require.Eventually(t, func() bool {
		return len(writer.recorded()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))

	writes := writer.recorded()
	assert.Equal(t, "tick", writes[0].job)
	assert.Equal(t, "tick output", writes[0].content)
	assert.Same(t, spec, writes[0].spec)
}

func TestRunOnceWritesOutputEndToEnd(t *testing.T) {
	dir := t.TempDir()
	file := &jobs.File{Jobs: []jobs.Job{{
		Name:     "daily",
		Schedule: "0 8 * * 1-5",
		Agent:    "investment",
		Task:     "summarize the week",
		Output:   &jobs.OutputSpec{Type: "text", Path: dir},
	}}}

	reg := prometheus.NewRegistry()
	m := metrics.InitSchedulerMetrics("test", reg)

	s, exec := newTestScheduler(t, file, func(c *Config) {
		c.Output = output.NewWriter(logger.Nop())
		c.Metrics = m
	})
	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		return "market summary for the week", nil
	}

	require.NoError(t, s.RunOnce(context.Background(), "daily"))
	assert.Equal(t, StateIdle, s.State())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.True(t, strings.HasPrefix(name, "daily_"), "unexpected file name %q", name)
	assert.True(t, strings.HasSuffix(name, ".txt"), "unexpected file name %q", name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "market summary for the week", string(data))

	expected := `
# HELP test_job_runs_total Total number of job runs by outcome
# TYPE test_job_runs_total counter
test_job_runs_total{job="daily",status="succeeded"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_job_runs_total"))
}

func TestRunOnceUnknownJob(t *testing.T) {
	s, exec := newTestScheduler(t, &jobs.File{})

	err := s.RunOnce(context.Background(), "ghost")
	require.Error(t, err)

	var notFound *JobNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Name)
	assert.EqualError(t, err, "job not found: ghost")
	assert.Equal(t, 0, exec.callCount())
}

func TestRunOnceOutputFailureFailsJob(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{{
		Name:          "daily",
		Schedule:      "0 8 * * *",
		Agent:         "a",
		Task:          "report",
		Output:        &jobs.OutputSpec{Type: "text", Path: "out"},
		NotifyOnError: true,
	}}}
	writer := &fakeWriter{err: errors.New("disk full")}
	notifier := &fakeNotifier{}
	s, exec := newTestScheduler(t, file, func(c *Config) {
		c.Output = writer
		c.Notifier = notifier
	})

	err := s.RunOnce(context.Background(), "daily")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// Execution succeeded before persistence failed, and the failure
	// still raised the notification.
	assert.Equal(t, 1, exec.callCount())
	assert.Equal(t, []string{"daily"}, notifier.notifiedJobs())
}

func TestRunOnceRejectsConcurrentRun(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "daily", Schedule: "0 8 * * *", Agent: "a", Task: "report"},
	}}
	s, exec := newTestScheduler(t, file)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		entered <- struct{}{}
		<-release
		return "ok", nil
	}

	result := make(chan error, 1)
	go func() { result <- s.RunOnce(context.Background(), "daily") }()

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("first run never started")
	}

	err := s.RunOnce(context.Background(), "daily")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	close(release)
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("first run never finished")
	}
}

func TestOverlappingFiringSkipped(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "scheduler.log")
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: logPath})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.InitSchedulerMetrics("test", reg)

	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "tick", Schedule: everySecond(), Agent: "a", Task: "report"},
	}}
	exec := &fakeExecutor{}
	release := make(chan struct{})
	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		<-release
		return "ok", nil
	}

	s, err := New(Config{
		Jobs:     file,
		Executor: exec,
		Output:   &fakeWriter{},
		Metrics:  m,
		Logger:   log,
		Timezone: "UTC",
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())

	// The first firing blocks in the executor, so the next one must be
	// skipped with a logged warning, never run alongside it.
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(logPath)
		if strings.Contains(string(data), "skipping this firing") {
			break
		}
		require.True(t, time.Now().Before(deadline), "skip warning never logged")
		time.Sleep(50 * time.Millisecond)
	}

	assert.Equal(t, 1, exec.callCount())

	families, err := reg.Gather()
	require.NoError(t, err)
	var skipped float64
	for _, mf := range families {
		if mf.GetName() != "test_job_runs_total" {
			continue
		}
		for _, series := range mf.GetMetric() {
			for _, label := range series.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == metrics.StatusSkipped {
					skipped += series.GetCounter().GetValue()
				}
			}
		}
	}
	assert.GreaterOrEqual(t, skipped, float64(1))

	close(release)
	require.NoError(t, s.Stop(context.Background()))
}

func TestStopDrainsInFlightRun(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "tick", Schedule: everySecond(), Agent: "a", Task: "report", Output: &jobs.OutputSpec{Type: "text", Path: "out"}},
	}}
	writer := &fakeWriter{}
	s, exec := newTestScheduler(t, file, func(c *Config) { c.Output = writer })

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		entered <- struct{}{}
		<-release
		return "drained result", nil
	}

	require.NoError(t, s.Start())

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("trigger never fired")
	}

	stopDone := make(chan error, 1)
	go func() { stopDone <- s.Stop(context.Background()) }()

	select {
	case err := <-stopDone:
		t.Fatalf("stop returned before the run finished: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-stopDone:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("stop never returned")
	}

	assert.Equal(t, StateStopped, s.State())

	// The drained run completed its output before Stop returned.
	writes := writer.recorded()
	require.Len(t, writes, 1)
	assert.Equal(t, "drained result", writes[0].content)

	err := s.RunOnce(context.Background(), "tick")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped")

	require.NoError(t, s.Stop(context.Background()))
}

func TestStopDrainBoundedByContext(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "tick", Schedule: everySecond(), Agent: "a", Task: "report"},
	}}
	s, exec := newTestScheduler(t, file)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		entered <- struct{}{}
		<-release
		return "ok", nil
	}

	require.NoError(t, s.Start())

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("trigger never fired")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := s.Stop(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown drain")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateStopped, s.State())

	close(release)
}

func TestStopFromIdle(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "daily", Schedule: "0 8 * * *", Agent: "a", Task: "report"},
	}}
	s, _ := newTestScheduler(t, file)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, StateStopped, s.State())
	require.NoError(t, s.Stop(context.Background()))
}

func TestJobTimeoutCancelsExecution(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{{
		Name:           "slow",
		Schedule:       "0 8 * * *",
		Agent:          "a",
		Task:           "report",
		TimeoutSeconds: 1,
		NotifyOnError:  true,
	}}}
	notifier := &fakeNotifier{}
	s, exec := newTestScheduler(t, file, func(c *Config) { c.Notifier = notifier })

	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(10 * time.Second):
			return "late", nil
		}
	}

	start := time.Now()
	err := s.RunOnce(context.Background(), "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)

	// The notification went out on a live context even though the run
	// context had already expired.
	assert.Equal(t, []string{"slow"}, notifier.notifiedJobs())
	assert.True(t, notifier.wasCtxLive())
}

func TestNotifierFailureDoesNotMaskJobError(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "daily", Schedule: "0 8 * * *", Agent: "a", Task: "report", NotifyOnError: true},
	}}
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	s, exec := newTestScheduler(t, file, func(c *Config) { c.Notifier = notifier })

	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		return "", errors.New("llm unavailable")
	}

	err := s.RunOnce(context.Background(), "daily")
	assert.EqualError(t, err, "llm unavailable")
	assert.Equal(t, []string{"daily"}, notifier.notifiedJobs())
}

func TestFailureWithoutNotifyOptIn(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "daily", Schedule: "0 8 * * *", Agent: "a", Task: "report"},
	}}
	notifier := &fakeNotifier{}
	s, exec := newTestScheduler(t, file, func(c *Config) { c.Notifier = notifier })

	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		return "", errors.New("llm unavailable")
	}

	err := s.RunOnce(context.Background(), "daily")
	assert.EqualError(t, err, "llm unavailable")
	assert.Empty(t, notifier.notifiedJobs())
}

func TestDuplicateJobNameReplacesTrigger(t *testing.T) {
	file := &jobs.File{Jobs: []jobs.Job{
		{Name: "tick", Schedule: "0 0 1 1 *", Agent: "a", Task: "old"},
		{Name: "tick", Schedule: everySecond(), Agent: "a", Task: "new"},
	}}
	s, exec := newTestScheduler(t, file)

	fires := make(chan string, 16)
	exec.fn = func(ctx context.Context, job *jobs.Job) (string, error) {
		fires <- job.Task
		return "ok", nil
	}

	require.NoError(t, s.Start())
	defer func() { _ = s.Stop(context.Background()) }()

	s.mu.Lock()
	registered := len(s.entries)
	s.mu.Unlock()
	assert.Equal(t, 1, registered)

	select {
	case task := <-fires:
		assert.Equal(t, "new", task)
	case <-time.After(3 * time.Second):
		t.Fatal("replacement trigger never fired")
	}
}
