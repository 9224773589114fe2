// Package metrics exposes job run counters over Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcome labels.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

type SchedulerMetrics struct {
	registry       prometheus.Registerer
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	jobsConfigured prometheus.Gauge
}

func InitSchedulerMetrics(namespace string, reg prometheus.Registerer) *SchedulerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &SchedulerMetrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Total number of job runs by outcome",
			},
			[]string{"job", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_run_duration_seconds",
				Help:      "Duration of completed job runs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"job"},
		),
		jobsConfigured: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_configured",
				Help:      "Number of configured jobs",
			},
		),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.jobsConfigured,
	)

	return m
}

// RecordRun counts a completed run and observes its duration. Safe on a
// nil receiver so disabled metrics need no call-site checks.
func (m *SchedulerMetrics) RecordRun(job, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(job, status).Inc()
	m.runDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordSkip counts a firing skipped because the job was still running.
func (m *SchedulerMetrics) RecordSkip(job string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(job, StatusSkipped).Inc()
}

// SetJobCount publishes the number of scheduled jobs.
func (m *SchedulerMetrics) SetJobCount(count int) {
	if m == nil {
		return
	}
	m.jobsConfigured.Set(float64(count))
}
