// Package metrics holds the prometheus collectors exported by jobsd.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jobsd"

// Metrics groups every collector the scheduler and jobs report to
type Metrics struct {
	runsTotal          *prometheus.CounterVec
	skippedTotal       *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	running            prometheus.Gauge
	moderationReports  *prometheus.CounterVec
	remindersSent      prometheus.Counter
	reminderDedupHits  prometheus.Counter
	averageRunDuration *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job runs by final status.",
		}, []string{"job", "status"}),
		skippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_skipped_total",
			Help:      "Ticks that did not start a job, by reason.",
		}, []string{"job", "reason"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_run_duration_seconds",
			Help:      "Wall time of job bodies.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"job"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Job bodies currently holding a concurrency slot.",
		}),
		moderationReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_reports_total",
			Help:      "Reports examined by the moderation job, by outcome.",
		}, []string{"outcome"}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Subscriber reminders handed to the dispatcher.",
		}),
		reminderDedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_dedup_hits_total",
			Help:      "Subscriber reminders skipped because they were already sent.",
		}),
		averageRunDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_run_average_duration_seconds",
			Help:      "Average duration of recorded runs per job.",
		}, []string{"job"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.runsTotal,
			m.skippedTotal,
			m.runDuration,
			m.running,
			m.moderationReports,
			m.remindersSent,
			m.reminderDedupHits,
			m.averageRunDuration,
		)
	}
	return m
}

// RunStarted marks a job body as holding a slot
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.running.Inc()
}

// RunFinished records the end of a job body
func (m *Metrics) RunFinished(job, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.running.Dec()
	m.runsTotal.WithLabelValues(job, status).Inc()
	m.runDuration.WithLabelValues(job).Observe(d.Seconds())
}

// RunSkipped records a tick that did not start a body
func (m *Metrics) RunSkipped(job, reason string) {
	if m == nil {
		return
	}
	m.skippedTotal.WithLabelValues(job, reason).Inc()
}

// ModerationOutcome counts one examined report
func (m *Metrics) ModerationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.moderationReports.WithLabelValues(outcome).Inc()
}

// RemindersSent counts subscriber reminders passed to the dispatcher
func (m *Metrics) RemindersSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.remindersSent.Add(float64(n))
}

// ReminderDedupHit counts a reminder skipped by the dedup cache
func (m *Metrics) ReminderDedupHit() {
	if m == nil {
		return
	}
	m.reminderDedupHits.Inc()
}

// SetAverageRunDuration publishes the average duration of a job's recorded runs
func (m *Metrics) SetAverageRunDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.averageRunDuration.WithLabelValues(job).Set(d.Seconds())
}
