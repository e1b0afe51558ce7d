package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records job outcomes per queue and job type.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	duration  *prometheus.HistogramVec
	completed *prometheus.CounterVec
	retried   *prometheus.CounterVec
	dead      *prometheus.CounterVec
}

// NewMetrics registers the queue metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}

	labels := []string{"queue", "job_type"}
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_job_duration_seconds",
			Help:    "Duration of job handler executions in seconds.",
			Buckets: prometheus.DefBuckets,
		}, labels),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_jobs_completed_total",
			Help: "Jobs that completed successfully.",
		}, labels),
		retried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_jobs_retried_total",
			Help: "Job failures that were scheduled for retry.",
		}, labels),
		dead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_jobs_dead_total",
			Help: "Jobs that failed permanently.",
		}, labels),
	}
	reg.MustRegister(m.duration, m.completed, m.retried, m.dead)
	return m
}

func (m *Metrics) observeDuration(queue, jobType string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(queue, normalizeLabel(jobType)).Observe(d.Seconds())
}

func (m *Metrics) incCompleted(queue, jobType string) {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.WithLabelValues(queue, normalizeLabel(jobType)).Inc()
}

func (m *Metrics) incRetried(queue, jobType string) {
	if m == nil || m.retried == nil {
		return
	}
	m.retried.WithLabelValues(queue, normalizeLabel(jobType)).Inc()
}

func (m *Metrics) incDead(queue, jobType string) {
	if m == nil || m.dead == nil {
		return
	}
	m.dead.WithLabelValues(queue, normalizeLabel(jobType)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
