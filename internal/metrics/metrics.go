// Package metrics exports intake, editor and dispatcher counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wellness"

// Recorder is the write side used by services. A nil *Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	intakeTransitions *prometheus.CounterVec
	intakeSubmissions *prometheus.CounterVec
	profileCommits    *prometheus.CounterVec
	dispatchRequests  *prometheus.CounterVec
	dispatchLatency   *prometheus.HistogramVec
	activeDrafts      *prometheus.GaugeVec
}

func New() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		intakeTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "intake",
				Name:      "transitions_total",
				Help:      "Intake step transitions by source step and outcome",
			},
			[]string{"from", "result"},
		),
		intakeSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "intake",
				Name:      "submissions_total",
				Help:      "Intake two-phase commits by outcome",
			},
			[]string{"result"},
		),
		profileCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "profile",
				Name:      "commits_total",
				Help:      "Profile editor commits by outcome",
			},
			[]string{"result"},
		),
		dispatchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatcher",
				Name:      "requests_total",
				Help:      "Remote action calls by action and status class",
			},
			[]string{"action", "status"},
		),
		dispatchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatcher",
				Name:      "latency_seconds",
				Help:      "Remote action latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"action"},
		),
		activeDrafts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "drafts",
				Name:      "active",
				Help:      "In-memory intake workflows and editor drafts",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.intakeTransitions,
		r.intakeSubmissions,
		r.profileCommits,
		r.dispatchRequests,
		r.dispatchLatency,
		r.activeDrafts,
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) IntakeTransition(from, result string) {
	if r == nil {
		return
	}
	r.intakeTransitions.WithLabelValues(from, result).Inc()
}

func (r *Recorder) IntakeSubmission(result string) {
	if r == nil {
		return
	}
	r.intakeSubmissions.WithLabelValues(result).Inc()
}

func (r *Recorder) ProfileCommit(result string) {
	if r == nil {
		return
	}
	r.profileCommits.WithLabelValues(result).Inc()
}

func (r *Recorder) Dispatch(action string, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.dispatchRequests.WithLabelValues(action, status).Inc()
	r.dispatchLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (r *Recorder) SetActiveDrafts(kind string, n int) {
	if r == nil {
		return
	}
	r.activeDrafts.WithLabelValues(kind).Set(float64(n))
}
