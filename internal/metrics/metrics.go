// Package metrics exposes Prometheus metrics for the backup daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	cyclesTotal     prometheus.Counter
	cycleDuration   prometheus.Histogram
	archivesTotal   *prometheus.CounterVec
	pruneDeletions  prometheus.Counter
	pruneFailures   prometheus.Counter
	notifyFailures  prometheus.Counter
	lastCycleEvents prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		cyclesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "volguard_cycles_total",
				Help: "Total number of backup cycles completed",
			},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "volguard_cycle_duration_seconds",
				Help:    "Backup cycle duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		archivesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volguard_archives_total",
				Help: "Total number of volume archive attempts",
			},
			[]string{"status"},
		),
		pruneDeletions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "volguard_prune_deletions_total",
				Help: "Total number of archives deleted by retention pruning",
			},
		),
		pruneFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "volguard_prune_failures_total",
				Help: "Total number of failed archive deletions",
			},
		),
		notifyFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "volguard_notify_failures_total",
				Help: "Total number of failed report deliveries",
			},
		),
		lastCycleEvents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "volguard_last_cycle_events",
				Help: "Number of report events produced by the last cycle",
			},
		),
	}

	reg.MustRegister(r.cyclesTotal)
	reg.MustRegister(r.cycleDuration)
	reg.MustRegister(r.archivesTotal)
	reg.MustRegister(r.pruneDeletions)
	reg.MustRegister(r.pruneFailures)
	reg.MustRegister(r.notifyFailures)
	reg.MustRegister(r.lastCycleEvents)

	return r
}

// RecordCycle records a completed backup cycle.
func (r *Registry) RecordCycle(durationSeconds float64, events int) {
	r.cyclesTotal.Inc()
	r.cycleDuration.Observe(durationSeconds)
	r.lastCycleEvents.Set(float64(events))
}

// RecordArchive records one volume archive attempt with its outcome status
// ("success", "empty", "failed").
func (r *Registry) RecordArchive(status string) {
	r.archivesTotal.WithLabelValues(status).Inc()
}

// RecordPruneDeletion records one successful archive deletion.
func (r *Registry) RecordPruneDeletion() {
	r.pruneDeletions.Inc()
}

// RecordPruneFailure records one failed archive deletion.
func (r *Registry) RecordPruneFailure() {
	r.pruneFailures.Inc()
}

// RecordNotifyFailure records one failed report delivery.
func (r *Registry) RecordNotifyFailure() {
	r.notifyFailures.Inc()
}

// Handler returns an HTTP handler serving the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}
