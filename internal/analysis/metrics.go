package analysis

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/docextract/internal/extract"
)

// Metrics are the orchestrator's Prometheus collectors. It also counts
// extraction stages, so it can be handed to the extractor as its observer.
type Metrics struct {
	analyses        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	retries         prometheus.Counter
	stages          *prometheus.CounterVec
	stageItems      *prometheus.CounterVec
	archiveFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "analyses_total",
			Help:      "Analyses by document kind and outcome code.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docextract",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one analysis, vendor calls included.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"kind"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "vendor_retries_total",
			Help:      "Vendor calls repeated after a transient failure.",
		}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "extract_stage_runs_total",
			Help:      "Line-item extraction stage invocations.",
		}, []string{"stage"}),
		stageItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "extract_stage_items_total",
			Help:      "Items produced per extraction stage.",
		}, []string{"stage"}),
		archiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "archive_failures_total",
			Help:      "Originals that could not be archived.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.analyses, m.duration, m.retries, m.stages, m.stageItems, m.archiveFailures)
	}
	return m
}

func (m *Metrics) ObserveStage(stage extract.Stage, items int) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(string(stage)).Inc()
	m.stageItems.WithLabelValues(string(stage)).Add(float64(items))
}

func (m *Metrics) observeAnalysis(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) incRetry() {
	if m != nil {
		m.retries.Inc()
	}
}

func (m *Metrics) incArchiveFailure() {
	if m != nil {
		m.archiveFailures.Inc()
	}
}
