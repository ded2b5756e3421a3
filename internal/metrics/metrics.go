// Package metrics records audit metrics with Prometheus.
//
// A CLI run is short-lived, so metrics are not served over HTTP. Instead a
// Recorder owns its own registry and can write it to a node_exporter
// textfile at the end of the run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/seoscan/internal/model"
)

// Recorder holds the SEOScan collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	pagesFetched     *prometheus.CounterVec
	fetchDuration    prometheus.Histogram
	pageScore        prometheus.Histogram
	issues           *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
	documentsIndexed prometheus.Counter
	bulkFailures     prometheus.Counter
	auditDuration    *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seoscan_pages_total",
			Help: "Total number of pages analyzed, by outcome",
		}, []string{"outcome"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "seoscan_fetch_duration_seconds",
			Help:    "Time taken to fetch a page",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		pageScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "seoscan_page_score",
			Help:    "Distribution of page scores",
			Buckets: []float64{20, 40, 60, 80, 100},
		}),
		issues: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seoscan_issues_total",
			Help: "Total number of checklist issues found, by code and severity",
		}, []string{"code", "severity"}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seoscan_llm_requests_total",
			Help: "Total number of recommendation requests, by outcome",
		}, []string{"outcome"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seoscan_circuit_breaker_state",
			Help: "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
		}, []string{"service"}),
		documentsIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "seoscan_documents_indexed_total",
			Help: "Total number of page documents sent to Elasticsearch",
		}),
		bulkFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "seoscan_bulk_failures_total",
			Help: "Total number of documents Elasticsearch rejected",
		}),
		auditDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seoscan_audit_duration_seconds",
			Help:    "Time taken to audit one site",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"source"}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObservePage records one analyzed page.
func (r *Recorder) ObservePage(p model.PageResult) {
	if r == nil {
		return
	}
	outcome := "ok"
	if p.Error != nil {
		outcome = string(p.Error.Kind)
	}
	r.pagesFetched.WithLabelValues(outcome).Inc()
	if p.FetchTimeMS > 0 {
		r.fetchDuration.Observe(float64(p.FetchTimeMS) / 1000)
	}
	if !p.Failed() {
		r.pageScore.Observe(float64(p.Score))
	}
	for _, issue := range p.Issues {
		r.issues.WithLabelValues(string(issue.Code), issue.Severity.String()).Inc()
	}
}

// ObserveLLM records the outcome of a recommendation request:
// "llm" for a model answer, "fallback" when rules were used instead.
func (r *Recorder) ObserveLLM(outcome string) {
	if r == nil {
		return
	}
	r.llmRequests.WithLabelValues(outcome).Inc()
}

// SetBreakerState records a circuit breaker state (0, 1 or 2).
func (r *Recorder) SetBreakerState(service string, state int) {
	if r == nil {
		return
	}
	r.breakerState.WithLabelValues(service).Set(float64(state))
}

// AddIndexed records documents sent to the search index and rejected ones.
func (r *Recorder) AddIndexed(indexed, failed int) {
	if r == nil {
		return
	}
	r.documentsIndexed.Add(float64(indexed))
	r.bulkFailures.Add(float64(failed))
}

// ObserveAudit records the duration of one site audit.
func (r *Recorder) ObserveAudit(source model.Source, d time.Duration) {
	if r == nil {
		return
	}
	r.auditDuration.WithLabelValues(string(source)).Observe(d.Seconds())
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
