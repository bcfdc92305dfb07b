// Package metrics records Prometheus metrics for the copilot.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the copilot's Prometheus collectors. A nil *Recorder is a no-op.
type Recorder struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	dispatches   *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	llmCalls     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "copilot",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "copilot",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
		dispatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "copilot",
				Name:      "dispatch_total",
				Help:      "Classified queries dispatched, by pipeline, task and outcome",
			},
			[]string{"pipeline", "task", "success"},
		),
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "copilot",
				Subsystem: "market",
				Name:      "fetch_total",
				Help:      "Market data lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		llmCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "copilot",
				Subsystem: "llm",
				Name:      "calls_total",
				Help:      "Language model calls by operation and outcome",
			},
			[]string{"operation", "status"},
		),
	}
}

// Fetch result labels
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// RecordHTTP records one served request.
func (r *Recorder) RecordHTTP(route, method string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordDispatch records a dispatched query.
func (r *Recorder) RecordDispatch(pipeline, task string, success bool) {
	if r == nil {
		return
	}
	r.dispatches.WithLabelValues(pipeline, task, strconv.FormatBool(success)).Inc()
}

// RecordFetch records a market data lookup. kind is "series" or "price".
func (r *Recorder) RecordFetch(kind, result string) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(kind, result).Inc()
}

// RecordLLM records a language model call.
func (r *Recorder) RecordLLM(operation string, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.llmCalls.WithLabelValues(operation, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
