// Package metrics exposes match pool operation outcomes to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courtside"

// Recorder counts service operations by outcome and tracks proposal balance
type Recorder struct {
	operations *prometheus.CounterVec
	proposals  *prometheus.CounterVec
	difference prometheus.Histogram
	requests   *prometheus.HistogramVec
	gatherer   prometheus.Gatherer
}

// New creates a Recorder registered on a fresh registry that also carries
// the Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry creates a Recorder whose collectors are registered on reg
// and served from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matchpool",
			Name:      "operations_total",
			Help:      "Match pool operations by outcome category.",
		}, []string{"operation", "outcome"}),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matchpool",
			Name:      "proposals_total",
			Help:      "Generated proposals, split by whether the group already played.",
		}, []string{"repeat"}),
		difference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matchpool",
			Name:      "proposal_power_difference",
			Help:      "Absolute team power difference of generated proposals.",
			Buckets:   []float64{0, 5, 10, 20, 40, 80},
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
		gatherer: g,
	}
	reg.MustRegister(r.operations, r.proposals, r.difference, r.requests)
	return r
}

// OperationCompleted counts one finished operation
func (r *Recorder) OperationCompleted(op, outcome string) {
	r.operations.WithLabelValues(op, outcome).Inc()
}

// ProposalGenerated records a proposal's balance
func (r *Recorder) ProposalGenerated(difference int, repeat bool) {
	r.proposals.WithLabelValues(strconv.FormatBool(repeat)).Inc()
	r.difference.Observe(float64(difference))
}

// Instrument observes request latency for every request passing through next
func (r *Recorder) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(r.requests, next)
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
