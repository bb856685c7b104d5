// Package metrics records classification cascade counters and latencies.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shahar-caura/gitnl/internal/intent"
)

// LLM call modes.
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
	ModeMulti  = "multi"
)

// Recorder holds the cascade metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	classifications *prometheus.CounterVec
	llmCalls        *prometheus.CounterVec
	routeDuration   *prometheus.HistogramVec
}

// New registers the cascade metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		classifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gitnl",
			Name:      "classifications_total",
			Help:      "Classification results returned, by source and intent",
		}, []string{"source", "intent"}),
		llmCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gitnl",
			Name:      "llm_calls_total",
			Help:      "LLM fallback attempts by mode (single, batch) and outcome (ok, error)",
		}, []string{"mode", "outcome"}),
		routeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gitnl",
			Name:      "route_duration_seconds",
			Help:      "Time spent classifying one request",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.1, 0.5, 1, 3, 6},
		}, []string{"mode"}),
	}
}

// ObserveResult counts one returned classification.
func (r *Recorder) ObserveResult(res intent.Result) {
	if r == nil {
		return
	}
	r.classifications.WithLabelValues(string(res.Source), string(res.Intent)).Inc()
}

// ObserveLLMCall counts one fallback attempt.
func (r *Recorder) ObserveLLMCall(mode string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.llmCalls.WithLabelValues(mode, outcome).Inc()
}

// ObserveRoute records how long one request took.
func (r *Recorder) ObserveRoute(mode string, d time.Duration) {
	if r == nil {
		return
	}
	r.routeDuration.WithLabelValues(mode).Observe(d.Seconds())
}
