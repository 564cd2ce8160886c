package resilience

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSink receives attempt and outcome events from the executor.
// Tuning loops read these from the outside; the executor itself keeps no
// shared tuning state.
type MetricsSink interface {
	RecordAttempt(opKey string, class ErrorClass)
	RecordOutcome(opKey string, success bool, attempts int, elapsed time.Duration)
	RecordBreakerTransition(opKey string, from, to string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordAttempt(string, ErrorClass)               {}
func (NopSink) RecordOutcome(string, bool, int, time.Duration) {}
func (NopSink) RecordBreakerTransition(string, string, string) {}

// PrometheusSink exposes executor events as Prometheus metrics.
type PrometheusSink struct {
	attempts    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

// NewPrometheusSink registers the executor metrics on reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_executor_attempts_total",
			Help: "Operation attempts by error class (class=\"\" for success)",
		}, []string{"op", "class"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_executor_outcomes_total",
			Help: "Final operation outcomes",
		}, []string{"op", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insighthub_executor_duration_seconds",
			Help:    "Wall time per operation including retries",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"op"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		}, []string{"op", "from", "to"}),
	}
}

func (s *PrometheusSink) RecordAttempt(opKey string, class ErrorClass) {
	s.attempts.WithLabelValues(opKey, string(class)).Inc()
}

func (s *PrometheusSink) RecordOutcome(opKey string, success bool, attempts int, elapsed time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	s.outcomes.WithLabelValues(opKey, result).Inc()
	s.duration.WithLabelValues(opKey).Observe(elapsed.Seconds())
}

func (s *PrometheusSink) RecordBreakerTransition(opKey, from, to string) {
	s.transitions.WithLabelValues(opKey, from, to).Inc()
}
