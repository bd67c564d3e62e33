package engine

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/terminalops/internal/validate"
)

// MetricsRecorder receives engine call outcomes.
type MetricsRecorder interface {
	// Observe records one engine call. operation is the method name in
	// snake case, e.g. "complete_step".
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)

	// ObserveValidation records one plan validation and its issue codes.
	ObserveValidation(ctx context.Context, result validate.Result)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}
func (noopMetrics) ObserveValidation(context.Context, validate.Result)   {}

// PrometheusRecorder exports engine metrics through a prometheus.Registerer.
type PrometheusRecorder struct {
	calls       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	validations *prometheus.CounterVec
	issues      *prometheus.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
// Panics if registration fails, as prometheus.MustRegister does.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terminalops",
			Subsystem: "engine",
			Name:      "calls_total",
			Help:      "Engine calls by operation and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "terminalops",
			Subsystem: "engine",
			Name:      "call_duration_seconds",
			Help:      "Engine call latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terminalops",
			Subsystem: "validator",
			Name:      "validations_total",
			Help:      "Plan validations by outcome.",
		}, []string{"valid"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terminalops",
			Subsystem: "validator",
			Name:      "issues_total",
			Help:      "Validation issues by code.",
		}, []string{"code"}),
	}
	reg.MustRegister(r.calls, r.duration, r.validations, r.issues)
	return r
}

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	result := "error"
	if success {
		result = "success"
	}
	r.calls.WithLabelValues(operation, result).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveValidation implements MetricsRecorder.
func (r *PrometheusRecorder) ObserveValidation(_ context.Context, result validate.Result) {
	valid := "false"
	if result.IsValid {
		valid = "true"
	}
	r.validations.WithLabelValues(valid).Inc()
	for _, issue := range result.Issues {
		r.issues.WithLabelValues(string(issue.Code)).Inc()
	}
}
