package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth flow labels.
const (
	FlowRegister    = "register"
	FlowVerifyEmail = "verify_email"
	FlowLogin       = "login"
	FlowVerifyLogin = "verify_login"
	FlowCreateAdmin = "create_admin"
)

// AuthFlowMetrics records outcomes of the authentication flows.
type AuthFlowMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewAuthFlowMetrics registers the auth flow metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewAuthFlowMetrics(reg prometheus.Registerer) *AuthFlowMetrics {
	if reg == nil {
		return &AuthFlowMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_flow_duration_seconds",
		Help:    "Duration of authentication flows in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_flow_success_total",
		Help: "Successful authentication flow executions.",
	}, []string{"flow"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_flow_failure_total",
		Help: "Failed authentication flow executions by error code.",
	}, []string{"flow", "code"})
	reg.MustRegister(duration, success, failure)
	return &AuthFlowMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named flow.
func (a *AuthFlowMetrics) ObserveDuration(flow string, duration time.Duration) {
	if a == nil || a.duration == nil {
		return
	}
	a.duration.WithLabelValues(normalizeLabel(flow)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named flow.
func (a *AuthFlowMetrics) IncSuccess(flow string) {
	if a == nil || a.success == nil {
		return
	}
	a.success.WithLabelValues(normalizeLabel(flow)).Inc()
}

// IncFailure increments the failure counter for the named flow and error code.
func (a *AuthFlowMetrics) IncFailure(flow, code string) {
	if a == nil || a.failure == nil {
		return
	}
	a.failure.WithLabelValues(normalizeLabel(flow), normalizeLabel(code)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
