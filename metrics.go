package tenantjwt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives the handler's measurements.
type Metrics interface {
	AuthenticationCompleted(tenantID, outcome string, duration time.Duration)
	MetadataRefreshed(authority string)
	MetadataUnavailable(authority string)
}

// Outcome labels beyond Outcome.String.
const outcomeError = "error"

// NoopMetrics is a default metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) AuthenticationCompleted(string, string, time.Duration) {}
func (NoopMetrics) MetadataRefreshed(string)                              {}
func (NoopMetrics) MetadataUnavailable(string)                            {}

// PrometheusMetrics implements Metrics using Prometheus.
type PrometheusMetrics struct {
	authentications *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	unavailable     *prometheus.CounterVec
}

// NewPrometheusMetrics registers the collectors with reg, or with the
// default registerer when reg is nil.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantjwt",
			Name:      "authentications_total",
			Help:      "Authentication attempts by tenant and outcome.",
		}, []string{"tenant", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tenantjwt",
			Name:      "authentication_duration_seconds",
			Help:      "Time spent authenticating a request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantjwt",
			Name:      "metadata_refreshes_total",
			Help:      "Forced metadata refreshes after a signing key was not found.",
		}, []string{"authority"}),
		unavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantjwt",
			Name:      "metadata_unavailable_total",
			Help:      "Requests validated without remote metadata because the fetch failed.",
		}, []string{"authority"}),
	}

	for _, c := range []prometheus.Collector{m.authentications, m.duration, m.refreshes, m.unavailable} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) AuthenticationCompleted(tenantID, outcome string, duration time.Duration) {
	m.authentications.WithLabelValues(tenantID, outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) MetadataRefreshed(authority string) {
	m.refreshes.WithLabelValues(authority).Inc()
}

func (m *PrometheusMetrics) MetadataUnavailable(authority string) {
	m.unavailable.WithLabelValues(authority).Inc()
}
