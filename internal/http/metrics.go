package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements core.MetricsRecorder on prometheus collectors.
type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec
	AttemptsTotal      *prometheus.CounterVec
	FallbacksTotal     *prometheus.CounterVec
	RateLimitedTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	ProxyPoolSize      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cantio_resolutions_total",
				Help: "Total number of stream resolutions",
			},
			[]string{"platform", "outcome"},
		),
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cantio_extraction_attempts_total",
				Help: "Total number of extraction attempts by outcome",
			},
			[]string{"outcome"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cantio_fallback_attempts_total",
				Help: "Total number of fallback platform attempts",
			},
			[]string{"platform", "status"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cantio_rate_limited_total",
				Help: "Total number of requests rejected by a limiter",
			},
			[]string{"scope"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cantio_resolution_duration_seconds",
				Help:    "Time spent resolving a stream",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
			},
			[]string{"platform"},
		),
		ProxyPoolSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cantio_proxy_pool_size",
				Help: "Current number of pooled egress proxies",
			},
		),
	}

	reg.MustRegister(
		metrics.ResolutionsTotal,
		metrics.AttemptsTotal,
		metrics.FallbacksTotal,
		metrics.RateLimitedTotal,
		metrics.ResolutionDuration,
		metrics.ProxyPoolSize,
	)

	return metrics
}

func (m *Metrics) RecordResolution(platform, outcome string, duration time.Duration) {
	m.ResolutionsTotal.WithLabelValues(platform, outcome).Inc()
	m.ResolutionDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

func (m *Metrics) RecordAttempt(outcome string) {
	m.AttemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordFallback(platform, status string) {
	m.FallbacksTotal.WithLabelValues(platform, status).Inc()
}

func (m *Metrics) RecordRateLimited(scope string) {
	m.RateLimitedTotal.WithLabelValues(scope).Inc()
}

// SetProxyPoolSize matches the proxy pool size observer signature.
func (m *Metrics) SetProxyPoolSize(size int) {
	m.ProxyPoolSize.Set(float64(size))
}
