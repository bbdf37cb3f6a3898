package host

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes
const (
	outcomeOK       = "ok"
	outcomeEmpty    = "empty"
	outcomeError    = "error"
	outcomeCacheHit = "cache_hit"
	outcomeFallback = "fallback"
)

// Metrics instruments a Runtime.
type Metrics struct {
	calls       *prometheus.CounterVec
	duration    prometheus.Histogram
	resultBytes prometheus.Histogram
	guestPages  prometheus.Histogram
	instances   prometheus.Gauge
}

// NewMetrics registers runtime metrics with r. A nil r registers nothing.
func NewMetrics(r prometheus.Registerer) *Metrics {
	return &Metrics{
		calls: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "wasm_thumbnail_calls_total",
			Help: "Total number of thumbnail conversions by outcome.",
		}, []string{"outcome"}),
		duration: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Name:    "wasm_thumbnail_call_duration_seconds",
			Help:    "Time taken to instantiate a guest and convert one image.",
			Buckets: prometheus.DefBuckets,
		}),
		resultBytes: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Name:    "wasm_thumbnail_result_bytes",
			Help:    "Size of encoded thumbnails.",
			Buckets: prometheus.ExponentialBuckets(512, 2, 12),
		}),
		guestPages: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Name:    "wasm_thumbnail_guest_memory_pages",
			Help:    "Guest linear memory size in 64KiB pages after a conversion.",
			Buckets: prometheus.ExponentialBuckets(16, 2, 10),
		}),
		instances: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Name: "wasm_thumbnail_live_instances",
			Help: "Guest instances currently alive.",
		}),
	}
}

func (m *Metrics) observeCall(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(outcome).Inc()
	if outcome != outcomeCacheHit {
		m.duration.Observe(seconds)
	}
}

func (m *Metrics) observeResult(n int) {
	if m == nil {
		return
	}
	m.resultBytes.Observe(float64(n))
}

func (m *Metrics) observePages(pages uint32) {
	if m == nil {
		return
	}
	m.guestPages.Observe(float64(pages))
}

func (m *Metrics) instanceDelta(d float64) {
	if m == nil {
		return
	}
	m.instances.Add(d)
}
