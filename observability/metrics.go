package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records payment operation activity for the RPC surface.
type PaymentMetrics struct {
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	items      *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

var (
	paymentMetricsOnce sync.Once
	paymentRegistry    *PaymentMetrics
)

// Payments returns the lazily-initialised payment metrics registry.
func Payments() *PaymentMetrics {
	paymentMetricsOnce.Do(func() {
		paymentRegistry = &PaymentMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corepay",
				Subsystem: "payments",
				Name:      "operations_total",
				Help:      "Total payment operations segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corepay",
				Subsystem: "payments",
				Name:      "failures_total",
				Help:      "Total failed payment operations segmented by kind and reason.",
			}, []string{"kind", "reason"}),
			items: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corepay",
				Subsystem: "payments",
				Name:      "batch_items_total",
				Help:      "Total batch items processed segmented by kind and result.",
			}, []string{"kind", "result"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "corepay",
				Subsystem: "payments",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for payment operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			paymentRegistry.operations,
			paymentRegistry.failures,
			paymentRegistry.items,
			paymentRegistry.latency,
		)
	})
	return paymentRegistry
}

// ObserveOperation records one finished operation with its latency.
func (m *PaymentMetrics) ObserveOperation(kind string, err error, started time.Time) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(kind, outcome).Inc()
	m.latency.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// ObserveFailure records a failed operation with a short reason label.
func (m *PaymentMetrics) ObserveFailure(kind, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind, reason).Inc()
}

// ObserveBatch records per-item results for a finished batch call.
func (m *PaymentMetrics) ObserveBatch(kind string, successes, total int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(kind, "success").Add(float64(successes))
	m.items.WithLabelValues(kind, "failure").Add(float64(total - successes))
}
