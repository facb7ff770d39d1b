package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "storefront"

// Metrics groups the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPLatencyMS     *prometheus.HistogramVec
	CheckoutOutcomes  *prometheus.CounterVec
	PaymentLatencyMS  *prometheus.HistogramVec
	NotificationsSent *prometheus.CounterVec
}

// NewMetrics registers the storefront collectors on a private registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		HTTPLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route", "method"}),
		CheckoutOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "checkout",
			Name:      "orders_total",
			Help:      "Checkout attempts by payment method and outcome.",
		}, []string{"payment_method", "outcome"}),
		PaymentLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "payments",
			Name:      "charge_duration_ms",
			Help:      "Payment gateway charge latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 3000, 5000, 10000},
		}, []string{"gateway", "outcome"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Outbound emails by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPLatencyMS,
		m.CheckoutOutcomes,
		m.PaymentLatencyMS,
		m.NotificationsSent,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCheckout counts a checkout attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveCheckout(method, outcome string) {
	if m == nil {
		return
	}
	m.CheckoutOutcomes.WithLabelValues(method, outcome).Inc()
}

// ObservePayment records a gateway charge duration. A nil receiver is a no-op.
func (m *Metrics) ObservePayment(gateway, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PaymentLatencyMS.WithLabelValues(gateway, outcome).Observe(float64(d.Milliseconds()))
}

// ObserveNotification counts an email send outcome. A nil receiver is a no-op.
func (m *Metrics) ObserveNotification(kind, outcome string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) observeHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPLatencyMS.WithLabelValues(route, method).Observe(float64(d.Milliseconds()))
}
