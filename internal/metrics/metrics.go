package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics methods are safe on a nil receiver so callers never need to check.
type Metrics struct {
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	OrdersPlaced    prometheus.Counter
	OrdersCancelled prometheus.Counter
	StockRejections prometheus.Counter
	OutboxPublished prometheus.Counter
}

func New(reg prometheus.Registerer, service string) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "store",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "store",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store",
			Subsystem: service,
			Name:      "orders_placed_total",
			Help:      "Orders created from carts.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store",
			Subsystem: service,
			Name:      "orders_cancelled_total",
			Help:      "Orders cancelled by their owners.",
		}),
		StockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store",
			Subsystem: service,
			Name:      "orders_insufficient_stock_total",
			Help:      "Order placements rejected for insufficient stock.",
		}),
		OutboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "store",
			Subsystem: service,
			Name:      "outbox_published_total",
			Help:      "Outbox events published to the broker.",
		}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.OrdersPlaced, m.OrdersCancelled, m.StockRejections, m.OutboxPublished)
	return m
}

func (m *Metrics) ObserveRequest(route, method, status string, ms float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, status).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(ms)
}

func (m *Metrics) OrderPlaced() {
	if m != nil {
		m.OrdersPlaced.Inc()
	}
}

func (m *Metrics) OrderCancelled() {
	if m != nil {
		m.OrdersCancelled.Inc()
	}
}

func (m *Metrics) StockRejected() {
	if m != nil {
		m.StockRejections.Inc()
	}
}

func (m *Metrics) Published(n int) {
	if m != nil && n > 0 {
		m.OutboxPublished.Add(float64(n))
	}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
