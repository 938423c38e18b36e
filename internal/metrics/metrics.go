// Package metrics собирает метрики операций и HTTP-запросов в prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ optimistic.Observer = (*Collector)(nil)

// Collector держит свой registry, поэтому в тестах можно создавать сколько угодно экземпляров.
type Collector struct {
	registry *prometheus.Registry

	// Операции контроллеров
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	InFlight   *prometheus.GaugeVec

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector создаёт коллектор с заданным namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of settled optimistic operations",
		},
		[]string{"op", "outcome"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time from intent to reconciliation",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	inflight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operations_in_flight",
			Help:      "Operations awaiting their remote outcome",
		},
		[]string{"op"},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(operations, duration, inflight, httpRequests, httpDuration)

	return &Collector{
		registry:     registry,
		Operations:   operations,
		Duration:     duration,
		InFlight:     inflight,
		HTTPRequests: httpRequests,
		HTTPDuration: httpDuration,
	}
}

// Registry отдаёт registry коллектора.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// OperationStarted реализует optimistic.Observer.
func (c *Collector) OperationStarted(op string) {
	c.InFlight.WithLabelValues(op).Inc()
}

// OperationSettled реализует optimistic.Observer.
func (c *Collector) OperationSettled(op string, outcome optimistic.Outcome, elapsed time.Duration) {
	c.InFlight.WithLabelValues(op).Dec()
	c.Operations.WithLabelValues(op, string(outcome)).Inc()
	c.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler - эндпоинт /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware считает запросы по шаблону маршрута chi.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
