// Package metrics exposes site activity to Prometheus
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taverna/internal/monitoring"
	"taverna/internal/reservations"
)

// MetricsCollector handles metrics collection and reporting. Every
// observation is mirrored into the Monitor when one is attached.
type MetricsCollector struct {
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
	monitor  *monitoring.Monitor
}

// NewMetricsCollector creates a collector with its own registry
func NewMetricsCollector(monitor *monitoring.Monitor) *MetricsCollector {
	registry := prometheus.NewRegistry()

	reservationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taverna_reservations_total",
			Help: "Reservation write attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)

	slotQueryTime := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taverna_slot_query_duration_seconds",
			Help:    "Time taken to compute available slots",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
	)

	bookingTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taverna_booking_transitions_total",
			Help: "Booking workflow navigation attempts",
		},
		[]string{"event", "result"},
	)

	completionTime := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taverna_chat_completion_duration_seconds",
			Help:    "Latency of chat completions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider", "outcome"},
	)

	itemCards := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taverna_chat_item_cards_total",
			Help: "Menu item cards attached to assistant replies",
		},
	)

	cartAdds := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taverna_cart_additions_total",
			Help: "Items added to carts",
		},
		[]string{"category"},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taverna_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	metrics := map[string]prometheus.Collector{
		"reservations":  reservationsTotal,
		"slot_query":    slotQueryTime,
		"transitions":   bookingTransitions,
		"completion":    completionTime,
		"item_cards":    itemCards,
		"cart_adds":     cartAdds,
		"http_requests": httpRequests,
	}

	for _, metric := range metrics {
		registry.MustRegister(metric)
	}
	registry.MustRegister(collectors.NewGoCollector())

	return &MetricsCollector{
		registry: registry,
		metrics:  metrics,
		monitor:  monitor,
	}
}

// Registry returns the collector's registry
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the registry in the Prometheus exposition format
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// ReservationOutcome classifies a reservation store error for labelling
func ReservationOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, reservations.ErrSlotUnavailable):
		return "conflict"
	case errors.Is(err, reservations.ErrMissingField),
		errors.Is(err, reservations.ErrInvalidField),
		errors.Is(err, reservations.ErrInvalidDate),
		errors.Is(err, reservations.ErrInvalidTime):
		return "invalid"
	case errors.Is(err, reservations.ErrNotFound):
		return "not_found"
	case errors.Is(err, reservations.ErrReservationCancelled):
		return "cancelled"
	default:
		return "error"
	}
}

// RecordReservation counts a create, update or cancel attempt
func (mc *MetricsCollector) RecordReservation(operation string, err error) {
	outcome := ReservationOutcome(err)
	if counter, ok := mc.metrics["reservations"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(operation, outcome).Inc()
	}
	mc.mirror("reservation_"+operation, outcome)
}

// ObserveSlotQuery records how long an availability query took
func (mc *MetricsCollector) ObserveSlotQuery(took time.Duration) {
	if histogram, ok := mc.metrics["slot_query"].(prometheus.Histogram); ok {
		histogram.Observe(took.Seconds())
	}
	if mc.monitor != nil {
		mc.monitor.Increment("availability_queries")
	}
}

// RecordTransition counts a booking navigation attempt
func (mc *MetricsCollector) RecordTransition(event string, err error) {
	result := "ok"
	if err != nil {
		result = "blocked"
	}
	if counter, ok := mc.metrics["transitions"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(event, result).Inc()
	}
	mc.mirror("booking_"+event, result)
}

// ObserveCompletion records one chat completion. Its signature matches
// llm.PromptCompleter.Observe.
func (mc *MetricsCollector) ObserveCompletion(provider string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if histogram, ok := mc.metrics["completion"].(*prometheus.HistogramVec); ok {
		histogram.WithLabelValues(provider, outcome).Observe(took.Seconds())
	}
	mc.mirror("chat_completion", outcome)
}

// RecordItemCards counts cards attached to one reply
func (mc *MetricsCollector) RecordItemCards(n int) {
	if counter, ok := mc.metrics["item_cards"].(prometheus.Counter); ok {
		counter.Add(float64(n))
	}
	if mc.monitor != nil {
		mc.monitor.Increment("chat_replies")
	}
}

// RecordCartAdd counts an item added to a cart
func (mc *MetricsCollector) RecordCartAdd(category string) {
	if counter, ok := mc.metrics["cart_adds"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(category).Inc()
	}
	if mc.monitor != nil {
		mc.monitor.Increment("cart_additions")
	}
}

// Middleware counts every request by its route template
func (mc *MetricsCollector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if counter, ok := mc.metrics["http_requests"].(*prometheus.CounterVec); ok {
			counter.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		}
	}
}

func (mc *MetricsCollector) mirror(component, outcome string) {
	if mc.monitor != nil {
		mc.monitor.RecordOutcome(component, outcome)
	}
}
