// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the lead counter bookkeeping.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	counterAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_agent_counter_adjustments_total",
			Help: "Agent counter deltas applied, by counter and direction",
		},
		[]string{"counter", "direction"},
	)

	counterInconsistencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_agent_counter_inconsistencies_total",
			Help: "Lead mutations rejected because agent counters had drifted",
		},
		[]string{"operation"},
	)

	counterRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_agent_counter_repairs_total",
			Help: "Agent counter recomputations",
		},
	)

	remindersDue = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_followup_reminders_total",
			Help: "Follow-up reminder tasks handled, by outcome",
		},
		[]string{"outcome"},
	)
)

// Middleware records request totals and durations per gin route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordCounterAdjustment counts one applied delta pair.
func RecordCounterAdjustment(totalDelta, convertedDelta int) {
	record := func(counter string, delta int) {
		switch {
		case delta > 0:
			counterAdjustments.WithLabelValues(counter, "increment").Add(float64(delta))
		case delta < 0:
			counterAdjustments.WithLabelValues(counter, "decrement").Add(float64(-delta))
		}
	}
	record("total_leads", totalDelta)
	record("converted_leads", convertedDelta)
}

// RecordCounterInconsistency counts a rejected counter update.
func RecordCounterInconsistency(operation string) {
	counterInconsistencies.WithLabelValues(operation).Inc()
}

// RecordCounterRepair counts a manual recomputation.
func RecordCounterRepair() {
	counterRepairs.Inc()
}

// RecordReminder counts a handled follow-up reminder.
func RecordReminder(outcome string) {
	remindersDue.WithLabelValues(outcome).Inc()
}
