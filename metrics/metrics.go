package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library"

// Loan state machine metrics
var (
	// LoanTransitions counts successful loan operations by transition
	// (create, return, renew).
	LoanTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_transitions_total",
			Help:      "Loan state transitions by kind",
		},
		[]string{"transition"},
	)

	// OverdueMarked counts loans moved from ACTIVO to VENCIDO by sweeps.
	OverdueMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overdue_loans_marked_total",
			Help:      "Loans transitioned to overdue by the sweep",
		},
	)

	// SweepRuns counts sweeper fires by outcome (ok, skipped, error).
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overdue_sweeps_total",
			Help:      "Overdue sweep runs by result",
		},
		[]string{"result"},
	)
)

// Transaction metrics
var (
	TxTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Database transactions by outcome (commit, rollback)",
		},
		[]string{"outcome"},
	)

	TxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Database transaction duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)

// HTTP metrics
var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status_code"},
	)
)

// ObserveTx records one finished transaction.
func ObserveTx(start time.Time, committed bool) {
	outcome := "rollback"
	if committed {
		outcome = "commit"
	}
	TxTotal.WithLabelValues(outcome).Inc()
	TxDuration.Observe(time.Since(start).Seconds())
}

// Middleware records request count and latency per matched route.
// /metrics and /healthz are skipped.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" || route == "/healthz" {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		HTTPRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	}
}
