package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BookingOperations counts engine operations by their final outcome
	// (ok or the error kind returned to the caller).
	BookingOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Booking engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	TxAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_tx_attempts_total",
			Help: "Transaction attempts by result (committed, conflict, timeout, aborted)",
		},
		[]string{"operation", "result"},
	)

	TxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_tx_duration_seconds",
			Help:    "Wall time of booking operations including retries",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	IdempotencyPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_idempotency_purged_total",
			Help: "Expired idempotency records deleted by the purge job",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDurationHistogram,
			BookingOperations,
			TxAttempts,
			TxDuration,
			IdempotencyPurged,
		)
	})
}

func ObserveOperation(operation, outcome string, elapsed time.Duration) {
	BookingOperations.WithLabelValues(operation, outcome).Inc()
	TxDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func RecordAttempt(operation, result string) {
	TxAttempts.WithLabelValues(operation, result).Inc()
}

func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			RequestCounter.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			RequestDurationHistogram.WithLabelValues(c.Request().Method, c.Path()).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
