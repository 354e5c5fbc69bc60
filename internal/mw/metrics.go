package mw

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msu_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "msu_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	statusSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msu_status_submissions_total",
			Help: "Status submissions by result.",
		},
		[]string{"result"},
	)

	intervalsDerived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "msu_downtime_intervals_derived_total",
			Help: "Downtime intervals derived for reports.",
		},
	)
)

// Submission results.
const (
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
	SubmissionFailed   = "failed"
)

// Metrics records request count and latency labelled with the matched route,
// so path parameters and unknown URLs do not grow the label set.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordSubmission counts a status submission outcome.
func RecordSubmission(result string) {
	statusSubmissions.WithLabelValues(result).Inc()
}

// RecordIntervals counts derived downtime intervals.
func RecordIntervals(n int) {
	if n > 0 {
		intervalsDerived.Add(float64(n))
	}
}
