// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. The Metrics()
// middleware measures request counts, latencies, and in-flight concurrency
// with bounded label cardinality: method, the registered Gin route (falling
// back to the raw path when no route matched), and the numeric status code.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// Status is omitted to keep histogram cardinality lower.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of currently processing requests.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// queueJoins counts queue join outcomes so abuse pressure and rejection
	// causes are visible without log scraping.
	queueJoins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_joins_total",
			Help: "Total queue join attempts by outcome.",
		},
		[]string{"outcome"}, // joined | duplicate | rejected | rate_limited | error
	)

	// contactSubmissions counts contact-form outcomes by triage bucket.
	contactSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total contact submissions by triage outcome.",
		},
		[]string{"outcome"}, // accepted | masked | rate_limited | error
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, queueJoins, contactSubmissions)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// The "path" label uses the registered route (c.FullPath()) to avoid
// unbounded label cardinality from raw URLs.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// CountQueueJoin records the outcome of one queue join attempt.
func CountQueueJoin(outcome string) { queueJoins.WithLabelValues(outcome).Inc() }

// CountContactSubmission records the outcome of one contact submission.
func CountContactSubmission(outcome string) { contactSubmissions.WithLabelValues(outcome).Inc() }
