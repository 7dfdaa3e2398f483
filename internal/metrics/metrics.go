// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroll",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "classroll",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	TimetableConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroll",
		Name:      "timetable_conflicts_total",
		Help:      "Rejected timetable inserts by conflict scope.",
	}, []string{"scope"})

	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroll",
		Name:      "attendance_marks_total",
		Help:      "Attendance marks recorded by status.",
	}, []string{"status"})

	WatchlistSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classroll",
		Name:      "attendance_watchlist_size",
		Help:      "Students currently below the attendance threshold, as last seen by the worker.",
	})
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
