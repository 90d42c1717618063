package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ltrRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ltr_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	ltrRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ltr_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	ltrAssetsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ltr_assets_created_total",
		Help: "Total assets registered (genesis creations).",
	})

	ltrVersionsAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ltr_versions_appended_total",
		Help: "Total versions appended across all assets.",
	})

	ltrEvidenceLoggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ltr_evidence_logged_total",
		Help: "Total evidence records logged.",
	})

	ltrChainVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ltr_chain_verifications_total",
		Help: "Chain integrity checks by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		ltrRequestsTotal.WithLabelValues(method, path, status).Inc()
		ltrRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAssetCreated records a successful genesis creation.
func RecordAssetCreated() {
	ltrAssetsCreatedTotal.Inc()
}

// RecordVersionAppended records a successful version append.
func RecordVersionAppended() {
	ltrVersionsAppendedTotal.Inc()
}

// RecordEvidenceLogged records a successful evidence write.
func RecordEvidenceLogged() {
	ltrEvidenceLoggedTotal.Inc()
}

// RecordChainVerification records one integrity check outcome.
func RecordChainVerification(valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	ltrChainVerificationsTotal.WithLabelValues(result).Inc()
}
