package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct {
}

var (
	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filegate_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "path", "status"})

	// Active connections gauge
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filegate_active_connections",
		Help: "Number of active connections",
	})

	// Total requests counter
	totalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegate_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// File upload size histogram
	fileUploadSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "filegate_file_upload_size_bytes",
		Help:    "Size of files registered through the upload endpoint in bytes",
		Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 100 * 1024 * 1024},
	})

	// Total files registered
	filesRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_files_registered_total",
		Help: "Total number of files added to the registry",
	})

	// Total download links issued
	linksIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_download_links_issued_total",
		Help: "Total number of download links issued",
	})

	// Link redemption attempts by outcome
	linkRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegate_link_redemptions_total",
		Help: "Total number of download link redemption attempts",
	}, []string{"outcome"})

	// Emails relayed by outcome
	emailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegate_emails_sent_total",
		Help: "Total number of emails relayed through the active SMTP config",
	}, []string{"status"})

	// Abuse reports submitted
	reportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_reports_submitted_total",
		Help: "Total number of abuse reports submitted",
	})

	// Rate limit rejections per scope
	rateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegate_rate_limit_rejections_total",
		Help: "Total number of requests rejected by a rate limiter",
	}, []string{"scope"})

	// Failed authentication attempts counter
	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filegate_auth_failures_total",
		Help: "Total number of failed authentication attempts",
	}, []string{"reason"})
)

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handler returns the Prometheus metrics handler for Fiber
func (h *MetricsHandler) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		mfs, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			return c.Status(500).SendString("Failed to gather metrics")
		}

		var sb strings.Builder
		for _, mf := range mfs {
			if _, err := expfmt.MetricFamilyToText(&sb, mf); err != nil {
				return c.Status(500).SendString("Failed to format metrics")
			}
		}

		c.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		return c.SendString(sb.String())
	}
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		activeConnections.Inc()
		defer activeConnections.Dec()
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		path := c.Route().Path
		if path == "" {
			path = "__unmatched__"
		}

		// Bucket statuses to keep label cardinality down.
		statusStr := "2xx"
		if status >= 300 && status < 400 {
			statusStr = "3xx"
		} else if status >= 400 && status < 500 {
			statusStr = "4xx"
		} else if status >= 500 {
			statusStr = "5xx"
		}

		totalRequests.WithLabelValues(c.Method(), path, statusStr).Inc()
		httpDuration.WithLabelValues(c.Method(), path, statusStr).Observe(time.Since(start).Seconds())

		return err
	}
}

// RecordFileRegistered records metrics for a file added to the registry.
func RecordFileRegistered(size float64) {
	fileUploadSize.Observe(size)
	filesRegistered.Inc()
}

// RecordLinkIssued records a newly issued download link.
func RecordLinkIssued() {
	linksIssued.Inc()
}

// RecordRedemption records a redemption attempt with its outcome
// (served, not_found, gone).
func RecordRedemption(outcome string) {
	linkRedemptions.WithLabelValues(outcome).Inc()
}

// RecordEmailBatch records the per-status counts of a bulk send.
func RecordEmailBatch(success, failed int) {
	emailsSent.WithLabelValues("sent").Add(float64(success))
	emailsSent.WithLabelValues("failed").Add(float64(failed))
}

// RecordReportSubmitted records an abuse report submission.
func RecordReportSubmitted() {
	reportsSubmitted.Inc()
}

// RecordRateLimitHit records a request rejected by the named limiter.
func RecordRateLimitHit(scope string) {
	rateLimitHits.WithLabelValues(scope).Inc()
}

// RecordAuthFailure increments the failed auth counter with a reason label.
func RecordAuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}
