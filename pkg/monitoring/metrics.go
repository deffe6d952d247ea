package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Database metrics
	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"query_type", "service"},
	)

	// Realtime metrics
	realtimeConnectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Number of live realtime connections",
		},
		[]string{"service"},
	)

	realtimeBroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_broadcasts_total",
			Help: "Total number of room broadcasts",
		},
		[]string{"event", "service"},
	)

	reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "participant_reconciliations_total",
			Help: "Total number of participant list reconciliations",
		},
		[]string{"status", "service"},
	)

	// Push notification metrics
	pushNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_total",
			Help: "Total number of push notification deliveries",
		},
		[]string{"status", "service"},
	)

	staleTokensCleared = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stale_device_tokens_cleared_total",
			Help: "Total number of invalid device tokens cleared",
		},
		[]string{"service"},
	)

	// System metrics
	systemErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "service", "component"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

// registerOnce guards registration so multiple collectors can share the
// process-wide metric vectors.
var registerOnce sync.Once

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	registerOnce.Do(registerMetrics)

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

func registerMetrics() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		dbQueryDuration,
		realtimeConnectionsActive,
		realtimeBroadcastsTotal,
		reconciliationsTotal,
		pushNotificationsTotal,
		staleTokensCleared,
		systemErrors,
	)
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordDBQuery records database query metrics
func (m *MetricsCollector) RecordDBQuery(queryType string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(queryType, m.serviceName).Observe(duration.Seconds())
}

// SetActiveConnections records the live realtime connection count
func (m *MetricsCollector) SetActiveConnections(count int) {
	realtimeConnectionsActive.WithLabelValues(m.serviceName).Set(float64(count))
}

// RecordBroadcast records a room broadcast
func (m *MetricsCollector) RecordBroadcast(event string) {
	realtimeBroadcastsTotal.WithLabelValues(event, m.serviceName).Inc()
}

// RecordReconciliation records a participant reconciliation attempt
func (m *MetricsCollector) RecordReconciliation(status string) {
	reconciliationsTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordPushNotification records a push delivery attempt
func (m *MetricsCollector) RecordPushNotification(status string) {
	pushNotificationsTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordStaleTokenCleared records an invalid device token cleanup
func (m *MetricsCollector) RecordStaleTokenCleared() {
	staleTokensCleared.WithLabelValues(m.serviceName).Inc()
}

// RecordSystemError records system error metrics
func (m *MetricsCollector) RecordSystemError(errorType, component string) {
	systemErrors.WithLabelValues(errorType, m.serviceName, component).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware creates middleware for HTTP request metrics
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapper.statusCode)

		m.RecordHTTPRequest(r.Method, r.URL.Path, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
