package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	stageMoves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_stage_moves_total",
			Help: "Board moves by target stage",
		},
		[]string{"stage"},
	)

	interactionsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_interactions_logged_total",
			Help: "Manually logged interactions by medium",
		},
		[]string{"medium"},
	)

	outboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_outbound_messages_total",
			Help: "Outbound emails and WhatsApp messages by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"status"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Metrics records request counts and latency labelled by route pattern, so
// /institutions/{id} is one series however many ids are requested.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

func RecordStageMove(stage string) {
	stageMoves.WithLabelValues(stage).Inc()
}

func RecordInteraction(medium string) {
	interactionsLogged.WithLabelValues(medium).Inc()
}

func RecordOutbound(channel string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	outboundMessages.WithLabelValues(channel, status).Inc()
}

func RecordLogin(ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	loginAttempts.WithLabelValues(status).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
