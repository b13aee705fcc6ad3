// metrics.go — métricas Prometheus de la capa HTTP.
// La normalización de paths evita la explosión de cardinalidad: los
// segmentos rfid (24 caracteres) se sustituyen por {rfid}.
package middleware

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas HTTP del módulo central.
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_http_requests_total",
			Help: "Total de peticiones HTTP al módulo central.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cm_http_request_duration_seconds",
			Help:    "Duración de las peticiones HTTP al módulo central.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// rfidSegment — segmento de path con forma de rfid.
var rfidSegment = regexp.MustCompile(`/[A-Za-z0-9]{24}(/|$)`)

// MetricsMiddleware devuelve el middleware de métricas HTTP.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — envoltura para capturar el status.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap expone el ResponseWriter original a http.ResponseController.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath sustituye los segmentos rfid del path por {rfid}.
// /api/v1/inventario-central/A1B2.../ubicacion → /api/v1/inventario-central/{rfid}/ubicacion
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/inventario-central":
		return path
	}
	return rfidSegment.ReplaceAllString(path, "/{rfid}$1")
}
