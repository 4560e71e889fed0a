// metrics.go — Prometheus HTTP метрики:
// pi_http_requests_total, pi_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pi_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pi_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware собирает количество и длительность запросов.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath ограничивает кардинальность лейбла path.
// /api/profiles/<uuid> → /api/profiles/{id}, /uploads/* → /uploads/{file},
// прочие пути вне API (SPA, статика) → /static.
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics", "/api/profiles":
		return path
	}

	const profilesPrefix = "/api/profiles/"
	if rest, ok := strings.CutPrefix(path, profilesPrefix); ok {
		if uuid.Validate(rest) == nil {
			return profilesPrefix + "{id}"
		}
		return profilesPrefix + "{invalid}"
	}
	if strings.HasPrefix(path, "/uploads/") {
		return "/uploads/{file}"
	}
	if strings.HasPrefix(path, "/api/") {
		return "/api/{unknown}"
	}
	return "/static"
}
