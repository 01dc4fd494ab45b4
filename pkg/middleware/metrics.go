// Package middleware provides the HTTP middleware shared by the sentiment
// services: request IDs, CORS, rate limiting, Prometheus metrics and request
// timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
)

// Metrics records HTTP request count, latency and the in-flight gauge.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			path := routeLabel(r, sw)
			m.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(sw.status),
			).Inc()
			m.HTTPRequestDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

// routeLabel keeps label cardinality bounded. Requests the mux itself
// rejected (plain-text 404/405) share one label; JSON 404s from handlers
// such as "video not found" keep their path.
func routeLabel(r *http.Request, sw *statusWriter) string {
	switch sw.status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		if !strings.HasPrefix(sw.Header().Get("Content-Type"), "application/json") {
			return "unmatched"
		}
	}
	return r.URL.Path
}
