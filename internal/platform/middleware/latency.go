package middleware

import (
	"net/http"
	"time"

	"carelink/internal/platform/metrics"
)

// Latency records request duration per method into the shared metrics.
// A nil metrics value disables recording so tests can skip registration.
func Latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			next.ServeHTTP(w, r)
			m.ObserveRequestDuration(r.Method, time.Since(start).Seconds())
		})
	}
}
