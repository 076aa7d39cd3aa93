package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/restqlite/restqlite/pkg/metrics"
)

// Instrument records per-request prometheus counters and latency.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.StatusCode)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
