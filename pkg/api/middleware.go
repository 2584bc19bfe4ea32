package api

import (
	"net/http"
	"strconv"

	"github.com/cuemby/drbridge/pkg/metrics"
)

// readOnly rejects every method that could change state. The bridge only
// writes through the poller.
func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isReadOnlyMethod(r.Method) {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isReadOnlyMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	}
	return false
}

// instrument records request count and latency per route pattern
func instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		metrics.APIRequestsTotal.WithLabelValues(pattern, strconv.Itoa(ww.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, pattern)
	})
}

// responseWriter captures the status code for labeling
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
