package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder receives per-request observations. The prometheus
// registry implements it; tests substitute their own.
type MetricsRecorder interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	RecordResponseSize(method, path string, size float64)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()
}

// metricsResponseWriter captures the status code and body size a
// handler produced
type metricsResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *metricsResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Metrics records request count, duration, response size, and in-flight
// gauge for every request. A nil recorder disables the middleware.
func Metrics(recorder MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder.IncHTTPRequestsInFlight()
			defer recorder.DecHTTPRequestsInFlight()

			// A handler that never calls WriteHeader implicitly answers 200.
			wrapper := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapper, r)

			status := strconv.Itoa(wrapper.status)
			recorder.RecordHTTPRequest(r.Method, r.URL.Path, status, time.Since(start))
			recorder.RecordResponseSize(r.Method, r.URL.Path, float64(wrapper.bytes))
		})
	}
}
