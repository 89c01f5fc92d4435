// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// RequestLogger returns a middleware that logs HTTP requests. Failures
// always log; successes only when verbose. Successful health probes
// never log, orchestrators hit them every few seconds.
func RequestLogger(verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.New().String()[:8]

			// Surface the request ID so producers can quote it when
			// reporting rejected events.
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			failed := wrapped.status >= 400
			probe := strings.HasPrefix(r.URL.Path, "/health")
			if !failed && (!verbose || probe) {
				return
			}

			log.Printf("[%s] %s %s %s -> %d (in %dB, out %dB, %v)",
				requestID,
				getClientIP(r),
				r.Method,
				r.URL.Path,
				wrapped.status,
				max(r.ContentLength, 0),
				wrapped.size,
				time.Since(start),
			)
		})
	}
}
