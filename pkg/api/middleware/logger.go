package middleware

import (
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Logger is a middleware that logs HTTP requests
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Call next handler
		next.ServeHTTP(ww, r)

		fields := log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.statusCode,
			"bytes":      ww.bytes,
			"duration":   time.Since(start).Milliseconds(),
			"ip":         r.RemoteAddr,
			"request_id": chimiddleware.GetReqID(r.Context()),
		}

		entry := log.WithFields(fields)
		switch {
		case ww.statusCode >= 500:
			entry.Error("HTTP request")
		case ww.statusCode >= 400:
			entry.Warn("HTTP request")
		case r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/metrics"):
			entry.Debug("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}
