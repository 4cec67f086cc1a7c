package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

var skipLogPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// RequestLogger logs one structured entry per request. Health and metrics
// scrapes are not logged.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipLogPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			entry := logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"query":      r.URL.RawQuery,
				"status":     rec.status,
				"bytes":      rec.bytes,
				"latency":    time.Since(start).String(),
				"ip":         getClientIP(r),
				"user_agent": r.UserAgent(),
				"actor":      GetActorFromContext(r.Context()),
			})

			switch {
			case rec.status >= 500:
				entry.Error("Server error")
			case rec.status >= 400:
				entry.Warn("Client error")
			default:
				entry.Info("Request processed")
			}
		})
	}
}
