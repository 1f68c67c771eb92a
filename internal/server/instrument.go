package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/telhawk-systems/logrelay/internal/logging"
	"github.com/telhawk-systems/logrelay/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs each request and counts it by route and status.
func instrument(mux *http.ServeMux) http.Handler {
	logger := logging.Default()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		mux.ServeHTTP(rec, r)

		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()

		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.WithContext(r.Context()).Log(r.Context(), level, "http request",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Status(rec.status),
			logging.Duration(time.Since(start)),
		)
	})
}
