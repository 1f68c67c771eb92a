package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/logrelay/internal/handlers"
	"github.com/telhawk-systems/logrelay/internal/middleware"
)

// NewRouter constructs a ServeMux with the relay routes registered.
func NewRouter(h *handlers.Handler, cors middleware.CORSConfig) http.Handler {
	mux := http.NewServeMux()

	// Delivery endpoints
	mux.HandleFunc("/test-elasticsearch", h.TestElasticsearch)
	mux.HandleFunc("/test-logstash", h.TestLogstash)
	mux.HandleFunc("/api/v1/stats", h.Stats)

	// Health endpoints
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(middleware.CORS(cors)(instrument(mux)))
}
