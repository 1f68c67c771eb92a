package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/telhawk-systems/logrelay/internal/config"
	"github.com/telhawk-systems/logrelay/internal/delivery"
	"github.com/telhawk-systems/logrelay/internal/handlers"
	"github.com/telhawk-systems/logrelay/internal/health"
	"github.com/telhawk-systems/logrelay/internal/logging"
	"github.com/telhawk-systems/logrelay/internal/middleware"
	"github.com/telhawk-systems/logrelay/internal/models"
	"github.com/telhawk-systems/logrelay/internal/ratelimit"
	"github.com/telhawk-systems/logrelay/internal/server"
	"github.com/telhawk-systems/logrelay/internal/sink"
	"github.com/telhawk-systems/logrelay/internal/stats"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service(cfg.Service.Name), logging.Environment(cfg.Service.Environment))
	logging.SetDefault(logger)

	slog.Info("Starting logrelay",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	slog.Info("Sinks configured",
		slog.String("primary", cfg.OpenSearch.URL+"/"+cfg.OpenSearch.Index+"/_doc"),
		slog.String("secondary", cfg.Logstash.URL),
		slog.Duration("attempt_timeout", cfg.Delivery.AttemptTimeout),
	)

	// One connection pool shared by both sinks
	transport := sink.NewTransport(cfg.OpenSearch.TLSSkipVerify)

	primary, err := sink.NewOpenSearch(sink.OpenSearchConfig{
		URL:      cfg.OpenSearch.URL,
		Username: cfg.OpenSearch.Username,
		Password: cfg.OpenSearch.Password,
		Index:    cfg.OpenSearch.Index,
	}, transport)
	if err != nil {
		log.Fatalf("Failed to create primary sink: %v", err)
	}

	secondary, err := sink.NewHTTP("logstash", cfg.Logstash.URL, transport)
	if err != nil {
		log.Fatalf("Failed to create secondary sink: %v", err)
	}

	router := delivery.NewRouter(primary, secondary, cfg.Delivery.AttemptTimeout, logger)
	aggregator := health.NewAggregator(cfg.Service.Name, cfg.Service.Environment, cfg.Backends)

	// Rate limiter
	var rateLimiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	if cfg.Redis.Enabled && cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewRedisRateLimiter(cfg.Redis.URL, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting", logging.Error(err))
		} else {
			rateLimiter = limiter
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.RateLimit.Requests),
				slog.Duration("window", cfg.RateLimit.Window),
			)
		}
	}
	defer rateLimiter.Close()

	// Delivery stats
	var statsStore handlers.StatsStore
	if cfg.Redis.Enabled {
		hostname, _ := os.Hostname()
		instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

		statsClient, err := stats.NewClient(cfg.Redis.URL, instanceID)
		if err != nil {
			slog.Warn("Failed to initialize delivery stats, counters will not be kept", logging.Error(err))
		} else {
			statsStore = statsClient
			defer statsClient.Close()
			slog.Info("Delivery stats enabled", slog.String("instance", instanceID))
		}
	} else {
		slog.Info("Redis disabled - delivery stats and rate limiting not available")
	}

	handler := handlers.NewHandler(router, aggregator, handlers.Options{
		Service:      cfg.Service.Name,
		Environment:  cfg.Service.Environment,
		MaxEventSize: cfg.Delivery.MaxEventSize,
		Limiter:      rateLimiter,
		Stats:        statsStore,
		Logger:       logger,
	})
	httpHandler := server.NewRouter(handler, middleware.CORSConfig{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("logrelay listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	if cfg.Delivery.AnnounceStartup {
		go announceStartup(ctx, router, cfg, logger)
	}

	<-ctx.Done()

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server stopped")
}

// announceStartup waits for the sinks to come up, then delivers a single
// "started" event. Shutdown cancels it.
func announceStartup(ctx context.Context, router *delivery.Router, cfg *config.Config, logger *logging.Logger) {
	select {
	case <-time.After(cfg.Delivery.StartupDelay):
	case <-ctx.Done():
		return
	}

	event := models.NewEvent(models.LevelInfo, "logrelay server started",
		cfg.Service.Name, cfg.Service.Environment,
		map[string]any{"port": cfg.Server.Port})

	outcome := router.Deliver(ctx, event)
	if outcome.Success {
		logger.Info("Startup event delivered", logging.DeliveryPath(string(outcome.Path)))
	}
}
