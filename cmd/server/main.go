package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/forgo/courtside/api/internal/config"
	"github.com/forgo/courtside/api/internal/database"
	"github.com/forgo/courtside/api/internal/handler"
	"github.com/forgo/courtside/api/internal/matching"
	"github.com/forgo/courtside/api/internal/metrics"
	"github.com/forgo/courtside/api/internal/middleware"
	"github.com/forgo/courtside/api/internal/repository"
	"github.com/forgo/courtside/api/internal/service"
)

func main() {
	// Bootstrap logger until the configured one is ready
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Matching
	powers, err := cfg.Matching.PowerTable()
	if err != nil {
		slog.Error("invalid skill powers", slog.String("error", err.Error()))
		os.Exit(1)
	}
	generator := matching.NewGenerator(powers, cfg.Matching.GeneratorConfig())

	// Initialize services
	recorder := metrics.New()
	matchPoolService := service.NewMatchPoolService(service.MatchPoolServiceConfig{
		Repo:          repository.NewMatchPoolRepository(db),
		Generator:     generator,
		Metrics:       recorder,
		MatchDuration: cfg.Matching.MatchDuration,
		Logger:        logger,
	})

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health(db))
	mux.Handle("GET /metrics", recorder.Handler())
	handler.NewMatchPoolHandler(matchPoolService).RegisterRoutes(mux)

	// Request-scoped stores
	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL: cfg.Idempotency.TTL,
	})
	defer idempotencyStore.Stop()

	middlewares := []middleware.Middleware{
		middleware.RequestID,
		middleware.Recovery(logger),
		middleware.Logger(logger),
		recorder.Instrument,
		middleware.CORS(cfg.Server.AllowedOrigins),
	}
	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			Rate:   cfg.RateLimit.Rate,
			Window: cfg.RateLimit.Window,
			Burst:  cfg.RateLimit.Burst,
		})
		defer rateLimiter.Stop()
		middlewares = append(middlewares, middleware.RateLimit(rateLimiter))
	}
	middlewares = append(middlewares,
		middleware.Idempotency(idempotencyStore),
		middleware.Compress,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.Chain(mux, middlewares...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.Bool("rate_limit", cfg.RateLimit.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serveErr:
		if err != nil {
			slog.Error("server error", slog.String("error", err.Error()))
		}
	case <-sigCtx.Done():
		slog.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}

// newLogger builds the JSON logger. With LOG_FILE set, records also go to a
// size-rotated file.
func newLogger(cfg config.LogConfig) (*slog.Logger, func()) {
	level, _ := cfg.SlogLevel()

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closeFn = func() { _ = rotator.Close() }
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})), closeFn
}
