package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/packforge/packdist/pkg/packdist/api"
	"github.com/packforge/packdist/pkg/packdist/config"
)

// ServerEnv holds the binary's own settings. Engine configuration comes
// from config.WithEnv on top of it.
type ServerEnv struct {
	EnvPrefix       string `env:"PACKDIST_ENV_PREFIX" env-default:"PACKDIST_"`
	ShutdownTimeout int    `env:"PACKDIST_SHUTDOWN_TIMEOUT_SECONDS" env-default:"10"`
	MaxArchiveBytes int64  `env:"PACKDIST_MAX_ARCHIVE_BYTES" env-default:"2147483648"`
	LogLevel        string `env:"PACKDIST_LOG_LEVEL" env-default:"info"`
}

func main() {
	var env ServerEnv
	if err := cleanenv.ReadEnv(&env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(env.LogLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(config.WithEnv(env.EnvPrefix))
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	svc, err := cfg.BuildService()
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	handler := api.NewFilesHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(api.RequestIDMiddleware)
	r.Use(api.LoggingMiddleware(logger))
	r.Use(api.RecoveryMiddleware(logger))
	r.Use(api.RequestSizeLimitMiddleware(env.MaxArchiveBytes))
	r.Get("/health", handleHealth(cfg))
	r.Mount("/api/v1", handler.Routes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Info("packdist server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"storage", cfg.Storage.Type,
			"database", cfg.DatabaseType,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(env.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exiting")
}

func handleHealth(cfg *config.ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","environment":%q,"storage":%q}`, cfg.Environment, cfg.Storage.Type)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
