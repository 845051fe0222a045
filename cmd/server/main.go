package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"control-acceso/internal/api/routes"
	"control-acceso/internal/config"
	"control-acceso/internal/models"
	"control-acceso/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := pflag.StringP("config", "c", "configs/config.yaml", "path to the configuration file")
	envFile := pflag.String("env-file", ".env", "optional dotenv file loaded before the configuration")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Server.Mode == "debug" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	// Initialize database
	if err := models.InitDB(cfg); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	store, err := routes.SetupRoutes(r, cfg, logger)
	if err != nil {
		logger.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	retention, err := cfg.AuditRetention()
	if err != nil {
		logger.Error("invalid audit retention", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go store.Sweep(ctx, 10*time.Minute, logger)
	go services.NewAuditService(models.DB).Sweep(ctx, time.Hour, retention, logger)

	// Run server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("starting control-acceso web", "addr", srv.Addr, "backend", cfg.Backend.BaseURL)
	if err := serve(ctx, srv, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// serve runs srv until it fails or ctx is done, then shuts it down, letting
// in-flight requests finish within shutdownTimeout.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
