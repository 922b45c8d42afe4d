// @title           Sepsis Risk-O-Meter API
// @version         1.0
// @description     Pressure-injury risk scoring for sepsis patients with SHAP feature attributions.
// @BasePath        /
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/config"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/monitoring"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLoggerWithOptions(os.Stdout, monitoring.ParseLevel(cfg.LogLevel), true)
	slog.SetDefault(logger.Logger)

	srv, err := newServer(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}

	healthCtx, stopHealth := context.WithCancel(context.Background())
	go srv.degradation.StartHealthChecks(healthCtx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Starting server",
			"port", cfg.Port,
			"model", srv.classifier.ModelKind(),
			"engine", srv.classifier.EngineName(),
			"cache", srv.cache.Backend(),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	stopHealth()
	srv.Close()

	slog.Info("Server exited")
}
