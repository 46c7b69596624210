package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dpkit/internal/accounting"
	"github.com/inferloop/dpkit/internal/api/handlers"
	"github.com/inferloop/dpkit/internal/api/middleware"
	"github.com/inferloop/dpkit/internal/observability/metrics"
	"github.com/inferloop/dpkit/pkg/constants"
)

func main() {
	config := ParseFlags()

	logger := setupLogger(config.LogLevel, config.LogFormat)

	logger.WithFields(logrus.Fields{
		"version":   Version,
		"commit":    GitCommit,
		"buildDate": BuildDate,
	}).Info("Starting Differential Privacy Toolkit Server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// One accountant per server session; restart for a fresh budget.
	accountant := accounting.NewAccountant(config.BudgetEpsilon, config.BudgetDelta, logger)

	// Metrics
	pm := metrics.NewPrometheusMetrics(&metrics.PrometheusConfig{
		Enabled:   config.EnableMetrics,
		Port:      config.MetricsPort,
		Path:      "/metrics",
		Namespace: constants.MetricsNamespace,
	}, logger)
	if err := pm.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start metrics server")
	}

	// Initialize router
	router := mux.NewRouter()
	router.Use(middleware.NewLoggingMiddleware(logger).Handler)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","version":"%s"}`, Version)
	}).Methods("GET")

	// Version endpoint
	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		info := GetBuildInfo()
		fmt.Fprintf(w, `{"version":"%s","commit":"%s","buildDate":"%s","goVersion":"%s","platform":"%s"}`,
			info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
	}).Methods("GET")

	// API routes
	handlers.NewNoiseHandler(accountant, pm, logger).RegisterRoutes(router)

	// Configure main server
	serverAddr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  constants.DefaultReadTimeout,
		WriteTimeout: constants.DefaultWriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}

	// Start server
	go func() {
		logger.WithField("address", serverAddr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	if err := pm.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Metrics server shutdown failed")
	}

	totalEps, totalDelta := accountant.PrivacyLoss()
	logger.WithFields(logrus.Fields{
		"total_epsilon": totalEps,
		"total_delta":   totalDelta,
	}).Info("Server stopped")
}

func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
