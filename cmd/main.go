/**
 * @description
 * This is the main entry point for the campaign service. It initializes
 * and wires together all the components of the application: configuration,
 * the backend API client, the Stripe payment confirmer, the optional
 * RabbitMQ event producer, the forest map synchronizer, and the HTTP
 * router. Finally, it starts the HTTP server and runs the synchronizer
 * until shutdown.
 */
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

	"github.com/joho/godotenv"

	"github.com/MagicForestApp/donate-hub/internal/api"
	"github.com/MagicForestApp/donate-hub/internal/app"
	"github.com/MagicForestApp/donate-hub/internal/config"
	"github.com/MagicForestApp/donate-hub/pkg/forestapi"
	"github.com/MagicForestApp/donate-hub/pkg/rabbitmq"
	"github.com/MagicForestApp/donate-hub/pkg/stripeclient"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development; in production the variables
	// come from the environment.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Create a context that governs the background synchronizer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Backend API client and payment confirmer.
	backend := forestapi.NewClient(cfg.BackendBaseURL)
	confirmer := stripeclient.NewConfirmer(cfg.StripeSecretKey)

	// Observability event producer is optional; without a broker the
	// swallowed-failure events are only logged.
	var events app.EventPublisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, observability events disabled", "error", err)
		} else {
			defer producer.Close()
			events = producer
		}
	}

	// Forest synchronizer polls the backend for the lifetime of the process.
	forest := app.NewForest(backend, logger)
	go forest.Run(ctx)

	handler := api.NewHandler(&cfg, backend, confirmer, events, forest, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort, "demo_mode", cfg.DemoMode())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// Stop the synchronizer's polling loop.
	cancel()

	logger.Info("server stopped")
}
