package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/docs"
	"github.com/BarkinBalci/event-ingestion-service/internal/app"
	"github.com/BarkinBalci/event-ingestion-service/internal/config"
	"github.com/BarkinBalci/event-ingestion-service/internal/handler"
	"github.com/BarkinBalci/event-ingestion-service/internal/ingest"
	"github.com/BarkinBalci/event-ingestion-service/internal/logger"
	"github.com/BarkinBalci/event-ingestion-service/internal/queue"
	"github.com/BarkinBalci/event-ingestion-service/internal/queue/sqs"
	"github.com/BarkinBalci/event-ingestion-service/internal/service"
)

// @title Event Ingestion Service API
// @version 1.0
// @description API for running event scrapers and following their progress
// @host localhost:8080
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort),
		zap.String("storage", cfg.Storage.Driver))

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx := context.Background()

	// Initialize engine
	engine, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build ingestion engine", zap.Error(err))
	}
	defer engine.Close()

	// Initialize SQS publisher, optional
	var publisher queue.TriggerPublisher
	if cfg.SQS.Enabled() {
		sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
		if err != nil {
			log.Fatal("Failed to create SQS client", zap.Error(err))
		}
		publisher = sqsClient
	} else {
		log.Info("SQS queue not configured, asynchronous scrapes disabled")
	}

	scrapeService := service.NewScrapeService(
		engine.Orchestrator,
		engine.Store.Runs,
		engine.Store.Progress,
		publisher,
		cfg.Engine.ProgressPollInterval,
		log,
	)

	h := handler.NewHandler(scrapeService, engine.Metrics, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down API service gracefully")

	if stopped := engine.Orchestrator.Runs().CancelAll(ingest.ErrRunCancelled); len(stopped) > 0 {
		log.Info("Cancelled in-flight scrapers", zap.Int("count", len(stopped)))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown error", zap.Error(err))
	}
}
