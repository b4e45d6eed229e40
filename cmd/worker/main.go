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

	"github.com/BarkinBalci/event-ingestion-service/internal/app"
	"github.com/BarkinBalci/event-ingestion-service/internal/config"
	"github.com/BarkinBalci/event-ingestion-service/internal/logger"
	"github.com/BarkinBalci/event-ingestion-service/internal/queue/sqs"
	"github.com/BarkinBalci/event-ingestion-service/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "worker")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting worker service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("storage", cfg.Storage.Driver))

	if !cfg.SQS.Enabled() {
		log.Fatal("SQS_QUEUE_URL is required for the worker")
	}

	ctx := context.Background()

	// Initialize engine
	engine, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build ingestion engine", zap.Error(err))
	}
	defer engine.Close()

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	w := worker.NewWorker(cfg.Worker, sqsClient, engine.Orchestrator, log)

	// Start health check and metrics endpoint
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		if err := engine.Health(r.Context()); err != nil {
			log.Warn("Health check failed", zap.Error(err))
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", engine.Metrics)

	healthSrv := &http.Server{
		Addr:              ":" + cfg.Worker.HealthCheckPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health check server starting", zap.String("address", healthSrv.Addr))
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	// Start worker
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Worker starting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(workerCtx); err != nil {
			log.Error("Worker error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker gracefully")
	cancel()
	<-done

	shutdownCtx, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health check server shutdown error", zap.Error(err))
	}
}
