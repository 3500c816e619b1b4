package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/chronicle/internal/config"
	"github.com/jwebster45206/chronicle/internal/engine"
	"github.com/jwebster45206/chronicle/internal/logger"
	"github.com/jwebster45206/chronicle/internal/services"
	"github.com/jwebster45206/chronicle/internal/services/queue"
	"github.com/jwebster45206/chronicle/internal/storage"
	"github.com/jwebster45206/chronicle/internal/telemetry"
	"github.com/jwebster45206/chronicle/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Chronicle Worker",
		"environment", cfg.Environment,
		"store_backend", cfg.StoreBackend)

	if cfg.StoreBackend != config.BackendRedis {
		log.Error("The worker requires the redis store backend", "store_backend", cfg.StoreBackend)
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), "chronicle-worker", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	oracle, err := services.NewOracle(cfg, log)
	if err != nil {
		log.Error("Failed to create oracle", "error", err)
		os.Exit(1)
	}

	storeCtx, storeCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	store, rdb, err := storage.Open(storeCtx, cfg, log)
	storeCancel()
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage service initialized successfully")

	eng := engine.New(store, oracle, log, engine.WithOracleTimeout(cfg.OracleTimeout))
	w := worker.New(queue.NewClientWithRedis(rdb, log), eng, log, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn("Timed out waiting for the current request to finish")
	}
	eng.Wait()

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Worker exited")
}
