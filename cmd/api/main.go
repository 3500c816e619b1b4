package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/chronicle/internal/config"
	"github.com/jwebster45206/chronicle/internal/engine"
	"github.com/jwebster45206/chronicle/internal/handlers"
	"github.com/jwebster45206/chronicle/internal/logger"
	"github.com/jwebster45206/chronicle/internal/middleware"
	"github.com/jwebster45206/chronicle/internal/services"
	"github.com/jwebster45206/chronicle/internal/services/events"
	"github.com/jwebster45206/chronicle/internal/services/queue"
	"github.com/jwebster45206/chronicle/internal/storage"
	"github.com/jwebster45206/chronicle/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Chronicle API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"store_backend", cfg.StoreBackend,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	shutdownTracing, err := telemetry.Setup(context.Background(), "chronicle-api", cfg.OTLPEndpoint)
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
	log.Info("Storage connection established successfully")

	eng := engine.New(store, oracle, log, engine.WithOracleTimeout(cfg.OracleTimeout))

	sessionHandler := handlers.NewSessionHandler(eng, log)
	healthHandler := handlers.NewHealthHandler(store, log)

	// Async turns and event streams need Redis; the SQLite backend serves
	// synchronous turns only.
	if rdb != nil {
		queueClient := queue.NewClientWithRedis(rdb, log)
		broadcaster := events.NewBroadcaster(rdb, log)
		sessionHandler.
			WithQueue(queue.NewTurnQueue(queueClient), broadcaster).
			WithEvents(handlers.NewEventsHandler(broadcaster, log))
		healthHandler.WithComponent("queue", queueClient)
	}

	mux := http.NewServeMux()
	mux.Handle("/health", healthHandler)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	storyHandler := handlers.NewStoryHandler(store, log)
	mux.Handle("/v1/stories", storyHandler)
	mux.Handle("/v1/stories/", storyHandler)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Let in-flight summaries finish before the store goes away.
	eng.Wait()

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}
