package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audio-studio/pkg/api"
	"audio-studio/pkg/config"
	"audio-studio/pkg/pipeline"
	"audio-studio/pkg/processing"
	"audio-studio/pkg/storage"
	"audio-studio/pkg/workspace"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize storage
	memStore := storage.NewMemoryStore()
	diskStore, err := storage.NewDiskStore(cfg.StoragePath)
	if err != nil {
		log.Fatalf("Failed to initialize disk storage: %v", err)
	}
	defer diskStore.Close()

	// Processing backends
	processors, err := processing.NewSet(cfg.Processing)
	if err != nil {
		log.Fatalf("Failed to configure processors: %v", err)
	}
	log.Printf("Mastering backend: %s (%s)", cfg.Processing.MasteringMode, cfg.Processing.BackendURL)

	// Initialize pipeline
	pipelineManager := pipeline.NewManager(cfg.Pipeline, processors, memStore, diskStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pipelineManager.Start(ctx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	defer pipelineManager.Stop()

	// Initialize API handlers
	registry := workspace.NewRegistry(diskStore, pipelineManager)
	handlers := api.NewHandlers(registry, pipelineManager, cfg.MaxUploadBytes)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
