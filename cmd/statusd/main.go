package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/minhchien137/MachineStatusUpdate/config"
	"github.com/minhchien137/MachineStatusUpdate/internal/api"
	"github.com/minhchien137/MachineStatusUpdate/internal/db"
	"github.com/minhchien137/MachineStatusUpdate/internal/mw"
	"github.com/minhchien137/MachineStatusUpdate/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "machine-status ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("could not read .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded from %s (driver %s, timezone %s)", configPath, cfg.Database.Driver, cfg.Reports.Location)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewCachedStore(
		store.NewGormStore(gormDB, store.WithInsertProcedure(cfg.Database.InsertProcedure)),
		cfg.Cache.MachineTTL,
	)

	limiter := mw.NewSubmitLimiter(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst)
	go limiter.Run(ctx, time.Minute)

	router := api.NewRouter(appStore, cfg, limiter)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Println("Server gracefully stopped")
}
