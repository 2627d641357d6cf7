package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alfred/internal/config"
	"alfred/internal/coordinator"
	"alfred/internal/logger"
	"alfred/internal/server/api"
	"alfred/internal/version"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		info := version.GetInfo()
		fmt.Println(info.String())
		os.Exit(0)
	}

	// Load configuration; any failure falls back to defaults
	cfg, cfgErr := config.LoadConfig(*configPath)

	// Initialize logger
	log, err := logger.New(&cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.Named("coordinator")

	if errors.Is(cfgErr, config.ErrDefaultsUsed) {
		log.Warn("Using default configuration", zap.Error(cfgErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize coordinator
	coord, err := coordinator.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize coordinator", zap.Error(err))
	}

	router := api.NewRouter(cfg, coord, coord.Metrics().Handler(), log)
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Initial discovery runs before the API starts serving
	coord.Start(ctx)

	go func() {
		log.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("version", version.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := coord.Close(); err != nil {
		log.Error("Coordinator shutdown error", zap.Error(err))
	}

	log.Info("Shutdown complete")
}
