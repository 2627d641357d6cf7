package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"alfred/internal/fakeagent"
	"alfred/internal/logger"
	"alfred/internal/types"
	"alfred/internal/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	port := flag.Int("port", types.DefaultAgentPort, "HTTP port")
	discoveryAddr := flag.String("discovery", fmt.Sprintf(":%d", types.DefaultDiscoveryPort), "UDP discovery address, empty to disable")
	id := flag.String("id", "", "Agent id (default hostname-os-port)")
	level := flag.String("log-level", "info", "Log level")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = *level
	log, err := logger.New(logCfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := fakeagent.DefaultConfig(*port)
	cfg.DiscoveryAddr = *discoveryAddr
	if *id != "" {
		cfg.ID = *id
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := fakeagent.NewHandler(cfg, log)
	if err := h.Start(ctx); err != nil {
		log.Fatal("Failed to start agent", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("Shutting down")
	if err := h.Stop(); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
}
