// Package fakeagent serves the agent HTTP contract without executing anything.
// It exists to exercise discovery, health sweeps and dispatch in development.
package fakeagent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"alfred/internal/discovery"
	"alfred/internal/types"
	"alfred/internal/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config describes the advertised agent
type Config struct {
	ID            string
	Name          string
	OSType        string
	Host          string
	Port          int
	DiscoveryAddr string
	Capabilities  []string
}

// DefaultConfig returns an agent named after the host and running OS
func DefaultConfig(port int) Config {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	osType := OSType()
	return Config{
		ID:            fmt.Sprintf("%s-%s-%d", hostname, osType, port),
		Name:          fmt.Sprintf("%s (%s)", hostname, osType),
		OSType:        osType,
		Host:          "0.0.0.0",
		Port:          port,
		DiscoveryAddr: fmt.Sprintf(":%d", types.DefaultDiscoveryPort),
		Capabilities:  []string{"shell", "echo"},
	}
}

// OSType maps GOOS to the names agents report
func OSType() string {
	switch runtime.GOOS {
	case "windows":
		return types.OSWindows
	case "darwin":
		return types.OSDarwin
	default:
		return types.OSLinux
	}
}

// Handler serves the agent endpoints and answers discovery probes
type Handler struct {
	config  Config
	engine  *gin.Engine
	server  *http.Server
	healthy atomic.Bool
	logger  *zap.Logger
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewHandler creates new Handler instance
func NewHandler(cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Handler{
		config: cfg,
		engine: gin.New(),
		logger: logger.Named("fakeagent"),
		cancel: func() {},
	}
	h.healthy.Store(true)

	h.engine.Use(gin.Recovery())
	h.engine.GET("/capabilities", h.handleCapabilities)
	h.engine.GET("/health", h.handleHealth)
	h.engine.POST("/execute", h.handleExecute)

	h.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h
}

// Handler returns the HTTP handler
func (h *Handler) Handler() http.Handler {
	return h.engine
}

// SetHealthy toggles the /health verdict
func (h *Handler) SetHealthy(healthy bool) {
	h.healthy.Store(healthy)
}

// Descriptor returns the self-description served on /capabilities
func (h *Handler) Descriptor() types.AgentDescriptor {
	return types.AgentDescriptor{
		ID:           h.config.ID,
		Name:         h.config.Name,
		OSType:       h.config.OSType,
		Capabilities: append([]string(nil), h.config.Capabilities...),
		Permissions:  []types.Permission{types.PermissionSystemRead},
		Host:         h.config.Host,
		Port:         h.config.Port,
		LastSeen:     time.Now(),
		IsHealthy:    h.healthy.Load(),
	}
}

// Start serves HTTP and, when DiscoveryAddr is set, discovery probes
func (h *Handler) Start(ctx context.Context) error {
	ctx, h.cancel = context.WithCancel(ctx)

	if h.config.DiscoveryAddr != "" {
		responder := discovery.NewResponder(h.Descriptor(), h.logger)
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			if err := responder.ListenAndServe(ctx, h.config.DiscoveryAddr); err != nil {
				h.logger.Error("Discovery responder stopped", zap.Error(err))
			}
		}()
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Info("Agent listening",
			zap.String("id", h.config.ID),
			zap.String("address", h.server.Addr))
		if err := h.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the handler
func (h *Handler) Stop() error {
	h.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	h.wg.Wait()
	return nil
}

func (h *Handler) handleCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, h.Descriptor())
}

func (h *Handler) handleHealth(c *gin.Context) {
	if !h.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"agent_id":  h.config.ID,
		"version":   version.Version,
		"timestamp": time.Now(),
	})
}

// handleExecute echoes the command back; nothing is run
func (h *Handler) handleExecute(c *gin.Context) {
	start := time.Now()

	var msg types.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message"})
		return
	}

	command, _ := msg.Payload["command"].(string)
	if command == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload.command is required"})
		return
	}

	h.logger.Info("Command received",
		zap.String("message_id", msg.ID),
		zap.String("command", command))

	c.JSON(http.StatusOK, types.CommandResult{
		Success:         true,
		Output:          fmt.Sprintf("[%s] would run: %s", h.config.ID, command),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Command:         command,
		AgentID:         h.config.ID,
	})
}
