package api

import (
	"net/http"

	"alfred/internal/config"
	"alfred/internal/server/api/middleware"
	"alfred/internal/server/api/response"
	av1 "alfred/internal/server/api/v1"
	"alfred/internal/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router handles all routing logic
type Router struct {
	engine  *gin.Engine
	config  *config.Config
	metrics http.Handler
	logger  *zap.Logger
}

// NewRouter creates and configures a new router. metrics may be nil.
func NewRouter(cfg *config.Config, svc av1.Service, metrics http.Handler, logger *zap.Logger) *Router {
	// Set gin mode based on config
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		engine:  gin.New(),
		config:  cfg,
		metrics: metrics,
		logger:  logger.Named("api"),
	}

	// Initialize middleware
	r.setupMiddleware()

	// Coordinator liveness and metrics
	r.engine.GET("/health", r.health)
	if r.metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(r.metrics))
	}

	// Initialize API versions
	r.setupAPIV1(svc)

	return r
}

// Handler returns the HTTP handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// setupMiddleware configures all middleware
func (r *Router) setupMiddleware() {
	m := middleware.New(r.logger)

	r.engine.Use(m.RequestID())
	r.engine.Use(m.Logger())
	r.engine.Use(m.Recovery())
	r.engine.Use(m.Secure())
}

// setupAPIV1 configures v1 API routes
func (r *Router) setupAPIV1(svc av1.Service) {
	api := av1.NewAPI(svc, r.logger)

	v1Router := r.engine.Group("/api/v1")
	v1Router.Use(middleware.New(r.logger).NoCache())

	api.RegisterRoutes(v1Router)
}

// health reports coordinator liveness
func (r *Router) health(c *gin.Context) {
	response.New(c, r.logger).Success(gin.H{
		"status":  "ok",
		"version": version.GetInfo().Version,
	})
}
