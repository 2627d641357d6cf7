package v1

import (
	"errors"
	"io"

	"alfred/internal/server/api/response"
	"alfred/internal/validator"

	"github.com/gin-gonic/gin"
)

// DiscoverRequest optionally names the hosts to probe
type DiscoverRequest struct {
	Hosts []string `json:"hosts" validate:"dive,hostport"`
}

// HealthCheckRequest represents a manual health sweep
type HealthCheckRequest struct {
	Force bool `json:"force"`
}

// RegisterFleetRoutes registers discovery, health and status routes
func (api *API) RegisterFleetRoutes(r *gin.RouterGroup) {
	r.POST("/discover", api.discover)
	r.POST("/health/check", api.checkHealth)
	r.GET("/status", api.getStatus)
}

// discover runs discovery; an empty body uses the configured sources
func (api *API) discover(c *gin.Context) {
	resp := response.New(c, api.logger)

	var req DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		resp.BadRequest(errors.New("invalid discover request"))
		return
	}
	if err := validator.New().Struct(&req); err != nil {
		resp.BadRequest(err)
		return
	}

	resp.Success(api.service.Discover(c.Request.Context(), req.Hosts))
}

// checkHealth runs a health sweep
func (api *API) checkHealth(c *gin.Context) {
	resp := response.New(c, api.logger)

	var req HealthCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		resp.BadRequest(errors.New("invalid health check request"))
		return
	}

	resp.Success(api.service.CheckHealth(c.Request.Context(), req.Force))
}

// getStatus returns the fleet status
func (api *API) getStatus(c *gin.Context) {
	response.New(c, api.logger).Success(api.service.Status(c.Request.Context()))
}
