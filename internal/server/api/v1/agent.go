package v1

import (
	"context"
	"errors"
	"time"

	"alfred/internal/server/api/response"
	"alfred/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// connectivityRequestTimeout covers both endpoint probes of one agent
const connectivityRequestTimeout = 15 * time.Second

// AgentAPI represents agent API
type AgentAPI interface {
	RegisterAgentRoutes(r *gin.RouterGroup)
}

// _ implements AgentAPI
var _ AgentAPI = (*API)(nil)

// RegisterAgentRoutes registers agent routes
func (api *API) RegisterAgentRoutes(r *gin.RouterGroup) {
	agents := r.Group("/agents")
	{
		agents.GET("", api.getAgents)
		agents.GET("/:id", api.getAgent)
		agents.GET("/:id/connectivity", api.testConnectivity)
	}
}

// getAgents handles retrieving all agents
func (api *API) getAgents(c *gin.Context) {
	response.New(c, api.logger).Success(api.service.Agents())
}

// getAgent handles retrieving a specific agent
func (api *API) getAgent(c *gin.Context) {
	resp := response.New(c, api.logger)

	agentID := c.Param("id")
	agent, err := api.service.Agent(agentID)
	if err != nil {
		if errors.Is(err, types.ErrAgentNotFound) {
			resp.NotFound(errors.New("agent not found"))
			return
		}
		api.logger.Error("Failed to get agent",
			zap.Error(err),
			zap.String("agent_id", agentID))
		resp.InternalError(errors.New("failed to get agent"))
		return
	}

	resp.Success(agent)
}

// testConnectivity probes one agent's endpoints for debugging
func (api *API) testConnectivity(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), connectivityRequestTimeout)
	defer cancel()

	agentID := c.Param("id")
	report, err := api.service.TestConnectivity(ctx, agentID)
	if err != nil {
		if errors.Is(err, types.ErrAgentNotFound) {
			resp.NotFound(errors.New("agent not found"))
			return
		}
		api.logger.Error("Failed to test connectivity",
			zap.Error(err),
			zap.String("agent_id", agentID))
		resp.InternalError(errors.New("failed to test connectivity"))
		return
	}

	resp.Success(report)
}
