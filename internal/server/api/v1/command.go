package v1

import (
	"context"
	"errors"
	"strconv"

	"alfred/internal/server/api/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxHistoryLimit caps a single history page
const maxHistoryLimit = 1000

// CommandRequest represents a natural-language command submission
type CommandRequest struct {
	Input string `json:"input" binding:"required"`
}

// RegisterCommandRoutes registers command and history routes
func (api *API) RegisterCommandRoutes(r *gin.RouterGroup) {
	r.POST("/commands", api.executeCommand)
	r.GET("/history", api.getHistory)
}

// executeCommand routes a command to an agent. Routing failures are part of
// the result, not an HTTP error.
func (api *API) executeCommand(c *gin.Context) {
	resp := response.New(c, api.logger)

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(errors.New("input is required"))
		return
	}

	result := api.service.ExecuteCommand(c.Request.Context(), req.Input)
	if errors.Is(c.Request.Context().Err(), context.Canceled) {
		api.logger.Info("Client canceled command request",
			zap.String("input", req.Input))
		return
	}

	resp.Success(result)
}

// getHistory returns the newest history entries, oldest first
func (api *API) getHistory(c *gin.Context) {
	resp := response.New(c, api.logger)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			resp.BadRequest(errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	if limit == 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := api.service.History(c.Request.Context(), limit)
	if err != nil {
		api.logger.Error("Failed to read history", zap.Error(err))
		resp.InternalError(errors.New("failed to read history"))
		return
	}

	resp.Success(entries)
}
