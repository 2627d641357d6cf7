package v1

import (
	"context"

	"alfred/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the coordinator surface exposed over HTTP
type Service interface {
	Agents() []types.AgentDescriptor
	Agent(id string) (types.AgentDescriptor, error)
	TestConnectivity(ctx context.Context, id string) (*types.ConnectivityReport, error)
	ExecuteCommand(ctx context.Context, input string) types.CommandResult
	History(ctx context.Context, limit int) ([]types.HistoryEntry, error)
	Discover(ctx context.Context, hosts []string) types.DiscoveryReport
	CheckHealth(ctx context.Context, force bool) types.SweepReport
	Status(ctx context.Context) types.FleetStatus
	Subscribe() (<-chan types.FleetStatus, func())
}

// API represents the API
type API struct {
	service Service
	stream  *StatusStream
	logger  *zap.Logger
}

// NewAPI creates new API
func NewAPI(svc Service, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service: svc,
		stream:  NewStatusStream(svc, logger),
		logger:  logger,
	}
}

// RegisterRoutes registers API routes
func (api *API) RegisterRoutes(r *gin.RouterGroup) {
	api.RegisterAgentRoutes(r)
	api.RegisterCommandRoutes(r)
	api.RegisterFleetRoutes(r)

	r.GET("/ws", api.stream.Handle)
}
