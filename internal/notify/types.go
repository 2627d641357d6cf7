package notify

import (
	"context"

	"alfred/internal/types"
)

// NotifierType represents the type of notifier
type NotifierType string

const (
	NotifierWebhook NotifierType = "webhook"
)

// Event types
const (
	EventAgentUnhealthy = "agent.unhealthy"
	EventAgentRecovered = "agent.recovered"
)

// Notifier represents notifier interface
type Notifier interface {
	// NotifyAgentUnhealthy reports an agent that failed its health checks
	NotifyAgentUnhealthy(ctx context.Context, agent types.AgentDescriptor) error

	// NotifyAgentRecovered reports an agent that passed again after failing
	NotifyAgentRecovered(ctx context.Context, agent types.AgentDescriptor) error
}
