package types

import "time"

// Discovery datagram types
const (
	DiscoveryProbeType = "agent_discovery"
	DiscoveryReplyType = "agent_response"

	// DiscoveryCoordinatorName is announced in every probe
	DiscoveryCoordinatorName = "ALFRED"

	DefaultDiscoveryPort = 5099
	DefaultAgentPort     = 5001
)

// DiscoveryProbe is broadcast by the coordinator
type DiscoveryProbe struct {
	Type        string `json:"type"`
	Coordinator string `json:"coordinator"`
}

// DiscoveryReply is sent back by an agent that received a probe
type DiscoveryReply struct {
	Type    string `json:"type"`
	Port    int    `json:"port,omitempty"`
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	OSType  string `json:"os_type"`
}

// DiscoveryReport summarizes one discovery invocation
type DiscoveryReport struct {
	Source     string        `json:"source"`
	Candidates []string      `json:"candidates"`
	Found      int           `json:"found"`
	Failed     int           `json:"failed"`
	Registered int           `json:"registered"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// SweepReport summarizes one health sweep
type SweepReport struct {
	Skipped   bool          `json:"skipped"`
	Checked   int           `json:"checked"`
	Healthy   int           `json:"healthy"`
	Unhealthy int           `json:"unhealthy"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// FleetStatus represents the registry at a point in time
type FleetStatus struct {
	Agents       []AgentDescriptor `json:"agents"`
	HealthyCount int               `json:"healthy_count"`
	TotalCount   int               `json:"total_count"`
	Recent       []HistoryEntry    `json:"recent_commands,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// EndpointCheck represents a single probe of one agent endpoint
type EndpointCheck struct {
	Status   int    `json:"status,omitempty"`
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ConnectivityReport represents the result of probing one agent's endpoints
type ConnectivityReport struct {
	AgentID      string        `json:"agent_id"`
	Address      string        `json:"address"`
	Health       EndpointCheck `json:"health"`
	Capabilities EndpointCheck `json:"capabilities"`
}
