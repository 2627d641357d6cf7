package registry

import (
	"sync"
	"time"

	"alfred/internal/types"

	"go.uber.org/zap"
)

// Directory is the in-memory set of known agents, keyed by agent id.
// Iteration order is registration order; re-registering an id keeps its slot.
type Directory struct {
	mu     sync.RWMutex
	agents map[string]*types.AgentDescriptor
	order  []string
	logger *zap.Logger
}

// New creates an empty directory
func New(logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		agents: make(map[string]*types.AgentDescriptor),
		logger: logger.Named("registry"),
	}
}

// Register inserts or replaces an agent by id and reports whether it replaced one
func (d *Directory) Register(agent types.AgentDescriptor) bool {
	agentCopy := agent.Clone()

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, exists := d.agents[agent.ID]
	d.agents[agent.ID] = &agentCopy
	if !exists {
		d.order = append(d.order, agent.ID)
		d.logger.Info("Agent registered",
			zap.String("agent_id", agent.ID),
			zap.String("name", agent.Name),
			zap.String("address", agent.Address()))
		return false
	}

	d.logger.Info("Agent replaced",
		zap.String("agent_id", agent.ID),
		zap.String("old_address", prev.Address()),
		zap.String("address", agent.Address()))
	return true
}

// Get returns a copy of the agent with the given id
func (d *Directory) Get(id string) (types.AgentDescriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	agent, exists := d.agents[id]
	if !exists {
		return types.AgentDescriptor{}, false
	}
	return agent.Clone(), true
}

// All returns a point-in-time copy of every agent in registration order
func (d *Directory) All() []types.AgentDescriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	agents := make([]types.AgentDescriptor, 0, len(d.order))
	for _, id := range d.order {
		agents = append(agents, d.agents[id].Clone())
	}
	return agents
}

// Len returns the number of registered agents
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// HealthyCount returns the number of agents currently marked healthy
func (d *Directory) HealthyCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, agent := range d.agents {
		if agent.IsHealthy {
			n++
		}
	}
	return n
}

// SetHealth records a health verdict. A non-zero seenAt refreshes LastSeen.
// It returns the previous verdict and false if the agent is unknown.
func (d *Directory) SetHealth(id string, healthy bool, seenAt time.Time) (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	agent, exists := d.agents[id]
	if !exists {
		return false, false
	}

	was := agent.IsHealthy
	agent.IsHealthy = healthy
	if !seenAt.IsZero() {
		agent.LastSeen = seenAt
	}
	return was, true
}
