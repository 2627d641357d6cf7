// Package selector picks the agent that should run a translated command.
//
// Selection is first match in directory order: healthy agents only, an OS
// match when one exists, otherwise the first healthy agent. There is no load
// balancing.
package selector

import (
	"alfred/internal/types"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// Select returns the agent for cmd, or false when no agent is healthy
func Select(cmd types.ParsedCommand, agents []types.AgentDescriptor) (types.AgentDescriptor, bool) {
	healthy := make([]types.AgentDescriptor, 0, len(agents))
	for _, agent := range agents {
		if agent.IsHealthy {
			healthy = append(healthy, agent)
		}
	}
	if len(healthy) == 0 {
		return types.AgentDescriptor{}, false
	}

	if target := cmd.TargetOS; target != "" && !SameOS(target, types.TargetAny) {
		for _, agent := range healthy {
			if SameOS(agent.OSType, target) {
				return agent, true
			}
		}
	}

	return healthy[0], true
}

// SameOS compares OS names case-insensitively
func SameOS(a, b string) bool {
	return fold.String(a) == fold.String(b)
}
