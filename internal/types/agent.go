package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"alfred/internal/utils"
)

// Well-known OS names reported by agents
const (
	OSLinux   = "Linux"
	OSWindows = "Windows"
	OSDarwin  = "Darwin"

	// TargetAny matches every operating system
	TargetAny = "any"
)

// Permission represents an advisory permission tag carried by an agent
type Permission string

const (
	PermissionFileRead       Permission = "file_read"
	PermissionFileWrite      Permission = "file_write"
	PermissionProcessRead    Permission = "process_read"
	PermissionProcessControl Permission = "process_control"
	PermissionSystemRead     Permission = "system_read"
	PermissionAdmin          Permission = "admin"
)

// AgentDescriptor represents identity and state of one remote agent
type AgentDescriptor struct {
	ID           string       `json:"id" validate:"required"`
	Name         string       `json:"name" validate:"required"`
	OSType       string       `json:"os_type" validate:"required"`
	Capabilities []string     `json:"capabilities"`
	Permissions  []Permission `json:"permissions"`
	Host         string       `json:"host" validate:"required"`
	Port         int          `json:"port" validate:"min=1,max=65535"`
	LastSeen     time.Time    `json:"last_seen"`
	IsHealthy    bool         `json:"is_healthy"`
}

// Address returns host:port of the agent HTTP API
func (a *AgentDescriptor) Address() string {
	return utils.JoinHostPort(a.Host, a.Port)
}

// Clone returns a deep copy of the descriptor
func (a *AgentDescriptor) Clone() AgentDescriptor {
	c := *a
	if a.Capabilities != nil {
		c.Capabilities = append([]string(nil), a.Capabilities...)
	}
	if a.Permissions != nil {
		c.Permissions = append([]Permission(nil), a.Permissions...)
	}
	return c
}

// HasCapability reports whether the agent advertises the capability tag
func (a *AgentDescriptor) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if strings.EqualFold(c, capability) {
			return true
		}
	}
	return false
}

// UnmarshalJSON decodes a descriptor as published on /capabilities.
// is_healthy defaults to true when absent and last_seen accepts
// timestamps without a zone.
func (a *AgentDescriptor) UnmarshalJSON(data []byte) error {
	type alias AgentDescriptor
	aux := struct {
		*alias
		LastSeen  json.RawMessage `json:"last_seen"`
		IsHealthy *bool           `json:"is_healthy"`
	}{alias: (*alias)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	a.IsHealthy = true
	if aux.IsHealthy != nil {
		a.IsHealthy = *aux.IsHealthy
	}

	a.LastSeen = time.Time{}
	if len(aux.LastSeen) > 0 && string(aux.LastSeen) != "null" {
		var raw string
		if err := json.Unmarshal(aux.LastSeen, &raw); err != nil {
			return fmt.Errorf("invalid last_seen: %w", err)
		}
		if raw != "" {
			t, err := utils.ParseTime(raw)
			if err != nil {
				return fmt.Errorf("invalid last_seen: %w", err)
			}
			a.LastSeen = t
		}
	}

	return nil
}
