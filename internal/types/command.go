package types

import (
	"time"

	"github.com/google/uuid"
)

// NoAgentID is reported as the agent of a command that could not be routed
const NoAgentID = "none"

// ActionUnknown marks a command that was passed through without translation
const ActionUnknown = "unknown"

// ParsedCommand represents a translated command descriptor
type ParsedCommand struct {
	Action      string `json:"action"`
	TargetOS    string `json:"target_os"`
	Command     string `json:"command"`
	Description string `json:"description"`
}

// PassThrough returns the descriptor used when translation is unavailable
func PassThrough(input, description string) ParsedCommand {
	return ParsedCommand{
		Action:      ActionUnknown,
		TargetOS:    TargetAny,
		Command:     input,
		Description: description,
	}
}

// CommandResult represents the outcome of one dispatched command
type CommandResult struct {
	Success         bool   `json:"success"`
	Output          string `json:"output,omitempty"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Command         string `json:"command"`
	AgentID         string `json:"agent_id"`
}

// FailedResult builds an unsuccessful result
func FailedResult(command, agentID, errMsg string) CommandResult {
	return CommandResult{
		Success: false,
		Error:   errMsg,
		Command: command,
		AgentID: agentID,
	}
}

// HistoryEntry represents an append-only audit record of a dispatched command
type HistoryEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	UserInput string        `json:"user_input"`
	Parsed    ParsedCommand `json:"parsed_command"`
	AgentName string        `json:"agent_used"`
	Result    CommandResult `json:"result"`
}

// MessageType represents the type of coordinator to agent message
type MessageType string

const (
	MessageTypeCommand     MessageType = "command"
	MessageTypeQuery       MessageType = "query"
	MessageTypeResponse    MessageType = "response"
	MessageTypeStatus      MessageType = "status"
	MessageTypeHealthCheck MessageType = "health_check"
)

// CoordinatorSource identifies the coordinator as a message sender
const CoordinatorSource = "coordinator"

// Message represents the envelope posted to an agent's execute endpoint
type Message struct {
	ID                  string         `json:"id"`
	Type                MessageType    `json:"type"`
	Source              string         `json:"source"`
	Target              string         `json:"target"`
	Timestamp           time.Time      `json:"timestamp"`
	Payload             map[string]any `json:"payload"`
	RequiresPermissions []Permission   `json:"requires_permissions"`
}

// NewCommandMessage wraps a command for the target agent
func NewCommandMessage(target, command string) *Message {
	return &Message{
		ID:                  uuid.New().String(),
		Type:                MessageTypeCommand,
		Source:              CoordinatorSource,
		Target:              target,
		Timestamp:           time.Now(),
		Payload:             map[string]any{"command": command},
		RequiresPermissions: []Permission{},
	}
}
