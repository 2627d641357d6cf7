package types

import "errors"

var (
	ErrAgentNotFound      = errors.New("agent not found")
	ErrNoHealthyAgent     = errors.New("no healthy agents available")
	ErrTranslation        = errors.New("command translation failed")
	ErrInvalidDescriptor  = errors.New("invalid agent descriptor")
	ErrUnexpectedStatus   = errors.New("unexpected status code")
	ErrInvalidHistoryType = errors.New("invalid history driver")
)
