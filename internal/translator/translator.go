// Package translator turns free-form operator input into a command descriptor.
package translator

import (
	"context"
	"fmt"
	"strings"

	"alfred/internal/config"
	"alfred/internal/types"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Translator converts user input into a parsed command
type Translator interface {
	Translate(ctx context.Context, input string) (types.ParsedCommand, error)
}

// PassThrough runs the input verbatim on any OS
type PassThrough struct{}

// Translate implements Translator
func (PassThrough) Translate(_ context.Context, input string) (types.ParsedCommand, error) {
	return types.PassThrough(input, "Direct command execution"), nil
}

// New returns the LLM translator when it is enabled and has a key,
// otherwise PassThrough
func New(cfg config.TranslatorConfig, logger *zap.Logger) Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || cfg.APIKey == "" {
		logger.Info("LLM translator disabled, commands pass through unchanged")
		return PassThrough{}
	}
	return NewLLM(cfg, logger)
}

// ParseContent decodes a model reply into a command descriptor.
// A surrounding markdown code fence is removed first.
func ParseContent(content string) (types.ParsedCommand, error) {
	content = stripFence(strings.TrimSpace(content))
	if content == "" {
		return types.ParsedCommand{}, fmt.Errorf("%w: empty response", types.ErrTranslation)
	}
	if !gjson.Valid(content) {
		return types.ParsedCommand{}, fmt.Errorf("%w: response is not valid JSON", types.ErrTranslation)
	}

	parsed := gjson.Parse(content)
	if !parsed.IsObject() {
		return types.ParsedCommand{}, fmt.Errorf("%w: response is not a JSON object", types.ErrTranslation)
	}

	command := parsed.Get("command")
	if command.Type != gjson.String || strings.TrimSpace(command.Str) == "" {
		return types.ParsedCommand{}, fmt.Errorf("%w: response has no command", types.ErrTranslation)
	}

	cmd := types.ParsedCommand{
		Action:      parsed.Get("action").String(),
		TargetOS:    strings.TrimSpace(parsed.Get("target_os").String()),
		Command:     command.Str,
		Description: parsed.Get("description").String(),
	}
	if cmd.Action == "" {
		cmd.Action = types.ActionUnknown
	}
	if cmd.TargetOS == "" {
		cmd.TargetOS = types.TargetAny
	}
	return cmd, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
