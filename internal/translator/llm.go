package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"alfred/internal/config"
	"alfred/internal/types"
	"alfred/internal/version"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const promptTemplate = `You are a command parser for a distributed system assistant.
Parse user commands into structured format.

Available capabilities:
- file_operations: list, create, delete, move files
- process_info: list processes, check status
- system_info: cpu, memory, disk usage

Respond ONLY with valid JSON in this exact format:
{
    "action": "command_type",
    "target_os": "windows|linux|any",
    "command": "actual command to run",
    "description": "what this will do"
}

User command: %s

Remember: Respond with ONLY the JSON object, no other text.`

// LLM translates through an OpenAI-compatible chat completions API
type LLM struct {
	cfg        config.TranslatorConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// chatRequest is the subset of the chat completions request that is sent
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewLLM creates a chat completions translator
func NewLLM(cfg config.TranslatorConfig, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{
		cfg:        cfg,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("translator"),
	}
}

// Translate implements Translator
func (l *LLM) Translate(ctx context.Context, input string) (types.ParsedCommand, error) {
	content, err := l.complete(ctx, fmt.Sprintf(promptTemplate, input))
	if err != nil {
		return types.ParsedCommand{}, err
	}

	l.logger.Debug("Raw model response", zap.String("content", content))

	cmd, err := ParseContent(content)
	if err != nil {
		l.logger.Warn("Unusable model response", zap.String("content", content), zap.Error(err))
		return types.ParsedCommand{}, err
	}
	return cmd, nil
}

func (l *LLM) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       l.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   l.cfg.MaxTokens,
		Temperature: l.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrTranslation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", types.ErrTranslation, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = string(respBody)
		}
		return "", fmt.Errorf("%w: API returned status %d: %s", types.ErrTranslation, resp.StatusCode, msg)
	}

	content := gjson.GetBytes(respBody, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("%w: response has no choices", types.ErrTranslation)
	}
	return strings.TrimSpace(content.String()), nil
}
