package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"alfred/internal/config"
	"alfred/internal/retry"
	"alfred/internal/types"
	"alfred/internal/version"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Webhook headers
const (
	HeaderEvent     = "X-Alfred-Event"
	HeaderDelivery  = "X-Alfred-Delivery"
	HeaderSignature = "X-Alfred-Signature"
)

// WebhookNotifier represents webhook notifier
type WebhookNotifier struct {
	config *config.WebhookConfig
	logger *zap.Logger
	client *http.Client
}

// WebhookPayload represents the standard webhook payload structure
type WebhookPayload struct {
	EventType string    `json:"event_type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agent_id,omitempty"`
	Data      any       `json:"data"`
}

// NewWebhookNotifier creates new webhook notifier
func NewWebhookNotifier(cfg *config.WebhookConfig, logger *zap.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &WebhookNotifier{
		config: cfg,
		logger: logger,
		client: client,
	}, nil
}

// NotifyAgentUnhealthy sends an agent unhealthy notification
func (n *WebhookNotifier) NotifyAgentUnhealthy(ctx context.Context, agent types.AgentDescriptor) error {
	return n.sendWebhook(ctx, agentPayload(EventAgentUnhealthy, agent))
}

// NotifyAgentRecovered sends an agent recovered notification
func (n *WebhookNotifier) NotifyAgentRecovered(ctx context.Context, agent types.AgentDescriptor) error {
	return n.sendWebhook(ctx, agentPayload(EventAgentRecovered, agent))
}

func agentPayload(event string, agent types.AgentDescriptor) WebhookPayload {
	return WebhookPayload{
		EventType: event,
		EventID:   uuid.NewString(),
		Timestamp: time.Now(),
		AgentID:   agent.ID,
		Data: map[string]any{
			"name":       agent.Name,
			"os_type":    agent.OSType,
			"address":    agent.Address(),
			"last_seen":  agent.LastSeen,
			"is_healthy": agent.IsHealthy,
		},
	}
}

// sendWebhook posts the payload, retrying transport errors and 5xx responses
func (n *WebhookNotifier) sendWebhook(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	signature := ""
	if n.config.Secret != "" {
		signature = calculateSignature(data, []byte(n.config.Secret))
	}

	var status int
	retryCfg := &retry.Config{Attempts: n.config.MaxRetries, Interval: n.config.RetryInterval}
	err = retry.Execute(ctx, retryCfg, n.logger, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.URL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", version.UserAgent())
		req.Header.Set(HeaderEvent, payload.EventType)
		req.Header.Set(HeaderDelivery, payload.EventID)
		if signature != "" {
			req.Header.Set(HeaderSignature, signature)
		}
		for k, v := range n.config.Headers {
			req.Header.Set(k, v)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		status = resp.StatusCode
		if status >= 500 {
			return fmt.Errorf("webhook returned status %d", status)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to send webhook after %d attempts: %w", n.config.MaxRetries, err)
	}

	if status >= 400 {
		return fmt.Errorf("webhook request failed with status %d", status)
	}
	return nil
}

// calculateSignature calculates the signature
func calculateSignature(payload []byte, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
