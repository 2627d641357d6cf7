// Package agentclient talks to the HTTP API every agent exposes:
// GET /capabilities, GET /health and POST /execute.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"alfred/internal/types"
	"alfred/internal/version"

	"go.uber.org/zap"
)

// maxBodySize caps how much of an agent response is read
const maxBodySize = 4 << 20

// StatusError is returned when an agent answers with a non-200 status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent returned status %d: %s", e.Code, e.Body)
}

// Unwrap lets callers match types.ErrUnexpectedStatus
func (e *StatusError) Unwrap() error {
	return types.ErrUnexpectedStatus
}

// Client is an agent API client. Deadlines come from the caller's context;
// the client itself sets no overall timeout.
type Client struct {
	client *http.Client
	logger *zap.Logger
}

// New creates a client. A nil httpClient gets a pooled transport with no timeout.
func New(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client: httpClient,
		logger: logger.Named("agentclient"),
	}
}

// Capabilities fetches the self-description of the agent at addr (host:port)
func (c *Client) Capabilities(ctx context.Context, addr string) (*types.AgentDescriptor, error) {
	body, err := c.get(ctx, addr, "/capabilities")
	if err != nil {
		return nil, err
	}

	var agent types.AgentDescriptor
	if err := json.Unmarshal(body, &agent); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidDescriptor, err)
	}
	return &agent, nil
}

// Health returns nil when the agent at addr answers /health with 200
func (c *Client) Health(ctx context.Context, addr string) error {
	_, err := c.get(ctx, addr, "/health")
	return err
}

// Check issues a single GET and records status and decoded body or the error
func (c *Client) Check(ctx context.Context, addr, path string) types.EndpointCheck {
	req, err := c.newRequest(ctx, http.MethodGet, addr, path, nil)
	if err != nil {
		return types.EndpointCheck{Error: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.EndpointCheck{Error: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	check := types.EndpointCheck{Status: resp.StatusCode}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		check.Response = decoded
	} else if len(body) > 0 {
		check.Response = string(body)
	}
	return check
}

// Execute posts a command envelope to the agent and decodes its result
func (c *Client) Execute(ctx context.Context, addr string, msg *types.Message) (*types.CommandResult, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, addr, "/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Message-ID", msg.ID)

	c.logger.Debug("Dispatching command",
		zap.String("address", addr),
		zap.String("message_id", msg.ID))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var result types.CommandResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, addr, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, addr, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, addr, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, "http://"+addr+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}
