package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"alfred/internal/types"
	"alfred/internal/version"
)

// envelope mirrors the coordinator API response
type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID string          `json:"request_id"`
}

// apiClient talks to the coordinator HTTP API
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coordinator returned %d: %s", resp.StatusCode, env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *apiClient) Agents(ctx context.Context) ([]types.AgentDescriptor, error) {
	var agents []types.AgentDescriptor
	err := c.do(ctx, http.MethodGet, "/api/v1/agents", nil, &agents)
	return agents, err
}

func (c *apiClient) Connectivity(ctx context.Context, id string) (*types.ConnectivityReport, error) {
	var report types.ConnectivityReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/agents/"+id+"/connectivity", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *apiClient) Execute(ctx context.Context, input string) (*types.CommandResult, error) {
	var result types.CommandResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/commands", map[string]string{"input": input}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) Discover(ctx context.Context, hosts []string) (*types.DiscoveryReport, error) {
	var report types.DiscoveryReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/discover", map[string][]string{"hosts": hosts}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *apiClient) CheckHealth(ctx context.Context, force bool) (*types.SweepReport, error) {
	var report types.SweepReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/health/check", map[string]bool{"force": force}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *apiClient) History(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	var entries []types.HistoryEntry
	err := c.do(ctx, http.MethodGet, "/api/v1/history?limit="+strconv.Itoa(limit), nil, &entries)
	return entries, err
}

func (c *apiClient) Status(ctx context.Context) (*types.FleetStatus, error) {
	var status types.FleetStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
