package agentclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alfred/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func serverAddr(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestClient_Capabilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/capabilities", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "alfred/")
		_, _ = w.Write([]byte(`{
			"id": "box-Linux-5001",
			"name": "box",
			"os_type": "Linux",
			"capabilities": ["shell", "files"],
			"permissions": ["file_read", "admin"],
			"host": "127.0.0.1",
			"port": 9999,
			"last_seen": "2024-05-01T12:30:00.123456"
		}`))
	}))
	defer srv.Close()

	c := New(nil, zaptest.NewLogger(t))
	agent, err := c.Capabilities(context.Background(), serverAddr(srv))
	require.NoError(t, err)

	assert.Equal(t, "box-Linux-5001", agent.ID)
	assert.Equal(t, 9999, agent.Port)
	assert.True(t, agent.IsHealthy)
	assert.True(t, agent.HasCapability("SHELL"))
	assert.Equal(t, []types.Permission{types.PermissionFileRead, types.PermissionAdmin}, agent.Permissions)
	assert.Equal(t, 2024, agent.LastSeen.Year())
	assert.Equal(t, 30, agent.LastSeen.Minute())
}

func TestClient_CapabilitiesErrors(t *testing.T) {
	c := New(nil, zaptest.NewLogger(t))

	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := c.Capabilities(context.Background(), serverAddr(srv))
		require.ErrorIs(t, err, types.ErrUnexpectedStatus)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		_, err := c.Capabilities(context.Background(), serverAddr(srv))
		assert.ErrorIs(t, err, types.ErrInvalidDescriptor)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := c.Capabilities(ctx, serverAddr(srv))
		assert.Error(t, err)
	})
}

func TestClient_Health(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := New(nil, zaptest.NewLogger(t))
	assert.NoError(t, c.Health(context.Background(), serverAddr(srv)))

	status = http.StatusInternalServerError
	assert.ErrorIs(t, c.Health(context.Background(), serverAddr(srv)), types.ErrUnexpectedStatus)
}

func TestClient_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"status":"brewing"}`))
	}))
	addr := serverAddr(srv)

	c := New(nil, zaptest.NewLogger(t))
	check := c.Check(context.Background(), addr, "/health")
	assert.Equal(t, http.StatusTeapot, check.Status)
	assert.Equal(t, map[string]any{"status": "brewing"}, check.Response)
	assert.Empty(t, check.Error)

	srv.Close()
	check = c.Check(context.Background(), addr, "/health")
	assert.Zero(t, check.Status)
	assert.NotEmpty(t, check.Error)
}

func TestClient_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/execute", r.URL.Path)

		var msg types.Message
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, types.MessageTypeCommand, msg.Type)
		assert.Equal(t, types.CoordinatorSource, msg.Source)
		assert.Equal(t, "agent-1", msg.Target)
		assert.Equal(t, msg.ID, r.Header.Get("X-Message-ID"))
		assert.NotNil(t, msg.RequiresPermissions)

		if msg.Payload["command"] == "fail" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(types.CommandResult{
			Success:         true,
			Output:          "up 3 days",
			ExecutionTimeMs: 12,
			Command:         msg.Payload["command"].(string),
			AgentID:         "agent-1",
		})
	}))
	defer srv.Close()

	c := New(nil, zaptest.NewLogger(t))

	result, err := c.Execute(context.Background(), serverAddr(srv), types.NewCommandMessage("agent-1", "uptime"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "up 3 days", result.Output)
	assert.Equal(t, int64(12), result.ExecutionTimeMs)

	_, err = c.Execute(context.Background(), serverAddr(srv), types.NewCommandMessage("agent-1", "fail"))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "agent returned status 500: boom\n", statusErr.Error())
}
