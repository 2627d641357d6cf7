package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"alfred/internal/config"
	"alfred/internal/server/api/middleware"
	"alfred/internal/server/api/response"
	"alfred/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeService struct {
	mu        sync.Mutex
	agents    []types.AgentDescriptor
	inputs    []string
	hosts     []string
	forced    bool
	limit     int
	subs      []chan types.FleetStatus
	subscribe chan struct{}
}

func (f *fakeService) Agents() []types.AgentDescriptor { return f.agents }

func (f *fakeService) Agent(id string) (types.AgentDescriptor, error) {
	for _, a := range f.agents {
		if a.ID == id {
			return a, nil
		}
	}
	return types.AgentDescriptor{}, fmt.Errorf("%w: %s", types.ErrAgentNotFound, id)
}

func (f *fakeService) TestConnectivity(_ context.Context, id string) (*types.ConnectivityReport, error) {
	a, err := f.Agent(id)
	if err != nil {
		return nil, err
	}
	return &types.ConnectivityReport{
		AgentID: a.ID,
		Address: a.Address(),
		Health:  types.EndpointCheck{Status: http.StatusOK},
	}, nil
}

func (f *fakeService) ExecuteCommand(_ context.Context, input string) types.CommandResult {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	return types.CommandResult{Success: true, Output: "ok", Command: input, AgentID: "a1"}
}

func (f *fakeService) History(_ context.Context, limit int) ([]types.HistoryEntry, error) {
	f.limit = limit
	return []types.HistoryEntry{{UserInput: "uptime", AgentName: "a1"}}, nil
}

func (f *fakeService) Discover(_ context.Context, hosts []string) types.DiscoveryReport {
	f.hosts = hosts
	return types.DiscoveryReport{Source: "explicit", Candidates: hosts, Found: len(hosts)}
}

func (f *fakeService) CheckHealth(_ context.Context, force bool) types.SweepReport {
	f.forced = force
	return types.SweepReport{Checked: len(f.agents)}
}

func (f *fakeService) Status(context.Context) types.FleetStatus {
	return types.FleetStatus{Agents: f.agents, TotalCount: len(f.agents)}
}

func (f *fakeService) Subscribe() (<-chan types.FleetStatus, func()) {
	ch := make(chan types.FleetStatus, 1)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	if f.subscribe != nil {
		f.subscribe <- struct{}{}
	}
	return ch, func() {}
}

func (f *fakeService) push(status types.FleetStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		ch <- status
	}
}

func newTestRouter(t *testing.T, svc *fakeService) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("alfred_agents_registered 1\n"))
	})
	return NewRouter(config.Default(), svc, metrics, zaptest.NewLogger(t))
}

func do(t *testing.T, r *Router, method, path, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)

	var resp response.Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func testAgents() []types.AgentDescriptor {
	return []types.AgentDescriptor{
		{ID: "a1", Name: "a1", OSType: types.OSLinux, Host: "10.0.0.5", Port: 5001, IsHealthy: true},
	}
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, &fakeService{})

	w, resp := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), resp.RequestID)
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter(t, &fakeService{})

	w, _ := do(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alfred_agents_registered")
}

func TestRouter_Agents(t *testing.T) {
	r := newTestRouter(t, &fakeService{agents: testAgents()})

	t.Run("list", func(t *testing.T) {
		w, resp := do(t, r, http.MethodGet, "/api/v1/agents", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, resp.Data, 1)
	})

	t.Run("get", func(t *testing.T) {
		w, resp := do(t, r, http.MethodGet, "/api/v1/agents/a1", "")
		assert.Equal(t, http.StatusOK, w.Code)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "a1", data["id"])
		assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	})

	t.Run("unknown", func(t *testing.T) {
		w, resp := do(t, r, http.MethodGet, "/api/v1/agents/ghost", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "agent not found", resp.Error)
	})

	t.Run("connectivity", func(t *testing.T) {
		w, resp := do(t, r, http.MethodGet, "/api/v1/agents/a1/connectivity", "")
		assert.Equal(t, http.StatusOK, w.Code)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "10.0.0.5:5001", data["address"])

		w, _ = do(t, r, http.MethodGet, "/api/v1/agents/ghost/connectivity", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRouter_Commands(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(t, svc)

	w, resp := do(t, r, http.MethodPost, "/api/v1/commands", `{"input":"list files"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, []string{"list files"}, svc.inputs)

	w, resp = do(t, r, http.MethodPost, "/api/v1/commands", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "input is required", resp.Error)
}

func TestRouter_History(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
		limit  int
	}{
		{name: "default", query: "", status: http.StatusOK, limit: 1000},
		{name: "explicit", query: "?limit=5", status: http.StatusOK, limit: 5},
		{name: "capped", query: "?limit=50000", status: http.StatusOK, limit: 1000},
		{name: "invalid", query: "?limit=abc", status: http.StatusBadRequest},
		{name: "negative", query: "?limit=-1", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			r := newTestRouter(t, svc)

			w, _ := do(t, r, http.MethodGet, "/api/v1/history"+tt.query, "")
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.limit, svc.limit)
			}
		})
	}
}

func TestRouter_Discover(t *testing.T) {
	t.Run("explicit hosts", func(t *testing.T) {
		svc := &fakeService{}
		r := newTestRouter(t, svc)

		w, resp := do(t, r, http.MethodPost, "/api/v1/discover", `{"hosts":["10.0.0.9:5001"]}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"10.0.0.9:5001"}, svc.hosts)
		assert.Equal(t, float64(1), resp.Data.(map[string]any)["found"])
	})

	t.Run("empty body", func(t *testing.T) {
		svc := &fakeService{}
		r := newTestRouter(t, svc)

		w, _ := do(t, r, http.MethodPost, "/api/v1/discover", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, svc.hosts)
	})

	t.Run("invalid host", func(t *testing.T) {
		svc := &fakeService{}
		r := newTestRouter(t, svc)

		w, resp := do(t, r, http.MethodPost, "/api/v1/discover", `{"hosts":["no-port"]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, resp.Error, "host:port")
	})
}

func TestRouter_HealthCheck(t *testing.T) {
	svc := &fakeService{agents: testAgents()}
	r := newTestRouter(t, svc)

	w, _ := do(t, r, http.MethodPost, "/api/v1/health/check", `{"force":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.forced)

	w, _ = do(t, r, http.MethodPost, "/api/v1/health/check", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.forced)
}

func TestRouter_Status(t *testing.T) {
	r := newTestRouter(t, &fakeService{agents: testAgents()})

	w, resp := do(t, r, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp.Data.(map[string]any)["total_count"])
}

func TestRouter_StatusStream(t *testing.T) {
	svc := &fakeService{agents: testAgents(), subscribe: make(chan struct{}, 1)}
	srv := httptest.NewServer(newTestRouter(t, svc).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var initial types.FleetStatus
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, 1, initial.TotalCount)

	<-svc.subscribe
	svc.push(types.FleetStatus{TotalCount: 3, HealthyCount: 2})

	var pushed types.FleetStatus
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, 3, pushed.TotalCount)
	assert.Equal(t, 2, pushed.HealthyCount)
}
