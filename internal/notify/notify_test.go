package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"alfred/internal/config"
	"alfred/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testAgent() types.AgentDescriptor {
	return types.AgentDescriptor{
		ID:     "box-Linux-5001",
		Name:   "box",
		OSType: types.OSLinux,
		Host:   "10.0.0.5",
		Port:   5001,
	}
}

func TestWebhookNotifier(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var received WebhookPayload
	var headers http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		defer mu.Unlock()
		headers = r.Header.Clone()
		assert.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, calculateSignature(body, []byte("s3cret")), r.Header.Get(HeaderSignature))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(&config.WebhookConfig{
		Enabled:    true,
		URL:        srv.URL,
		Secret:     "s3cret",
		Timeout:    time.Second,
		MaxRetries: 3,
		Headers:    map[string]string{"X-Team": "ops"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, n.NotifyAgentUnhealthy(context.Background(), testAgent()))
	assert.Equal(t, int32(2), calls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventAgentUnhealthy, received.EventType)
	assert.Equal(t, "box-Linux-5001", received.AgentID)
	assert.Equal(t, EventAgentUnhealthy, headers.Get(HeaderEvent))
	assert.Equal(t, received.EventID, headers.Get(HeaderDelivery))
	assert.Equal(t, "ops", headers.Get("X-Team"))
}

func TestWebhookNotifier_ClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(&config.WebhookConfig{URL: srv.URL, MaxRetries: 3}, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = n.NotifyAgentRecovered(context.Background(), testAgent())
	assert.ErrorContains(t, err, "status 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewWebhookNotifier_RequiresURL(t *testing.T) {
	_, err := NewWebhookNotifier(&config.WebhookConfig{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) NotifyAgentUnhealthy(_ context.Context, agent types.AgentDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, EventAgentUnhealthy+":"+agent.ID)
	return nil
}

func (r *recordingNotifier) NotifyAgentRecovered(_ context.Context, agent types.AgentDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, EventAgentRecovered+":"+agent.ID)
	return nil
}

func (r *recordingNotifier) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestManager(t *testing.T) {
	m := NewManager(&config.NotifyConfig{
		RateLimit: config.NotifyRateLimitConfig{Interval: time.Minute, MaxEvents: 2},
	}, zaptest.NewLogger(t))
	assert.False(t, m.IsEnabled())

	rec := &recordingNotifier{}
	m.AddNotifier(NotifierWebhook, rec)
	assert.True(t, m.IsNotifierEnabled(NotifierWebhook))

	agent := testAgent()
	m.AgentUnhealthy(agent)
	m.AgentRecovered(agent)
	m.AgentUnhealthy(agent) // over the rate limit

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	require.NoError(t, m.Stop())

	assert.Equal(t, []string{
		EventAgentUnhealthy + ":box-Linux-5001",
		EventAgentRecovered + ":box-Linux-5001",
	}, rec.snapshot())
}

func TestRateLimiter(t *testing.T) {
	r := NewRateLimiter(time.Minute, 1)
	assert.True(t, r.AllowNotification(NotifierWebhook))
	assert.False(t, r.AllowNotification(NotifierWebhook))

	unlimited := NewRateLimiter(time.Minute, 0)
	for i := 0; i < 5; i++ {
		assert.True(t, unlimited.AllowNotification(NotifierWebhook))
	}
}
