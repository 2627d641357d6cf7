package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alfred/internal/config"
	"alfred/internal/types"

	"go.uber.org/zap"
)

// sendTimeout bounds a single notification including retries
const sendTimeout = time.Minute

// notification represents a notification to be sent
type notification struct {
	notifierType NotifierType
	notifyFunc   func(context.Context, Notifier) error
}

// Manager fans notifications out to every enabled notifier in the background
type Manager struct {
	logger      *zap.Logger
	notifiers   map[NotifierType]Notifier
	mu          sync.RWMutex
	rateLimiter *RateLimiter
	notifyChan  chan notification
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewManager creates new notifier manager
func NewManager(cfg *config.NotifyConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("notify")

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:      logger,
		notifiers:   make(map[NotifierType]Notifier),
		rateLimiter: NewRateLimiter(cfg.RateLimit.Interval, cfg.RateLimit.MaxEvents),
		notifyChan:  make(chan notification, 100),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.Webhook.Enabled {
		if n, err := NewWebhookNotifier(&cfg.Webhook, logger); err == nil {
			m.notifiers[NotifierWebhook] = n
		} else {
			logger.Error("Failed to initialize webhook notifier", zap.Error(err))
		}
	}

	m.wg.Add(1)
	go m.processNotifications()

	return m
}

// AddNotifier registers or replaces a notifier
func (m *Manager) AddNotifier(t NotifierType, n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers[t] = n
}

// processNotifications handles notification sending in background
func (m *Manager) processNotifications() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case n := <-m.notifyChan:
			m.mu.RLock()
			notifier, ok := m.notifiers[n.notifierType]
			m.mu.RUnlock()

			if !ok {
				continue
			}

			if !m.rateLimiter.AllowNotification(n.notifierType) {
				m.logger.Warn("Rate limit exceeded for notifier",
					zap.String("type", string(n.notifierType)))
				continue
			}

			ctx, cancel := context.WithTimeout(m.ctx, sendTimeout)
			if err := n.notifyFunc(ctx, notifier); err != nil {
				m.logger.Error("Failed to send notification",
					zap.String("type", string(n.notifierType)),
					zap.Error(err))
			}
			cancel()
		}
	}
}

// enqueue queues fn for every notifier; a full queue drops the notification
func (m *Manager) enqueue(event string, fn func(context.Context, Notifier) error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for t := range m.notifiers {
		select {
		case m.notifyChan <- notification{notifierType: t, notifyFunc: fn}:
		default:
			m.logger.Warn("Notification queue full, dropping",
				zap.String("type", string(t)),
				zap.String("event", event))
		}
	}
}

// AgentUnhealthy queues an agent unhealthy notification
func (m *Manager) AgentUnhealthy(agent types.AgentDescriptor) {
	m.enqueue(EventAgentUnhealthy, func(ctx context.Context, n Notifier) error {
		return n.NotifyAgentUnhealthy(ctx, agent)
	})
}

// AgentRecovered queues an agent recovered notification
func (m *Manager) AgentRecovered(agent types.AgentDescriptor) {
	m.enqueue(EventAgentRecovered, func(ctx context.Context, n Notifier) error {
		return n.NotifyAgentRecovered(ctx, agent)
	})
}

// Stop gracefully stops the notification manager
func (m *Manager) Stop() error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timeout waiting for notifications to complete")
	}
}

// IsEnabled reports whether any notifier is configured
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifiers) > 0
}

// IsNotifierEnabled checks if a notifier is enabled
func (m *Manager) IsNotifierEnabled(notifierType NotifierType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.notifiers[notifierType]
	return ok
}
