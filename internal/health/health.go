package health

import (
	"context"
	"sync"
	"time"

	"alfred/internal/config"
	"alfred/internal/metrics"
	"alfred/internal/retry"
	"alfred/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Checker probes an agent's health endpoint
type Checker interface {
	Health(ctx context.Context, addr string) error
}

// Directory is the agent store the monitor reads and updates
type Directory interface {
	All() []types.AgentDescriptor
	SetHealth(id string, healthy bool, seenAt time.Time) (bool, bool)
}

// Notifier receives health transitions
type Notifier interface {
	AgentUnhealthy(agent types.AgentDescriptor)
	AgentRecovered(agent types.AgentDescriptor)
}

// Monitor runs health sweeps over every registered agent.
// Sweeps never overlap; a non-forced sweep within MinInterval of the
// previous sweep's start is skipped.
type Monitor struct {
	cfg       config.HealthConfig
	directory Directory
	checker   Checker
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

// Option configures a Monitor
type Option func(*Monitor)

// WithNotifier reports healthy/unhealthy transitions
func WithNotifier(n Notifier) Option {
	return func(m *Monitor) { m.notifier = n }
}

// WithMetrics records sweep outcomes
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a health monitor
func NewMonitor(cfg config.HealthConfig, directory Directory, checker Checker, logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	m := &Monitor{
		cfg:       cfg,
		directory: directory,
		checker:   checker,
		logger:    logger.Named("health"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LastSweep returns the start time of the last sweep that ran
func (m *Monitor) LastSweep() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSweep
}

// CheckAll probes every registered agent and records the verdicts.
// Per-agent failures are absorbed into the report. Cancelling ctx does not
// interrupt a sweep; only the per-attempt timeout bounds each probe.
func (m *Monitor) CheckAll(ctx context.Context, force bool) types.SweepReport {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now()
	if !force && !m.lastSweep.IsZero() && start.Sub(m.lastSweep) < m.cfg.MinInterval {
		m.logger.Debug("Health sweep skipped",
			zap.Duration("since_last", start.Sub(m.lastSweep)))
		m.metrics.HealthSweepSkipped()
		return types.SweepReport{Skipped: true, StartedAt: m.lastSweep}
	}
	m.lastSweep = start

	agents := m.directory.All()
	report := types.SweepReport{StartedAt: start, Checked: len(agents)}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(m.cfg.Concurrency)

	for _, agent := range agents {
		g.Go(func() error {
			healthy := m.checkAgent(ctx, agent)

			mu.Lock()
			if healthy {
				report.Healthy++
			} else {
				report.Unhealthy++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	m.metrics.HealthSweepCompleted(report.Duration)

	m.logger.Info("Health sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("healthy", report.Healthy),
		zap.Int("unhealthy", report.Unhealthy),
		zap.Duration("duration", report.Duration))
	return report
}

// checkAgent retries the health probe and records the verdict
func (m *Monitor) checkAgent(ctx context.Context, agent types.AgentDescriptor) bool {
	addr := agent.Address()
	logger := m.logger.With(zap.String("agent_id", agent.ID), zap.String("address", addr))

	retryCfg := &retry.Config{Attempts: m.cfg.Attempts, Interval: m.cfg.RetryInterval}
	err := retry.Execute(ctx, retryCfg, logger, func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
		return m.checker.Health(probeCtx, addr)
	})

	healthy := err == nil
	seenAt := time.Time{}
	if healthy {
		seenAt = m.now()
	}

	was, ok := m.directory.SetHealth(agent.ID, healthy, seenAt)
	m.metrics.HealthCheck(healthy)
	if !ok {
		return healthy
	}

	switch {
	case was && !healthy:
		logger.Warn("Agent unhealthy", zap.Int("attempts", m.cfg.Attempts), zap.Error(err))
		if m.notifier != nil {
			agent.IsHealthy = false
			m.notifier.AgentUnhealthy(agent)
		}
	case !was && healthy:
		logger.Info("Agent recovered")
		if m.notifier != nil {
			agent.IsHealthy = true
			agent.LastSeen = seenAt
			m.notifier.AgentRecovered(agent)
		}
	case !healthy:
		logger.Debug("Agent still unhealthy", zap.Error(err))
	}
	return healthy
}
