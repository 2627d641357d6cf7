// Package coordinator owns the agent directory and drives discovery, health
// sweeps and command routing against it.
package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"alfred/internal/agentclient"
	"alfred/internal/config"
	"alfred/internal/discovery"
	"alfred/internal/health"
	"alfred/internal/history"
	"alfred/internal/metrics"
	"alfred/internal/notify"
	"alfred/internal/registry"
	"alfred/internal/router"
	"alfred/internal/scheduler"
	"alfred/internal/translator"
	"alfred/internal/types"

	"go.uber.org/zap"
)

const (
	// connectivityTimeout bounds each endpoint probe of TestConnectivity
	connectivityTimeout = 5 * time.Second

	// subscriberBuffer is the number of status pushes a slow subscriber may lag
	subscriberBuffer = 4
)

// Coordinator ties the directory to discovery, health and command routing
type Coordinator struct {
	cfg        *config.Config
	directory  *registry.Directory
	client     *agentclient.Client
	discoverer *discovery.Discoverer
	monitor    *health.Monitor
	router     *router.Router
	history    history.Store
	notifier   *notify.Manager
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time

	subMu       sync.Mutex
	subscribers map[int]chan types.FleetStatus
	nextSub     int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// options collects optional dependencies before construction
type options struct {
	httpClient  *http.Client
	translator  translator.Translator
	history     history.Store
	metrics     *metrics.Metrics
	now         func() time.Time
	discoverOps []discovery.Option
}

// Option configures a Coordinator
type Option func(*options)

// WithHTTPClient replaces the HTTP client used to reach agents
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTranslator replaces the translator built from config
func WithTranslator(t translator.Translator) Option {
	return func(o *options) { o.translator = t }
}

// WithHistory replaces the history store built from config
func WithHistory(s history.Store) Option {
	return func(o *options) { o.history = s }
}

// WithMetrics replaces the metrics collector
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDiscoveryOptions passes options through to the discoverer
func WithDiscoveryOptions(opts ...discovery.Option) Option {
	return func(o *options) { o.discoverOps = append(o.discoverOps, opts...) }
}

// New creates a coordinator and its components
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if o.metrics == nil {
		o.metrics = metrics.New()
	}
	if o.history == nil {
		store, err := history.New(cfg.History, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		o.history = store
	}
	if o.translator == nil {
		o.translator = translator.New(cfg.Translator, logger)
	}

	directory := registry.New(logger)
	client := agentclient.New(o.httpClient, logger)
	notifier := notify.NewManager(&cfg.Notify, logger)

	discoverOps := append([]discovery.Option{discovery.WithMetrics(o.metrics)}, o.discoverOps...)

	c := &Coordinator{
		cfg:         cfg,
		directory:   directory,
		client:      client,
		discoverer:  discovery.New(cfg, directory, client, logger, discoverOps...),
		history:     o.history,
		notifier:    notifier,
		metrics:     o.metrics,
		logger:      logger.Named("coordinator"),
		now:         o.now,
		subscribers: make(map[int]chan types.FleetStatus),
		cancel:      func() {},
	}

	monitorOps := []health.Option{
		health.WithMetrics(o.metrics),
		health.WithClock(o.now),
	}
	if notifier.IsEnabled() {
		monitorOps = append(monitorOps, health.WithNotifier(notifier))
	}
	c.monitor = health.NewMonitor(cfg.Health, directory, client, logger, monitorOps...)
	c.router = router.New(o.translator, directory, client, o.history, o.metrics, logger)

	return c, nil
}

// Start runs an initial discovery and launches the periodic health sweep and
// rediscovery loops. The loops stop when ctx ends or Close is called.
func (c *Coordinator) Start(ctx context.Context) {
	c.logger.Info("Starting coordinator")
	c.Discover(ctx, nil)

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		scheduler.Every(ctx, c.logger, "health", c.cfg.Health.Interval, func(ctx context.Context) {
			c.CheckHealth(ctx, false)
		})
	}()
	go func() {
		defer c.wg.Done()
		scheduler.Every(ctx, c.logger, "discovery", c.cfg.Discovery.Interval, func(ctx context.Context) {
			c.Discover(ctx, nil)
		})
	}()
}

// Discover finds agents and registers the ones that verify. A non-empty
// hosts list is probed as given.
func (c *Coordinator) Discover(ctx context.Context, hosts []string) types.DiscoveryReport {
	report := c.discoverer.Discover(ctx, hosts)
	c.publish(ctx)
	return report
}

// CheckHealth runs a health sweep; force bypasses the minimum interval
func (c *Coordinator) CheckHealth(ctx context.Context, force bool) types.SweepReport {
	report := c.monitor.CheckAll(ctx, force)
	if !report.Skipped {
		c.publish(ctx)
	}
	return report
}

// ExecuteCommand translates input, routes it to an agent and returns the result
func (c *Coordinator) ExecuteCommand(ctx context.Context, input string) types.CommandResult {
	return c.router.Execute(ctx, input)
}

// Agents returns a snapshot of every registered agent
func (c *Coordinator) Agents() []types.AgentDescriptor {
	return c.directory.All()
}

// Agent returns one registered agent
func (c *Coordinator) Agent(id string) (types.AgentDescriptor, error) {
	agent, ok := c.directory.Get(id)
	if !ok {
		return types.AgentDescriptor{}, fmt.Errorf("%w: %s", types.ErrAgentNotFound, id)
	}
	return agent, nil
}

// TestConnectivity probes the health and capabilities endpoints of one agent
// once each, without touching its registered state
func (c *Coordinator) TestConnectivity(ctx context.Context, id string) (*types.ConnectivityReport, error) {
	agent, err := c.Agent(id)
	if err != nil {
		return nil, err
	}

	addr := agent.Address()
	report := &types.ConnectivityReport{AgentID: agent.ID, Address: addr}

	var wg sync.WaitGroup
	probe := func(path string, out *types.EndpointCheck) {
		defer wg.Done()
		pctx, cancel := context.WithTimeout(ctx, connectivityTimeout)
		defer cancel()
		*out = c.client.Check(pctx, addr, path)
	}
	wg.Add(2)
	go probe("/health", &report.Health)
	go probe("/capabilities", &report.Capabilities)
	wg.Wait()

	c.logger.Debug("Connectivity tested",
		zap.String("agent_id", id),
		zap.Int("health_status", report.Health.Status),
		zap.Int("capabilities_status", report.Capabilities.Status))
	return report, nil
}

// History returns up to limit of the newest history entries, oldest first
func (c *Coordinator) History(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	return c.history.Recent(ctx, limit)
}

// Status returns a fleet snapshot with the most recent commands
func (c *Coordinator) Status(ctx context.Context) types.FleetStatus {
	agents := c.directory.All()
	status := types.FleetStatus{
		Agents:     agents,
		TotalCount: len(agents),
		Timestamp:  c.now(),
	}
	for _, a := range agents {
		if a.IsHealthy {
			status.HealthyCount++
		}
	}

	recent, err := c.history.Recent(ctx, c.cfg.History.RecentLimit)
	if err != nil {
		c.logger.Warn("Failed to read recent history", zap.Error(err))
	}
	status.Recent = recent
	return status
}

// Subscribe registers for fleet status pushes after each discovery and
// completed health sweep. Pushes to a subscriber that is not keeping up are
// dropped. The returned func unsubscribes and closes the channel.
func (c *Coordinator) Subscribe() (<-chan types.FleetStatus, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan types.FleetStatus, subscriberBuffer)
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
}

// publish updates gauges and pushes status to subscribers
func (c *Coordinator) publish(ctx context.Context) {
	c.metrics.SetAgents(c.directory.Len(), c.directory.HealthyCount())

	c.subMu.Lock()
	defer c.subMu.Unlock()
	if len(c.subscribers) == 0 {
		return
	}

	status := c.Status(ctx)
	for id, ch := range c.subscribers {
		select {
		case ch <- status:
		default:
			c.logger.Debug("Status subscriber lagging, push dropped", zap.Int("subscriber", id))
		}
	}
}

// Metrics returns the metrics collector
func (c *Coordinator) Metrics() *metrics.Metrics {
	return c.metrics
}

// Close stops the background loops and releases resources
func (c *Coordinator) Close() error {
	c.cancel()
	c.wg.Wait()

	if err := c.notifier.Stop(); err != nil {
		c.logger.Warn("Failed to stop notifier", zap.Error(err))
	}
	if err := c.history.Close(); err != nil {
		return fmt.Errorf("failed to close history store: %w", err)
	}
	c.logger.Info("Coordinator stopped")
	return nil
}
