// Package discovery finds agents and registers the ones that answer a
// capability probe.
//
// Candidates come from the first source that yields any, in order: an
// explicit list from the caller, AGENT_DISCOVERY_HOSTS, the network config
// named by AGENT_NETWORK_CONFIG, manual hosts merged with broadcast replies,
// a /24 scan, and finally a fixed localhost list.
package discovery

import (
	"context"
	"net/netip"
	"os"
	"sync"
	"time"

	"alfred/internal/config"
	"alfred/internal/metrics"
	"alfred/internal/types"
	"alfred/internal/utils"
	"alfred/internal/validator"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentProbes caps in-flight capability probes
const maxConcurrentProbes = 10

// Candidate sources reported beyond the config-level ones
const (
	SourceManual    = "manual"
	SourceBroadcast = "broadcast"
	SourceScan      = "scan"
	SourceFallback  = "fallback"
)

// Prober fetches an agent's self-description
type Prober interface {
	Capabilities(ctx context.Context, addr string) (*types.AgentDescriptor, error)
}

// Broadcaster collects candidates from a broadcast probe
type Broadcaster interface {
	Probe(ctx context.Context) ([]string, error)
}

// Registrar stores verified agents
type Registrar interface {
	Register(agent types.AgentDescriptor) bool
}

// Discoverer resolves candidates and verifies them
type Discoverer struct {
	cfg         *config.Config
	directory   Registrar
	prober      Prober
	broadcaster Broadcaster
	lookup      config.LookupFunc
	localIP     func() (netip.Addr, error)
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// Option configures a Discoverer
type Option func(*Discoverer)

// WithLookup replaces environment lookup
func WithLookup(lookup config.LookupFunc) Option {
	return func(d *Discoverer) { d.lookup = lookup }
}

// WithBroadcaster replaces the UDP transport
func WithBroadcaster(b Broadcaster) Option {
	return func(d *Discoverer) { d.broadcaster = b }
}

// WithLocalIP replaces local address detection used by the subnet scan
func WithLocalIP(fn func() (netip.Addr, error)) Option {
	return func(d *Discoverer) { d.localIP = fn }
}

// WithMetrics records probe outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Discoverer) { d.metrics = m }
}

// New creates a Discoverer
func New(cfg *config.Config, directory Registrar, prober Prober, logger *zap.Logger, opts ...Option) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("discovery")

	d := &Discoverer{
		cfg:       cfg,
		directory: directory,
		prober:    prober,
		lookup:    os.LookupEnv,
		localIP:   utils.LocalIPv4,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.broadcaster == nil {
		d.broadcaster = NewTransport(
			cfg.Discovery.BroadcastPort,
			cfg.Discovery.BroadcastAddress,
			cfg.Discovery.Window(),
			logger,
		)
	}
	return d
}

// Discover resolves candidates and registers every one that verifies.
// A non-empty hosts list bypasses resolution. Discover never fails; problems
// are logged and reflected in the report. Probes are bounded by the scan
// timeout, not by ctx cancellation.
func (d *Discoverer) Discover(ctx context.Context, hosts []string) types.DiscoveryReport {
	ctx = context.WithoutCancel(ctx)
	start := d.now()
	source, candidates := d.Candidates(ctx, hosts)

	report := types.DiscoveryReport{
		Source:     source,
		Candidates: candidates,
		StartedAt:  start,
	}

	if len(candidates) == 0 {
		d.logger.Warn("No discovery candidates resolved")
		report.Duration = time.Since(start)
		return report
	}

	d.logger.Info("Verifying discovery candidates",
		zap.String("source", source),
		zap.Int("count", len(candidates)))

	report.Found, report.Failed, report.Registered = d.verify(ctx, candidates)
	report.Duration = time.Since(start)

	d.logger.Info("Discovery finished",
		zap.String("source", source),
		zap.Int("found", report.Found),
		zap.Int("failed", report.Failed),
		zap.Int("new", report.Registered),
		zap.Duration("duration", report.Duration))
	return report
}

// Candidates returns the candidate list and the source that produced it
func (d *Discoverer) Candidates(ctx context.Context, hosts []string) (string, []string) {
	if len(hosts) > 0 {
		return config.SourceExplicit, hosts
	}

	plan := d.cfg.ResolveDiscovery(d.lookup)
	switch plan.Source {
	case config.SourceEnv:
		d.logger.Info("Using hosts from environment", zap.Strings("hosts", plan.Hosts))
		return plan.Source, plan.Hosts
	case config.SourceNetwork:
		d.logger.Info("Using network config",
			zap.String("network", plan.Network),
			zap.Strings("hosts", plan.Hosts))
		return plan.Source, plan.Hosts
	}

	source := SourceManual
	candidates := utils.AppendUnique(nil, plan.ManualHosts...)

	if plan.UseBroadcast {
		replies, err := d.broadcaster.Probe(ctx)
		if err != nil {
			d.logger.Warn("Broadcast discovery failed", zap.Error(err))
		}
		before := len(candidates)
		candidates = utils.AppendUnique(candidates, replies...)
		if len(candidates) > before {
			source = SourceBroadcast
		}
	}

	if len(candidates) == 0 && plan.ScanNetwork {
		if scanned, err := d.scan(); err != nil {
			d.logger.Warn("Network scan failed", zap.Error(err))
		} else if len(scanned) > 0 {
			return SourceScan, scanned
		}
	}

	if len(candidates) == 0 {
		d.logger.Info("Falling back to default hosts", zap.Strings("hosts", fallbackHosts))
		return SourceFallback, append([]string(nil), fallbackHosts...)
	}

	return source, candidates
}

func (d *Discoverer) scan() ([]string, error) {
	ip, err := d.localIP()
	if err != nil {
		return nil, err
	}
	d.logger.Info("Scanning local subnet", zap.String("local_ip", ip.String()))
	return scanCandidates(ip)
}

// verify probes candidates with bounded concurrency and registers the agents
// that answer. The address used to reach an agent overrides its self-report.
func (d *Discoverer) verify(ctx context.Context, candidates []string) (found, failed, added int) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)

	for _, candidate := range candidates {
		g.Go(func() error {
			agent, ok := d.probe(gctx, candidate)
			d.metrics.DiscoveryProbe(ok)

			mu.Lock()
			defer mu.Unlock()
			if !ok {
				failed++
				return nil
			}
			found++
			if !d.directory.Register(agent) {
				added++
			}
			return nil
		})
	}
	_ = g.Wait()

	return found, failed, added
}

func (d *Discoverer) probe(ctx context.Context, candidate string) (types.AgentDescriptor, bool) {
	host, port, err := utils.SplitHostPort(candidate)
	if err != nil {
		d.logger.Warn("Skipping invalid candidate", zap.String("candidate", candidate), zap.Error(err))
		return types.AgentDescriptor{}, false
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.cfg.Discovery.Window())
	defer cancel()

	agent, err := d.prober.Capabilities(probeCtx, candidate)
	if err != nil {
		d.logger.Debug("No agent at candidate", zap.String("candidate", candidate), zap.Error(err))
		return types.AgentDescriptor{}, false
	}

	agent.Host = host
	agent.Port = port
	if agent.LastSeen.IsZero() {
		agent.LastSeen = d.now()
	}

	if err := validator.New().Struct(agent); err != nil {
		d.logger.Warn("Agent returned an invalid descriptor",
			zap.String("candidate", candidate),
			zap.Error(err))
		return types.AgentDescriptor{}, false
	}

	d.logger.Info("Agent verified",
		zap.String("candidate", candidate),
		zap.String("agent_id", agent.ID),
		zap.String("os_type", agent.OSType))
	return *agent, true
}
