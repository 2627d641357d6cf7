package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"testing"
	"time"

	"alfred/internal/config"
	"alfred/internal/registry"
	"alfred/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeProber struct {
	mu       sync.Mutex
	probed   []string
	agents   map[string]types.AgentDescriptor
	delay    time.Duration
	inFlight int
	maxSeen  int
}

func (p *fakeProber) Capabilities(ctx context.Context, addr string) (*types.AgentDescriptor, error) {
	p.mu.Lock()
	p.probed = append(p.probed, addr)
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	agent, ok := p.agents[addr]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &agent, nil
}

func (p *fakeProber) sortedProbes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.probed...)
	sort.Strings(out)
	return out
}

type fakeBroadcaster struct {
	replies []string
	err     error
	calls   int
}

func (b *fakeBroadcaster) Probe(context.Context) ([]string, error) {
	b.calls++
	return b.replies, b.err
}

func noEnv(string) (string, bool) { return "", false }

func env(vars map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func descriptor(id string) types.AgentDescriptor {
	return types.AgentDescriptor{
		ID:        id,
		Name:      id,
		OSType:    types.OSLinux,
		Host:      "0.0.0.0",
		Port:      1,
		IsHealthy: true,
	}
}

func newDiscoverer(t *testing.T, cfg *config.Config, prober Prober, opts ...Option) (*Discoverer, *registry.Directory) {
	t.Helper()
	dir := registry.New(zaptest.NewLogger(t))
	opts = append([]Option{WithLookup(noEnv)}, opts...)
	return New(cfg, dir, prober, zaptest.NewLogger(t), opts...), dir
}

func TestDiscover_EnvHostsBypassEverything(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.ManualHosts = []string{"manual:5001"}
	cfg.Discovery.ScanNetwork = true

	broadcaster := &fakeBroadcaster{replies: []string{"10.9.9.9:5001"}}
	prober := &fakeProber{agents: map[string]types.AgentDescriptor{"a:1": descriptor("a")}}

	d, dir := newDiscoverer(t, cfg, prober,
		WithLookup(env(map[string]string{config.EnvDiscoveryHosts: "a:1,b:2"})),
		WithBroadcaster(broadcaster),
		WithLocalIP(func() (netip.Addr, error) {
			t.Fatal("scan must not run")
			return netip.Addr{}, nil
		}),
	)

	report := d.Discover(context.Background(), nil)

	assert.Equal(t, config.SourceEnv, report.Source)
	assert.Equal(t, []string{"a:1", "b:2"}, prober.sortedProbes())
	assert.Zero(t, broadcaster.calls)
	assert.Equal(t, 1, report.Found)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, dir.Len())
}

func TestDiscover_NetworkConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Networks = map[string]config.NetworkConfig{"lab": {Hosts: []string{"10.0.0.7:5001"}}}

	broadcaster := &fakeBroadcaster{}
	prober := &fakeProber{}
	d, _ := newDiscoverer(t, cfg, prober,
		WithLookup(env(map[string]string{config.EnvNetworkConfig: "lab"})),
		WithBroadcaster(broadcaster),
	)

	report := d.Discover(context.Background(), nil)
	assert.Equal(t, config.SourceNetwork, report.Source)
	assert.Equal(t, []string{"10.0.0.7:5001"}, prober.sortedProbes())
	assert.Zero(t, broadcaster.calls)
}

func TestDiscover_AddressIsAuthoritative(t *testing.T) {
	self := descriptor("nat-agent")
	self.Host = "127.0.0.1"
	self.Port = 9999

	prober := &fakeProber{agents: map[string]types.AgentDescriptor{"10.0.0.5:5001": self}}
	d, dir := newDiscoverer(t, config.Default(), prober, WithBroadcaster(&fakeBroadcaster{}))

	report := d.Discover(context.Background(), []string{"10.0.0.5:5001"})
	require.Equal(t, 1, report.Found)
	assert.Equal(t, config.SourceExplicit, report.Source)

	got, ok := dir.Get("nat-agent")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", got.Host)
	assert.Equal(t, 5001, got.Port)
	assert.False(t, got.LastSeen.IsZero())
}

func TestDiscover_ManualAndBroadcastMerged(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.ManualHosts = []string{"10.0.0.5:5001", "10.0.0.6:5001"}

	broadcaster := &fakeBroadcaster{replies: []string{"10.0.0.6:5001", "10.0.0.8:5002", "10.0.0.8:5002"}}
	d, _ := newDiscoverer(t, cfg, &fakeProber{}, WithBroadcaster(broadcaster))

	source, candidates := d.Candidates(context.Background(), nil)
	assert.Equal(t, SourceBroadcast, source)
	assert.Equal(t, []string{"10.0.0.5:5001", "10.0.0.6:5001", "10.0.0.8:5002"}, candidates)
	assert.Equal(t, 1, broadcaster.calls)
}

func TestDiscover_BroadcastDisabledByEnv(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.ManualHosts = []string{"10.0.0.5:5001"}

	broadcaster := &fakeBroadcaster{replies: []string{"10.0.0.8:5002"}}
	d, _ := newDiscoverer(t, cfg, &fakeProber{},
		WithLookup(env(map[string]string{config.EnvUseBroadcast: "false"})),
		WithBroadcaster(broadcaster),
	)

	source, candidates := d.Candidates(context.Background(), nil)
	assert.Equal(t, SourceManual, source)
	assert.Equal(t, []string{"10.0.0.5:5001"}, candidates)
	assert.Zero(t, broadcaster.calls)
}

func TestDiscover_Scan(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.ScanNetwork = true

	broadcaster := &fakeBroadcaster{err: errors.New("network unreachable")}
	d, _ := newDiscoverer(t, cfg, &fakeProber{},
		WithBroadcaster(broadcaster),
		WithLocalIP(func() (netip.Addr, error) {
			return netip.MustParseAddr("192.168.1.50"), nil
		}),
	)

	source, candidates := d.Candidates(context.Background(), nil)
	assert.Equal(t, SourceScan, source)
	require.Len(t, candidates, 60)
	assert.Equal(t, []string{"192.168.1.1:5001", "192.168.1.1:5002", "192.168.1.1:5003"}, candidates[:3])
	assert.Equal(t, "192.168.1.20:5003", candidates[59])
}

func TestDiscover_Fallback(t *testing.T) {
	tests := []struct {
		name string
		scan bool
	}{
		{"scan disabled", false},
		{"scan fails", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Discovery.ScanNetwork = tt.scan

			d, _ := newDiscoverer(t, cfg, &fakeProber{},
				WithBroadcaster(&fakeBroadcaster{}),
				WithLocalIP(func() (netip.Addr, error) {
					return netip.Addr{}, errors.New("no interfaces")
				}),
			)

			source, candidates := d.Candidates(context.Background(), nil)
			assert.Equal(t, SourceFallback, source)
			assert.Equal(t, []string{"localhost:5001", "localhost:5002", "127.0.0.1:5001", "127.0.0.1:5002"}, candidates)
		})
	}
}

func TestDiscover_SkipsInvalidDescriptors(t *testing.T) {
	broken := descriptor("")
	prober := &fakeProber{agents: map[string]types.AgentDescriptor{
		"10.0.0.1:5001": broken,
		"10.0.0.2:5001": descriptor("good"),
	}}
	d, dir := newDiscoverer(t, config.Default(), prober, WithBroadcaster(&fakeBroadcaster{}))

	report := d.Discover(context.Background(), []string{"10.0.0.1:5001", "10.0.0.2:5001", "not-an-address"})
	assert.Equal(t, 1, report.Found)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 1, report.Registered)
	assert.Equal(t, 1, dir.Len())
}

func TestDiscover_BoundedConcurrency(t *testing.T) {
	prober := &fakeProber{delay: 20 * time.Millisecond, agents: map[string]types.AgentDescriptor{}}
	var hosts []string
	for i := 1; i <= 35; i++ {
		addr := fmt.Sprintf("10.0.1.%d:5001", i)
		hosts = append(hosts, addr)
		prober.agents[addr] = descriptor(fmt.Sprintf("agent-%d", i))
	}

	d, dir := newDiscoverer(t, config.Default(), prober, WithBroadcaster(&fakeBroadcaster{}))
	report := d.Discover(context.Background(), hosts)

	assert.Equal(t, 35, report.Found)
	assert.Equal(t, 35, dir.Len())
	assert.LessOrEqual(t, prober.maxSeen, maxConcurrentProbes)
}

func TestDiscover_ReRegistrationIsIdempotent(t *testing.T) {
	prober := &fakeProber{agents: map[string]types.AgentDescriptor{"10.0.0.2:5001": descriptor("same")}}
	d, dir := newDiscoverer(t, config.Default(), prober, WithBroadcaster(&fakeBroadcaster{}))

	first := d.Discover(context.Background(), []string{"10.0.0.2:5001"})
	second := d.Discover(context.Background(), []string{"10.0.0.2:5001"})

	assert.Equal(t, 1, first.Registered)
	assert.Equal(t, 0, second.Registered)
	assert.Equal(t, 1, second.Found)
	assert.Equal(t, 1, dir.Len())
}

// ctxProber answers like an agent unless its context has already ended
type ctxProber struct{}

func (ctxProber) Capabilities(ctx context.Context, addr string) (*types.AgentDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	agent := descriptor("agent-" + addr)
	return &agent, nil
}

func TestDiscover_CallerCancellation(t *testing.T) {
	d, dir := newDiscoverer(t, config.Default(), ctxProber{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := d.Discover(ctx, []string{"10.0.0.7:5001"})
	assert.Equal(t, 1, report.Found)
	assert.Equal(t, 1, dir.Len())
}
