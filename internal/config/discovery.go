package config

import (
	"os"
	"strings"
	"time"

	"alfred/internal/utils"
)

// Environment variables consulted when a discovery run starts
const (
	EnvDiscoveryHosts = "AGENT_DISCOVERY_HOSTS"
	EnvNetworkConfig  = "AGENT_NETWORK_CONFIG"
	EnvUseBroadcast   = "AGENT_USE_BROADCAST"
	EnvScanNetwork    = "AGENT_SCAN_NETWORK"
)

// Candidate sources, in precedence order
const (
	SourceExplicit = "explicit"
	SourceEnv      = "env"
	SourceNetwork  = "network_config"
	SourceAuto     = "auto"
)

// DiscoverySettings represents the discovery_settings section
type DiscoverySettings struct {
	UseBroadcast     bool          `mapstructure:"use_broadcast"`
	ScanNetwork      bool          `mapstructure:"scan_network"`
	BroadcastPort    int           `mapstructure:"broadcast_port" validate:"min=1,max=65535"`
	BroadcastAddress string        `mapstructure:"broadcast_address" validate:"required,ip4_addr"`
	ScanTimeout      int           `mapstructure:"scan_timeout" validate:"min=1"`
	ManualHosts      []string      `mapstructure:"manual_hosts" validate:"dive,hostport"`
	Interval         time.Duration `mapstructure:"interval" validate:"min=0"`
}

// Window returns the broadcast listen window and capability probe timeout
func (s DiscoverySettings) Window() time.Duration {
	return time.Duration(s.ScanTimeout) * time.Second
}

// NetworkConfig represents a named set of agent addresses
type NetworkConfig struct {
	Hosts []string `mapstructure:"hosts" validate:"dive,hostport"`
}

// LookupFunc reads an environment variable
type LookupFunc func(key string) (string, bool)

// DiscoveryPlan is the layered discovery configuration resolved for one run
type DiscoveryPlan struct {
	// Source names where Hosts came from; SourceAuto means Hosts is empty
	// and candidates come from manual hosts, broadcast and scanning
	Source       string
	Hosts        []string
	Network      string
	ManualHosts  []string
	UseBroadcast bool
	ScanNetwork  bool
}

// ResolveDiscovery applies environment overrides on top of the file settings.
// A nil lookup reads the process environment.
func (cfg *Config) ResolveDiscovery(lookup LookupFunc) DiscoveryPlan {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	plan := DiscoveryPlan{
		Source:       SourceAuto,
		ManualHosts:  append([]string(nil), cfg.Discovery.ManualHosts...),
		UseBroadcast: envBool(lookup, EnvUseBroadcast, cfg.Discovery.UseBroadcast),
		ScanNetwork:  envBool(lookup, EnvScanNetwork, cfg.Discovery.ScanNetwork),
	}

	if raw, ok := lookup(EnvDiscoveryHosts); ok {
		if hosts := utils.SplitList(raw); len(hosts) > 0 {
			plan.Source = SourceEnv
			plan.Hosts = hosts
			return plan
		}
	}

	if name, ok := lookup(EnvNetworkConfig); ok && name != "" {
		if network, found := cfg.network(name); found {
			plan.Source = SourceNetwork
			plan.Network = name
			plan.Hosts = append([]string(nil), network.Hosts...)
			return plan
		}
	}

	return plan
}

// network finds a named network config; viper lowercases map keys so the
// lookup falls back to the lowercased name
func (cfg *Config) network(name string) (NetworkConfig, bool) {
	if n, ok := cfg.Networks[name]; ok {
		return n, true
	}
	n, ok := cfg.Networks[strings.ToLower(name)]
	return n, ok
}

// envBool overrides def when key is set; only "true" in any case is true
func envBool(lookup LookupFunc, key string, def bool) bool {
	raw, ok := lookup(key)
	if !ok {
		return def
	}
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}
