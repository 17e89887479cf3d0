package config

import (
	"fmt"
	"os"

	"github.com/sagan-monitoring/sagan/pkg/tmrpc/netaddr"
)

type (
	// Collector is the [collector] section: settings for the central
	// aggregator.
	Collector struct {
		// ListenAddr is the HTTP listen address ("host:port").
		ListenAddr string `toml:"listen_addr"`
		// Statsd is the StatsD host receiving metrics (port 8125).
		Statsd string `toml:"statsd"`
		// MetricsPrefix prefixes every StatsD metric name.
		MetricsPrefix string `toml:"metrics_prefix"`
		// EventLogDir is where per-network IBC event logs are written.
		EventLogDir string `toml:"event_log_dir"`
		// PageThreshold is the number of missed blocks after which a
		// validator is considered pageable.
		PageThreshold int `toml:"page_threshold"`
		// PageInterval is the per-network page suppression window.
		PageInterval Duration `toml:"page_interval"`
		// PollInterval is the external explorer poll cadence.
		PollInterval Duration `toml:"poll_interval"`

		Networks Networks `toml:"networks"`
		Teams    []Team   `toml:"teams"`
		Datadog  *Datadog `toml:"datadog"`

		Prometheus *BasicService `toml:"prometheus"`
		Pprof      *BasicService `toml:"pprof"`
	}

	// Networks groups the monitored networks by type.
	Networks struct {
		Tendermint []TendermintNetwork `toml:"tendermint"`
	}

	// TendermintNetwork is one [[collector.networks.tendermint]] entry.
	TendermintNetwork struct {
		ChainID       string             `toml:"chain_id"`
		ValidatorAddr string             `toml:"validator_addr"`
		Mintscan      *MintscanConfig    `toml:"mintscan"`
		NgExplorers   *NgExplorersConfig `toml:"ngexplorers"`
	}

	// MintscanConfig locates a Mintscan API endpoint.
	MintscanConfig struct {
		Host    string `toml:"host"`
		Network string `toml:"network"`
	}

	// NgExplorersConfig locates an NgExplorers API endpoint.
	NgExplorersConfig struct {
		Host string `toml:"host"`
	}

	// Team maps on-chain identifiers to a team name used as a metric
	// tag, bounding tag cardinality.
	Team struct {
		Name      string `toml:"name"`
		Address   string `toml:"address"`
		ChannelID string `toml:"channel_id"`
		ClientID  string `toml:"client_id"`
	}

	// Datadog is the [collector.datadog] alert sink section.
	Datadog struct {
		// APIKey falls back to the DD_API_KEY environment variable.
		APIKey string `toml:"api_key"`
		AppKey string `toml:"app_key"`
		// Env is attached to every stream event as an "env" tag.
		Env string `toml:"env"`
	}
)

// DefaultPageThreshold is used when page_threshold is not configured.
const DefaultPageThreshold = 10

// Validate checks collector settings. Duplicate networks are a fatal
// configuration error.
func (c *Collector) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("[collector] listen_addr is required")
	}
	if _, err := netaddr.Parse(c.ListenAddr); err != nil {
		return fmt.Errorf("[collector] listen_addr: %w", err)
	}
	seen := make(map[string]bool)
	for _, net := range c.Networks.Tendermint {
		if net.ChainID == "" {
			return fmt.Errorf("[[collector.networks.tendermint]] entry without chain_id")
		}
		if seen[net.ChainID] {
			return fmt.Errorf("duplicate networks in config: %s", net.ChainID)
		}
		seen[net.ChainID] = true
	}
	if c.PageThreshold < 0 {
		return fmt.Errorf("[collector] page_threshold can't be negative")
	}
	return nil
}

// Threshold returns the configured page threshold or the default.
func (c *Collector) Threshold() int {
	if c.PageThreshold == 0 {
		return DefaultPageThreshold
	}
	return c.PageThreshold
}

// AddressToTeam builds the sender address substitution table.
func (c *Collector) AddressToTeam() map[string]string {
	return teamTable(c.Teams, func(t Team) string { return t.Address })
}

// ChannelToTeam builds the channel ID substitution table.
func (c *Collector) ChannelToTeam() map[string]string {
	return teamTable(c.Teams, func(t Team) string { return t.ChannelID })
}

// ClientToTeam builds the client ID substitution table.
func (c *Collector) ClientToTeam() map[string]string {
	return teamTable(c.Teams, func(t Team) string { return t.ClientID })
}

// DatadogAPIKey resolves the Datadog API key from config or the
// DD_API_KEY environment variable.
func (c *Collector) DatadogAPIKey() string {
	if c.Datadog != nil && c.Datadog.APIKey != "" {
		return c.Datadog.APIKey
	}
	return os.Getenv("DD_API_KEY")
}

func teamTable(teams []Team, key func(Team) string) map[string]string {
	out := make(map[string]string, len(teams))
	for _, t := range teams {
		if k := key(t); k != "" {
			out[k] = t.Name
		}
	}
	return out
}
