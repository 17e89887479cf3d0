package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sagan-monitoring/sagan/pkg/tmrpc/netaddr"
)

type (
	// Agent is the [agent] section: settings for the process
	// co-located with a Tendermint node.
	Agent struct {
		// NodeHome is the monitored node's --home directory. When set,
		// the node's own config.toml supplies the RPC address and peer
		// configuration.
		NodeHome string `toml:"node_home"`
		// RPC is the node RPC listen address, used when NodeHome is
		// not set (tcp://host:port or unix://path).
		RPC string `toml:"rpc"`
		// EventQueries are the websocket subscription queries.
		EventQueries []string `toml:"event_queries"`
		// Collector locates the collector this agent reports to.
		Collector CollectorAddr `toml:"collector"`

		PollInterval       Duration `toml:"poll_interval"`
		FullReportInterval Duration `toml:"full_report_interval"`
	}

	// CollectorAddr is the [agent.collector] section.
	CollectorAddr struct {
		HTTP HTTPConfig `toml:"http"`
	}

	// HTTPConfig is the [agent.collector.http] section.
	HTTPConfig struct {
		// Addr is the collector address (tcp://host:port).
		Addr string `toml:"addr"`
	}

	// NodeConfig is the slice of a Tendermint node's config.toml the
	// agent consumes.
	NodeConfig struct {
		RPC struct {
			Laddr string `toml:"laddr"`
		} `toml:"rpc"`
		P2P struct {
			PersistentPeers string `toml:"persistent_peers"`
			PrivatePeerIDs  string `toml:"private_peer_ids"`
		} `toml:"p2p"`
	}
)

// Validate checks agent settings.
func (a *Agent) Validate() error {
	if a.NodeHome == "" && a.RPC == "" {
		return fmt.Errorf("[agent] needs either node_home or rpc")
	}
	if a.RPC != "" {
		if _, err := netaddr.Parse(a.RPC); err != nil {
			return fmt.Errorf("[agent] rpc: %w", err)
		}
	}
	if a.Collector.HTTP.Addr == "" {
		return fmt.Errorf("[agent.collector.http] addr is required")
	}
	if _, err := a.CollectorURL(); err != nil {
		return err
	}
	return nil
}

// CollectorURL returns the base HTTP URL of the collector.
func (a *Agent) CollectorURL() (string, error) {
	addr, err := netaddr.Parse(a.Collector.HTTP.Addr)
	if err != nil {
		return "", fmt.Errorf("[agent.collector.http] addr: %w", err)
	}
	u, err := addr.HTTPURL()
	if err != nil {
		return "", fmt.Errorf("[agent.collector.http] addr: %w", err)
	}
	return u, nil
}

// LoadNodeConfig loads the monitored node's config.toml from NodeHome.
// It returns nil when no node home is configured.
func (a *Agent) LoadNodeConfig() (*NodeConfig, error) {
	if a.NodeHome == "" {
		return nil, nil
	}
	path := filepath.Join(a.NodeHome, "config", "config.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load node config: %w", err)
	}
	var nc NodeConfig
	if _, err := toml.Decode(string(data), &nc); err != nil {
		return nil, fmt.Errorf("unable to parse node config %s: %w", path, err)
	}
	return &nc, nil
}

// RPCAddr resolves the node RPC address, preferring the node's own
// config over the [agent] rpc setting.
func (a *Agent) RPCAddr() (netaddr.Address, error) {
	nc, err := a.LoadNodeConfig()
	if err != nil {
		return netaddr.Address{}, err
	}
	laddr := a.RPC
	if nc != nil && nc.RPC.Laddr != "" {
		laddr = nc.RPC.Laddr
	}
	return netaddr.Parse(laddr)
}

// PersistentPeers returns the node's configured persistent peer
// addresses (the "id@host:port" form).
func (nc *NodeConfig) PersistentPeers() ([]netaddr.Address, error) {
	var out []netaddr.Address
	for _, s := range splitList(nc.P2P.PersistentPeers) {
		addr, err := netaddr.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("bad persistent_peers entry %q: %w", s, err)
		}
		if addr.PeerID == "" {
			return nil, fmt.Errorf("persistent_peers entry %q has no node ID", s)
		}
		out = append(out, addr)
	}
	return out, nil
}

// PrivatePeerIDs returns the node's private peer ID list.
func (nc *NodeConfig) PrivatePeerIDs() []string {
	return splitList(nc.P2P.PrivatePeerIDs)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
