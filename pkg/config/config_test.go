package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const exampleConfig = `
[agent]
rpc = "tcp://127.0.0.1:26657"
event_queries = ["tm.event='Tx'"]
poll_interval = "100ms"
full_report_interval = "1m"

[agent.collector.http]
addr = "tcp://collector.example.com:8080"

[collector]
listen_addr = "0.0.0.0:8080"
statsd = "127.0.0.1"
metrics_prefix = "sagan"
page_threshold = 5
page_interval = "10m"
poll_interval = "1m"

[[collector.networks.tendermint]]
chain_id = "gaia-1"
validator_addr = "cosmosvaloper1xxx"

[collector.networks.tendermint.mintscan]
host = "api.mintscan.io"
network = "cosmos"

[[collector.networks.tendermint]]
chain_id = "osmosis-1"

[[collector.teams]]
name = "teamA"
address = "cosmos1aaa"
channel_id = "channel-0"
client_id = "07-tendermint-0"

[[collector.teams]]
name = "teamB"
address = "cosmos1bbb"

[collector.datadog]
app_key = "appkey"
env = "staging"

[collector.prometheus]
enabled = true
address = "127.0.0.1"
port = 9090
`

func TestParse(t *testing.T) {
	cfg, err := Parse(exampleConfig)
	require.NoError(t, err)

	require.NotNil(t, cfg.Agent)
	require.Equal(t, "tcp://127.0.0.1:26657", cfg.Agent.RPC)
	require.Equal(t, []string{"tm.event='Tx'"}, cfg.Agent.EventQueries)
	require.Equal(t, 100*time.Millisecond, cfg.Agent.PollInterval.Or(0))
	require.Equal(t, time.Minute, cfg.Agent.FullReportInterval.Or(0))

	u, err := cfg.Agent.CollectorURL()
	require.NoError(t, err)
	require.Equal(t, "http://collector.example.com:8080", u)

	require.NotNil(t, cfg.Collector)
	require.Equal(t, "0.0.0.0:8080", cfg.Collector.ListenAddr)
	require.Equal(t, 5, cfg.Collector.Threshold())
	require.Equal(t, 10*time.Minute, cfg.Collector.PageInterval.Or(0))
	require.Len(t, cfg.Collector.Networks.Tendermint, 2)
	require.NotNil(t, cfg.Collector.Networks.Tendermint[0].Mintscan)
	require.Nil(t, cfg.Collector.Networks.Tendermint[1].Mintscan)

	require.NotNil(t, cfg.Collector.Prometheus)
	require.True(t, cfg.Collector.Prometheus.Enabled)
	require.Equal(t, "127.0.0.1:9090", cfg.Collector.Prometheus.Addr())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("not [valid toml")
	require.Error(t, err)

	// Neither role configured.
	_, err = Parse("")
	require.Error(t, err)

	// Agent without a node to monitor.
	_, err = Parse(`
[agent.collector.http]
addr = "tcp://collector:8080"
`)
	require.Error(t, err)

	// Agent without a collector.
	_, err = Parse(`
[agent]
rpc = "tcp://127.0.0.1:26657"
`)
	require.Error(t, err)
}

func TestDuplicateNetworks(t *testing.T) {
	_, err := Parse(`
[collector]
listen_addr = "0.0.0.0:8080"

[[collector.networks.tendermint]]
chain_id = "gaia-1"

[[collector.networks.tendermint]]
chain_id = "gaia-1"
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate networks in config: gaia-1")
}

func TestCollectorDefaults(t *testing.T) {
	cfg, err := Parse(`
[collector]
listen_addr = "0.0.0.0:8080"
`)
	require.NoError(t, err)
	require.Equal(t, DefaultPageThreshold, cfg.Collector.Threshold())
	require.Equal(t, time.Minute, cfg.Collector.PollInterval.Or(time.Minute))
}

func TestTeamTables(t *testing.T) {
	cfg, err := Parse(exampleConfig)
	require.NoError(t, err)

	require.Equal(t, map[string]string{
		"cosmos1aaa": "teamA",
		"cosmos1bbb": "teamB",
	}, cfg.Collector.AddressToTeam())
	require.Equal(t, map[string]string{"channel-0": "teamA"}, cfg.Collector.ChannelToTeam())
	require.Equal(t, map[string]string{"07-tendermint-0": "teamA"}, cfg.Collector.ClientToTeam())
}

func TestDatadogAPIKey(t *testing.T) {
	cfg, err := Parse(exampleConfig)
	require.NoError(t, err)

	t.Setenv("DD_API_KEY", "envkey")
	require.Equal(t, "envkey", cfg.Collector.DatadogAPIKey())

	cfg.Collector.Datadog.APIKey = "cfgkey"
	require.Equal(t, "cfgkey", cfg.Collector.DatadogAPIKey())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sagan.toml")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Agent)
	require.NotNil(t, cfg.Collector)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
}

func TestNodeConfig(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "config", "config.toml"), []byte(`
[rpc]
laddr = "tcp://127.0.0.1:26657"

[p2p]
persistent_peers = "id1@10.0.0.1:26656, id2@10.0.0.2:26656"
private_peer_ids = "id2, id3"
`), 0o600))

	a := &Agent{NodeHome: home}
	nc, err := a.LoadNodeConfig()
	require.NoError(t, err)
	require.NotNil(t, nc)

	addr, err := a.RPCAddr()
	require.NoError(t, err)
	require.Equal(t, "tcp://127.0.0.1:26657", addr.String())

	peers, err := nc.PersistentPeers()
	require.NoError(t, err)
	require.Len(t, peers, 2)
	require.Equal(t, "id1", peers[0].PeerID)
	require.Equal(t, "id2", peers[1].PeerID)

	require.Equal(t, []string{"id2", "id3"}, nc.PrivatePeerIDs())
}

func TestNodeConfigBadPeers(t *testing.T) {
	nc := &NodeConfig{}
	nc.P2P.PersistentPeers = "10.0.0.1:26656"
	_, err := nc.PersistentPeers()
	require.Error(t, err)
}
