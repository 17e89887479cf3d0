package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/message"
	"github.com/sagan-monitoring/sagan/pkg/tmrpc"
	"github.com/sagan-monitoring/sagan/pkg/tmrpc/netaddr"
)

// Default monitor cadences.
const (
	// DefaultPollInterval is the node poll cadence.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultFullReportInterval is the interval after which a full
	// report of the current state is forced regardless of changes.
	DefaultFullReportInterval = time.Minute
)

type (
	// StatusClient is the slice of the Tendermint RPC interface the
	// monitor consumes.
	StatusClient interface {
		Status(ctx context.Context) (*tmrpc.Status, error)
		NetInfo(ctx context.Context) (*tmrpc.NetInfo, error)
	}

	// ReportFunc delivers an envelope to the collector.
	ReportFunc func(ctx context.Context, env *message.Envelope) error

	// MonitorConfig contains node monitor parameters.
	MonitorConfig struct {
		Client StatusClient
		Report ReportFunc
		// PersistentPeers come from the node config; their node IDs
		// seed the merged peer list.
		PersistentPeers []netaddr.Address
		// PrivatePeerIDs marks peers that must not be disclosed.
		PrivatePeerIDs []string

		PollInterval       time.Duration
		FullReportInterval time.Duration

		Log *zap.Logger
	}

	// Monitor polls a Tendermint node's /status and /net_info
	// endpoints and reports changes to the collector.
	Monitor struct {
		cfg MonitorConfig
		log *zap.Logger

		chainID string
		nodeID  string

		chain     message.ChainStatus
		node      message.NodeInfo
		validator message.ValidatorInfo
		peers     []message.Peer

		lastFullReport time.Time
	}
)

// NewMonitor creates a Monitor and primes its snapshot with one
// /status and one /net_info call.
func NewMonitor(ctx context.Context, cfg MonitorConfig) (*Monitor, error) {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.FullReportInterval == 0 {
		cfg.FullReportInterval = DefaultFullReportInterval
	}
	m := &Monitor{
		cfg: cfg,
		log: cfg.Log,
		// Make the first tick produce a full report.
		lastFullReport: time.Now().Add(-cfg.FullReportInterval),
	}

	st, err := cfg.Client.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't prime node status: %w", err)
	}
	ni, err := cfg.Client.NetInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't prime net info: %w", err)
	}

	m.chain = chainStatusFromRPC(st.SyncInfo)
	m.node = nodeInfoFromRPC(st.NodeInfo)
	m.validator = validatorInfoFromRPC(st.ValidatorInfo)
	m.peers = m.mergePeers(ni)
	m.chainID = st.NodeInfo.Network
	m.nodeID = st.NodeInfo.ID
	return m, nil
}

// ChainID returns the chain the monitored node belongs to.
func (m *Monitor) ChainID() string { return m.chainID }

// NodeID returns the monitored node's ID.
func (m *Monitor) NodeID() string { return m.nodeID }

// Run polls the node until the context is cancelled. RPC failures end
// the current iteration only; they are logged and the loop goes on.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		msgs, err := m.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Error("error polling node", zap.Error(err))
			continue
		}
		env := message.NewEnvelope(m.chainID, m.nodeID, msgs)
		if env == nil {
			continue
		}
		if err := m.cfg.Report(ctx, env); err != nil {
			m.log.Error("can't report node status", zap.Error(err))
		}
	}
}

// poll collects messages about everything that changed since the last
// poll, or everything at all when a full report is due.
func (m *Monitor) poll(ctx context.Context) ([]message.Message, error) {
	force := m.shouldForce()

	st, err := m.cfg.Client.Status(ctx)
	if err != nil {
		return nil, err
	}
	ni, err := m.cfg.Client.NetInfo(ctx)
	if err != nil {
		return nil, err
	}

	var msgs []message.Message

	chain := chainStatusFromRPC(st.SyncInfo)
	if force || !chain.Equal(m.chain) {
		m.chain = chain
		c := chain
		msgs = append(msgs, message.Message{Chain: &c})
	}

	node := nodeInfoFromRPC(st.NodeInfo)
	if force || node != m.node {
		m.node = node
		n := node
		msgs = append(msgs, message.Message{Node: &n})
	}

	validator := validatorInfoFromRPC(st.ValidatorInfo)
	if force || validator != m.validator {
		m.validator = validator
		v := validator
		msgs = append(msgs, message.Message{Validator: &v})
	}

	peers := m.mergePeers(ni)
	if force || !peersEqual(peers, m.peers) {
		m.peers = peers
		msgs = append(msgs, message.Message{Peers: peers})
	}

	return msgs, nil
}

func (m *Monitor) shouldForce() bool {
	if time.Since(m.lastFullReport) >= m.cfg.FullReportInterval {
		m.lastFullReport = time.Now()
		return true
	}
	return false
}

// mergePeers merges the RPC peer list with the config-declared
// persistent and private peers. Persistent/private flags are
// authoritative from config; connection direction and remote address
// come from RPC. Peers with non-TCP listen addresses are skipped with
// a logged error. The result is ordered by node ID.
func (m *Monitor) mergePeers(ni *tmrpc.NetInfo) []message.Peer {
	peerMap := make(map[string]message.Peer)

	for _, addr := range m.cfg.PersistentPeers {
		if addr.PeerID == "" {
			m.log.Error("persistent peer without node ID", zap.String("addr", addr.String()))
			continue
		}
		peerMap[addr.PeerID] = message.Peer{
			Addr:       addr.String(),
			Connection: message.ConnectionNone,
			Persistent: true,
		}
	}

	for _, rp := range ni.Peers {
		id := rp.NodeInfo.ID
		conn := message.ConnectionIn
		if rp.IsOutbound {
			conn = message.ConnectionOut
		}
		if peer, ok := peerMap[id]; ok {
			peer.Connection = conn
			peerMap[id] = peer
			continue
		}
		listen, err := netaddr.Parse(rp.NodeInfo.ListenAddr)
		if err != nil || listen.Scheme != netaddr.TCP {
			m.log.Error("unsupported peer listen address",
				zap.String("peer", id),
				zap.String("listen_addr", rp.NodeInfo.ListenAddr))
			continue
		}
		addr := netaddr.Address{Scheme: netaddr.TCP, PeerID: id, Host: rp.RemoteIP, Port: listen.Port}
		peerMap[id] = message.Peer{
			Addr:       addr.String(),
			Connection: conn,
		}
	}

	for _, id := range m.cfg.PrivatePeerIDs {
		peer, ok := peerMap[id]
		if !ok {
			// An undisclosed peer we haven't observed yet still gets
			// an entry so the private flag is never lost.
			peer = message.Peer{Connection: message.ConnectionNone}
		}
		peer.Private = true
		peerMap[id] = peer
	}

	ids := make([]string, 0, len(peerMap))
	for id := range peerMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	peers := make([]message.Peer, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, peerMap[id])
	}
	return peers
}

func peersEqual(a, b []message.Peer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func chainStatusFromRPC(si tmrpc.SyncInfo) message.ChainStatus {
	return message.ChainStatus{
		LatestBlockHash:   si.LatestBlockHash,
		LatestAppHash:     si.LatestAppHash,
		LatestBlockHeight: si.LatestBlockHeight,
		LatestBlockTime:   si.LatestBlockTime,
		CatchingUp:        si.CatchingUp,
	}
}

func nodeInfoFromRPC(ni tmrpc.NodeInfo) message.NodeInfo {
	return message.NodeInfo{
		ID:         ni.ID,
		Moniker:    ni.Moniker,
		ListenAddr: ni.ListenAddr,
		Network:    ni.Network,
		Version:    ni.Version,
	}
}

func validatorInfoFromRPC(vi tmrpc.ValidatorInfo) message.ValidatorInfo {
	return message.ValidatorInfo{
		Address:          vi.Address,
		VotingPower:      vi.VotingPower,
		ProposerPriority: vi.ProposerPriority,
	}
}
