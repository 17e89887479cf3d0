package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/collector/metrics"
	"github.com/sagan-monitoring/sagan/pkg/message"
)

// DefaultPageInterval is the per-network page suppression window.
const DefaultPageInterval = 10 * time.Minute

type (
	// Node is a network node as observed through agent reports. Nodes
	// are created on first observation and never evicted.
	Node struct {
		ID        string    `json:"id"`
		Moniker   string    `json:"moniker"`
		FirstSeen time.Time `json:"first_seen"`
		LastSeen  time.Time `json:"last_seen"`
	}

	// Snapshot is the read-only view of a network state served over
	// HTTP.
	Snapshot struct {
		Nodes      []Node                 `json:"nodes"`
		Peers      []message.Peer         `json:"peers"`
		Chain      *message.ChainStatus   `json:"chain"`
		Validators *message.ValidatorInfo `json:"validators"`
	}

	// NetworkStateConfig contains per-network state parameters.
	NetworkStateConfig struct {
		ID      string
		Emitter *metrics.Emitter
		// EventLog receives line-delimited JSON copies of every
		// envelope carrying an IBC event; may be nil.
		EventLog io.WriteCloser

		PageThreshold int
		PageInterval  time.Duration

		Log *zap.Logger
		// Now overrides the clock; used in tests.
		Now func() time.Time
	}

	// NetworkState is the in-memory state machine for one network. It
	// is owned by the collector service worker: only the worker calls
	// its methods, so no locking happens here.
	NetworkState struct {
		id         string
		nodes      map[string]*Node
		peers      []message.Peer
		chain      *message.ChainStatus
		validators *message.ValidatorInfo

		pendingPages []string
		lastPagedAt  time.Time

		emitter       *metrics.Emitter
		eventLog      io.WriteCloser
		pageThreshold int
		pageInterval  time.Duration
		now           func() time.Time
		log           *zap.Logger
	}
)

// NewNetworkState creates the state machine for one network.
func NewNetworkState(cfg NetworkStateConfig) *NetworkState {
	if cfg.PageInterval == 0 {
		cfg.PageInterval = DefaultPageInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &NetworkState{
		id:            cfg.ID,
		nodes:         make(map[string]*Node),
		emitter:       cfg.Emitter,
		eventLog:      cfg.EventLog,
		pageThreshold: cfg.PageThreshold,
		pageInterval:  cfg.PageInterval,
		now:           cfg.Now,
		log:           cfg.Log,
	}
}

// ID returns the network's chain ID.
func (n *NetworkState) ID() string { return n.id }

// HandleMessage absorbs an envelope's messages in order. Envelopes
// addressed to a different network are ignored.
func (n *NetworkState) HandleMessage(env *message.Envelope) {
	if env.Network != n.id {
		return
	}
	for i := range env.Msg {
		msg := &env.Msg[i]
		switch {
		case msg.Node != nil:
			n.updateNode(msg.Node)
		case msg.Peers != nil:
			n.log.Debug("peers update", zap.Int("count", len(msg.Peers)))
			n.peers = msg.Peers
		case msg.Chain != nil:
			n.updateChain(msg.Chain)
		case msg.Validator != nil:
			n.log.Debug("validator update", zap.String("address", msg.Validator.Address))
			v := *msg.Validator
			n.validators = &v
		case msg.EventIBC != nil:
			n.emitter.HandleEvent(msg.EventIBC)
			n.appendEventLog(env)
		}
	}
	n.emitter.Heartbeat()
}

func (n *NetworkState) updateNode(info *message.NodeInfo) {
	n.log.Debug("node status update",
		zap.String("node", info.ID),
		zap.String("moniker", info.Moniker))

	now := n.now()
	if node, ok := n.nodes[info.ID]; ok {
		node.Moniker = info.Moniker
		if now.After(node.LastSeen) {
			node.LastSeen = now
		}
		return
	}
	n.nodes[info.ID] = &Node{
		ID:        info.ID,
		Moniker:   info.Moniker,
		FirstSeen: now,
		LastSeen:  now,
	}
}

func (n *NetworkState) updateChain(status *message.ChainStatus) {
	if n.chain != nil && n.chain.Equal(*status) {
		return
	}
	n.log.Debug("chain status update", zap.Int64("height", status.LatestBlockHeight))
	c := *status
	n.chain = &c
}

func (n *NetworkState) appendEventLog(env *message.Envelope) {
	if n.eventLog == nil {
		return
	}
	line, err := json.Marshal(env)
	if err != nil {
		n.log.Warn("can't serialize envelope for event log", zap.Error(err))
		return
	}
	if _, err := n.eventLog.Write(append(line, '\n')); err != nil {
		n.log.Warn("event log write failed", zap.Error(err))
	}
}

// HandlePollEvent checks explorer data against the page threshold and
// queues a page when the validator fell too far behind.
func (n *NetworkState) HandlePollEvent(ev *PollEvent) {
	missed, ok := missedBlocks(ev)
	if !ok {
		return
	}
	if missed <= n.pageThreshold {
		return
	}
	page := fmt.Sprintf("network %s: validator missed %d blocks (source: %s, threshold: %d)",
		n.id, missed, ev.Source, n.pageThreshold)
	n.log.Warn("pageable condition",
		zap.String("source", ev.Source),
		zap.Int("missed_blocks", missed))
	n.pendingPages = append(n.pendingPages, page)
}

// PageEvents drains the pending pages. Within the suppression window
// after the last emission it returns nothing; pages raised during the
// window are dropped, not queued for later.
func (n *NetworkState) PageEvents() []string {
	if len(n.pendingPages) == 0 {
		return nil
	}
	pages := n.pendingPages
	n.pendingPages = nil

	now := n.now()
	if !n.lastPagedAt.IsZero() && now.Sub(n.lastPagedAt) < n.pageInterval {
		n.log.Debug("pages suppressed", zap.Int("count", len(pages)))
		return nil
	}
	n.lastPagedAt = now
	return pages
}

// Snapshot clones the externally visible state. Nodes are ordered by
// ID.
func (n *NetworkState) Snapshot() *Snapshot {
	snap := &Snapshot{
		Nodes: make([]Node, 0, len(n.nodes)),
		Peers: append([]message.Peer(nil), n.peers...),
	}
	for _, node := range n.nodes {
		snap.Nodes = append(snap.Nodes, *node)
	}
	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].ID < snap.Nodes[j].ID })
	if n.chain != nil {
		c := *n.chain
		snap.Chain = &c
	}
	if n.validators != nil {
		v := *n.validators
		snap.Validators = &v
	}
	return snap
}

// Close releases the event log.
func (n *NetworkState) Close() error {
	if n.eventLog == nil {
		return nil
	}
	return n.eventLog.Close()
}

// missedBlocks extracts the missed block count from a poll event,
// deriving it from the chain tip and last signed height when the
// source didn't report it directly.
func missedBlocks(ev *PollEvent) (int, bool) {
	if ev.MissedBlocks != nil {
		return *ev.MissedBlocks, true
	}
	if ev.CurrentHeight != nil && ev.LastSignedHeight != nil && *ev.CurrentHeight > *ev.LastSignedHeight {
		return int(*ev.CurrentHeight - *ev.LastSignedHeight), true
	}
	return 0, false
}
