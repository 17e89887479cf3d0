// Package message defines the envelope and message types agents report
// to the collector.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sagan-monitoring/sagan/pkg/events"
)

type (
	// ChainStatus is the chain synchronization status of a node.
	// Equality (and therefore change detection on the agent) is
	// defined over exactly these five fields.
	ChainStatus struct {
		LatestBlockHash   string    `json:"latest_block_hash"`
		LatestAppHash     string    `json:"latest_app_hash"`
		LatestBlockHeight int64     `json:"latest_block_height"`
		LatestBlockTime   time.Time `json:"latest_block_time"`
		CatchingUp        bool      `json:"catching_up"`
	}

	// NodeInfo identifies and describes a monitored node.
	NodeInfo struct {
		ID         string `json:"id"`
		Moniker    string `json:"moniker"`
		ListenAddr string `json:"listen_addr"`
		Network    string `json:"network"`
		Version    string `json:"version"`
	}

	// ValidatorInfo describes the node's validator identity.
	ValidatorInfo struct {
		Address          string `json:"address"`
		VotingPower      int64  `json:"voting_power"`
		ProposerPriority int64  `json:"proposer_priority"`
	}

	// ConnectionStatus is the direction of a peer connection.
	ConnectionStatus string

	// Peer is a single peer of the monitored node. The persistent and
	// private flags come from the node config, connection direction
	// and address from the /net_info RPC result.
	Peer struct {
		Addr       string           `json:"addr"`
		Connection ConnectionStatus `json:"connection"`
		Persistent bool             `json:"persistent"`
		Private    bool             `json:"private"`
	}

	// Message is a single tagged report inside an envelope. Exactly one
	// field is set; the wire form is a one-key JSON object keyed by the
	// variant tag ("chain", "node", "validator", "peers", "event_ibc").
	Message struct {
		Chain     *ChainStatus
		Node      *NodeInfo
		Validator *ValidatorInfo
		Peers     []Peer
		EventIBC  events.Event
	}

	// Envelope packages a batch of messages together with the
	// reporting network and node. Envelopes are immutable once built.
	Envelope struct {
		Network string    `json:"network"`
		Node    string    `json:"node"`
		TS      time.Time `json:"ts"`
		Msg     []Message `json:"msg"`
	}
)

// Connection statuses.
const (
	ConnectionOut  ConnectionStatus = "out"
	ConnectionIn   ConnectionStatus = "in"
	ConnectionNone ConnectionStatus = "none"
)

// IsConnected reports whether the peer has a live connection.
func (c ConnectionStatus) IsConnected() bool {
	return c == ConnectionOut || c == ConnectionIn
}

// Equal compares two chain statuses over the five status fields.
func (c ChainStatus) Equal(o ChainStatus) bool {
	return c.LatestBlockHash == o.LatestBlockHash &&
		c.LatestAppHash == o.LatestAppHash &&
		c.LatestBlockHeight == o.LatestBlockHeight &&
		c.LatestBlockTime.Equal(o.LatestBlockTime) &&
		c.CatchingUp == o.CatchingUp
}

// NewEnvelope builds an envelope for the given network and node,
// stamped with the current time. It returns nil when there are no
// messages to report.
func NewEnvelope(network, node string, msgs []Message) *Envelope {
	if len(msgs) == 0 {
		return nil
	}
	return &Envelope{
		Network: network,
		Node:    node,
		TS:      time.Now().UTC(),
		Msg:     msgs,
	}
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	switch {
	case m.Chain != nil:
		return tagged("chain", m.Chain)
	case m.Node != nil:
		return tagged("node", m.Node)
	case m.Validator != nil:
		return tagged("validator", m.Validator)
	case m.Peers != nil:
		return tagged("peers", m.Peers)
	case m.EventIBC != nil:
		raw, err := events.Marshal(m.EventIBC)
		if err != nil {
			return nil, err
		}
		return tagged("event_ibc", json.RawMessage(raw))
	}
	return nil, fmt.Errorf("empty message")
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) != 1 {
		return fmt.Errorf("message must have exactly one tag, got %d", len(fields))
	}
	for tag, raw := range fields {
		switch tag {
		case "chain":
			m.Chain = new(ChainStatus)
			return json.Unmarshal(raw, m.Chain)
		case "node":
			m.Node = new(NodeInfo)
			return json.Unmarshal(raw, m.Node)
		case "validator":
			m.Validator = new(ValidatorInfo)
			return json.Unmarshal(raw, m.Validator)
		case "peers":
			return json.Unmarshal(raw, &m.Peers)
		case "event_ibc":
			ev, err := events.Unmarshal(raw)
			if err != nil {
				return err
			}
			m.EventIBC = ev
			return nil
		default:
			return fmt.Errorf("unknown message tag: %q", tag)
		}
	}
	return nil
}

func tagged(tag string, v interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{tag: v})
}
