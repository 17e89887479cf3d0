package tmrpc

import (
	"encoding/json"
	"fmt"
	"time"
)

type (
	// Status is the result of the /status RPC call.
	Status struct {
		NodeInfo      NodeInfo      `json:"node_info"`
		SyncInfo      SyncInfo      `json:"sync_info"`
		ValidatorInfo ValidatorInfo `json:"validator_info"`
	}

	// NodeInfo describes the node answering the RPC call.
	NodeInfo struct {
		ID         string `json:"id"`
		ListenAddr string `json:"listen_addr"`
		Network    string `json:"network"`
		Version    string `json:"version"`
		Moniker    string `json:"moniker"`
	}

	// SyncInfo is the chain synchronization part of /status.
	SyncInfo struct {
		LatestBlockHash   string    `json:"latest_block_hash"`
		LatestAppHash     string    `json:"latest_app_hash"`
		LatestBlockHeight int64     `json:"latest_block_height,string"`
		LatestBlockTime   time.Time `json:"latest_block_time"`
		CatchingUp        bool      `json:"catching_up"`
	}

	// ValidatorInfo is the validator part of /status.
	ValidatorInfo struct {
		Address          string `json:"address"`
		VotingPower      int64  `json:"voting_power,string"`
		ProposerPriority int64  `json:"proposer_priority,string"`
	}

	// NetInfo is the result of the /net_info RPC call.
	NetInfo struct {
		Listening bool   `json:"listening"`
		NPeers    int    `json:"n_peers,string"`
		Peers     []Peer `json:"peers"`
	}

	// Peer is a single entry of the /net_info peer list.
	Peer struct {
		NodeInfo   NodeInfo `json:"node_info"`
		IsOutbound bool     `json:"is_outbound"`
		RemoteIP   string   `json:"remote_ip"`
	}

	// Request is a JSON-RPC 2.0 request as sent to a Tendermint node.
	Request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  interface{}     `json:"params,omitempty"`
	}

	// Response is a raw JSON-RPC 2.0 response.
	Response struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *Error          `json:"error,omitempty"`
	}

	// Error is a JSON-RPC error object.
	Error struct {
		Code    int64  `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data,omitempty"`
	}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("RPC error %d: %s (%s)", e.Code, e.Message, e.Data)
}
