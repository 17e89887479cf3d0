// Package tmrpc implements the thin slice of the Tendermint RPC
// interface consumed by the monitoring agent: the /status and /net_info
// endpoints over HTTP JSON-RPC.
package tmrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sagan-monitoring/sagan/pkg/tmrpc/netaddr"
)

// defaultRequestTimeout bounds a single RPC round-trip.
const defaultRequestTimeout = 10 * time.Second

// Client talks JSON-RPC 2.0 to a single Tendermint node.
type Client struct {
	endpoint string
	cli      *http.Client
	reqID    uint64
}

// New creates a Client bound to the given RPC listen address. Both tcp
// and unix addresses are supported.
func New(addr netaddr.Address) (*Client, error) {
	cli := &http.Client{Timeout: defaultRequestTimeout}

	switch addr.Scheme {
	case netaddr.TCP:
		u, err := addr.HTTPURL()
		if err != nil {
			return nil, err
		}
		return &Client{endpoint: u, cli: cli}, nil
	case netaddr.Unix:
		path := addr.Path
		cli.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		}
		return &Client{endpoint: "http://localhost", cli: cli}, nil
	default:
		return nil, fmt.Errorf("unsupported RPC address scheme: %s", addr.Scheme)
	}
}

// Status calls the /status endpoint.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.call(ctx, "status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// NetInfo calls the /net_info endpoint.
func (c *Client) NetInfo(ctx context.Context) (*NetInfo, error) {
	var ni NetInfo
	if err := c.call(ctx, "net_info", &ni); err != nil {
		return nil, err
	}
	return &ni, nil
}

func (c *Client) call(ctx context.Context, method string, result interface{}) error {
	c.reqID++
	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(fmt.Sprintf("%d", c.reqID)),
		Method:  method,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cli.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s request failed: HTTP %d", method, resp.StatusCode)
	}

	var raw Response
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("can't decode %s response: %w", method, err)
	}
	if raw.Error != nil {
		return raw.Error
	}
	if err := json.Unmarshal(raw.Result, result); err != nil {
		return fmt.Errorf("can't decode %s result: %w", method, err)
	}
	return nil
}
