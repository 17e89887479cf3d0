package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sagan-monitoring/sagan/pkg/config"
)

// mintscanSource names the Mintscan poller.
const mintscanSource = "mintscan"

type (
	// MintscanPoller reads validator uptime from a Mintscan API host.
	MintscanPoller struct {
		client        *http.Client
		host          string
		network       string
		chainID       string
		validatorAddr string
	}

	// mintscanUptime is the response of the validator uptime endpoint.
	// The uptime array holds one entry per recently missed block.
	mintscanUptime struct {
		LatestHeight uint64 `json:"latest_height"`
		Uptime       []struct {
			Height uint64 `json:"height"`
		} `json:"uptime"`
	}
)

// NewMintscanPoller creates a poller for one network's Mintscan
// endpoint.
func NewMintscanPoller(client *http.Client, net config.TendermintNetwork) *MintscanPoller {
	return &MintscanPoller{
		client:        client,
		host:          net.Mintscan.Host,
		network:       net.Mintscan.Network,
		chainID:       net.ChainID,
		validatorAddr: net.ValidatorAddr,
	}
}

// Source implements Poller.
func (p *MintscanPoller) Source() string { return mintscanSource }

// Poll implements Poller. The length of the uptime array is the missed
// block count for the recent signing window.
func (p *MintscanPoller) Poll(ctx context.Context) (*PollEvent, error) {
	u := url.URL{
		Scheme: "https",
		Host:   p.host,
		Path:   fmt.Sprintf("/v1/statistics/validator/uptime/%s/%s", p.network, p.validatorAddr),
	}
	var uptime mintscanUptime
	if err := getJSON(ctx, p.client, u.String(), &uptime); err != nil {
		return nil, fmt.Errorf("can't fetch validator uptime for %s from %s: %w",
			p.validatorAddr, p.host, err)
	}

	missed := len(uptime.Uptime)
	ev := &PollEvent{
		Source:       mintscanSource,
		NetworkID:    p.chainID,
		MissedBlocks: &missed,
	}
	if uptime.LatestHeight != 0 {
		h := uptime.LatestHeight
		ev.CurrentHeight = &h
	}
	return ev, nil
}

// getJSON performs a GET request and decodes a JSON response body.
func getJSON(ctx context.Context, client *http.Client, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}
