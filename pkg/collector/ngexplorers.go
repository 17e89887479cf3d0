package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sagan-monitoring/sagan/pkg/config"
)

// ngExplorersSource names the NgExplorers poller.
const ngExplorersSource = "ngexplorers"

// ngUptimeCount is how many recent blocks the uptime endpoint is asked
// for.
const ngUptimeCount = 100

type (
	// NgExplorersPoller reads per-block signing data from an
	// NgExplorers API host.
	NgExplorersPoller struct {
		client        *http.Client
		host          string
		chainID       string
		validatorAddr string
	}

	// ngBlock is one entry of the uptime endpoint response.
	ngBlock struct {
		Height uint64 `json:"height"`
		Signed bool   `json:"signed"`
	}
)

// NewNgExplorersPoller creates a poller for one network's NgExplorers
// endpoint.
func NewNgExplorersPoller(client *http.Client, net config.TendermintNetwork) *NgExplorersPoller {
	return &NgExplorersPoller{
		client:        client,
		host:          net.NgExplorers.Host,
		chainID:       net.ChainID,
		validatorAddr: net.ValidatorAddr,
	}
}

// Source implements Poller.
func (p *NgExplorersPoller) Source() string { return ngExplorersSource }

// Poll implements Poller. The signed flag is authoritative: missed
// blocks are counted directly instead of being derived from heights.
func (p *NgExplorersPoller) Poll(ctx context.Context) (*PollEvent, error) {
	u := url.URL{
		Scheme:   "https",
		Host:     p.host,
		Path:     fmt.Sprintf("/api/blocks/uptime/%s", p.validatorAddr),
		RawQuery: url.Values{"count": []string{fmt.Sprint(ngUptimeCount)}}.Encode(),
	}
	var blocks []ngBlock
	if err := getJSON(ctx, p.client, u.String(), &blocks); err != nil {
		return nil, fmt.Errorf("can't fetch validator uptime for %s from %s: %w",
			p.validatorAddr, p.host, err)
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	var (
		missed     int
		current    uint64
		lastSigned uint64
	)
	for _, b := range blocks {
		if b.Height > current {
			current = b.Height
		}
		if b.Signed {
			if b.Height > lastSigned {
				lastSigned = b.Height
			}
		} else {
			missed++
		}
	}

	ev := &PollEvent{
		Source:        ngExplorersSource,
		NetworkID:     p.chainID,
		MissedBlocks:  &missed,
		CurrentHeight: &current,
	}
	if lastSigned != 0 {
		ev.LastSignedHeight = &lastSigned
	}
	return ev, nil
}
