package collector

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/config"
)

// DefaultPollInterval is the explorer polling cadence.
const DefaultPollInterval = time.Minute

// pollRequestTimeout bounds a single explorer HTTP request.
const pollRequestTimeout = 30 * time.Second

type (
	// Poller fetches validator signing data from an external source.
	Poller interface {
		// Source names the poller for logs and page texts.
		Source() string
		// Poll fetches a report. A nil event with a nil error means the
		// source had nothing usable this round.
		Poll(ctx context.Context) (*PollEvent, error)
	}

	// PollerSet runs the configured explorer pollers on a shared ticker
	// and feeds their reports to the collector service. A failing
	// poller is logged and retried next tick, it never stops the set.
	PollerSet struct {
		svc      *Service
		pollers  []Poller
		interval time.Duration
		log      *zap.Logger
	}
)

// NewPollerSet builds pollers for every network with explorer endpoints
// configured.
func NewPollerSet(cfg *config.Collector, svc *Service, log *zap.Logger) *PollerSet {
	ps := &PollerSet{
		svc:      svc,
		interval: cfg.PollInterval.Or(DefaultPollInterval),
		log:      log,
	}
	client := &http.Client{Timeout: pollRequestTimeout}
	for _, net := range cfg.Networks.Tendermint {
		if net.ValidatorAddr == "" {
			continue
		}
		if net.Mintscan != nil {
			ps.pollers = append(ps.pollers, NewMintscanPoller(client, net))
		}
		if net.NgExplorers != nil {
			ps.pollers = append(ps.pollers, NewNgExplorersPoller(client, net))
		}
	}
	return ps
}

// Empty reports whether the set has no pollers configured.
func (ps *PollerSet) Empty() bool { return len(ps.pollers) == 0 }

// Run polls until the context is cancelled.
func (ps *PollerSet) Run(ctx context.Context) error {
	ticker := time.NewTicker(ps.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		ps.pollAll(ctx)
	}
}

func (ps *PollerSet) pollAll(ctx context.Context) {
	for _, p := range ps.pollers {
		ev, err := p.Poll(ctx)
		if err != nil {
			ps.log.Warn("explorer poll failed",
				zap.String("source", p.Source()),
				zap.Error(err))
			continue
		}
		if ev == nil {
			continue
		}
		if err := ps.svc.HandlePollEvent(ctx, ev); err != nil {
			ps.log.Warn("can't submit poll event",
				zap.String("source", p.Source()),
				zap.Error(err))
		}
	}
}
