// Package collector implements the central aggregator: the
// request/response service owning per-network state, the HTTP ingest
// surface, the explorer pollers and the pager.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/collector/metrics"
	"github.com/sagan-monitoring/sagan/pkg/config"
	"github.com/sagan-monitoring/sagan/pkg/message"
)

// requestQueueSize bounds the service request queue; a full queue
// blocks producers, which is the readiness gate.
const requestQueueSize = 20

// ErrUnknownNetwork is returned for requests naming a network the
// collector is not configured for.
var ErrUnknownNetwork = errors.New("unknown network")

// Service is the request/response core of the collector. All network
// states are owned by a single worker goroutine, so they are mutated
// without locks; producers talk to the worker through a bounded
// channel.
type Service struct {
	log      *zap.Logger
	networks map[string]*NetworkState
	requests chan request
	started  *atomic.Bool
}

// NewService builds the per-network state machines from config. A
// duplicate network is a fatal configuration error.
func NewService(cfg *config.Collector, log *zap.Logger) (*Service, error) {
	s := &Service{
		log:      log,
		networks: make(map[string]*NetworkState),
		requests: make(chan request, requestQueueSize),
		started:  atomic.NewBool(false),
	}

	for _, net := range cfg.Networks.Tendermint {
		if _, ok := s.networks[net.ChainID]; ok {
			return nil, fmt.Errorf("duplicate networks in config: %s", net.ChainID)
		}

		emitter, err := metrics.New(metrics.Config{
			Statsd:        cfg.Statsd,
			Prefix:        cfg.MetricsPrefix,
			Chain:         net.ChainID,
			AddressToTeam: cfg.AddressToTeam(),
			ChannelToTeam: cfg.ChannelToTeam(),
			ClientToTeam:  cfg.ClientToTeam(),
			Log:           log.Named("metrics"),
		})
		if err != nil {
			return nil, fmt.Errorf("can't create metrics emitter for %s: %w", net.ChainID, err)
		}

		var eventLog *os.File
		if cfg.EventLogDir != "" {
			path := filepath.Join(cfg.EventLogDir, net.ChainID+".json")
			eventLog, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("can't open event log for %s: %w", net.ChainID, err)
			}
		}

		s.networks[net.ChainID] = NewNetworkState(NetworkStateConfig{
			ID:            net.ChainID,
			Emitter:       emitter,
			EventLog:      eventLog,
			PageThreshold: cfg.Threshold(),
			PageInterval:  cfg.PageInterval.Or(DefaultPageInterval),
			Log:           log.Named("state").With(zap.String("network", net.ChainID)),
		})
	}

	return s, nil
}

// Run processes requests until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if !s.started.CAS(false, true) {
		return errors.New("collector service already started")
	}
	defer func() {
		for _, net := range s.networks {
			if err := net.Close(); err != nil {
				s.log.Warn("can't close network state", zap.String("network", net.ID()), zap.Error(err))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			req.resp <- s.handle(req)
		}
	}
}

// HandleMessage submits an agent envelope. Envelopes for unregistered
// networks are dropped with a warning, not an error.
func (s *Service) HandleMessage(ctx context.Context, env *message.Envelope) error {
	resp, err := s.submit(ctx, request{envelope: env})
	if err != nil {
		return err
	}
	return resp.err
}

// NetworkState returns a snapshot of the given network.
func (s *Service) NetworkState(ctx context.Context, id string) (*Snapshot, error) {
	resp, err := s.submit(ctx, request{networkState: id})
	if err != nil {
		return nil, err
	}
	return resp.snapshot, resp.err
}

// PagerEvents drains pageable conditions across all networks.
func (s *Service) PagerEvents(ctx context.Context) ([]string, error) {
	resp, err := s.submit(ctx, request{pagerEvents: true})
	if err != nil {
		return nil, err
	}
	return resp.pages, resp.err
}

// HandlePollEvent submits an external poller report.
func (s *Service) HandlePollEvent(ctx context.Context, ev *PollEvent) error {
	resp, err := s.submit(ctx, request{pollEvent: ev})
	if err != nil {
		return err
	}
	return resp.err
}

func (s *Service) submit(ctx context.Context, req request) (response, error) {
	req.resp = make(chan response, 1)
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-req.resp:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (s *Service) handle(req request) response {
	switch {
	case req.envelope != nil:
		net, ok := s.networks[req.envelope.Network]
		if !ok {
			s.log.Warn("got message for unregistered network",
				zap.String("network", req.envelope.Network))
			return response{}
		}
		net.HandleMessage(req.envelope)
		return response{}

	case req.networkState != "":
		net, ok := s.networks[req.networkState]
		if !ok {
			return response{err: fmt.Errorf("%w: %s", ErrUnknownNetwork, req.networkState)}
		}
		return response{snapshot: net.Snapshot()}

	case req.pagerEvents:
		ids := make([]string, 0, len(s.networks))
		for id := range s.networks {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		var pages []string
		for _, id := range ids {
			pages = append(pages, s.networks[id].PageEvents()...)
		}
		return response{pages: pages}

	case req.pollEvent != nil:
		net, ok := s.networks[req.pollEvent.NetworkID]
		if !ok {
			s.log.Warn("got poll event for unregistered network",
				zap.String("network", req.pollEvent.NetworkID),
				zap.String("source", req.pollEvent.Source))
			return response{}
		}
		net.HandlePollEvent(req.pollEvent)
		return response{}
	}

	return response{err: errors.New("empty collector request")}
}
