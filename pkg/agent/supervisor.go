// Package agent implements the monitoring process co-located with a
// Tendermint full node: RPC polling, websocket event subscription and
// delivery of both to the central collector.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/config"
	"github.com/sagan-monitoring/sagan/pkg/events"
	"github.com/sagan-monitoring/sagan/pkg/tmrpc"
	"github.com/sagan-monitoring/sagan/pkg/tmrpc/netaddr"
)

// Supervisor wires up and runs the three agent loops: node monitor,
// event listener and event reporter.
type Supervisor struct {
	cfg     *config.Agent
	log     *zap.Logger
	started *atomic.Bool
}

// NewSupervisor creates an agent supervisor from config.
func NewSupervisor(cfg *config.Agent, log *zap.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, log: log, started: atomic.NewBool(false)}
}

// Run starts the agent loops and blocks until the context is cancelled
// or one of them fails fatally.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.started.CAS(false, true) {
		return errors.New("agent already started")
	}

	rpcAddr, err := s.cfg.RPCAddr()
	if err != nil {
		return err
	}
	client, err := tmrpc.New(rpcAddr)
	if err != nil {
		return err
	}
	collectorURL, err := s.cfg.CollectorURL()
	if err != nil {
		return err
	}

	var (
		persistentPeers []netaddr.Address
		privatePeerIDs  []string
	)
	if nodeCfg, err := s.cfg.LoadNodeConfig(); err != nil {
		return err
	} else if nodeCfg != nil {
		if persistentPeers, err = nodeCfg.PersistentPeers(); err != nil {
			return err
		}
		privatePeerIDs = nodeCfg.PrivatePeerIDs()
	}

	queue := make(chan []events.Event, EventQueueSize)

	reporter := NewReporter(ReporterConfig{
		CollectorURL: collectorURL,
		Queue:        queue,
		Log:          s.log.Named("reporter"),
	})

	monitor, err := NewMonitor(ctx, MonitorConfig{
		Client:             client,
		Report:             reporter.Send,
		PersistentPeers:    persistentPeers,
		PrivatePeerIDs:     privatePeerIDs,
		PollInterval:       s.cfg.PollInterval.Or(DefaultPollInterval),
		FullReportInterval: s.cfg.FullReportInterval.Or(DefaultFullReportInterval),
		Log:                s.log.Named("monitor"),
	})
	if err != nil {
		return fmt.Errorf("can't start node monitor: %w", err)
	}
	// The monitored node determines the reporting identity.
	reporter.cfg.ChainID = monitor.ChainID()
	reporter.cfg.NodeID = monitor.NodeID()

	wsURL, err := rpcAddr.WebSocketURL()
	if err != nil {
		return fmt.Errorf("can't listen for node events: %w", err)
	}
	listener := NewListener(ListenerConfig{
		URL:     wsURL,
		Queries: s.cfg.EventQueries,
		Out:     queue,
		Log:     s.log.Named("listener"),
	})

	s.log.Info("agent starting",
		zap.String("chain", monitor.ChainID()),
		zap.String("node", monitor.NodeID()),
		zap.String("collector", collectorURL))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	for _, loop := range []func(context.Context) error{monitor.Run, listener.Run, reporter.Run} {
		loop := loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- loop(runCtx)
		}()
	}

	err = <-errCh
	cancel()
	wg.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
