package collector

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/config"
)

// Supervisor wires up and runs the collector: the state service, the
// HTTP router, the pager and the explorer pollers.
type Supervisor struct {
	cfg     *config.Collector
	log     *zap.Logger
	started *atomic.Bool
}

// NewSupervisor creates a collector supervisor from config.
func NewSupervisor(cfg *config.Collector, log *zap.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, log: log, started: atomic.NewBool(false)}
}

// Run starts the collector loops and blocks until the context is
// cancelled or one of them fails fatally.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.started.CAS(false, true) {
		return errors.New("collector already started")
	}

	svc, err := NewService(s.cfg, s.log.Named("service"))
	if err != nil {
		return err
	}
	router := NewRouter(s.cfg.ListenAddr, svc, s.log.Named("http"))
	pager := NewPager(s.cfg, svc, s.log.Named("pager"))

	loops := []func(context.Context) error{svc.Run, router.Serve, pager.Run}
	pollers := NewPollerSet(s.cfg, svc, s.log.Named("poller"))
	if !pollers.Empty() {
		loops = append(loops, pollers.Run)
	}

	s.log.Info("collector starting",
		zap.String("listen", s.cfg.ListenAddr),
		zap.Int("networks", len(s.cfg.Networks.Tendermint)))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(loops))
	for _, loop := range loops {
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
