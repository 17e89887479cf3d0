// Package start implements the start command running the configured
// sagan roles.
package start

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/cli/options"
	"github.com/sagan-monitoring/sagan/pkg/agent"
	"github.com/sagan-monitoring/sagan/pkg/collector"
	"github.com/sagan-monitoring/sagan/pkg/config"
	"github.com/sagan-monitoring/sagan/pkg/services/ops"
)

// NewCommands returns the start command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:   "start",
		Usage:  "start the configured agent and collector roles",
		Action: startApp,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config, c",
				Usage: "path to the configuration file",
				Value: config.DefaultPath,
			},
			cli.BoolFlag{
				Name:  options.Verbose,
				Usage: "enable debug logging",
			},
		},
	}}
}

func startApp(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, err := options.HandleLoggingParams(ctx.Bool("verbose"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var loops []func(context.Context) error
	if cfg.Agent != nil {
		loops = append(loops, agent.NewSupervisor(cfg.Agent, log.Named("agent")).Run)
	}
	if cfg.Collector != nil {
		loops = append(loops, collector.NewSupervisor(cfg.Collector, log.Named("collector")).Run)

		if cfg.Collector.Prometheus != nil {
			prometheus := ops.NewPrometheusService(*cfg.Collector.Prometheus, log.Named("prometheus"))
			go prometheus.Start()
			defer prometheus.ShutDown()
		}
		if cfg.Collector.Pprof != nil {
			pprof := ops.NewPprofService(*cfg.Collector.Pprof, log.Named("pprof"))
			go pprof.Start()
			defer pprof.ShutDown()
		}
	}

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
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutting down after failure", zap.Error(err))
		return cli.NewExitError(err, 1)
	}
	log.Info("shutdown complete")
	return nil
}
