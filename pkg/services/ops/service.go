// Package ops exposes operational HTTP endpoints: Prometheus metrics
// and pprof profiling. Both are off unless enabled in config.
package ops

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/config"
)

// Service serves one operational HTTP endpoint.
type Service struct {
	*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string
}

// NewService configures a Service with the given handler.
func NewService(name string, handler http.Handler, cfg config.BasicService, log *zap.Logger) *Service {
	if log == nil {
		return nil
	}
	return &Service{
		Server: &http.Server{
			Addr:    cfg.Addr(),
			Handler: handler,
		},
		config:      cfg,
		log:         log,
		serviceType: name,
	}
}

// Start runs the service on the configured port.
func (ms *Service) Start() {
	if ms.config.Enabled {
		ms.log.Info("service is running", zap.String("endpoint", ms.Addr))
		err := ms.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			ms.log.Warn("service couldn't start on configured port")
		}
	} else {
		ms.log.Info("service hasn't started since it's disabled")
	}
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	if !ms.config.Enabled {
		return
	}
	ms.log.Info("shutting down service", zap.String("endpoint", ms.Addr))
	err := ms.Shutdown(context.Background())
	if err != nil {
		ms.log.Error("can't shut service down", zap.Error(err))
	}
}
