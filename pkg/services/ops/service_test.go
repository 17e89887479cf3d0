package ops

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sagan-monitoring/sagan/pkg/config"
)

func TestNewServices(t *testing.T) {
	cfg := config.BasicService{Enabled: true, Address: "127.0.0.1", Port: 9090}

	prom := NewPrometheusService(cfg, zaptest.NewLogger(t))
	require.NotNil(t, prom)
	require.Equal(t, "127.0.0.1:9090", prom.Addr)

	pprof := NewPprofService(cfg, zaptest.NewLogger(t))
	require.NotNil(t, pprof)
	require.Equal(t, "127.0.0.1:9090", pprof.Addr)

	require.Nil(t, NewService("X", nil, cfg, nil))
}

func TestDisabledServiceShutdown(t *testing.T) {
	cfg := config.BasicService{Enabled: false, Address: "127.0.0.1", Port: 9090}
	svc := NewPrometheusService(cfg, zaptest.NewLogger(t))
	// ShutDown on a disabled (never started) service is a no-op.
	svc.ShutDown()
}
