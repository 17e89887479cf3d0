package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/events"
	"github.com/sagan-monitoring/sagan/pkg/message"
)

const (
	// reportTimeout bounds a single delivery to the collector.
	reportTimeout = 30 * time.Second

	// reportFailurePause is how long the reporter backs off after a
	// failed delivery. The failed message is not retried.
	reportFailurePause = 500 * time.Millisecond
)

type (
	// ReporterConfig contains event reporter parameters.
	ReporterConfig struct {
		// CollectorURL is the collector base URL (http://host:port).
		CollectorURL string
		ChainID      string
		NodeID       string
		// Queue is the listener's outgoing event channel.
		Queue <-chan []events.Event

		Log *zap.Logger
	}

	// Reporter drains decoded event batches and delivers them to the
	// collector, at most once each: a failed delivery is logged and
	// dropped so the listener is never blocked behind a dead
	// collector.
	Reporter struct {
		cfg ReporterConfig
		cli *http.Client
		log *zap.Logger
	}
)

// NewReporter creates a Reporter.
func NewReporter(cfg ReporterConfig) *Reporter {
	return &Reporter{
		cfg: cfg,
		cli: &http.Client{Timeout: reportTimeout},
		log: cfg.Log,
	}
}

// Send delivers a single envelope to the collector.
func (r *Reporter) Send(ctx context.Context, env *message.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("can't serialize envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.CollectorURL+"/collector", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.cli.Do(req)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("report failed: collector replied HTTP %d", resp.StatusCode)
	}
	return nil
}

// Run drains the event queue until the context is cancelled, wrapping
// every event into its own envelope.
func (r *Reporter) Run(ctx context.Context) error {
	for {
		var batch []events.Event
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch = <-r.cfg.Queue:
		}

		for _, ev := range batch {
			env := message.NewEnvelope(r.cfg.ChainID, r.cfg.NodeID, []message.Message{{EventIBC: ev}})
			if env == nil {
				continue
			}
			if err := r.Send(ctx, env); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Warn("dropping event report", zap.Error(err))
				if err := sleep(ctx, reportFailurePause); err != nil {
					return err
				}
			}
		}
	}
}
