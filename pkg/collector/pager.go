package collector

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	datadog "gopkg.in/zorkian/go-datadog-api.v2"

	"github.com/sagan-monitoring/sagan/pkg/config"
)

// DefaultPagerInterval is the pager tick cadence.
const DefaultPagerInterval = time.Second

type (
	// EventPoster is the Datadog events API slice the pager needs,
	// implemented by *datadog.Client.
	EventPoster interface {
		PostEvent(event *datadog.Event) (*datadog.Event, error)
	}

	// Pager drains pageable conditions from the collector service and
	// forwards them to Datadog as stream events. The "@pagerduty"
	// token in the event text triggers onward delivery on the Datadog
	// side. Per-network rate limiting lives in NetworkState.
	Pager struct {
		svc      *Service
		poster   EventPoster
		interval time.Duration
		hostname string
		env      string
		log      *zap.Logger
	}
)

// NewPager creates a Pager. Without a Datadog API key pages are logged
// and dropped.
func NewPager(cfg *config.Collector, svc *Service, log *zap.Logger) *Pager {
	p := &Pager{
		svc:      svc,
		interval: DefaultPagerInterval,
		log:      log,
	}
	p.hostname, _ = os.Hostname()
	if cfg.Datadog != nil {
		p.env = cfg.Datadog.Env
	}
	if apiKey := cfg.DatadogAPIKey(); apiKey != "" {
		var appKey string
		if cfg.Datadog != nil {
			appKey = cfg.Datadog.AppKey
		}
		p.poster = datadog.NewClient(apiKey, appKey)
	} else {
		log.Warn("no Datadog API key configured, pages will only be logged")
	}
	return p
}

// Run collects and forwards pages until the context is cancelled.
func (p *Pager) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		pages, err := p.svc.PagerEvents(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("can't collect pager events", zap.Error(err))
			continue
		}
		for _, page := range pages {
			p.page(page)
		}
	}
}

func (p *Pager) page(text string) {
	if p.poster == nil {
		p.log.Warn("dropping page", zap.String("page", text))
		return
	}
	tags := []string{"service:sagan"}
	if p.env != "" {
		tags = append(tags, "env:"+p.env)
	}
	event := &datadog.Event{
		Title:     datadog.String("sagan page"),
		Text:      datadog.String("@pagerduty " + text),
		AlertType: datadog.String("error"),
		Priority:  datadog.String("normal"),
		Host:      datadog.String(p.hostname),
		Tags:      tags,
	}
	if _, err := p.poster.PostEvent(event); err != nil {
		p.log.Warn("can't send page to Datadog", zap.Error(err))
		return
	}
	pagesSent.Inc()
	p.log.Info("page sent", zap.String("page", text))
}
