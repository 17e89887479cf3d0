package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring the collector itself.
var (
	envelopesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of envelopes accepted on POST /collector",
			Name:      "envelopes_received",
			Namespace: "sagan",
		},
	)
	envelopesRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of envelopes rejected on POST /collector",
			Name:      "envelopes_rejected",
			Namespace: "sagan",
		},
	)
	pagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of pages forwarded to the alert sink",
			Name:      "pages_sent",
			Namespace: "sagan",
		},
	)
)

func init() {
	prometheus.MustRegister(
		envelopesReceived,
		envelopesRejected,
		pagesSent,
	)
}
