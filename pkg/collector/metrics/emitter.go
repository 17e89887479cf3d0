// Package metrics translates typed IBC events into tagged StatsD
// counters. Tag values pass through configuration-driven team
// substitution tables so that metric cardinality stays bounded by the
// configuration plus a fixed set of sentinels.
package metrics

import (
	"net"
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/events"
)

const (
	// DefaultPort is the StatsD UDP port.
	DefaultPort = 8125
	// DefaultPrefix prefixes every metric name when none is configured.
	DefaultPrefix = "sagan"
)

// Sentinel tag values used when an event attribute is missing, keeping
// the tag value set closed.
const (
	SentinelSrcChannelMissing = "packet_src_channel_missing"
	SentinelSrcPortMissing    = "packet_src_port_missing"
	SentinelDstChannelMissing = "packet_dst_channel_missing"
	SentinelDstPortMissing    = "packet_dst_port_missing"
	SentinelSenderMissing     = "sender_missing"
	SentinelClientIDMissing   = "client_id_missing"
)

// packetPrefixes are the attribute namespaces that may carry packet
// fields, in lookup order.
var packetPrefixes = []string{"send_packet", "recv_packet", "fungible_token_packet", "write_acknowledgement"}

type (
	// Client is the StatsD client interface the emitter needs,
	// implemented by *statsd.Client.
	Client interface {
		Incr(name string, tags []string, rate float64) error
		Gauge(name string, value float64, tags []string, rate float64) error
	}

	// Config contains emitter parameters for one network.
	Config struct {
		// Statsd is the receiving host ("host" or "host:port").
		Statsd string
		Prefix string
		// Chain tags every metric with the originating chain ID.
		Chain string

		// Substitution tables collapsing on-chain identifiers into
		// team names.
		AddressToTeam map[string]string
		ChannelToTeam map[string]string
		ClientToTeam  map[string]string

		// Client overrides the UDP client; used in tests.
		Client Client

		Log *zap.Logger
	}

	// Emitter sends StatsD metrics for a single network.
	Emitter struct {
		cfg    Config
		client Client
		log    *zap.Logger
	}
)

// New creates an Emitter and emits the collector start gauge.
func New(cfg Config) (*Emitter, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	client := cfg.Client
	if client == nil {
		host := cfg.Statsd
		if _, _, err := net.SplitHostPort(host); err != nil {
			host = net.JoinHostPort(host, strconv.Itoa(DefaultPort))
		}
		c, err := statsd.New(host, statsd.WithNamespace(cfg.Prefix+"."))
		if err != nil {
			return nil, err
		}
		client = c
	}
	e := &Emitter{cfg: cfg, client: client, log: cfg.Log}
	e.gauge("collector.start", float64(time.Now().UnixMilli()), e.chainTags())
	return e, nil
}

// Heartbeat counts one handled envelope for this network.
func (e *Emitter) Heartbeat() {
	e.incr("heartbeat", e.chainTags())
}

// HandleEvent emits the counter for a typed IBC event.
func (e *Emitter) HandleEvent(ev events.Event) {
	switch ev.Kind() {
	case events.KindSendPacketChannel:
		e.packetEvent("packet_send", ev)
	case events.KindRecievePacketChannel:
		e.packetEvent("packet_recieve", ev)
	case events.KindOpaquePacket:
		e.packetEvent("packet_recv_opaque", ev)
	case events.KindPacketTransfer:
		e.packetEvent("ics20_transfer", ev)
	case events.KindCreateClient:
		e.clientEvent("create_client", "create_client", ev)
	case events.KindUpdateClient:
		e.clientEvent("client_update", "update_client", ev)
	case events.KindClientMisbehavior:
		e.clientEvent("client_misbehaviour", "client_misbehaviour", ev)
	case events.KindOpenInitConnection:
		e.connectionEvent("openinit", ev)
	case events.KindOpenTryConnection:
		e.connectionEvent("opentry", ev)
	case events.KindOpenAckConnection:
		e.connectionEvent("openack_event", ev)
	case events.KindOpenConfirmConnection:
		e.connectionEvent("openconfirm", ev)
	default:
		e.log.Debug("no metric for event", zap.String("kind", string(ev.Kind())))
	}
}

func (e *Emitter) packetEvent(metric string, ev events.Event) {
	tags := append(e.chainTags(),
		"sender:"+e.sender(ev),
		"src_channel:"+substitute(e.cfg.ChannelToTeam, packetAttr(ev, "packet_src_channel", SentinelSrcChannelMissing)),
		"src_port:"+packetAttr(ev, "packet_src_port", SentinelSrcPortMissing),
		"dst_channel:"+substitute(e.cfg.ChannelToTeam, packetAttr(ev, "packet_dst_channel", SentinelDstChannelMissing)),
		"dst_port:"+packetAttr(ev, "packet_dst_port", SentinelDstPortMissing),
	)
	e.incr(metric, tags)
}

func (e *Emitter) clientEvent(metric, attrPrefix string, ev events.Event) {
	tags := append(e.chainTags(),
		"sender:"+e.sender(ev),
		"client_id:"+substitute(e.cfg.ClientToTeam, ev.Attrs().GetFirst(attrPrefix+".client_id", SentinelClientIDMissing)),
	)
	e.incr(metric, tags)
}

func (e *Emitter) connectionEvent(metric string, ev events.Event) {
	e.incr(metric, append(e.chainTags(), "sender:"+e.sender(ev)))
}

// sender resolves the message.sender tag value: the first attribute
// value with a team mapping wins, then the first value, then the
// sentinel.
func (e *Emitter) sender(ev events.Event) string {
	values := ev.Attrs()["message.sender"]
	for _, v := range values {
		if team, ok := e.cfg.AddressToTeam[v]; ok {
			return team
		}
	}
	if len(values) > 0 {
		return values[0]
	}
	return SentinelSenderMissing
}

func (e *Emitter) chainTags() []string {
	return []string{"chain:" + e.cfg.Chain}
}

func (e *Emitter) incr(name string, tags []string) {
	if err := e.client.Incr(name, tags, 1); err != nil {
		e.log.Debug("statsd send failed", zap.String("metric", name), zap.Error(err))
	}
}

func (e *Emitter) gauge(name string, value float64, tags []string) {
	if err := e.client.Gauge(name, value, tags, 1); err != nil {
		e.log.Debug("statsd send failed", zap.String("metric", name), zap.Error(err))
	}
}

// packetAttr looks an attribute up under every packet-bearing
// namespace.
func packetAttr(ev events.Event, name, sentinel string) string {
	for _, prefix := range packetPrefixes {
		if v, ok := ev.Attrs().First(prefix + "." + name); ok {
			return v
		}
	}
	return sentinel
}

func substitute(table map[string]string, value string) string {
	if team, ok := table[value]; ok {
		return team
	}
	return value
}
