package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/events"
	"github.com/sagan-monitoring/sagan/pkg/tmrpc"
)

const (
	// Message limit for the receiving side.
	wsReadLimit = 1024 * 1024

	// Disconnection timeout.
	wsPongLimit = 60 * time.Second

	// Ping period for connection liveness check.
	wsPingPeriod = wsPongLimit / 2

	// Write deadline.
	wsWriteLimit = wsPingPeriod / 2

	// Dial handshake timeout.
	wsDialTimeout = 5 * time.Second

	// Pause before a reconnection attempt.
	reconnectInterval = 500 * time.Millisecond

	// EventQueueSize bounds the listener-to-reporter channel; a full
	// queue blocks the listener, which is the backpressure path.
	EventQueueSize = 100
)

// DefaultEventQueries is the subscription set used when the config
// declares none: all transactions.
var DefaultEventQueries = []string{"tm.event='Tx'"}

type (
	// ListenerConfig contains event listener parameters.
	ListenerConfig struct {
		// URL is the node websocket endpoint (ws://host:port/websocket).
		URL string
		// Queries are the subscription queries re-established after
		// every reconnect.
		Queries []string
		// Out receives decoded event batches.
		Out chan<- []events.Event

		Log *zap.Logger
	}

	// Listener keeps a websocket subscription to a Tendermint node
	// open, decoding pushed IBC events into the outgoing queue. Any
	// transport error leads to a reconnect with the full subscription
	// set re-established; the listener only exits on cancellation.
	Listener struct {
		cfg ListenerConfig
		log *zap.Logger
	}

	// wsNotification is an incoming websocket frame: either a
	// subscription confirmation, an error, or a pushed event.
	wsNotification struct {
		ID     json.RawMessage `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *tmrpc.Error    `json:"error"`
	}
)

// NewListener creates a Listener.
func NewListener(cfg ListenerConfig) *Listener {
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultEventQueries
	}
	return &Listener{cfg: cfg, log: cfg.Log}
}

// Run drives the connect/subscribe/stream/reconnect state machine
// until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := l.connect(ctx)
		if err != nil {
			l.log.Warn("can't connect to node websocket", zap.Error(err))
			if err := sleep(ctx, reconnectInterval); err != nil {
				return err
			}
			continue
		}

		err = l.stream(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("websocket stream interrupted, reconnecting", zap.Error(err))
		if err := sleep(ctx, reconnectInterval); err != nil {
			return err
		}
	}
}

// connect dials the node and re-issues every configured subscription.
func (l *Listener) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsDialTimeout}
	conn, _, err := dialer.DialContext(ctx, l.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(wsReadLimit)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongLimit))
	})

	for _, query := range l.cfg.Queries {
		id, _ := json.Marshal(uuid.New().String())
		req := tmrpc.Request{
			JSONRPC: "2.0",
			ID:      id,
			Method:  "subscribe",
			Params:  map[string]string{"query": query},
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteLimit))
		if err := conn.WriteJSON(req); err != nil {
			conn.Close()
			return nil, err
		}
		l.log.Debug("subscribed", zap.String("query", query))
	}
	return conn, nil
}

// stream reads pushed events until the connection breaks or the
// context is cancelled.
func (l *Listener) stream(ctx context.Context, conn *websocket.Conn) error {
	pingDone := make(chan struct{})
	defer close(pingDone)
	go l.pinger(conn, pingDone)

	for {
		conn.SetReadDeadline(time.Now().Add(wsPongLimit))
		var note wsNotification
		if err := conn.ReadJSON(&note); err != nil {
			return err
		}
		if note.Error != nil {
			l.log.Warn("node reported subscription error", zap.Error(note.Error))
			continue
		}
		if len(note.Result) == 0 {
			continue
		}

		var raw events.RawTxEvent
		if err := json.Unmarshal(note.Result, &raw); err != nil {
			l.log.Debug("undecodable event payload", zap.Error(err))
			continue
		}
		batch := events.GetAllEvents(&raw)
		if len(batch) == 0 {
			continue
		}
		select {
		case l.cfg.Out <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) pinger(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteLimit))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
