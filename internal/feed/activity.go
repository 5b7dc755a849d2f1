// Package feed provides an optional websocket listener that wakes the poll
// loop early when a watched wallet shows fresh activity, instead of waiting
// out the full poll interval.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// subscribeCommand is the live-data subscription envelope.
type subscribeCommand struct {
	Action        string         `json:"action"`
	Subscriptions []subscription `json:"subscriptions"`
}

type subscription struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

// activityMessage is the subset of the trade activity event the feed cares
// about.
type activityMessage struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Payload struct {
		ProxyWallet string `json:"proxyWallet"`
	} `json:"payload"`
}

// ActivityFeed subscribes to the public trade activity stream and signals
// the wake channel whenever one of the watched addresses appears. The signal
// carries no data; the poll cycle still decides what is new.
type ActivityFeed struct {
	url     string
	watched map[string]struct{}
	wake    chan struct{}
	logger  *slog.Logger

	// minWake rate-limits wake signals; lastWake is only touched from the
	// read loop.
	minWake  time.Duration
	lastWake time.Time
}

// NewActivityFeed creates a feed watching the given addresses. Wake signals
// are emitted at most once per minWakeInterval; zero disables the limit.
func NewActivityFeed(url string, addresses []string, minWakeInterval time.Duration, logger *slog.Logger) *ActivityFeed {
	watched := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		watched[domain.NormalizeAddress(a)] = struct{}{}
	}
	return &ActivityFeed{
		url:     url,
		watched: watched,
		wake:    make(chan struct{}, 1),
		minWake: minWakeInterval,
		logger:  logger.With(slog.String("component", "activity_feed")),
	}
}

// Wake returns the signal channel. The channel has a buffer of one; signals
// arriving while a wake is already pending are dropped.
func (f *ActivityFeed) Wake() <-chan struct{} {
	return f.wake
}

// Run connects and listens until ctx is cancelled, reconnecting with capped
// exponential backoff on disconnect.
func (f *ActivityFeed) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		err := f.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("activity feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// listen runs one connection: dial, subscribe, then read until the
// connection drops or ctx is cancelled.
func (f *ActivityFeed) listen(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("feed: connect %s: %w", f.url, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the context is cancelled. Closing the
	// connection rather than writing a close frame keeps pingLoop the only
	// writer.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if err := f.subscribe(conn); err != nil {
		return err
	}
	f.logger.Info("activity feed subscribed", slog.Int("addresses", len(f.watched)))

	// From here on pingLoop is the only writer.
	go f.pingLoop(conn, stop)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleMessage(raw)
	}
}

// subscribe requests the trade activity topic.
func (f *ActivityFeed) subscribe(conn *websocket.Conn) error {
	cmd := subscribeCommand{
		Action:        "subscribe",
		Subscriptions: []subscription{{Topic: "activity", Type: "trades"}},
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("feed: marshal subscribe: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	return nil
}

// pingLoop sends periodic ping messages to keep the connection alive.
func (f *ActivityFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage signals a wake when the event's wallet is watched and the
// last wake is at least minWake ago. Unparseable messages are silently
// dropped.
func (f *ActivityFeed) handleMessage(raw []byte) {
	var msg activityMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	wallet := domain.NormalizeAddress(msg.Payload.ProxyWallet)
	if wallet == "" {
		return
	}
	if _, ok := f.watched[wallet]; !ok {
		return
	}

	now := time.Now()
	if f.minWake > 0 && !f.lastWake.IsZero() && now.Sub(f.lastWake) < f.minWake {
		return
	}

	select {
	case f.wake <- struct{}{}:
		f.lastWake = now
	default:
	}
}
