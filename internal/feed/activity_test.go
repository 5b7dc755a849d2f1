package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func drained(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return false
	default:
		return true
	}
}

// TestHandleMessage tests the wake routing: only activity from a watched
// wallet signals the poll loop, pending signals coalesce, and wakes are
// rate-limited.
func TestHandleMessage(t *testing.T) {
	newFeed := func() *ActivityFeed {
		return NewActivityFeed("wss://example", []string{"0xAAA", "0xbbb"}, 0, testLogger())
	}

	t.Run("watched wallet wakes", func(t *testing.T) {
		f := newFeed()
		f.handleMessage([]byte(`{"topic":"activity","type":"trades","payload":{"proxyWallet":"0xaaa"}}`))
		if drained(f.Wake()) {
			t.Error("expected a wake signal")
		}
	})

	t.Run("wallet case is normalized", func(t *testing.T) {
		f := newFeed()
		f.handleMessage([]byte(`{"payload":{"proxyWallet":"0XBBB"}}`))
		if drained(f.Wake()) {
			t.Error("expected a wake signal")
		}
	})

	t.Run("unwatched wallet is ignored", func(t *testing.T) {
		f := newFeed()
		f.handleMessage([]byte(`{"payload":{"proxyWallet":"0xccc"}}`))
		if !drained(f.Wake()) {
			t.Error("unexpected wake signal")
		}
	})

	t.Run("missing wallet is ignored", func(t *testing.T) {
		f := newFeed()
		f.handleMessage([]byte(`{"topic":"activity","type":"trades","payload":{}}`))
		if !drained(f.Wake()) {
			t.Error("unexpected wake signal")
		}
	})

	t.Run("malformed json is dropped", func(t *testing.T) {
		f := newFeed()
		f.handleMessage([]byte(`{"payload":`))
		if !drained(f.Wake()) {
			t.Error("unexpected wake signal")
		}
	})

	t.Run("signals coalesce while one is pending", func(t *testing.T) {
		f := newFeed()
		msg := []byte(`{"payload":{"proxyWallet":"0xaaa"}}`)
		f.handleMessage(msg)
		f.handleMessage(msg)
		f.handleMessage(msg)

		if drained(f.Wake()) {
			t.Fatal("expected a wake signal")
		}
		if !drained(f.Wake()) {
			t.Error("expected exactly one pending signal")
		}
	})

	t.Run("wakes are rate limited", func(t *testing.T) {
		f := NewActivityFeed("wss://example", []string{"0xaaa"}, time.Hour, testLogger())
		msg := []byte(`{"payload":{"proxyWallet":"0xaaa"}}`)

		f.handleMessage(msg)
		if drained(f.Wake()) {
			t.Fatal("expected the first wake signal")
		}

		f.handleMessage(msg)
		if !drained(f.Wake()) {
			t.Error("wake within the interval should be dropped")
		}
	})
}

// TestListen tests one connection end to end against a local websocket
// server: subscription handshake, wake on watched activity, and shutdown on
// context cancellation.
func TestListen(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan subscribeCommand, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var cmd subscribeCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		received <- cmd

		event := `{"topic":"activity","type":"trades","payload":{"proxyWallet":"0xAAA"}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(event)); err != nil {
			return
		}
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	f := NewActivityFeed(url, []string{"0xaaa"}, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.listen(ctx) }()

	select {
	case cmd := <-received:
		if cmd.Action != "subscribe" {
			t.Errorf("action = %q, want subscribe", cmd.Action)
		}
		if len(cmd.Subscriptions) != 1 || cmd.Subscriptions[0].Topic != "activity" || cmd.Subscriptions[0].Type != "trades" {
			t.Errorf("subscriptions = %+v", cmd.Subscriptions)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the subscription")
	}

	select {
	case <-f.Wake():
	case <-time.After(2 * time.Second):
		t.Fatal("wake signal never arrived")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("listen returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not stop after cancel")
	}
}

// TestListenConnectFailure tests that a refused dial surfaces as an error
// instead of hanging.
func TestListenConnectFailure(t *testing.T) {
	f := NewActivityFeed("ws://127.0.0.1:1/activity", []string{"0xaaa"}, 0, testLogger())

	err := f.listen(context.Background())
	if err == nil || !strings.Contains(err.Error(), "feed: connect") {
		t.Errorf("error = %v, want connect failure", err)
	}
}
