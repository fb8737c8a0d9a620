package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"covered-call-lab/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestWSFeed_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewWSFeed(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}
	defer feed.Close()

	if feed.closed.Load() {
		t.Error("feed should not be closed")
	}
}

func TestWSFeed_ReceivesFlowFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		// Heartbeat and garbage frames must be skipped, not fatal.
		if err := conn.WriteJSON(map[string]string{"type": "heartbeat"}); err != nil {
			t.Errorf("write heartbeat: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
			t.Errorf("write garbage: %v", err)
			return
		}

		frame := feedFrame{
			Type: "flow",
			Data: &domain.RawActivityRecord{
				Symbol:          "NVDA",
				UnderlyingPrice: 100,
				TradeType:       "sweep",
				OptionType:      "call",
				Strike:          110,
				Contracts:       6000,
				Premium:         1.00,
				Timestamp:       time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC),
			},
		}
		if err := conn.WriteJSON(frame); err != nil {
			t.Errorf("write flow frame: %v", err)
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewWSFeed(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}
	defer feed.Close()

	select {
	case rec := <-feed.Records():
		if rec.Symbol != "NVDA" || rec.Contracts != 6000 {
			t.Errorf("record = %+v", rec)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for flow record")
	}
}

func TestWSFeed_CloseIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewWSFeed(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}

	if err := feed.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := feed.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, ok := <-feed.Records(); ok {
		t.Error("records channel should be closed")
	}
}
