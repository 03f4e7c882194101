package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stocksense/stocksense-go/core"
)

func TestLiveQuotesFetch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub.Type != "subscribe" || sub.Symbol != "AAPL" {
			t.Errorf("subscribe = %+v", sub)
		}

		now := time.Now().Unix()
		ticks := []tickMessage{
			{Symbol: "AAPL", Price: 190.1, Volume: 100, TS: now},
			{Symbol: "TSLA", Price: 180.0, Volume: 50, TS: now}, // other symbol, dropped
			{Symbol: "AAPL", Price: 190.3, Volume: 200, TS: now + 1},
		}
		for _, tick := range ticks {
			payload, _ := json.Marshal(tick)
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
		// Hold the connection open; the connector's listen deadline ends
		// collection.
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	quotes := NewLiveQuotes(LiveQuotesConfig{URL: wsURL, Listen: 200 * time.Millisecond})
	subject := testSubject(t, "AAPL")

	obs, err := quotes.Fetch(context.Background(), subject, testWindow(t, subject, "1d"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	for _, o := range obs {
		if o.Source != core.SourceLiveQuotes {
			t.Errorf("source = %q", o.Source)
		}
		if o.Subject != "AAPL" {
			t.Errorf("subject = %q", o.Subject)
		}
	}
	if price, _ := obs[1].PayloadFloat("price"); price != 190.3 {
		t.Errorf("second tick price = %v, want 190.3", price)
	}
}

func TestLiveQuotesUnreachable(t *testing.T) {
	quotes := NewLiveQuotes(LiveQuotesConfig{URL: "ws://127.0.0.1:1", Listen: 100 * time.Millisecond})
	subject := testSubject(t, "AAPL")

	_, err := quotes.Fetch(context.Background(), subject, testWindow(t, subject, "1d"))
	if err == nil {
		t.Fatal("expected error for unreachable stream")
	}
	if got := core.ConnectorErrorCause(err); got != "Unavailable" {
		t.Errorf("cause = %q, want Unavailable", got)
	}
}
