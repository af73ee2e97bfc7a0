package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testWSConfig() *WSClientConfig {
	return &WSClientConfig{
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 50 * time.Millisecond,
		PingInterval:      time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      time.Second,
		SubscribeTimeout:  time.Second,
	}
}

// serveLogs confirms the subscription and sends one notification per
// connection. When closeAfter is true the connection is dropped afterwards.
func serveLogs(t *testing.T, conns *atomic.Int32, closeAfter bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		n := conns.Add(1)

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("expected logsSubscribe, got %s", req.Method)
		}
		filter, _ := req.Params[0].(map[string]interface{})
		mentions, _ := filter["mentions"].([]interface{})
		if len(mentions) != 1 || mentions[0] != "watched" {
			t.Errorf("unexpected mentions filter: %v", filter)
		}

		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 77}); err != nil {
			return
		}
		notif := wsNotification{
			JSONRPC: "2.0",
			Method:  "logsNotification",
			Params: &wsNotificationParams{
				Subscription: 77,
				Result: wsNotificationResult{
					Context: &wsContext{Slot: 100 + int64(n)},
					Value: wsLogsValue{
						Signature: "sig" + string(rune('0'+n)),
						Logs:      []string{"Program log: swap"},
					},
				},
			},
		}
		if err := c.WriteJSON(notif); err != nil {
			return
		}
		if closeAfter {
			return
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestWSClient_Watch(t *testing.T) {
	var conns atomic.Int32
	server := serveLogs(t, &conns, false)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := NewWSClient(wsURL, testWSConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch := client.Watch(ctx, "watched")

	select {
	case n := <-ch:
		if n.Signature != "sig1" {
			t.Errorf("expected sig1, got %s", n.Signature)
		}
		if n.Slot != 101 {
			t.Errorf("expected slot 101, got %d", n.Slot)
		}
		if len(n.Logs) != 1 {
			t.Errorf("expected 1 log line, got %d", len(n.Logs))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for notification")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWSClient_Reconnect(t *testing.T) {
	var conns atomic.Int32
	server := serveLogs(t, &conns, true)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := NewWSClient(wsURL, testWSConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := client.Watch(ctx, "watched")

	seen := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case n := <-ch:
			seen[n.Signature] = true
		case <-deadline:
			t.Fatalf("expected notifications from two connections, got %v", seen)
		}
	}
	if conns.Load() < 2 {
		t.Errorf("expected at least 2 connections, got %d", conns.Load())
	}
}

func TestParseWSMessage_Error(t *testing.T) {
	msg, err := parseWSMessage([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bad"}}`))
	if err != nil {
		t.Fatalf("parseWSMessage: %v", err)
	}
	if msg.rpcErr == nil || msg.rpcErr.Code != -32602 {
		t.Errorf("expected rpc error -32602, got %+v", msg)
	}

	if _, err := parseWSMessage([]byte(`{"jsonrpc":"2.0","method":"slotNotification"}`)); err == nil {
		t.Error("expected error for unrecognized message")
	}
}
