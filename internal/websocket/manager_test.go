package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fieldops-server/internal/config"
	"fieldops-server/internal/domain"
	"fieldops-server/internal/logging"

	"github.com/gorilla/websocket"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		MaxMessageSize: 4096,
		WriteWait:      time.Second,
		PongWait:       10 * time.Second,
		PingPeriod:     9 * time.Second,
		MaxConnPerUser: 5,
	}
}

func startServer(t *testing.T, m *Manager) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		q := r.URL.Query()
		client := NewClient(q.Get("id"), q.Get("user"), q.Get("origin"), conn, m)
		if !m.Add(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, m *Manager, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", m.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManager_BroadcastSkipsOrigin(t *testing.T) {
	m := NewManager(testConfig(), logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	srv := startServer(t, m)
	sender := dial(t, srv, "id=c1&user=u1&origin=tab-a")
	receiver := dial(t, srv, "id=c2&user=u2&origin=tab-b")
	waitForClients(t, m, 2)

	msg, err := NewMessage(TypeDayUpdate, &DayUpdatePayload{
		Day:    &domain.CalendarDay{ID: "d1", Day: "2025-03-10", Version: 2},
		Origin: "tab-a",
	})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if err := m.Broadcast(msg, "tab-a"); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	receiver.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := receiver.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Type != TypeDayUpdate {
		t.Errorf("type = %s, want %s", got.Type, TypeDayUpdate)
	}
	var payload DayUpdatePayload
	if err := got.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload() error = %v", err)
	}
	if payload.Day.ID != "d1" || payload.Day.Version != 2 {
		t.Errorf("payload = %+v", payload.Day)
	}

	sender.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := sender.ReadMessage(); err == nil {
		t.Error("origin client should not receive its own change")
	}
}

func TestManager_MaxConnectionsPerUser(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConnPerUser = 1
	m := NewManager(cfg, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	srv := startServer(t, m)
	dial(t, srv, "id=c1&user=u1")
	waitForClients(t, m, 1)

	second := dial(t, srv, "id=c2&user=u1")
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Error("expected the second connection to be closed")
	}
	if got := m.GetUserConnections("u1"); got != 1 {
		t.Errorf("connections = %d, want 1", got)
	}
}

func TestManager_AddAfterStop(t *testing.T) {
	m := NewManager(testConfig(), logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	if m.Add(&Client{ID: "late", Send: make(chan []byte, 1)}) {
		t.Error("Add() should fail once the manager stopped")
	}
}
