package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/protocol"
	"github.com/sonpython/slether-arena/internal/world"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(config.Default(), discardLogger(), world.WithRand(rand.New(rand.NewSource(5))))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().CloseAll()
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + config.WebSocketPath
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func writeMsg(t *testing.T, ws *websocket.Conn, msg protocol.Message) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, protocol.MustEncode(msg)); err != nil {
		t.Fatalf("write %s: %v", msg.Type(), err)
	}
}

// readUntil reads frames until one of type T arrives.
func readUntil[T protocol.Message](t *testing.T, ws *websocket.Conn) T {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			var zero T
			t.Fatalf("waiting for %s: %v", zero.Type(), err)
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if v, ok := msg.(T); ok {
			return v
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketJoinAndEat(t *testing.T) {
	s, ts := newTestServer(t)
	ann := dial(t, ts)
	bob := dial(t, ts)
	waitFor(t, "two sessions", func() bool { return s.Hub().Count() == 2 })

	writeMsg(t, ann, protocol.Join{Nickname: "Ann"})
	state := readUntil[protocol.Init](t, ann)
	if len(state.Foods) != config.MaxFood {
		t.Fatalf("init foods = %d, want %d", len(state.Foods), config.MaxFood)
	}

	writeMsg(t, ann, protocol.EatFood{Index: 12})
	for _, ws := range []*websocket.Conn{ann, bob} {
		up := readUntil[protocol.FoodUpdate](t, ws)
		if up.Index != 12 {
			t.Fatalf("foodUpdate index = %d, want 12", up.Index)
		}
	}
}

func TestWebSocketDisconnectCleansUp(t *testing.T) {
	s, ts := newTestServer(t)
	ann := dial(t, ts)
	bob := dial(t, ts)
	writeMsg(t, ann, protocol.Join{Nickname: "Ann"})
	readUntil[protocol.Init](t, ann)
	var annID string
	for id := range s.World().Snapshot() {
		annID = id
	}

	// abrupt close, no close frame
	ann.UnderlyingConn().Close()

	got := readUntil[protocol.PlayerDisconnected](t, bob)
	if got.ID != annID {
		t.Fatalf("playerDisconnected id = %q, want %q", got.ID, annID)
	}
	waitFor(t, "ann removed", func() bool { return s.World().PlayerCount() == 0 })
	waitFor(t, "session count 1", func() bool { return s.Hub().Count() == 1 })
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("health status = %v", body["status"])
	}

	mresp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer mresp.Body.Close()
	text, _ := io.ReadAll(mresp.Body)
	if !strings.Contains(string(text), "arena_sessions_active") {
		t.Fatalf("metrics output missing arena_sessions_active")
	}
}

func TestServeClosesSessionsOnShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := New(config.Default(), discardLogger(), world.WithRand(rand.New(rand.NewSource(5))))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + config.WebSocketPath
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	writeMsg(t, ws, protocol.Join{Nickname: "Ann"})
	readUntil[protocol.Init](t, ws)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				t.Fatal("session still open after shutdown")
			}
			break
		}
	}
	waitFor(t, "player removed", func() bool { return s.World().PlayerCount() == 0 })

	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("dial succeeded after shutdown")
	}
}
