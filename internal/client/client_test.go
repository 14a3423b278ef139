package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/protocol"
	"github.com/sonpython/slether-arena/internal/server"
	"github.com/sonpython/slether-arena/internal/world"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + config.WebSocketPath
}

// fakeServer accepts one session, waits for join and replies with init. It
// then either hangs up or keeps reading until the client leaves.
func fakeServer(t *testing.T, self protocol.Player, hangUp bool) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()

		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		msg, err := protocol.Decode(data)
		if _, ok := msg.(protocol.Join); err != nil || !ok {
			t.Errorf("first frame = %s, want join", data)
			return
		}
		state := protocol.Init{
			Players: map[string]protocol.Player{"me": self},
			Foods:   []protocol.Food{{X: 2900, Y: 2900, Radius: 2, Value: 1}},
			You:     "me",
		}
		if err := c.Write(ctx, websocket.MessageText, protocol.MustEncode(state)); err != nil {
			return
		}
		if hangUp {
			return
		}
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRunAgainstServer(t *testing.T) {
	srv := server.New(config.Default(), quietLogger(), world.WithRand(rand.New(rand.NewSource(11))))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().CloseAll()
		ts.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	res, err := Run(ctx, Options{
		URL:           wsURL(ts),
		Nickname:      "Ann",
		Steering:      NewSeekFood(rand.New(rand.NewSource(2))),
		FrameInterval: 5 * time.Millisecond,
		Logger:        quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Phase != PhaseActive || res.Ticks == 0 {
		t.Fatalf("result = %+v, want an active session that ticked", res)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.World().PlayerCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("player not removed after the client left")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunEndsOnGameOver(t *testing.T) {
	ts := fakeServer(t, protocol.Player{X: 1500, Y: 1500, Radius: config.MinSnakeSize + 0.0004}, false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := Run(ctx, Options{
		URL:           wsURL(ts),
		Nickname:      "Ann",
		FrameInterval: time.Millisecond,
		Logger:        quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Phase != PhaseGameOver || res.Ticks != 1 {
		t.Fatalf("result = %+v, want game over on the first tick", res)
	}
	if ctx.Err() != nil {
		t.Fatal("Run only returned because the context expired")
	}
}

func TestRunReportsConnectionLoss(t *testing.T) {
	ts := fakeServer(t, protocol.Player{X: 1500, Y: 1500, Radius: 50}, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := Run(ctx, Options{
		URL:           wsURL(ts),
		Nickname:      "Ann",
		FrameInterval: time.Millisecond,
		Logger:        quietLogger(),
	})
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("err = %v, want ErrConnectionLost", err)
	}
	if res.Phase != PhaseDisconnected {
		t.Fatalf("phase = %v, want disconnected", res.Phase)
	}
}

func TestRunDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Run(ctx, Options{URL: "ws://127.0.0.1:1/ws", Nickname: "Ann", Logger: quietLogger()})
	if err == nil || errors.Is(err, ErrConnectionLost) {
		t.Fatalf("err = %v, want a dial error", err)
	}
}
