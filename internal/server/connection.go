package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/sonpython/slether-arena/internal/config"
)

var errConnClosed = errors.New("server: connection closed")

// Conn manages a single WebSocket session. Reads happen on the goroutine
// running Serve; writes are serialized through a bounded send channel
// drained by one writer goroutine.
type Conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	log  *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps ws with a fresh session id.
func NewConn(ws *websocket.Conn, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.Default()
	}
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, config.SendBufferSize),
		log:  log,
		done: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Send enqueues data for the writer. A full buffer drops the frame: every
// server frame is either superseded by the next broadcast or best effort.
func (c *Conn) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close marks the connection closed and unblocks any pending read.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Serve attaches the connection to hub and pumps messages until the peer
// goes away or ctx is cancelled. Cleanup through hub.Detach always runs.
func (c *Conn) Serve(ctx context.Context, hub *Hub) error {
	hub.Attach(c)
	defer func() {
		c.Close()
		hub.Detach(context.WithoutCancel(ctx), c.id)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx, hub) })
	g.Go(func() error { return c.writeLoop(gctx) })
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-c.done:
		}
		c.Close()
		return errConnClosed
	})

	err := g.Wait()
	if errors.Is(err, errConnClosed) || isExpectedClose(err) {
		return nil
	}
	return err
}

func (c *Conn) readLoop(ctx context.Context, hub *Hub) error {
	c.ws.SetReadLimit(config.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(config.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WarnContext(ctx, "ws read error", "session_id", c.id, "err", err)
			}
			return fmt.Errorf("read %s: %w", c.id, err)
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(config.PongWait))
		hub.Handle(ctx, c.id, raw)
	}
}

func (c *Conn) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return errConnClosed
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("write %s: %w", c.id, err)
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping %s: %w", c.id, err)
			}
		}
	}
}

func isExpectedClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}
