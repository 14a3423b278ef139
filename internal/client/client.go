package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/protocol"
)

// ErrConnectionLost is returned by Run when the server goes away before the
// game ends.
var ErrConnectionLost = errors.New("client: connection lost")

// init alone carries the full food pool, so the library's default read
// limit is too small.
const clientReadLimit = 1 << 20

// Options configures one client session.
type Options struct {
	URL      string
	Nickname string
	// Steering picks the heading each tick. Nil keeps the initial heading.
	Steering      Steering
	FrameInterval time.Duration
	Logger        *slog.Logger
}

// Result describes how a session ended.
type Result struct {
	Score int
	Phase Phase
	Ticks int
}

// Run plays one session: dial, join, then simulate at FrameInterval until
// the avatar starves, ctx is cancelled, or the connection drops. Game over
// and cancellation return a nil error.
func Run(ctx context.Context, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = config.FrameInterval
	}

	conn, _, err := websocket.Dial(ctx, opts.URL, nil)
	if err != nil {
		return Result{Phase: PhaseDisconnected}, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(clientReadLimit)

	game := NewGame(opts.Nickname)
	ticks := 0
	result := func() Result {
		return Result{Score: game.Self().Score, Phase: game.Phase(), Ticks: ticks}
	}

	if err := send(ctx, conn, game.Start()); err != nil {
		game.Disconnect()
		return result(), fmt.Errorf("%w: send join: %v", ErrConnectionLost, err)
	}
	log.Info("joining", "url", opts.URL, "nickname", opts.Nickname)

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	inbox := make(chan protocol.Message, 64)
	readErr := make(chan error, 1)
	go readLoop(readCtx, conn, inbox, readErr, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "shutdown")
			return result(), nil

		case err := <-readErr:
			if ctx.Err() != nil {
				return result(), nil
			}
			game.Disconnect()
			return result(), fmt.Errorf("%w: %v", ErrConnectionLost, err)

		case msg := <-inbox:
			before := game.Phase()
			game.Apply(msg)
			if before == PhaseJoining && game.Phase() == PhaseActive {
				log.Info("joined", "session_id", game.SelfID(), "foods", len(game.Foods()))
			}

		case <-ticker.C:
			if game.Phase() != PhaseActive {
				continue
			}
			if opts.Steering != nil {
				game.SetDirection(opts.Steering.Steer(game))
			}
			res, out := game.Tick()
			ticks++
			if res.GameOver {
				log.Info("game over", "score", res.Score, "ticks", ticks)
				conn.Close(websocket.StatusNormalClosure, "game over")
				return result(), nil
			}
			for _, m := range out {
				if err := send(ctx, conn, m); err != nil {
					if ctx.Err() != nil {
						return result(), nil
					}
					game.Disconnect()
					return result(), fmt.Errorf("%w: send %s: %v", ErrConnectionLost, m.Type(), err)
				}
			}
		}
	}
}

// readLoop only decodes and forwards; the game is touched by Run alone.
func readLoop(ctx context.Context, conn *websocket.Conn, inbox chan<- protocol.Message, errc chan<- error, log *slog.Logger) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			errc <- err
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			log.Debug("dropping bad frame", "err", err)
			continue
		}
		select {
		case inbox <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func send(ctx context.Context, conn *websocket.Conn, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
