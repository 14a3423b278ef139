package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/sonpython/slether-arena/internal/protocol"
	"github.com/sonpython/slether-arena/internal/world"
)

// GameLoop is the broadcast scheduler: every interval it snapshots the
// player map and pushes it to every session. Ticks are independent; there
// is no catch-up after a slow tick and no delta compression.
type GameLoop struct {
	world    *world.World
	hub      *Hub
	interval time.Duration
	metrics  *Metrics
	log      *slog.Logger
}

// NewGameLoop creates a loop bound to world and hub. Nil metrics fall back
// to the hub's.
func NewGameLoop(w *world.World, hub *Hub, interval time.Duration, metrics *Metrics, log *slog.Logger) *GameLoop {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = hub.metrics
	}
	return &GameLoop{
		world:    w,
		hub:      hub,
		interval: interval,
		metrics:  metrics,
		log:      log,
	}
}

// Run ticks until ctx is cancelled.
func (gl *GameLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(gl.interval)
	defer ticker.Stop()
	gl.log.InfoContext(ctx, "broadcast loop started", "interval", gl.interval)

	for {
		select {
		case <-ctx.Done():
			gl.log.InfoContext(ctx, "broadcast loop stopped")
			return nil
		case <-ticker.C:
			gl.tick(ctx)
		}
	}
}

// tick sends one updatePlayers frame to every session and returns how many
// sessions accepted it.
func (gl *GameLoop) tick(ctx context.Context) int {
	start := time.Now()
	defer func() {
		gl.metrics.broadcastTicks.Inc()
		gl.metrics.broadcastDuration.Observe(time.Since(start).Seconds())
	}()

	players := gl.world.Snapshot()
	data, err := protocol.Encode(protocol.UpdatePlayers{Players: players})
	if err != nil {
		gl.log.ErrorContext(ctx, "encode updatePlayers", "err", err)
		return 0
	}
	return gl.hub.Broadcast(data)
}
