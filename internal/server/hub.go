package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sonpython/slether-arena/internal/protocol"
	"github.com/sonpython/slether-arena/internal/world"
)

const tracerName = "github.com/sonpython/slether-arena/internal/server"

// Hub is the session manager: it owns the set of connected peers and turns
// their messages into World mutations and broadcasts.
type Hub struct {
	world   *world.World
	policy  ConsumptionPolicy
	metrics *Metrics
	log     *slog.Logger
	tracer  trace.Tracer

	mu     sync.RWMutex
	peers  map[string]Peer
	closed bool
}

// NewHub creates a hub over w. A nil policy trusts the client; nil metrics
// are registered on a private registry.
func NewHub(w *world.World, policy ConsumptionPolicy, metrics *Metrics, log *slog.Logger) *Hub {
	if policy == nil {
		policy = TrustClient{}
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		world:   w,
		policy:  policy,
		metrics: metrics,
		log:     log,
		tracer:  otel.Tracer(tracerName),
		peers:   make(map[string]Peer),
	}
}

// WithTracerProvider makes the hub record its spans on tp instead of the
// global provider.
func (h *Hub) WithTracerProvider(tp trace.TracerProvider) *Hub {
	h.tracer = tp.Tracer(tracerName)
	return h
}

// Attach registers a freshly connected peer. No player exists until it
// sends join. After CloseAll the peer is closed instead.
func (h *Hub) Attach(p Peer) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		p.Close()
		return
	}
	h.peers[p.ID()] = p
	n := len(h.peers)
	h.mu.Unlock()
	h.metrics.sessions.Set(float64(n))
}

// Detach is the single cleanup path for graceful and abrupt disconnects.
// It removes the peer and its player, if any, and tells everyone still
// connected. Detaching an unknown or already detached id does nothing.
func (h *Hub) Detach(ctx context.Context, id string) {
	ctx, span := h.tracer.Start(ctx, "session.disconnect",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	h.mu.Lock()
	_, attached := h.peers[id]
	delete(h.peers, id)
	n := len(h.peers)
	h.mu.Unlock()
	if !attached {
		return
	}
	h.metrics.sessions.Set(float64(n))

	p, existed := h.world.RemovePlayer(id)
	span.SetAttributes(attribute.Bool("player.existed", existed))
	if existed {
		h.metrics.players.Set(float64(h.world.PlayerCount()))
	}
	h.Broadcast(protocol.MustEncode(protocol.PlayerDisconnected{ID: id}))
	if existed {
		h.log.InfoContext(ctx, "player disconnected", "session_id", id, "nickname", p.Nickname, "score", p.Score)
	} else {
		h.log.DebugContext(ctx, "session left without joining", "session_id", id)
	}
}

// Handle decodes and applies one frame from session id. Bad input is
// dropped; a panic is contained to this message.
func (h *Hub) Handle(ctx context.Context, id string, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.dropped(dropPanic)
			h.log.ErrorContext(ctx, "panic while handling message", "session_id", id, "panic", r)
		}
	}()

	msg, err := protocol.Decode(raw)
	if err != nil {
		h.metrics.dropped(dropMalformed)
		if !errors.Is(err, protocol.ErrEmptyFrame) {
			h.log.DebugContext(ctx, "bad message", "session_id", id, "err", err)
		}
		return
	}
	h.metrics.received(msg.Type())

	switch m := msg.(type) {
	case protocol.Join:
		h.join(ctx, id, m)
	case protocol.Update:
		h.update(id, m)
	case protocol.EatFood:
		h.eatFood(ctx, id, m)
	case protocol.Init, protocol.UpdatePlayers, protocol.FoodUpdate, protocol.PlayerDisconnected:
		h.metrics.dropped(dropWrongDirection)
	}
}

func (h *Hub) join(ctx context.Context, id string, m protocol.Join) {
	ctx, span := h.tracer.Start(ctx, "session.join",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	state := h.world.Join(id, m.Nickname)
	h.metrics.players.Set(float64(h.world.PlayerCount()))
	h.SendTo(id, protocol.MustEncode(protocol.Init{Players: state.Players, Foods: state.Foods, You: id}))
	h.log.InfoContext(ctx, "player joined", "session_id", id, "nickname", state.Player.Nickname)
}

func (h *Hub) update(id string, m protocol.Update) {
	ok := h.world.ApplyUpdate(id, world.PlayerUpdate{
		X:      m.X,
		Y:      m.Y,
		Radius: m.Radius,
		Score:  m.Score,
	})
	if !ok {
		h.metrics.dropped(dropUnknownSession)
	}
}

func (h *Hub) eatFood(ctx context.Context, id string, m protocol.EatFood) {
	ctx, span := h.tracer.Start(ctx, "session.eatFood",
		trace.WithAttributes(attribute.String("session.id", id), attribute.Int("food.index", m.Index)))
	defer span.End()

	eater, ok := h.world.Player(id)
	if !ok {
		h.metrics.dropped(dropUnknownSession)
		return
	}
	if m.Index < 0 || m.Index >= h.world.FoodCount() {
		h.metrics.dropped(dropOutOfRange)
		return
	}
	food, ok := h.world.ReplaceFoodIf(m.Index, func(cur world.Food) bool {
		return h.policy.Allow(eater, cur)
	})
	span.SetAttributes(attribute.Bool("food.accepted", ok))
	if !ok {
		h.metrics.dropped(dropRejected)
		h.log.DebugContext(ctx, "eatFood rejected", "session_id", id, "index", m.Index)
		return
	}
	h.metrics.foodReplaced.Inc()
	h.Broadcast(protocol.MustEncode(protocol.FoodUpdate{Index: m.Index, Food: food}))
}

// SendTo enqueues data for one session.
func (h *Hub) SendTo(id string, data []byte) bool {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !p.Send(data) {
		h.metrics.framesDropped.Inc()
		return false
	}
	return true
}

// Broadcast enqueues data for every connected session and returns how many
// accepted it. It never blocks on a slow peer.
func (h *Hub) Broadcast(data []byte) int {
	sent := 0
	for _, p := range h.Peers() {
		if p.Send(data) {
			sent++
		} else {
			h.metrics.framesDropped.Inc()
		}
	}
	return sent
}

// Peers returns a snapshot of the connected peers.
func (h *Hub) Peers() []Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := make([]Peer, 0, len(h.peers))
	for _, p := range h.peers {
		list = append(list, p)
	}
	return list
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// CloseAll closes every peer and refuses later ones; their read loops then
// run the normal Detach path.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	for _, p := range h.Peers() {
		p.Close()
	}
}
