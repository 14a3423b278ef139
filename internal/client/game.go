package client

import (
	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/protocol"
)

// Phase is the client's lifecycle state.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseJoining
	PhaseActive
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseJoining:
		return "joining"
	case PhaseActive:
		return "active"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Camera is the top-left corner of the viewport in world coordinates.
type Camera struct {
	X, Y float64
}

// TickResult is what one simulation tick produced.
type TickResult struct {
	Camera   Camera
	Speed    float64
	Eaten    []int
	GameOver bool
	Score    int
}

// Game is the per-client simulation state: the local avatar plus the
// mirror of remote players and food received from the server. It is not
// safe for concurrent use; Run drives it from a single goroutine so that
// network messages and ticks are applied in one sequence.
type Game struct {
	nickname string
	selfID   string
	phase    Phase

	self    Snake
	players map[string]protocol.Player
	foods   []protocol.Food
	// pending holds slots already reported as eaten; they are skipped until
	// the server announces their replacement.
	pending     map[int]struct{}
	foodVersion uint64

	viewportW, viewportH float64
}

// NewGame creates a disconnected game for nickname.
func NewGame(nickname string) *Game {
	return &Game{
		nickname:  nickname,
		phase:     PhaseDisconnected,
		self:      NewSnake(config.WorldWidth/2, config.WorldHeight/2),
		players:   make(map[string]protocol.Player),
		pending:   make(map[int]struct{}),
		viewportW: config.ViewportWidth,
		viewportH: config.ViewportHeight,
	}
}

// SetViewport changes the size used for the camera offset.
func (g *Game) SetViewport(w, h float64) {
	g.viewportW, g.viewportH = w, h
}

// Start moves Disconnected to Joining and returns the join message to send.
func (g *Game) Start() protocol.Join {
	if g.phase == PhaseDisconnected {
		g.phase = PhaseJoining
	}
	return protocol.Join{Nickname: g.nickname}
}

// Apply folds one server message into the mirror.
func (g *Game) Apply(msg protocol.Message) {
	if g.phase == PhaseGameOver {
		return
	}
	switch m := msg.(type) {
	case protocol.Init:
		g.players = copyPlayers(m.Players)
		g.foods = append(g.foods[:0], m.Foods...)
		clear(g.pending)
		g.foodVersion++
		g.selfID = m.You
		if p, ok := m.Players[m.You]; ok && m.You != "" {
			g.self.X, g.self.Y = p.X, p.Y
			g.self.Radius = p.Radius
		}
		if g.phase == PhaseJoining {
			g.phase = PhaseActive
		}
	case protocol.UpdatePlayers:
		g.players = copyPlayers(m.Players)
	case protocol.FoodUpdate:
		if m.Index < 0 || m.Index >= len(g.foods) {
			return
		}
		g.foods[m.Index] = m.Food
		delete(g.pending, m.Index)
		g.foodVersion++
	case protocol.PlayerDisconnected:
		delete(g.players, m.ID)
	case protocol.Join, protocol.Update, protocol.EatFood:
		// client-to-server only
	}
}

// Disconnect records a network-level loss. Game over is terminal and is
// kept.
func (g *Game) Disconnect() {
	if g.phase != PhaseGameOver {
		g.phase = PhaseDisconnected
	}
}

// Tick advances the avatar by one frame and returns the messages to send,
// eatFood reports first and then the state update. Outside the Active phase
// it does nothing. The tick that reaches MinSnakeSize returns GameOver and
// moves the game to its terminal phase.
func (g *Game) Tick() (TickResult, []protocol.Message) {
	if g.phase != PhaseActive {
		return TickResult{Score: g.self.Score}, nil
	}
	s := &g.self

	res := TickResult{
		Camera: Camera{X: s.X - g.viewportW/2, Y: s.Y - g.viewportH/2},
		Speed:  Speed(s.Radius),
	}

	s.Move(res.Speed)
	s.ApplyBoundaryPenalty()
	s.ApplyDecay()

	if s.Starved() {
		g.phase = PhaseGameOver
		res.GameOver = true
		res.Score = s.Score
		return res, nil
	}

	var out []protocol.Message
	for i, f := range g.foods {
		if _, ok := g.pending[i]; ok {
			continue
		}
		if s.Touches(f) {
			s.Eat(f)
			g.pending[i] = struct{}{}
			g.foodVersion++
			res.Eaten = append(res.Eaten, i)
			out = append(out, protocol.EatFood{Index: i})
		}
	}

	res.Score = s.Score
	out = append(out, s.Update())
	return res, out
}

// SetDirection is the pointer-input equivalent: it sets the heading only.
func (g *Game) SetDirection(dx, dy float64) {
	g.self.SetDirection(dx, dy)
}

func (g *Game) Phase() Phase { return g.phase }
func (g *Game) Self() Snake { return g.self }
func (g *Game) SelfID() string { return g.selfID }
func (g *Game) Nickname() string { return g.nickname }

// Foods returns the mirrored pool. The slice is owned by the game and must
// not be modified.
func (g *Game) Foods() []protocol.Food { return g.foods }

// FoodVersion changes whenever a slot of the mirror changes or is reported
// eaten.
func (g *Game) FoodVersion() uint64 { return g.foodVersion }

// Pending reports whether slot i was reported eaten and its replacement has
// not arrived yet.
func (g *Game) Pending(i int) bool {
	_, ok := g.pending[i]
	return ok
}

// RemotePlayers returns the mirrored players other than this client.
// Without a session id from the server, players sharing this client's
// nickname are treated as itself.
func (g *Game) RemotePlayers() map[string]protocol.Player {
	out := make(map[string]protocol.Player, len(g.players))
	for id, p := range g.players {
		if g.selfID != "" && id == g.selfID {
			continue
		}
		if g.selfID == "" && p.Nickname == g.nickname {
			continue
		}
		out[id] = p
	}
	return out
}

func copyPlayers(in map[string]protocol.Player) map[string]protocol.Player {
	out := make(map[string]protocol.Player, len(in))
	for id, p := range in {
		out[id] = p
	}
	return out
}
