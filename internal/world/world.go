package world

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/protocol"
)

// Player is the server's copy of one session's avatar.
type Player = protocol.Player

// PlayerUpdate is the client-reported part of a Player.
type PlayerUpdate struct {
	X, Y, Radius float64
	Score        int
}

// InitState is the point-in-time view sent to a session right after it joins.
type InitState struct {
	Player  Player
	Players map[string]Player
	Foods   []Food
}

// World holds the authoritative player map and food pool behind one lock.
// Session ids in players are exactly the sessions that have joined and not
// yet disconnected.
type World struct {
	mu      sync.RWMutex
	players map[string]*Player
	food    *FoodPool
	gen     *Generator
}

// Option configures a World.
type Option func(*worldOptions)

type worldOptions struct {
	rng      *rand.Rand
	foodSize int
}

// WithRand makes spawn positions and food deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(o *worldOptions) { o.rng = rng }
}

// WithFoodPoolSize overrides MaxFood.
func WithFoodPoolSize(n int) Option {
	return func(o *worldOptions) { o.foodSize = n }
}

// New initializes the world with a full food pool.
func New(opts ...Option) *World {
	o := worldOptions{foodSize: config.MaxFood}
	for _, opt := range opts {
		opt(&o)
	}
	gen := NewGenerator(o.rng)
	return &World{
		players: make(map[string]*Player),
		food:    NewFoodPool(gen, o.foodSize),
		gen:     gen,
	}
}

// RegisterPlayer creates a player for id at a random position with the
// initial size and zero score. Registering an existing id respawns it.
func (w *World) RegisterPlayer(id, nickname string) Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registerLocked(id, nickname)
}

// Join registers the player and copies the whole world under the same lock,
// so the init frame reflects one consistent instant.
func (w *World) Join(id, nickname string) InitState {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.registerLocked(id, nickname)
	return InitState{
		Player:  p,
		Players: w.snapshotLocked(),
		Foods:   w.food.Copy(),
	}
}

func (w *World) registerLocked(id, nickname string) Player {
	x, y := w.gen.SpawnPoint()
	p := &Player{
		X:        x,
		Y:        y,
		Radius:   config.InitialSnakeSize,
		Nickname: NormalizeNickname(nickname),
		Score:    0,
	}
	w.players[id] = p
	return *p
}

// ApplyUpdate overwrites position, radius and score of id. Unknown ids are
// ignored and reported with false. Values are not validated.
func (w *World) ApplyUpdate(id string, u PlayerUpdate) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return false
	}
	p.X = u.X
	p.Y = u.Y
	p.Radius = u.Radius
	p.Score = u.Score
	return true
}

// RemovePlayer deletes id and returns the removed player.
func (w *World) RemovePlayer(id string) (Player, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	delete(w.players, id)
	return *p, true
}

// Player returns a copy of one player.
func (w *World) Player(id string) (Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Snapshot returns a value copy of every player, safe to serialize while
// sessions keep mutating the world.
func (w *World) Snapshot() map[string]Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *World) snapshotLocked() map[string]Player {
	out := make(map[string]Player, len(w.players))
	for id, p := range w.players {
		out[id] = *p
	}
	return out
}

// PlayerCount returns the number of joined players.
func (w *World) PlayerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.players)
}

// ReplaceFood atomically regenerates slot i. See FoodPool.Replace.
func (w *World) ReplaceFood(i int) (Food, bool) {
	return w.ReplaceFoodIf(i, nil)
}

// ReplaceFoodIf regenerates slot i only if allow accepts the particle
// currently in it. allow runs under the world lock; nil accepts everything.
func (w *World) ReplaceFoodIf(i int, allow func(Food) bool) (Food, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if allow != nil {
		cur, ok := w.food.Get(i)
		if !ok || !allow(cur) {
			return Food{}, false
		}
	}
	return w.food.Replace(i)
}

// Food returns the particle in slot i.
func (w *World) Food(i int) (Food, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.food.Get(i)
}

// Foods returns a copy of the whole pool in slot order.
func (w *World) Foods() []Food {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.food.Copy()
}

// FoodCount returns the pool size.
func (w *World) FoodCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.food.Len()
}

// NormalizeNickname trims name, falls back to DefaultNickname when empty and
// caps the length in runes.
func NormalizeNickname(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return config.DefaultNickname
	}
	if r := []rune(name); len(r) > config.MaxNicknameLength {
		name = string(r[:config.MaxNicknameLength])
	}
	return name
}
