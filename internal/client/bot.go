package client

import (
	"math"
	"math/rand"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/protocol"
)

// Bot tuning
const (
	BotBoundaryBuffer = 150.0 // start steering home this far from an edge
	BotFoodSeekRadius = 400.0
	BotGridCellSize   = 200.0
	botSeekGiveUp     = 120 // ticks chasing the same target before breaking off
)

// Steering chooses a heading for the next tick. It stands in for pointer
// input; implementations only read the game.
type Steering interface {
	Steer(g *Game) (dx, dy float64)
}

// SteeringFunc adapts a function to Steering.
type SteeringFunc func(g *Game) (dx, dy float64)

func (f SteeringFunc) Steer(g *Game) (float64, float64) { return f(g) }

// SeekFood is a simple autopilot: stay inside the world, head for the
// nearest food in range, otherwise wander. It is not safe for concurrent
// use.
type SeekFood struct {
	rng  *rand.Rand
	grid *SpatialGrid

	gridVersion uint64
	gridBuilt   bool

	targetAngle float64
	wanderTicks int
	seekTicks   int
	lastScore   int
}

// NewSeekFood returns the autopilot. A nil rng is seeded from the clock.
func NewSeekFood(rng *rand.Rand) *SeekFood {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &SeekFood{
		rng:  rng,
		grid: NewSpatialGrid(BotGridCellSize),
	}
}

// Steer applies boundary avoidance first, then food seeking, then wander.
func (b *SeekFood) Steer(g *Game) (float64, float64) {
	s := g.Self()

	// --- Priority 1: Boundary avoidance ---
	if s.X < BotBoundaryBuffer || s.X > config.WorldWidth-BotBoundaryBuffer ||
		s.Y < BotBoundaryBuffer || s.Y > config.WorldHeight-BotBoundaryBuffer {
		b.targetAngle = math.Atan2(config.WorldHeight/2-s.Y, config.WorldWidth/2-s.X)
		b.wanderTicks = b.randomWanderDuration()
		return b.heading()
	}

	// --- Priority 2: Seek nearby food ---
	if s.Score > b.lastScore {
		b.seekTicks = 0
	}
	b.lastScore = s.Score

	if !b.gridBuilt || b.gridVersion != g.FoodVersion() {
		b.grid.Rebuild(g.Foods(), g.Pending)
		b.gridVersion = g.FoodVersion()
		b.gridBuilt = true
	}
	if b.seekTicks < botSeekGiveUp {
		if f, ok := b.closestFood(g, s); ok {
			b.targetAngle = math.Atan2(f.Y-s.Y, f.X-s.X)
			b.seekTicks++
			return b.heading()
		}
	} else {
		// circling a target it cannot reach; turn away for a while
		b.seekTicks = 0
		b.targetAngle = math.Atan2(s.DY, s.DX) + math.Pi/2 + b.rng.Float64()*math.Pi
		b.wanderTicks = 30 + b.rng.Intn(40)
		return b.heading()
	}

	// --- Priority 3: Wander ---
	if b.wanderTicks <= 0 {
		b.targetAngle = b.rng.Float64() * 2 * math.Pi
		b.wanderTicks = b.randomWanderDuration()
	}
	b.wanderTicks--
	return b.heading()
}

// closestFood picks the nearest live particle in range, counting food behind
// the current heading at twice its distance.
func (b *SeekFood) closestFood(g *Game, s Snake) (protocol.Food, bool) {
	heading := math.Atan2(s.DY, s.DX)
	bestDist := math.MaxFloat64
	best := -1
	for _, i := range b.grid.Nearby(s.X, s.Y, BotFoodSeekRadius) {
		f := g.Foods()[i]
		dx := f.X - s.X
		dy := f.Y - s.Y
		d := math.Sqrt(dx*dx + dy*dy)
		if math.Abs(normalizeAngle(math.Atan2(dy, dx)-heading)) > math.Pi/2 {
			d *= 2
		}
		if d < bestDist || (d == bestDist && i < best) {
			bestDist, best = d, i
		}
	}
	if best < 0 {
		return protocol.Food{}, false
	}
	return g.Foods()[best], true
}

func (b *SeekFood) heading() (float64, float64) {
	return math.Cos(b.targetAngle), math.Sin(b.targetAngle)
}

// randomWanderDuration returns a tick count in [60, 120]
func (b *SeekFood) randomWanderDuration() int {
	return 60 + b.rng.Intn(61)
}

// normalizeAngle wraps an angle into (-π, π]
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
