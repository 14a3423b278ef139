package world

import (
	"math/rand"
	"time"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/protocol"
)

// Food is one particle of the pool.
type Food = protocol.Food

// Generator produces randomized food particles inside the world rectangle.
// It is not safe for concurrent use; World serializes access to it.
type Generator struct {
	rng           *rand.Rand
	width, height float64
}

// NewGenerator returns a generator over the configured world bounds.
// A nil rng seeds one from the clock.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		rng:    rng,
		width:  config.WorldWidth,
		height: config.WorldHeight,
	}
}

// Generate creates a particle at a uniformly random position.
// radius is drawn from [FoodMinRadius, FoodMaxRadius), value from
// [FoodMinValue, FoodMaxValue].
func (g *Generator) Generate() Food {
	return Food{
		X:      g.rng.Float64() * g.width,
		Y:      g.rng.Float64() * g.height,
		Radius: config.FoodMinRadius + g.rng.Float64()*(config.FoodMaxRadius-config.FoodMinRadius),
		Value:  config.FoodMinValue + g.rng.Intn(config.FoodMaxValue-config.FoodMinValue+1),
	}
}

// Initialize generates n particles.
func (g *Generator) Initialize(n int) []Food {
	foods := make([]Food, n)
	for i := range foods {
		foods[i] = g.Generate()
	}
	return foods
}

// SpawnPoint returns a uniformly random position inside the world.
func (g *Generator) SpawnPoint() (float64, float64) {
	return g.rng.Float64() * g.width, g.rng.Float64() * g.height
}

// FoodPool is the fixed-size, index-addressed food sequence. The slot index
// is the particle's identity; slots are replaced in place, never removed.
type FoodPool struct {
	gen   *Generator
	slots []Food
}

// NewFoodPool fills size slots from gen.
func NewFoodPool(gen *Generator, size int) *FoodPool {
	return &FoodPool{gen: gen, slots: gen.Initialize(size)}
}

// Len returns the pool size. It never changes.
func (p *FoodPool) Len() int {
	return len(p.slots)
}

// Get returns the particle in slot i.
func (p *FoodPool) Get(i int) (Food, bool) {
	if i < 0 || i >= len(p.slots) {
		return Food{}, false
	}
	return p.slots[i], true
}

// Replace installs a freshly generated particle in slot i and returns it.
// An out-of-range index leaves the pool untouched and returns false; the
// caller must not broadcast in that case. Replacing a slot that was just
// replaced is accepted: the last write wins.
func (p *FoodPool) Replace(i int) (Food, bool) {
	if i < 0 || i >= len(p.slots) {
		return Food{}, false
	}
	f := p.gen.Generate()
	p.slots[i] = f
	return f, true
}

// Copy returns a snapshot of every slot in index order.
func (p *FoodPool) Copy() []Food {
	out := make([]Food, len(p.slots))
	copy(out, p.slots)
	return out
}
