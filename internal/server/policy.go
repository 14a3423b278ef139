package server

import (
	"math"

	"github.com/sonpython/slether-arena/internal/world"
)

// ConsumptionPolicy decides whether a reported eatFood is accepted. Allow
// runs while the world lock is held and must not call back into the World.
type ConsumptionPolicy interface {
	Allow(eater world.Player, food world.Food) bool
}

// TrustClient accepts every report. Growth and collision are decided by the
// client; this is the baseline behaviour.
type TrustClient struct{}

func (TrustClient) Allow(world.Player, world.Food) bool { return true }

// Proximity only accepts a report when the eater's last known position is
// within reach of the particle: dist < radius + food radius + Tolerance.
// Tolerance absorbs the up-to-one-frame lag of the server's copy.
type Proximity struct {
	Tolerance float64
}

func (p Proximity) Allow(eater world.Player, food world.Food) bool {
	dx := eater.X - food.X
	dy := eater.Y - food.Y
	return math.Sqrt(dx*dx+dy*dy) < eater.Radius+food.Radius+p.Tolerance
}
