package client

import (
	"math"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/protocol"
)

// Snake is the locally simulated avatar. The client is authoritative for
// its position, size and score; the server only mirrors what it reports.
type Snake struct {
	X, Y   float64
	Radius float64
	// DX, DY is the heading set by input. Only its direction matters; the
	// magnitude of each step comes from Speed.
	DX, DY float64
	Score  int
}

// NewSnake returns an avatar at (x, y) with the initial size, heading right.
func NewSnake(x, y float64) Snake {
	return Snake{
		X:      x,
		Y:      y,
		Radius: config.InitialSnakeSize,
		DX:     1,
		DY:     0,
	}
}

// Speed interpolates linearly from MaxSpeed at MinSnakeSize down to MinSpeed
// at MaxSnakeSize. Bigger snakes are slower.
func Speed(radius float64) float64 {
	normalized := (radius - config.MinSnakeSize) / (config.MaxSnakeSize - config.MinSnakeSize)
	return config.MaxSpeed - clamp(normalized, 0, 1)*(config.MaxSpeed-config.MinSpeed)
}

// SetDirection sets the heading. A zero vector keeps the current heading.
func (s *Snake) SetDirection(dx, dy float64) {
	d := math.Hypot(dx, dy)
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return
	}
	s.DX = dx / d
	s.DY = dy / d
}

// Move advances the avatar by speed along the normalized heading.
func (s *Snake) Move(speed float64) {
	d := math.Hypot(s.DX, s.DY)
	if d > 0 {
		s.X += (s.DX / d) * speed
		s.Y += (s.DY / d) * speed
	}
}

// OutOfBounds reports whether the centre has left the world rectangle.
func (s *Snake) OutOfBounds() bool {
	return s.X < 0 || s.X > config.WorldWidth || s.Y < 0 || s.Y > config.WorldHeight
}

// ApplyBoundaryPenalty shrinks an out-of-bounds avatar by
// BoundaryShrink * max(1, radius/BoundaryShrinkScale). The avatar is not
// pushed back inside.
func (s *Snake) ApplyBoundaryPenalty() {
	if !s.OutOfBounds() {
		return
	}
	loss := config.BoundaryShrink * math.Max(1, s.Radius/config.BoundaryShrinkScale)
	s.Radius = math.Max(config.MinSnakeSize, s.Radius-loss)
}

// ApplyDecay shrinks the avatar by DecayRate of its size.
func (s *Snake) ApplyDecay() {
	s.Radius = math.Max(config.MinSnakeSize, s.Radius-config.DecayRate*s.Radius)
}

// Starved reports the terminal condition.
func (s *Snake) Starved() bool {
	return s.Radius <= config.MinSnakeSize
}

// Touches reports whether f overlaps the avatar.
func (s *Snake) Touches(f protocol.Food) bool {
	dx := s.X - f.X
	dy := s.Y - f.Y
	return math.Sqrt(dx*dx+dy*dy) < s.Radius+f.Radius
}

// Eat grows the avatar by the food's value, capped at MaxSnakeSize, and adds
// the value to the score.
func (s *Snake) Eat(f protocol.Food) {
	s.Radius = math.Min(config.MaxSnakeSize, s.Radius+float64(f.Value))
	s.Score += f.Value
}

// Update is the state reported to the server every tick.
func (s *Snake) Update() protocol.Update {
	return protocol.Update{X: s.X, Y: s.Y, Radius: s.Radius, Score: s.Score}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
