package client

import (
	"math"

	"github.com/sonpython/slether-arena/internal/protocol"
)

// cellKey uniquely identifies a grid cell
type cellKey struct {
	cx, cy int
}

type gridEntry struct {
	index int
	x, y  float64
}

// SpatialGrid is a hash grid over the food mirror, keyed by slot index.
type SpatialGrid struct {
	cells    map[cellKey][]gridEntry
	cellSize float64
}

// NewSpatialGrid creates an empty spatial grid
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		cells:    make(map[cellKey][]gridEntry),
		cellSize: cellSize,
	}
}

// Clear resets all cells
func (g *SpatialGrid) Clear() {
	clear(g.cells)
}

func (g *SpatialGrid) keyFor(x, y float64) cellKey {
	return cellKey{
		cx: int(math.Floor(x / g.cellSize)),
		cy: int(math.Floor(y / g.cellSize)),
	}
}

// Rebuild replaces the grid contents with foods. Slots for which skip
// returns true are left out; skip may be nil.
func (g *SpatialGrid) Rebuild(foods []protocol.Food, skip func(int) bool) {
	g.Clear()
	for i, f := range foods {
		if skip != nil && skip(i) {
			continue
		}
		g.Insert(i, f)
	}
}

// Insert adds the food at slot index to the grid
func (g *SpatialGrid) Insert(index int, f protocol.Food) {
	k := g.keyFor(f.X, f.Y)
	g.cells[k] = append(g.cells[k], gridEntry{index: index, x: f.X, y: f.Y})
}

// Nearby returns slot indices within radius of (x,y)
func (g *SpatialGrid) Nearby(x, y, radius float64) []int {
	var results []int
	minCX := int(math.Floor((x - radius) / g.cellSize))
	maxCX := int(math.Floor((x + radius) / g.cellSize))
	minCY := int(math.Floor((y - radius) / g.cellSize))
	maxCY := int(math.Floor((y + radius) / g.cellSize))

	r2 := radius * radius
	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			for _, e := range g.cells[cellKey{cx, cy}] {
				dx := e.x - x
				dy := e.y - y
				if dx*dx+dy*dy <= r2 {
					results = append(results, e.index)
				}
			}
		}
	}
	return results
}
