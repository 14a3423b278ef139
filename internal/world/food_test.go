package world

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/sonpython/slether-arena/internal/config"
	"pgregory.net/rapid"
)

func TestGenerateWithinRanges(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(7)))
	for i := 0; i < 5000; i++ {
		f := g.Generate()
		if f.X < 0 || f.X >= config.WorldWidth || f.Y < 0 || f.Y >= config.WorldHeight {
			t.Fatalf("food outside world: %+v", f)
		}
		if f.Radius < config.FoodMinRadius || f.Radius >= config.FoodMaxRadius {
			t.Fatalf("radius out of range: %v", f.Radius)
		}
		if f.Value < config.FoodMinValue || f.Value > config.FoodMaxValue {
			t.Fatalf("value out of range: %v", f.Value)
		}
	}
}

func TestInitializeFillsPool(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(7)))
	if n := len(g.Initialize(config.MaxFood)); n != config.MaxFood {
		t.Fatalf("Initialize = %d particles, want %d", n, config.MaxFood)
	}
}

func TestReplaceChangesOnlyThatSlot(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		idx := rapid.IntRange(0, config.MaxFood-1).Draw(t, "index")

		pool := NewFoodPool(NewGenerator(rand.New(rand.NewSource(seed))), config.MaxFood)
		before := pool.Copy()

		f, ok := pool.Replace(idx)
		if !ok {
			t.Fatalf("Replace(%d) rejected a valid index", idx)
		}
		after := pool.Copy()
		if len(after) != len(before) {
			t.Fatalf("pool length changed: %d -> %d", len(before), len(after))
		}
		for i := range after {
			if i == idx {
				if after[i] != f {
					t.Fatalf("slot %d does not hold the returned particle", i)
				}
				continue
			}
			if after[i] != before[i] {
				t.Fatalf("slot %d changed while replacing %d", i, idx)
			}
		}
	})
}

func TestReplaceOutOfRangeIsNoop(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		idx := rapid.OneOf(
			rapid.IntRange(-1_000_000, -1),
			rapid.IntRange(config.MaxFood, 1_000_000),
		).Draw(t, "index")

		pool := NewFoodPool(NewGenerator(rand.New(rand.NewSource(3))), config.MaxFood)
		before := pool.Copy()
		if _, ok := pool.Replace(idx); ok {
			t.Fatalf("Replace(%d) accepted an out-of-range index", idx)
		}
		after := pool.Copy()
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("slot %d mutated by rejected replace", i)
			}
		}
	})
}

func TestConcurrentReplaceSameSlotLastWriteWins(t *testing.T) {
	w := New(WithRand(rand.New(rand.NewSource(11))))
	const idx = 42

	results := make(chan Food, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, ok := w.ReplaceFood(idx)
			if !ok {
				t.Errorf("ReplaceFood(%d) rejected", idx)
				return
			}
			results <- f
		}()
	}
	wg.Wait()
	close(results)

	var accepted []Food
	for f := range results {
		accepted = append(accepted, f)
	}
	// both reports are accepted; the slot ends with exactly one particle,
	// the one from whichever replace ran last
	if len(accepted) != 2 {
		t.Fatalf("accepted = %d, want 2", len(accepted))
	}
	final, _ := w.Food(idx)
	if final != accepted[0] && final != accepted[1] {
		t.Fatalf("final particle %+v matches neither replace", final)
	}
	if w.FoodCount() != config.MaxFood {
		t.Fatalf("pool length changed")
	}
}
