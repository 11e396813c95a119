package world

import (
	"testing"

	"bombarena.dev/internal/sim/tuning"
	"bombarena.dev/internal/sim/world/terrain/gen"
)

func newTestWorld(t *testing.T, seed int64, players int) *World {
	t.Helper()
	w := New(WorldConfig{ID: "test", Seed: seed, Tuning: tuning.Defaults()})
	for i := 0; i < players; i++ {
		if !w.AddPlayer(PlayerID(i+1), "p", i) {
			t.Fatalf("add player %d", i+1)
		}
	}
	return w
}

func newRunningWorld(t *testing.T, players int) *World {
	t.Helper()
	w := newTestWorld(t, 1, players)
	if !w.Start() {
		t.Fatalf("start failed")
	}
	return w
}

func teleport(t *testing.T, w *World, id PlayerID, c gen.Cell) {
	t.Helper()
	p := w.player(id)
	if p == nil {
		t.Fatalf("no player %d", id)
	}
	p.X, p.Y = float64(c.X), float64(c.Y)
}

func placeAt(t *testing.T, w *World, id PlayerID, c gen.Cell) {
	t.Helper()
	teleport(t, w, id, c)
	if !w.PlaceBomb(id) {
		t.Fatalf("place bomb at %+v rejected", c)
	}
}

func stepN(t *testing.T, w *World, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if !w.Step() {
			t.Fatalf("step %d refused (status=%s)", i, w.Status())
		}
	}
}

func explosionCells(w *World) map[gen.Cell]bool {
	out := map[gen.Cell]bool{}
	for _, e := range w.explosions {
		out[e.Cell] = true
	}
	return out
}

func checkPlayerInvariants(t *testing.T, w *World) {
	t.Helper()
	for _, p := range w.players {
		if p.ActiveBombs < 0 || p.ActiveBombs > p.MaxBombs {
			t.Fatalf("tick %d player %d active=%d max=%d", w.tick, p.ID, p.ActiveBombs, p.MaxBombs)
		}
		if p.X < 0 || p.Y < 0 || p.X > gen.Cols-1 || p.Y > gen.Rows-1 {
			t.Fatalf("tick %d player %d out of bounds at (%v,%v)", w.tick, p.ID, p.X, p.Y)
		}
	}
	seen := map[gen.Cell]bool{}
	for _, b := range w.bombs {
		if seen[b.Cell] {
			t.Fatalf("two bombs on %+v", b.Cell)
		}
		seen[b.Cell] = true
	}
}
