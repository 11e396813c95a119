package world

import (
	"testing"

	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/world/terrain/gen"
)

func TestBomb_ExplodesAfterFuseWithRangeOne(t *testing.T) {
	w := newRunningWorld(t, 2)
	placeAt(t, w, 1, gen.Cell{X: 0, Y: 0})
	teleport(t, w, 1, gen.Cell{X: 2, Y: 0})

	fuse := w.tune.BombFuseTicks
	for i := 1; i < fuse; i++ {
		stepN(t, w, 1)
		if len(w.bombs) != 1 {
			t.Fatalf("tick %d: bombs=%d", i, len(w.bombs))
		}
		if got := w.bombs[0].Timer; got != fuse-i {
			t.Fatalf("tick %d: timer=%d want %d", i, got, fuse-i)
		}
		if len(w.explosions) != 0 {
			t.Fatalf("tick %d: early explosion", i)
		}
	}
	stepN(t, w, 1)

	if len(w.bombs) != 0 {
		t.Fatalf("bomb not consumed")
	}
	got := explosionCells(w)
	want := []gen.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	if len(got) != len(want) {
		t.Fatalf("explosions=%v want %v", got, want)
	}
	for _, c := range want {
		if !got[c] {
			t.Fatalf("missing explosion at %+v (got %v)", c, got)
		}
	}
	if p, _ := w.Player(1); p.ActiveBombs != 0 {
		t.Fatalf("active bombs not released: %d", p.ActiveBombs)
	}

	// The blast stays gone; no second detonation.
	stepN(t, w, w.tune.ExplosionTicks)
	if len(w.explosions) != 0 || len(w.bombs) != 0 {
		t.Fatalf("explosions=%d bombs=%d after aging", len(w.explosions), len(w.bombs))
	}
}

func TestBomb_BlastStopsAtHardAndFirstSoft(t *testing.T) {
	w := newRunningWorld(t, 2)
	p := w.player(1)
	p.BombRange = 2

	// (2,1) is soft by default, (2,2) is a pillar, (4,1) is soft.
	origin := gen.Cell{X: 2, Y: 1}
	w.grid.Set(origin, gen.Empty)
	w.grid.Set(gen.Cell{X: 3, Y: 1}, gen.SoftBlock)
	placeAt(t, w, 1, origin)
	teleport(t, w, 1, gen.Cell{X: 0, Y: 2})
	stepN(t, w, w.tune.BombFuseTicks)

	got := explosionCells(w)
	if got[gen.Cell{X: 2, Y: 2}] || got[gen.Cell{X: 2, Y: 3}] {
		t.Fatalf("blast crossed hard block: %v", got)
	}
	if w.grid.At(gen.Cell{X: 2, Y: 2}) != gen.HardBlock {
		t.Fatalf("hard block destroyed")
	}
	if !got[gen.Cell{X: 3, Y: 1}] || got[gen.Cell{X: 4, Y: 1}] {
		t.Fatalf("blast should stop on first soft block: %v", got)
	}
	if w.grid.At(gen.Cell{X: 3, Y: 1}) != gen.Empty {
		t.Fatalf("soft block not cleared")
	}
	if w.grid.At(gen.Cell{X: 4, Y: 1}) != gen.SoftBlock {
		t.Fatalf("soft block behind first one destroyed")
	}
	// Left walks through two empty cells.
	if !got[gen.Cell{X: 1, Y: 1}] || !got[gen.Cell{X: 0, Y: 1}] {
		t.Fatalf("blast should pass empty cells: %v", got)
	}
	// Up: (2,0) is empty, then the map edge.
	if !got[gen.Cell{X: 2, Y: 0}] {
		t.Fatalf("missing (2,0): %v", got)
	}
}

func TestBomb_ChainReactionSameTick(t *testing.T) {
	w := newRunningWorld(t, 2)
	w.player(1).MaxBombs = 2
	w.grid.Set(gen.Cell{X: 3, Y: 0}, gen.Empty)

	placeAt(t, w, 1, gen.Cell{X: 1, Y: 0})
	stepN(t, w, 5)
	placeAt(t, w, 1, gen.Cell{X: 2, Y: 0})
	teleport(t, w, 1, gen.Cell{X: 0, Y: 2})
	teleport(t, w, 2, gen.Cell{X: 3, Y: 0})

	stepN(t, w, w.tune.BombFuseTicks-6)
	if len(w.bombs) != 2 || len(w.explosions) != 0 {
		t.Fatalf("bombs=%d explosions=%d before detonation", len(w.bombs), len(w.explosions))
	}
	if !w.player(2).Alive {
		t.Fatalf("player 2 died early")
	}
	stepN(t, w, 1)

	if len(w.bombs) != 0 {
		t.Fatalf("chained bomb still pending: %+v", w.Bombs())
	}
	got := explosionCells(w)
	for _, c := range []gen.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 1}, {X: 3, Y: 0}, {X: 2, Y: 1}} {
		if !got[c] {
			t.Fatalf("missing %+v in combined blast %v", c, got)
		}
	}
	if len(got) != 6 {
		t.Fatalf("combined blast size=%d want 6 (%v)", len(got), got)
	}
	if w.player(1).ActiveBombs != 0 {
		t.Fatalf("active bombs=%d", w.player(1).ActiveBombs)
	}
	// (3,0) is only reached by the chained bomb.
	if w.player(2).Alive {
		t.Fatalf("player in chained blast survived")
	}
	f, ok := w.Status().(Finished)
	if !ok || f.Winner == nil || *f.Winner != 1 {
		t.Fatalf("status=%v", w.Status())
	}
}

func TestBomb_DuplicateBlastRefreshesExplosion(t *testing.T) {
	w := newRunningWorld(t, 2)
	w.explosions = append(w.explosions, &Explosion{Cell: gen.Cell{X: 1, Y: 0}, Timer: 2, Blast: 0})
	cells := blast{}
	w.ignite(gen.Cell{X: 1, Y: 0}, 7, cells)
	if len(w.explosions) != 1 {
		t.Fatalf("explosions duplicated: %d", len(w.explosions))
	}
	if e := w.explosions[0]; e.Timer != w.tune.ExplosionTicks || e.Blast != 7 {
		t.Fatalf("explosion not refreshed: %+v", *e)
	}
}

func TestPlaceBomb_Rejections(t *testing.T) {
	w := newTestWorld(t, 1, 2)
	if w.PlaceBomb(1) {
		t.Fatalf("bomb placed before start")
	}
	w.Start()

	if w.PlaceBomb(99) {
		t.Fatalf("unknown player placed a bomb")
	}
	if !w.PlaceBomb(1) {
		t.Fatalf("first bomb rejected")
	}
	if w.PlaceBomb(1) {
		t.Fatalf("bomb cap ignored")
	}
	p := w.player(1)
	if p.ActiveBombs != 1 || len(w.bombs) != 1 {
		t.Fatalf("active=%d bombs=%d", p.ActiveBombs, len(w.bombs))
	}

	// Raising the cap still refuses a second bomb on the same cell.
	p.MaxBombs = 2
	if w.PlaceBomb(1) {
		t.Fatalf("stacked bomb accepted")
	}
	if p.ActiveBombs != 1 || len(w.bombs) != 1 {
		t.Fatalf("rejected placement had side effects: active=%d bombs=%d", p.ActiveBombs, len(w.bombs))
	}

	w.MarkDead(2)
	if w.PlaceBomb(2) {
		t.Fatalf("dead player placed a bomb")
	}
}

func TestItemDrops_FrequencyAndKinds(t *testing.T) {
	w := newRunningWorld(t, 2)
	const trials = 6000
	origin := gen.Cell{X: 1, Y: 0}
	soft := gen.Cell{X: 2, Y: 0}
	kinds := map[protocol.ItemKind]int{}
	drops := 0
	for i := 0; i < trials; i++ {
		w.grid.Set(soft, gen.SoftBlock)
		w.detonate(&Bomb{Cell: origin, Owner: 99, Range: 1})
		if w.grid.At(soft) != gen.Empty {
			t.Fatalf("soft block survived trial %d", i)
		}
		for _, it := range w.items {
			if it.Cell != soft {
				t.Fatalf("item dropped at %+v", it.Cell)
			}
			kinds[it.Kind]++
			drops++
		}
		w.items = nil
	}

	freq := float64(drops) / trials
	if freq < 0.30 || freq > 0.37 {
		t.Fatalf("drop frequency=%.3f want ~1/3", freq)
	}
	for _, k := range protocol.ItemKinds {
		share := float64(kinds[k]) / float64(drops)
		if share < 0.28 || share > 0.39 {
			t.Fatalf("kind %s share=%.3f want ~1/3 (%v)", k, share, kinds)
		}
	}
}
