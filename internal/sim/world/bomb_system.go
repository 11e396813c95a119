package world

import (
	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/world/terrain/gen"
)

type blast map[gen.Cell]struct{}

func (b blast) has(c gen.Cell) bool {
	_, ok := b[c]
	return ok
}

// systemBombs ticks fuses and resolves every detonation of this tick,
// including chains, before returning. Detonations are numbered in the order
// they resolve so that a chained blast counts as later than the one that
// triggered it.
func (w *World) systemBombs() {
	var queue []*Bomb
	for _, b := range w.bombs {
		if b.Timer > 0 {
			b.Timer--
		}
		if b.Timer == 0 {
			queue = append(queue, b)
		}
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		cells := w.detonate(b)
		w.killPlayersIn(cells)
		for _, other := range w.bombs {
			if other.Timer > 0 && cells.has(other.Cell) {
				other.Timer = 0
				queue = append(queue, other)
			}
		}
	}

	kept := w.bombs[:0]
	for _, b := range w.bombs {
		if b.Timer > 0 {
			kept = append(kept, b)
		}
	}
	clear(w.bombs[len(kept):])
	w.bombs = kept
}

func (w *World) detonate(b *Bomb) blast {
	w.blasts++
	seq := w.blasts
	cells := blast{}
	w.ignite(b.Cell, seq, cells)

	for _, d := range directions {
	walk:
		for i := 1; i <= b.Range; i++ {
			c := gen.Cell{X: b.Cell.X + d.X*i, Y: b.Cell.Y + d.Y*i}
			if !gen.InBounds(c) {
				break
			}
			switch w.grid.At(c) {
			case gen.HardBlock:
				break walk
			case gen.SoftBlock:
				w.grid.Set(c, gen.Empty)
				w.ignite(c, seq, cells)
				w.maybeDropItem(c, seq)
				break walk
			default:
				w.ignite(c, seq, cells)
			}
		}
	}

	if p := w.player(b.Owner); p != nil && p.ActiveBombs > 0 {
		p.ActiveBombs--
	}
	return cells
}

// ignite lights a cell. A cell that is already burning is refreshed rather
// than duplicated.
func (w *World) ignite(c gen.Cell, seq uint64, cells blast) {
	cells[c] = struct{}{}
	if e := w.explosionAt(c); e != nil {
		e.Timer = w.tune.ExplosionTicks
		e.Blast = seq
		return
	}
	w.explosions = append(w.explosions, &Explosion{
		Cell:  c,
		Timer: w.tune.ExplosionTicks,
		Blast: seq,
	})
}

func (w *World) maybeDropItem(c gen.Cell, seq uint64) {
	n := w.tune.ItemDropOneIn
	if n <= 0 || w.rng.Intn(n) != 0 {
		return
	}
	kind := protocol.ItemKinds[w.rng.Intn(len(protocol.ItemKinds))]
	w.items = append(w.items, &Item{Cell: c, Kind: kind, Blast: seq})
}

func (w *World) killPlayersIn(cells blast) {
	for _, p := range w.players {
		if p.Alive && cells.has(p.Cell()) {
			p.Alive = false
			p.DX, p.DY = 0, 0
		}
	}
}
