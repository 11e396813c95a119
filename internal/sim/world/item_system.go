package world

import "bombarena.dev/internal/protocol"

// systemExplosions ages fire and burns items that a later blast reached,
// including a chained blast resolved later in the same tick. An item dropped
// by a blast survives that same blast.
func (w *World) systemExplosions() {
	kept := w.explosions[:0]
	for _, e := range w.explosions {
		if e.Timer > 0 {
			e.Timer--
		}
		if e.Timer > 0 {
			kept = append(kept, e)
		}
	}
	clear(w.explosions[len(kept):])
	w.explosions = kept

	items := w.items[:0]
	for _, it := range w.items {
		if e := w.explosionAt(it.Cell); e != nil && e.Blast > it.Blast {
			continue
		}
		items = append(items, it)
	}
	clear(w.items[len(items):])
	w.items = items
}

func (w *World) systemItems() {
	kept := w.items[:0]
	for _, it := range w.items {
		if p := w.firstAliveAt(it); p != nil {
			w.applyItem(p, it.Kind)
			continue
		}
		kept = append(kept, it)
	}
	clear(w.items[len(kept):])
	w.items = kept
}

func (w *World) firstAliveAt(it *Item) *Player {
	for _, p := range w.players {
		if p.Alive && p.Cell() == it.Cell {
			return p
		}
	}
	return nil
}

func (w *World) applyItem(p *Player, kind protocol.ItemKind) {
	switch kind {
	case protocol.ItemBombRange:
		p.BombRange++
	case protocol.ItemBombCount:
		p.MaxBombs++
	case protocol.ItemSpeed:
		p.Speed += w.tune.Player.SpeedBoost
	}
}
