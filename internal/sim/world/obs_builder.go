package world

import (
	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/world/terrain/gen"
)

// Roster reports every player ever joined, dead ones included.
func (w *World) Roster() []protocol.PlayerState {
	out := make([]protocol.PlayerState, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, protocol.PlayerState{
			ID:         p.ID,
			Name:       p.Name,
			X:          p.X,
			Y:          p.Y,
			Alive:      p.Alive,
			Speed:      p.Speed,
			BombRange:  p.BombRange,
			MaxBombs:   p.MaxBombs,
			ColorIndex: p.Slot,
		})
	}
	return out
}

func (w *World) MapRows() [][]gen.Tile { return w.grid.Rows() }

func (w *World) GameStartMsg() protocol.GameStartMsg {
	return protocol.NewGameStart(w.MapRows(), w.Roster())
}

// StateMsg builds the full per-tick snapshot.
func (w *World) StateMsg() protocol.GameStateMsg {
	bombs := make([]protocol.BombState, 0, len(w.bombs))
	for _, b := range w.bombs {
		bombs = append(bombs, protocol.BombState{X: b.Cell.X, Y: b.Cell.Y, Owner: b.Owner, Timer: b.Timer})
	}
	explosions := make([]protocol.ExplosionState, 0, len(w.explosions))
	for _, e := range w.explosions {
		explosions = append(explosions, protocol.ExplosionState{X: e.Cell.X, Y: e.Cell.Y, Timer: e.Timer})
	}
	items := make([]protocol.ItemState, 0, len(w.items))
	for _, it := range w.items {
		items = append(items, protocol.ItemState{X: it.Cell.X, Y: it.Cell.Y, Kind: it.Kind})
	}
	return protocol.GameStateMsg{
		Type:       protocol.TypeGameState,
		Players:    w.Roster(),
		Bombs:      bombs,
		Explosions: explosions,
		Items:      items,
		Map:        w.MapRows(),
		Tick:       w.tick,
	}
}

// GameOverMsg returns the terminal message, or false while the match is
// still undecided.
func (w *World) GameOverMsg() (protocol.GameOverMsg, bool) {
	f, ok := w.status.(Finished)
	if !ok {
		return protocol.GameOverMsg{}, false
	}
	return protocol.NewGameOver(f.Winner), true
}
