package world

import (
	"math"
	"math/rand"
	"time"

	"bombarena.dev/internal/sim/tuning"
	"bombarena.dev/internal/sim/world/terrain/gen"
)

// World is the authoritative arena simulation for one session.
// It is not safe for concurrent use; the owning session serializes access.
type World struct {
	cfg  WorldConfig
	tune tuning.Tuning
	rng  *rand.Rand

	grid gen.Grid

	players    []*Player
	bombs      []*Bomb
	explosions []*Explosion
	items      []*Item

	tick   uint64
	blasts uint64
	status Status

	lastStep time.Duration
}

func New(cfg WorldConfig) *World {
	cfg = cfg.normalized()
	return &World{
		cfg:    cfg,
		tune:   cfg.Tuning,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		grid:   gen.Generate(),
		status: Idle{},
	}
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) Seed() int64 { return w.cfg.Seed }

func (w *World) CurrentTick() uint64 { return w.tick }

func (w *World) Status() Status { return w.status }

func (w *World) Tile(c gen.Cell) gen.Tile { return w.grid.At(c) }

// AddPlayer places a new player at the given spawn slot. Joining is only
// possible before the match starts.
func (w *World) AddPlayer(id PlayerID, name string, slot int) bool {
	if _, ok := w.status.(Idle); !ok {
		return false
	}
	if w.player(id) != nil {
		return false
	}
	spawns := gen.SpawnPoints()
	if slot < 0 {
		slot = 0
	}
	if slot >= len(spawns) {
		slot = len(spawns) - 1
	}
	sp := spawns[slot]
	w.players = append(w.players, &Player{
		ID:        id,
		Name:      name,
		Slot:      slot,
		X:         float64(sp.X),
		Y:         float64(sp.Y),
		Alive:     true,
		Speed:     w.tune.Player.Speed,
		BombRange: w.tune.Player.BombRange,
		MaxBombs:  w.tune.Player.MaxBombs,
	})
	return true
}

func (w *World) Start() bool {
	if _, ok := w.status.(Idle); !ok {
		return false
	}
	w.status = Running{}
	return true
}

func (w *World) SetMovement(id PlayerID, dx, dy float64) {
	p := w.player(id)
	if p == nil || !p.Alive {
		return
	}
	p.DX = ClampAxis(dx)
	p.DY = ClampAxis(dy)
}

// PlaceBomb drops a bomb on the player's cell. Requests that would break the
// bomb cap or stack two bombs are rejected without side effects.
func (w *World) PlaceBomb(id PlayerID) bool {
	if !IsRunning(w.status) {
		return false
	}
	p := w.player(id)
	if p == nil || !p.Alive {
		return false
	}
	if p.ActiveBombs >= p.MaxBombs {
		return false
	}
	c := p.Cell()
	if !gen.InBounds(c) || w.bombAt(c) != nil {
		return false
	}
	w.bombs = append(w.bombs, &Bomb{
		Cell:  c,
		Owner: id,
		Timer: w.tune.BombFuseTicks,
		Range: p.BombRange,
	})
	p.ActiveBombs++
	return true
}

func (w *World) MarkDead(id PlayerID) {
	p := w.player(id)
	if p == nil {
		return
	}
	p.Alive = false
	p.DX, p.DY = 0, 0
}

// Players returns copies in join order.
func (w *World) Players() []Player {
	out := make([]Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, *p)
	}
	return out
}

func (w *World) Player(id PlayerID) (Player, bool) {
	p := w.player(id)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

func (w *World) Bombs() []Bomb {
	out := make([]Bomb, 0, len(w.bombs))
	for _, b := range w.bombs {
		out = append(out, *b)
	}
	return out
}

func (w *World) Explosions() []Explosion {
	out := make([]Explosion, 0, len(w.explosions))
	for _, e := range w.explosions {
		out = append(out, *e)
	}
	return out
}

func (w *World) Items() []Item {
	out := make([]Item, 0, len(w.items))
	for _, it := range w.items {
		out = append(out, *it)
	}
	return out
}

func (w *World) AliveCount() int {
	n := 0
	for _, p := range w.players {
		if p.Alive {
			n++
		}
	}
	return n
}

func (w *World) player(id PlayerID) *Player {
	for _, p := range w.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (w *World) bombAt(c gen.Cell) *Bomb {
	for _, b := range w.bombs {
		if b.Cell == c {
			return b
		}
	}
	return nil
}

func (w *World) explosionAt(c gen.Cell) *Explosion {
	for _, e := range w.explosions {
		if e.Cell == c {
			return e
		}
	}
	return nil
}

// ClampAxis maps a raw intent axis into [-1,1]; NaN becomes 0.
func ClampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
