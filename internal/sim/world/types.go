package world

import (
	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/world/terrain/gen"
)

type PlayerID = protocol.PlayerID

type Player struct {
	ID   PlayerID
	Name string
	Slot int

	// Position of the top-left corner in tile units.
	X float64
	Y float64

	Alive       bool
	Speed       float64
	BombRange   int
	MaxBombs    int
	ActiveBombs int

	// Movement intent, each axis within [-1,1].
	DX float64
	DY float64
}

// Cell is the tile the player occupies (position rounded to nearest tile).
func (p *Player) Cell() gen.Cell {
	return gen.Cell{X: int(p.X + 0.5), Y: int(p.Y + 0.5)}
}

type Bomb struct {
	Cell  gen.Cell
	Owner PlayerID
	Timer int
	Range int
}

type Explosion struct {
	Cell  gen.Cell
	Timer int
	// Blast is the sequence number of the detonation that last set this cell
	// on fire. Sequence numbers keep increasing across ticks and chains.
	Blast uint64
}

type Item struct {
	Cell gen.Cell
	Kind protocol.ItemKind
	// Blast is the sequence number of the detonation that dropped the item.
	Blast uint64
}

var directions = [4]gen.Cell{
	{X: -1, Y: 0},
	{X: 1, Y: 0},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
}
