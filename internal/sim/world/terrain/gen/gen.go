package gen

import "fmt"

const (
	Cols = 15
	Rows = 13

	// SafeRadius is the Manhattan radius kept clear around each spawn corner.
	SafeRadius = 2
)

type Tile uint8

const (
	Empty Tile = iota
	HardBlock
	SoftBlock
)

var tileNames = [...]string{
	Empty:     "Empty",
	HardBlock: "HardBlock",
	SoftBlock: "SoftBlock",
}

func (t Tile) String() string {
	if int(t) < len(tileNames) {
		return tileNames[t]
	}
	return fmt.Sprintf("Tile(%d)", uint8(t))
}

func (t Tile) MarshalText() ([]byte, error) {
	if int(t) >= len(tileNames) {
		return nil, fmt.Errorf("unknown tile %d", uint8(t))
	}
	return []byte(tileNames[t]), nil
}

func (t *Tile) UnmarshalText(b []byte) error {
	for i, name := range tileNames {
		if string(b) == name {
			*t = Tile(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tile %q", string(b))
}

// Passable reports whether a player may stand on the tile.
func Passable(t Tile) bool { return t == Empty }

type Cell struct {
	X int
	Y int
}

func InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < Cols && c.Y < Rows
}

type Grid [Rows][Cols]Tile

func (g *Grid) At(c Cell) Tile {
	if !InBounds(c) {
		return HardBlock
	}
	return g[c.Y][c.X]
}

func (g *Grid) Set(c Cell, t Tile) {
	if InBounds(c) {
		g[c.Y][c.X] = t
	}
}

// Rows returns a row-major copy for the wire.
func (g *Grid) Rows() [][]Tile {
	out := make([][]Tile, Rows)
	for r := range g {
		row := make([]Tile, Cols)
		copy(row, g[r][:])
		out[r] = row
	}
	return out
}

// SpawnPoints lists the four corner spawn cells in slot order.
func SpawnPoints() [4]Cell {
	return [4]Cell{
		{X: 0, Y: 0},
		{X: Cols - 1, Y: 0},
		{X: 0, Y: Rows - 1},
		{X: Cols - 1, Y: Rows - 1},
	}
}

func InSpawnSafeZone(c Cell) bool {
	for _, s := range SpawnPoints() {
		if abs(c.X-s.X)+abs(c.Y-s.Y) <= SafeRadius {
			return true
		}
	}
	return false
}

// Generate builds the fixed arena layout. Hard blocks sit on even interior
// row/column intersections; everything else is soft except the spawn zones.
func Generate() Grid {
	var g Grid
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			cell := Cell{X: c, Y: r}
			switch {
			case isPillar(r, c):
				g[r][c] = HardBlock
			case InSpawnSafeZone(cell):
				g[r][c] = Empty
			default:
				g[r][c] = SoftBlock
			}
		}
	}
	return g
}

func isPillar(r, c int) bool {
	return r%2 == 0 && c%2 == 0 && r > 0 && c > 0 && r < Rows-1 && c < Cols-1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
