package world

import (
	"math"

	"bombarena.dev/internal/sim/world/terrain/gen"
)

func (w *World) systemMovement() {
	dt := w.tune.TickSeconds()
	for _, p := range w.players {
		if !p.Alive || (p.DX == 0 && p.DY == 0) {
			continue
		}
		step := p.Speed * dt

		// Axes resolve independently so a player can slide along a wall.
		if nx := p.X + p.DX*step; w.canOccupy(nx, p.Y) {
			p.X = nx
		}
		if ny := p.Y + p.DY*step; w.canOccupy(p.X, ny) {
			p.Y = ny
		}

		p.X = clamp(p.X, 0, gen.Cols-1)
		p.Y = clamp(p.Y, 0, gen.Rows-1)
	}
}

// canOccupy checks the four corners of a unit box at (x,y), inset by the
// collision margin.
func (w *World) canOccupy(x, y float64) bool {
	m := w.tune.CollisionMargin()
	corners := [4][2]float64{
		{x + m, y + m},
		{x + 1 - m, y + m},
		{x + m, y + 1 - m},
		{x + 1 - m, y + 1 - m},
	}
	for _, c := range corners {
		cell := gen.Cell{X: int(math.Floor(c[0])), Y: int(math.Floor(c[1]))}
		if !gen.InBounds(cell) || !gen.Passable(w.grid.At(cell)) {
			return false
		}
	}
	return true
}
