package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Digest hashes the canonical simulation state. Two worlds fed the same seed
// and the same intent stream produce the same digest at every tick.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, w.tick)
	digestWriteU64(h, &tmp, w.blasts)
	h.Write([]byte(w.status.String()))
	if f, ok := w.status.(Finished); ok && f.Winner != nil {
		digestWriteU64(h, &tmp, uint64(*f.Winner))
	}

	for r := range w.grid {
		for c := range w.grid[r] {
			h.Write([]byte{byte(w.grid[r][c])})
		}
	}

	digestWriteU64(h, &tmp, uint64(len(w.players)))
	for _, p := range w.players {
		digestWriteU64(h, &tmp, uint64(p.ID))
		digestWriteU64(h, &tmp, uint64(p.Slot))
		digestWriteF64(h, &tmp, p.X)
		digestWriteF64(h, &tmp, p.Y)
		h.Write([]byte{boolByte(p.Alive)})
		digestWriteF64(h, &tmp, p.Speed)
		digestWriteI64(h, &tmp, int64(p.BombRange))
		digestWriteI64(h, &tmp, int64(p.MaxBombs))
		digestWriteI64(h, &tmp, int64(p.ActiveBombs))
		digestWriteF64(h, &tmp, p.DX)
		digestWriteF64(h, &tmp, p.DY)
	}

	digestWriteU64(h, &tmp, uint64(len(w.bombs)))
	for _, b := range w.bombs {
		digestWriteCell(h, &tmp, b.Cell.X, b.Cell.Y)
		digestWriteU64(h, &tmp, uint64(b.Owner))
		digestWriteI64(h, &tmp, int64(b.Timer))
		digestWriteI64(h, &tmp, int64(b.Range))
	}

	digestWriteU64(h, &tmp, uint64(len(w.explosions)))
	for _, e := range w.explosions {
		digestWriteCell(h, &tmp, e.Cell.X, e.Cell.Y)
		digestWriteI64(h, &tmp, int64(e.Timer))
		digestWriteU64(h, &tmp, e.Blast)
	}

	digestWriteU64(h, &tmp, uint64(len(w.items)))
	for _, it := range w.items {
		digestWriteCell(h, &tmp, it.Cell.X, it.Cell.Y)
		h.Write([]byte(it.Kind))
		digestWriteU64(h, &tmp, it.Blast)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hash.Hash, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteCell(h hash.Hash, tmp *[8]byte, x, y int) {
	digestWriteI64(h, tmp, int64(x))
	digestWriteI64(h, tmp, int64(y))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
