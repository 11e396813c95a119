package world

import "time"

// Step advances the simulation by exactly one tick. It is a no-op unless the
// match is running.
func (w *World) Step() bool {
	if !IsRunning(w.status) {
		return false
	}
	stepStart := time.Now()
	w.tick++

	// Systems: movement -> bombs (detonation, kills, chains) -> explosion aging -> pickup.
	w.systemMovement()
	w.systemBombs()
	w.systemExplosions()
	w.systemItems()

	w.checkGameOver()
	w.lastStep = time.Since(stepStart)
	return true
}

func (w *World) checkGameOver() {
	if len(w.players) < 2 {
		return
	}
	alive := 0
	var survivor *PlayerID
	for _, p := range w.players {
		if !p.Alive {
			continue
		}
		alive++
		id := p.ID
		survivor = &id
	}
	if alive > 1 {
		return
	}
	if alive == 0 {
		survivor = nil
	}
	w.status = Finished{Winner: survivor}
}
