package main

import (
	"fmt"

	"bombarena.dev/internal/sim/session"
	"bombarena.dev/internal/sim/tuning"
	"bombarena.dev/internal/sim/world"
)

type replayResult struct {
	Seed    int64
	Checked int
	Status  string
}

// sessionOrder lists session ids in order of first appearance.
func sessionOrder(entries []session.TickLogEntry) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range entries {
		if seen[e.Session] {
			continue
		}
		seen[e.Session] = true
		out = append(out, e.Session)
	}
	return out
}

// replaySession rebuilds the arena from the start entry and re-executes every
// logged tick, comparing digests. Intents go first, then leaves, then the
// step, which is the order the live session observed them in.
func replaySession(tune tuning.Tuning, entries []session.TickLogEntry) (replayResult, error) {
	var res replayResult
	if len(entries) == 0 {
		return res, fmt.Errorf("no entries")
	}
	start := entries[0]
	if start.Kind != session.EntryStart {
		return res, fmt.Errorf("first entry is %q, want %q", start.Kind, session.EntryStart)
	}
	res.Seed = start.Seed

	w := world.New(world.WorldConfig{ID: start.Session, Seed: start.Seed, Tuning: tune})
	for _, p := range start.Roster {
		if !w.AddPlayer(p.ID, p.Name, p.Slot) {
			return res, fmt.Errorf("add player %d", p.ID)
		}
		w.SetMovement(p.ID, p.DX, p.DY)
		if !p.Alive {
			w.MarkDead(p.ID)
		}
	}
	if !w.Start() {
		return res, fmt.Errorf("start failed")
	}
	if got := w.Digest(); got != start.Digest {
		return res, fmt.Errorf("start digest mismatch: got=%s want=%s", got, start.Digest)
	}

	for _, e := range entries[1:] {
		if e.Kind != session.EntryTick {
			return res, fmt.Errorf("unexpected %q entry at tick %d", e.Kind, e.Tick)
		}
		for _, in := range e.Intents {
			switch in.Kind {
			case session.IntentMove:
				w.SetMovement(in.PlayerID, in.DX, in.DY)
			case session.IntentPlaceBomb:
				w.PlaceBomb(in.PlayerID)
			}
		}
		for _, id := range e.Leaves {
			w.MarkDead(id)
		}
		if !w.Step() {
			return res, fmt.Errorf("step refused at tick %d (status %s)", e.Tick, w.Status())
		}
		if w.CurrentTick() != e.Tick {
			return res, fmt.Errorf("tick mismatch: stepped=%d entry=%d", w.CurrentTick(), e.Tick)
		}
		if got := w.Digest(); got != e.Digest {
			return res, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", e.Tick, got, e.Digest)
		}
		res.Checked++
	}
	res.Status = w.Status().String()
	return res, nil
}
