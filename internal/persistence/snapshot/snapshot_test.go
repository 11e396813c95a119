package snapshot

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/session"
	"bombarena.dev/internal/sim/tuning"
	"bombarena.dev/internal/sim/world/terrain/gen"
)

func TestRecorder_WritesReadableSnapshot(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, tuning.Defaults(), nil)

	g := gen.Generate()
	winner := protocol.PlayerID(2)
	res := session.MatchResult{
		SessionID:  "abcd1234",
		Seed:       42,
		Ticks:      310,
		Winner:     &winner,
		FinishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Players: []protocol.PlayerState{
			{ID: 1, Name: "a", Alive: false, Speed: 2, BombRange: 1, MaxBombs: 1},
			{ID: 2, Name: "b", X: 3.5, Y: 1, Alive: true, Speed: 2.5, BombRange: 2, MaxBombs: 1, ColorIndex: 1},
		},
		Final: protocol.GameStateMsg{
			Type:  protocol.TypeGameState,
			Tick:  310,
			Map:   g.Rows(),
			Bombs: []protocol.BombState{{X: 4, Y: 1, Owner: 2, Timer: 12}},
			Items: []protocol.ItemState{{X: 5, Y: 3, Kind: protocol.ItemSpeed}},
		},
	}
	res.Final.Players = res.Players
	r.RecordResult(res)
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	snap, err := ReadSnapshot(Path(dir, "abcd1234"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Header != (Header{Version: Version, SessionID: "abcd1234", Tick: 310}) {
		t.Fatalf("header=%+v", snap.Header)
	}
	if snap.Winner == nil || *snap.Winner != 2 {
		t.Fatalf("winner=%v", snap.Winner)
	}
	if snap.Tuning != tuning.Defaults() {
		t.Fatalf("tuning=%+v", snap.Tuning)
	}
	if diff := cmp.Diff(res.Final, snap.Final, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("final state mismatch (-want +got):\n%s", diff)
	}
	if !snap.FinishedAt.Equal(res.FinishedAt) {
		t.Fatalf("finished_at=%v", snap.FinishedAt)
	}

	// Late results after Close are ignored.
	r.RecordResult(session.MatchResult{SessionID: "late"})
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(Path(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
}
