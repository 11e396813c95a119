package main

import (
	"strings"
	"sync"
	"testing"

	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/session"
	"bombarena.dev/internal/sim/tuning"
)

type nopConn struct{}

func (nopConn) Send([]byte) error { return nil }

func (nopConn) Format() protocol.Format { return protocol.FormatJSON }

type memLog struct {
	mu      sync.Mutex
	entries []session.TickLogEntry
}

func (m *memLog) WriteTick(e session.TickLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func playRecordedMatch(t *testing.T, seed int64) []session.TickLogEntry {
	t.Helper()
	ml := &memLog{}
	s := session.New(session.Config{ID: "r1", Seed: seed, Tuning: tuning.Defaults(), TickLogger: ml})
	a, err := s.Join("a", nopConn{})
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	// Movement set while waiting is carried by the start roster.
	s.ApplyIntent(a, session.MoveIntent(0, 1))
	b, err := s.Join("b", nopConn{})
	if err != nil {
		t.Fatalf("join b: %v", err)
	}

	s.ApplyIntent(b, session.MoveIntent(-1, 0))
	for tick := 0; tick < 400; tick++ {
		switch tick {
		case 3:
			s.ApplyIntent(a, session.PlaceBombIntent())
			s.ApplyIntent(a, session.MoveIntent(1, 0))
		case 60:
			s.ApplyIntent(b, session.PlaceBombIntent())
		case 70:
			s.ApplyIntent(a, session.MoveIntent(0, -1))
		case 300:
			s.Leave(b)
		}
		if s.StepOnce() {
			break
		}
	}
	return ml.entries
}

func TestReplaySession_MatchesLiveDigests(t *testing.T) {
	entries := playRecordedMatch(t, 99)
	if len(entries) < 2 {
		t.Fatalf("entries=%d", len(entries))
	}
	res, err := replaySession(tuning.Defaults(), entries)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Checked != len(entries)-1 {
		t.Fatalf("checked=%d want %d", res.Checked, len(entries)-1)
	}
	if res.Status != "finished" {
		t.Fatalf("status=%s want finished", res.Status)
	}
}

func TestReplaySession_DetectsTamperedDigest(t *testing.T) {
	entries := playRecordedMatch(t, 7)
	entries[5].Digest = strings.Repeat("0", 64)
	_, err := replaySession(tuning.Defaults(), entries)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 5") {
		t.Fatalf("err=%v", err)
	}
}

func TestReplaySession_RequiresStartEntry(t *testing.T) {
	entries := playRecordedMatch(t, 3)
	if _, err := replaySession(tuning.Defaults(), entries[1:]); err == nil {
		t.Fatalf("expected error without start entry")
	}
	if _, err := replaySession(tuning.Defaults(), nil); err == nil {
		t.Fatalf("expected error for empty session")
	}
}

func TestSessionOrder_FirstAppearance(t *testing.T) {
	entries := []session.TickLogEntry{
		{Session: "b"}, {Session: "a"}, {Session: "b"}, {Session: "c"}, {Session: "a"},
	}
	got := sessionOrder(entries)
	if strings.Join(got, ",") != "b,a,c" {
		t.Fatalf("order=%v", got)
	}
}
