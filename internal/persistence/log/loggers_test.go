package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bombarena.dev/internal/sim/session"
)

func TestTickLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	l.w.now = func() time.Time { return time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC) }

	entries := []session.TickLogEntry{
		{Session: "a", Kind: session.EntryStart, Seed: 9, Roster: []session.RecordedPlayer{{ID: 1, Name: "x", Alive: true}}, Digest: "d0"},
		{Session: "b", Kind: session.EntryStart, Seed: 3, Digest: "e0"},
		{Session: "a", Kind: session.EntryTick, Tick: 1, Intents: []session.RecordedIntent{{PlayerID: 1, Intent: session.MoveIntent(1, 0)}}, Digest: "d1"},
		{Session: "a", Kind: session.EntryTick, Tick: 2, Leaves: []session.PlayerID{2}, Digest: "d2"},
	}
	for _, e := range entries {
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(TickDir(dir))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "ticks-2024-05-01-13.jsonl.zst" {
		t.Fatalf("files=%v", files)
	}
	got, err := ReadEntries(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("entries=%d want %d", len(got), len(entries))
	}
	a := SessionEntries(got, "a")
	if len(a) != 3 || a[1].Intents[0].Kind != session.IntentMove || a[1].Intents[0].DX != 1 {
		t.Fatalf("session a=%+v", a)
	}
	if a[2].Leaves[0] != 2 || a[0].Roster[0].Name != "x" {
		t.Fatalf("session a=%+v", a)
	}
}

func TestTickLogger_WriteNeverWaitsOnDisk(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(TickDir(dir), "ticks")
	w.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	l := newTickLogger(w, 1)

	// Hold the file writer so the background goroutine stalls on its first entry.
	w.mu.Lock()
	done := make(chan int)
	go func() {
		for i := 1; i <= 3; i++ {
			if err := l.WriteTick(session.TickLogEntry{Session: "s", Kind: session.EntryTick, Tick: uint64(i)}); errors.Is(err, ErrQueueFull) {
				done <- i
				return
			}
		}
		done <- 0
	}()
	var full int
	select {
	case full = <-done:
	case <-time.After(3 * time.Second):
		w.mu.Unlock()
		t.Fatalf("WriteTick blocked on a stalled writer")
	}
	w.mu.Unlock()
	if full == 0 {
		t.Fatalf("queue of one never reported full")
	}
	if l.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", l.Dropped())
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.WriteTick(session.TickLogEntry{Session: "s"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("write after close err=%v", err)
	}
	files, _ := ListFiles(TickDir(dir))
	if len(files) != 1 {
		t.Fatalf("files=%v", files)
	}
	got, err := ReadEntries(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Everything accepted before the drop reached disk, in order.
	if len(got) != full-1 {
		t.Fatalf("entries=%d want %d", len(got), full-1)
	}
	for i, e := range got {
		if e.Tick != uint64(i+1) {
			t.Fatalf("entry %d tick=%d", i, e.Tick)
		}
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "ticks")
	now := time.Date(2024, 5, 1, 13, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, _ := ListFiles(dir)
	if len(files) != 2 {
		t.Fatalf("files=%v", files)
	}
}

func TestReadEntries_AppendedAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	clock := func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	for i := 0; i < 2; i++ {
		l := NewTickLogger(dir)
		l.w.now = clock
		if err := l.WriteTick(session.TickLogEntry{Session: "s", Kind: session.EntryTick, Tick: uint64(i + 1)}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	files, _ := ListFiles(TickDir(dir))
	got, err := ReadEntries(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[1].Tick != 2 {
		t.Fatalf("got=%+v", got)
	}
}

func TestReadEntries_Missing(t *testing.T) {
	if _, err := ReadEntries(filepath.Join(t.TempDir(), "nope.jsonl.zst")); !os.IsNotExist(err) {
		t.Fatalf("err=%v", err)
	}
}
