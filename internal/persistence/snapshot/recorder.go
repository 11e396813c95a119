package snapshot

import (
	"io"
	"log"
	"sync"

	"bombarena.dev/internal/sim/session"
	"bombarena.dev/internal/sim/tuning"
)

// Recorder archives every finished match to <dir>/<session>.snap.zst. Writes
// happen on a background goroutine so the session tick never waits on disk.
type Recorder struct {
	dir  string
	tune tuning.Tuning
	log  *log.Logger

	mu     sync.Mutex
	closed bool
	ch     chan MatchV1
	wg     sync.WaitGroup
}

func NewRecorder(dir string, tune tuning.Tuning, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	r := &Recorder{
		dir:  dir,
		tune: tune,
		log:  logger,
		ch:   make(chan MatchV1, 64),
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

func (r *Recorder) RecordResult(res session.MatchResult) {
	snap := MatchV1{
		Header:     Header{Version: Version, SessionID: res.SessionID, Tick: res.Ticks},
		Seed:       res.Seed,
		Tuning:     r.tune,
		Winner:     res.Winner,
		FinishedAt: res.FinishedAt,
		Players:    res.Players,
		Final:      res.Final,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- snap:
	default:
		r.log.Printf("snapshot: queue full, dropping session %s", res.SessionID)
	}
}

// Close flushes queued snapshots and stops the writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	for snap := range r.ch {
		path := Path(r.dir, snap.Header.SessionID)
		if err := WriteSnapshot(path, snap); err != nil {
			r.log.Printf("snapshot write %s: %v", path, err)
		}
	}
}
