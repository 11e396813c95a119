package session

import (
	"context"
	"time"

	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/world"
)

// Run is the tick driver. It idles until the match starts, then steps the
// arena at the configured rate until the match finishes, ctx is cancelled
// or the session is closed.
func (s *Session) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	return s.RunTicks(ctx, ticker.C)
}

// RunTicks drives the session from an arbitrary tick source.
func (s *Session) RunTicks(ctx context.Context, ticks <-chan time.Time) error {
	defer close(s.done)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return nil
	case <-s.started:
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-ticks:
			if finished := s.StepOnce(); finished {
				return nil
			}
		}
	}
}

// StepOnce executes one tick and broadcasts its snapshot. On the tick that
// ends the match it also broadcasts GameOver and reports true.
func (s *Session) StepOnce() (finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.world.Step() {
		return world.IsFinished(s.world.Status())
	}

	s.writeTickLocked(TickLogEntry{
		Session: s.id,
		Kind:    EntryTick,
		Tick:    s.world.CurrentTick(),
		Intents: s.intents,
		Leaves:  s.leaves,
		Digest:  s.world.Digest(),
	})
	s.intents = nil
	s.leaves = nil

	state := s.world.StateMsg()
	s.broadcastLocked(state)

	over, ok := s.world.GameOverMsg()
	if !ok {
		return false
	}
	s.broadcastLocked(over)
	s.finishLocked(over, state)
	return true
}

func (s *Session) finishLocked(over protocol.GameOverMsg, final protocol.GameStateMsg) {
	if over.Winner != nil {
		s.log.Printf("session %s: finished at tick %d, winner %d", s.id, s.world.CurrentTick(), *over.Winner)
	} else {
		s.log.Printf("session %s: finished at tick %d, draw", s.id, s.world.CurrentTick())
	}
	if s.results == nil {
		return
	}
	s.results.RecordResult(MatchResult{
		SessionID:  s.id,
		Seed:       s.seed,
		Ticks:      s.world.CurrentTick(),
		Winner:     over.Winner,
		Players:    s.world.Roster(),
		FinishedAt: time.Now().UTC(),
		Final:      final,
	})
}
