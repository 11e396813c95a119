package session

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/tuning"
	"bombarena.dev/internal/sim/world"
)

type Config struct {
	ID     string
	Seed   int64
	Tuning tuning.Tuning

	Logger     *log.Logger
	TickLogger TickLogger
	Results    ResultRecorder
}

// Session owns one arena and the connections playing in it. A single mutex
// covers joins, intents, ticks and broadcasts, so intents always land
// between ticks and every connection sees ticks in the same order.
type Session struct {
	id        string
	seed      int64
	tune      tuning.Tuning
	log       *log.Logger
	createdAt time.Time

	tickLogger TickLogger
	results    ResultRecorder

	mu      sync.Mutex
	world   *world.World
	conns   map[PlayerID]Conn
	slots   map[PlayerID]int
	nextID  PlayerID
	closed  bool
	intents []RecordedIntent
	leaves  []PlayerID

	started   chan struct{}
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
}

func New(cfg Config) *Session {
	tune := cfg.Tuning
	if tune.Validate() != nil {
		tune = tuning.Defaults()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		id:         cfg.ID,
		seed:       cfg.Seed,
		tune:       tune,
		log:        logger,
		createdAt:  time.Now(),
		tickLogger: cfg.TickLogger,
		results:    cfg.Results,
		world:      world.New(world.WorldConfig{ID: cfg.ID, Seed: cfg.Seed, Tuning: tune}),
		conns:      map[PlayerID]Conn{},
		slots:      map[PlayerID]int{},
		started:    make(chan struct{}),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Seed() int64 { return s.seed }

// Join admits a player, sends it Welcome, then either starts the match (on
// quorum) or tells everyone how many players are still missing.
func (s *Session) Join(name string, conn Conn) (PlayerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return 0, ErrClosed
	case !isIdle(s.world.Status()):
		return 0, ErrStarted
	case len(s.conns) >= s.tune.MaxPlayers:
		return 0, ErrFull
	}

	s.nextID++
	id := s.nextID
	slot := s.freeSlotLocked()
	name = cleanName(name, id, s.tune.MaxNameRunes)
	if !s.world.AddPlayer(id, name, slot) {
		return 0, fmt.Errorf("session %s: add player %d", s.id, id)
	}
	s.conns[id] = conn
	s.slots[id] = slot

	s.sendLocked(conn, protocol.NewWelcome(id, s.id))
	if s.readyToStartLocked() {
		s.startLocked()
	} else {
		s.broadcastLocked(protocol.NewWaiting(len(s.conns), s.tune.MinPlayers))
	}
	return id, nil
}

// ApplyIntent forwards one client intent to the engine. Unknown or departed
// players are ignored.
func (s *Session) ApplyIntent(id PlayerID, in Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; !ok {
		return
	}
	switch in.Kind {
	case IntentMove:
		// Normalized before recording so the tick log stays JSON-encodable.
		in.DX, in.DY = world.ClampAxis(in.DX), world.ClampAxis(in.DY)
		s.world.SetMovement(id, in.DX, in.DY)
	case IntentPlaceBomb:
		s.world.PlaceBomb(id)
	default:
		return
	}
	if world.IsRunning(s.world.Status()) {
		s.intents = append(s.intents, RecordedIntent{PlayerID: id, Intent: in})
	}
}

// Leave drops the connection and marks the player dead. The player record
// stays in the roster.
func (s *Session) Leave(id PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; !ok {
		return
	}
	delete(s.conns, id)
	delete(s.slots, id)
	s.world.MarkDead(id)

	switch st := s.world.Status(); {
	case world.IsRunning(st):
		s.leaves = append(s.leaves, id)
	case isIdle(st) && len(s.conns) > 0:
		s.broadcastLocked(protocol.NewWaiting(len(s.conns), s.tune.MinPlayers))
	}
}

func (s *Session) ReadyToStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyToStartLocked()
}

// Broadcast encodes msg once per wire format and hands the same payload to
// every connection. A failing connection does not affect the others.
func (s *Session) Broadcast(msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(msg)
}

// Acceptable reports whether the registry may route a new player here.
func (s *Session) Acceptable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && isIdle(s.world.Status()) && len(s.conns) < s.tune.MaxPlayers
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.id,
		Status:    s.world.Status().String(),
		Connected: len(s.conns),
		Players:   len(s.world.Players()),
		Alive:     s.world.AliveCount(),
		Tick:      s.world.CurrentTick(),
		CreatedAt: s.createdAt,
	}
}

func (s *Session) Metrics() world.WorldMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Metrics()
}

// Close stops the tick driver and refuses further joins. Connected players
// may still Leave.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once the tick driver has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) readyToStartLocked() bool {
	return isIdle(s.world.Status()) && len(s.conns) >= s.tune.MinPlayers
}

func (s *Session) startLocked() {
	if !s.world.Start() {
		return
	}
	s.intents = nil
	s.leaves = nil
	s.writeTickLocked(TickLogEntry{
		Session: s.id,
		Kind:    EntryStart,
		Tick:    s.world.CurrentTick(),
		Seed:    s.seed,
		Roster:  s.recordRosterLocked(),
		Digest:  s.world.Digest(),
	})
	s.log.Printf("session %s: start with %d players", s.id, len(s.conns))
	s.broadcastLocked(s.world.GameStartMsg())
	s.startOnce.Do(func() { close(s.started) })
}

func (s *Session) recordRosterLocked() []RecordedPlayer {
	players := s.world.Players()
	out := make([]RecordedPlayer, 0, len(players))
	for _, p := range players {
		out = append(out, RecordedPlayer{
			ID:    p.ID,
			Name:  p.Name,
			Slot:  p.Slot,
			Alive: p.Alive,
			DX:    p.DX,
			DY:    p.DY,
		})
	}
	return out
}

func (s *Session) freeSlotLocked() int {
	used := map[int]bool{}
	for _, slot := range s.slots {
		used[slot] = true
	}
	for slot := 0; slot < s.tune.MaxPlayers; slot++ {
		if !used[slot] {
			return slot
		}
	}
	return 0
}

func (s *Session) sendLocked(c Conn, msg any) {
	b, err := protocol.Encode(c.Format(), msg)
	if err != nil {
		s.log.Printf("session %s: encode %T: %v", s.id, msg, err)
		return
	}
	_ = c.Send(b)
}

func (s *Session) broadcastLocked(msg any) {
	ids := make([]PlayerID, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	encoded := map[protocol.Format][]byte{}
	for _, id := range ids {
		c := s.conns[id]
		f := c.Format()
		b, ok := encoded[f]
		if !ok {
			var err error
			b, err = protocol.Encode(f, msg)
			if err != nil {
				s.log.Printf("session %s: encode %T as %s: %v", s.id, msg, f, err)
				continue
			}
			encoded[f] = b
		}
		// Delivery failures stay with the connection; its reader notices the
		// disconnect and calls Leave.
		_ = c.Send(b)
	}
}

func (s *Session) writeTickLocked(e TickLogEntry) {
	if s.tickLogger == nil {
		return
	}
	if err := s.tickLogger.WriteTick(e); err != nil {
		s.log.Printf("session %s: tick log: %v", s.id, err)
	}
}

func isIdle(st world.Status) bool {
	_, ok := st.(world.Idle)
	return ok
}

func cleanName(name string, id PlayerID, maxRunes int) string {
	name = strings.TrimSpace(name)
	if maxRunes > 0 && utf8.RuneCountInString(name) > maxRunes {
		name = string([]rune(name)[:maxRunes])
	}
	if name == "" {
		name = fmt.Sprintf("Player %d", id)
	}
	return name
}
