package lobby

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"bombarena.dev/internal/sim/session"
	"bombarena.dev/internal/sim/tuning"
	"bombarena.dev/internal/sim/world"
)

type Config struct {
	Tuning tuning.Tuning
	Logger *log.Logger

	TickLogger session.TickLogger
	Results    session.ResultRecorder

	// Optional overrides, mainly for tests.
	NewID   func() string
	NewSeed func() int64
}

// Registry owns every live session. New players are routed to the oldest
// session that has not started and still has room.
type Registry struct {
	cfg Config
	log *log.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
	order    []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Tuning.Validate() != nil {
		cfg.Tuning = tuning.Defaults()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.NewID == nil {
		cfg.NewID = shortID
	}
	if cfg.NewSeed == nil {
		cfg.NewSeed = func() int64 { return time.Now().UnixNano() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:      cfg,
		log:      cfg.Logger,
		sessions: map[string]*session.Session{},
		ctx:      ctx,
		cancel:   cancel,
	}
}

func shortID() string { return uuid.NewString()[:8] }

// Join places the player in an open session or a fresh one.
func (r *Registry) Join(name string, conn session.Conn) (*session.Session, session.PlayerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return nil, 0, session.ErrClosed
	}
	for _, id := range r.order {
		s := r.sessions[id]
		if !s.Acceptable() {
			continue
		}
		pid, err := s.Join(name, conn)
		switch {
		case err == nil:
			return s, pid, nil
		case errors.Is(err, session.ErrStarted), errors.Is(err, session.ErrFull), errors.Is(err, session.ErrClosed):
			continue
		default:
			return nil, 0, err
		}
	}

	s := r.createLocked()
	pid, err := s.Join(name, conn)
	if err != nil {
		return nil, 0, err
	}
	return s, pid, nil
}

func (r *Registry) createLocked() *session.Session {
	id := r.cfg.NewID()
	for r.sessions[id] != nil {
		id = r.cfg.NewID()
	}
	s := session.New(session.Config{
		ID:         id,
		Seed:       r.cfg.NewSeed(),
		Tuning:     r.cfg.Tuning,
		Logger:     r.log,
		TickLogger: r.cfg.TickLogger,
		Results:    r.cfg.Results,
	})
	r.sessions[id] = s
	r.order = append(r.order, id)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := s.Run(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Printf("session %s: driver: %v", id, err)
		}
	}()
	r.log.Printf("session %s: created", id)
	return s
}

func (r *Registry) Get(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns session summaries in creation order.
func (r *Registry) List() []session.Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.Info, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id].Info())
	}
	return out
}

// Reap drops sessions whose match is over and idle sessions nobody is
// waiting in. It returns the number of sessions removed.
func (r *Registry) Reap() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.order[:0]
	removed := 0
	for _, id := range r.order {
		s := r.sessions[id]
		if r.reapable(s) {
			s.Close()
			delete(r.sessions, id)
			removed++
			r.log.Printf("session %s: reaped", id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

func (r *Registry) reapable(s *session.Session) bool {
	select {
	case <-s.Done():
		return true
	default:
	}
	info := s.Info()
	return info.Status == (world.Idle{}).String() && info.Connected == 0
}

// Run reaps on the configured interval until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	every := time.Duration(r.cfg.Tuning.ReapEverySec) * time.Second
	if every <= 0 {
		every = 10 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Reap()
		}
	}
}

// Close stops every session driver and waits for them to return.
func (r *Registry) Close() {
	r.mu.Lock()
	r.cancel()
	for _, s := range r.sessions {
		s.Close()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
