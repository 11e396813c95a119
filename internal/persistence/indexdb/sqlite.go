package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"bombarena.dev/internal/sim/session"
)

// SQLiteIndex is a secondary, queryable index of finished matches and tick
// digests. Writes are queued and applied by one writer goroutine so the
// session lock is never held across disk I/O. The JSONL tick log stays the
// source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick   atomic.Uint64
	dropResult atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqResult
	reqFlush
)

type req struct {
	kind reqKind

	tick   session.TickLogEntry
	result session.MatchResult
	done   chan struct{}
}

type Stats struct {
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
	DropTickTotal   uint64 `json:"drop_tick_total"`
	DropResultTotal uint64 `json:"drop_result_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			session_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			digest TEXT NOT NULL,
			intents INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (session_id, kind, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			session_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			winner INTEGER,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_finished_at ON matches(finished_at);`,
		`CREATE TABLE IF NOT EXISTS match_players (
			session_id TEXT NOT NULL REFERENCES matches(session_id) ON DELETE CASCADE,
			player_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			slot INTEGER NOT NULL,
			alive INTEGER NOT NULL,
			PRIMARY KEY (session_id, player_id)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry session.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordResult(res session.MatchResult) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqResult, result: res}:
	default:
		s.dropResult.Add(1)
	}
}

// Flush blocks until every queued write is committed or ctx is done.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropTickTotal:   s.dropTick.Load(),
		DropResultTotal: s.dropResult.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(session_id,tick,kind,digest,intents,leaves,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertMatch, _ := s.db.Prepare(`INSERT OR REPLACE INTO matches(session_id,seed,ticks,winner,finished_at) VALUES(?,?,?,?,?)`)
	insertPlayer, _ := s.db.Prepare(`INSERT OR REPLACE INTO match_players(session_id,player_id,name,slot,alive) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertMatch, insertPlayer} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			raw, _ := json.Marshal(e)
			if insertTick == nil {
				break
			}
			if _, err := tx.Stmt(insertTick).Exec(e.Session, int64(e.Tick), e.Kind, e.Digest, len(e.Intents), len(e.Leaves), string(raw)); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqResult:
			res := r.result
			if insertMatch == nil || insertPlayer == nil {
				break
			}
			var winner any
			if res.Winner != nil {
				winner = int64(*res.Winner)
			}
			if _, err := tx.Stmt(insertMatch).Exec(res.SessionID, res.Seed, int64(res.Ticks), winner, res.FinishedAt.UTC().Format(time.RFC3339Nano)); err != nil {
				rollback()
				continue
			}
			opCount++
			for _, p := range res.Players {
				if _, err := tx.Stmt(insertPlayer).Exec(res.SessionID, int64(p.ID), p.Name, p.ColorIndex, boolInt(p.Alive)); err != nil {
					rollback()
					break
				}
				opCount++
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
