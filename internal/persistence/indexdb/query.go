package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type MatchRow struct {
	SessionID  string      `json:"session_id"`
	Seed       int64       `json:"seed"`
	Ticks      uint64      `json:"ticks"`
	Winner     *uint32     `json:"winner"`
	FinishedAt time.Time   `json:"finished_at"`
	Players    []PlayerRow `json:"players"`
}

type PlayerRow struct {
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	Slot  int    `json:"slot"`
	Alive bool   `json:"alive"`
}

type TickRow struct {
	Tick    uint64 `json:"tick"`
	Kind    string `json:"kind"`
	Digest  string `json:"digest"`
	Intents int    `json:"intents"`
	Leaves  int    `json:"leaves"`
}

// RecentMatches returns the newest finished matches first.
func (s *SQLiteIndex) RecentMatches(ctx context.Context, limit int) ([]MatchRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, seed, ticks, winner, finished_at FROM matches ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	var out []MatchRow
	for rows.Next() {
		var (
			m        MatchRow
			ticks    int64
			winner   sql.NullInt64
			finished string
		)
		if err := rows.Scan(&m.SessionID, &m.Seed, &ticks, &winner, &finished); err != nil {
			_ = rows.Close()
			return nil, err
		}
		m.Ticks = uint64(ticks)
		if winner.Valid {
			w := uint32(winner.Int64)
			m.Winner = &w
		}
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			m.FinishedAt = t
		}
		out = append(out, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		players, err := s.matchPlayers(ctx, out[i].SessionID)
		if err != nil {
			return nil, fmt.Errorf("players of %s: %w", out[i].SessionID, err)
		}
		out[i].Players = players
	}
	return out, nil
}

func (s *SQLiteIndex) matchPlayers(ctx context.Context, sessionID string) ([]PlayerRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT player_id, name, slot, alive FROM match_players WHERE session_id = ? ORDER BY player_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlayerRow
	for rows.Next() {
		var (
			p     PlayerRow
			id    int64
			alive int
		)
		if err := rows.Scan(&id, &p.Name, &p.Slot, &alive); err != nil {
			return nil, err
		}
		p.ID = uint32(id)
		p.Alive = alive != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// SessionTicks lists the indexed digests of one session in tick order.
func (s *SQLiteIndex) SessionTicks(ctx context.Context, sessionID string) ([]TickRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tick, kind, digest, intents, leaves FROM ticks WHERE session_id = ? ORDER BY tick, kind`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TickRow
	for rows.Next() {
		var (
			r    TickRow
			tick int64
		)
		if err := rows.Scan(&tick, &r.Kind, &r.Digest, &r.Intents, &r.Leaves); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}
