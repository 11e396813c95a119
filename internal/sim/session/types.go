package session

import (
	"errors"
	"time"

	"bombarena.dev/internal/protocol"
)

type PlayerID = protocol.PlayerID

var (
	ErrStarted = errors.New("session: match already started")
	ErrFull    = errors.New("session: session is full")
	ErrClosed  = errors.New("session: session closed")
)

// Conn is the outbound half of one client connection. Send must not block;
// the transport owns queueing and the socket write.
type Conn interface {
	Send(b []byte) error
	Format() protocol.Format
}

type IntentKind string

const (
	IntentMove      IntentKind = "move"
	IntentPlaceBomb IntentKind = "place_bomb"
)

type Intent struct {
	Kind IntentKind `json:"kind"`
	DX   float64    `json:"dx,omitempty"`
	DY   float64    `json:"dy,omitempty"`
}

func MoveIntent(dx, dy float64) Intent { return Intent{Kind: IntentMove, DX: dx, DY: dy} }

func PlaceBombIntent() Intent { return Intent{Kind: IntentPlaceBomb} }

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type ResultRecorder interface {
	RecordResult(res MatchResult)
}

const (
	EntryStart = "start"
	EntryTick  = "tick"
)

// TickLogEntry is one line of the tick log. A match begins with a start
// entry carrying the seed and roster; every executed tick follows with the
// intents applied since the previous tick and the resulting digest.
type TickLogEntry struct {
	Session string `json:"session"`
	Kind    string `json:"kind"`
	Tick    uint64 `json:"tick"`

	Seed   int64            `json:"seed,omitempty"`
	Roster []RecordedPlayer `json:"roster,omitempty"`

	Intents []RecordedIntent `json:"intents,omitempty"`
	Leaves  []PlayerID       `json:"leaves,omitempty"`
	Digest  string           `json:"digest"`
}

type RecordedPlayer struct {
	ID    PlayerID `json:"id"`
	Name  string   `json:"name"`
	Slot  int      `json:"slot"`
	Alive bool     `json:"alive"`
	DX    float64  `json:"dx,omitempty"`
	DY    float64  `json:"dy,omitempty"`
}

type RecordedIntent struct {
	PlayerID PlayerID `json:"player_id"`
	Intent
}

type MatchResult struct {
	SessionID  string
	Seed       int64
	Ticks      uint64
	Winner     *PlayerID
	Players    []protocol.PlayerState
	FinishedAt time.Time

	// Final is the last snapshot broadcast before GameOver.
	Final protocol.GameStateMsg
}

// Info is a read-only summary for admin and metrics endpoints.
type Info struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Connected int       `json:"connected"`
	Players   int       `json:"players"`
	Alive     int       `json:"alive"`
	Tick      uint64    `json:"tick"`
	CreatedAt time.Time `json:"created_at"`
}
