package protocol

import "bombarena.dev/internal/sim/world/terrain/gen"

type PlayerID uint32

type ItemKind string

const (
	ItemBombRange ItemKind = "BombRange"
	ItemBombCount ItemKind = "BombCount"
	ItemSpeed     ItemKind = "Speed"
)

// ItemKinds lists every kind in drop-table order.
var ItemKinds = [...]ItemKind{ItemBombRange, ItemBombCount, ItemSpeed}

// Join (client -> server)
type JoinMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Move (client -> server). Axes are raw; the server clamps them.
type MoveMsg struct {
	Type string  `json:"type"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

// PlaceBomb (client -> server)
type PlaceBombMsg struct {
	Type string `json:"type"`
}

// Welcome (server -> client), sent once to the joining connection.
type WelcomeMsg struct {
	Type     string   `json:"type"`
	PlayerID PlayerID `json:"player_id"`
	RoomID   string   `json:"room_id"`
}

type WaitingMsg struct {
	Type        string `json:"type"`
	PlayerCount int    `json:"player_count"`
	Need        int    `json:"need"`
}

type GameStartMsg struct {
	Type    string        `json:"type"`
	Map     [][]gen.Tile  `json:"map"`
	Players []PlayerState `json:"players"`
}

// GameState is a full snapshot, broadcast once per tick.
type GameStateMsg struct {
	Type       string           `json:"type"`
	Players    []PlayerState    `json:"players"`
	Bombs      []BombState      `json:"bombs"`
	Explosions []ExplosionState `json:"explosions"`
	Items      []ItemState      `json:"items"`
	Map        [][]gen.Tile     `json:"map"`
	Tick       uint64           `json:"tick"`
}

// GameOver carries a nil winner for a draw.
type GameOverMsg struct {
	Type   string    `json:"type"`
	Winner *PlayerID `json:"winner"`
}

type PlayerState struct {
	ID         PlayerID `json:"id"`
	Name       string   `json:"name"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Alive      bool     `json:"alive"`
	Speed      float64  `json:"speed"`
	BombRange  int      `json:"bomb_range"`
	MaxBombs   int      `json:"max_bombs"`
	ColorIndex int      `json:"color_index"`
}

type BombState struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Owner PlayerID `json:"owner"`
	Timer int      `json:"timer"`
}

type ExplosionState struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Timer int `json:"timer"`
}

type ItemState struct {
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Kind ItemKind `json:"kind"`
}

func NewJoin(name string) JoinMsg { return JoinMsg{Type: TypeJoin, Name: name} }

func NewMove(dx, dy float64) MoveMsg { return MoveMsg{Type: TypeMove, DX: dx, DY: dy} }

func NewPlaceBomb() PlaceBombMsg { return PlaceBombMsg{Type: TypePlaceBomb} }

func NewWelcome(id PlayerID, roomID string) WelcomeMsg {
	return WelcomeMsg{Type: TypeWelcome, PlayerID: id, RoomID: roomID}
}

func NewWaiting(count, need int) WaitingMsg {
	return WaitingMsg{Type: TypeWaiting, PlayerCount: count, Need: need}
}

func NewGameStart(m [][]gen.Tile, players []PlayerState) GameStartMsg {
	return GameStartMsg{Type: TypeGameStart, Map: m, Players: players}
}

func NewGameOver(winner *PlayerID) GameOverMsg {
	return GameOverMsg{Type: TypeGameOver, Winner: winner}
}
