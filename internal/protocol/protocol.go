package protocol

const Version = "1.0"

// Message types. The wire envelope is a flat object routed by "type".
const (
	TypeJoin      = "Join"
	TypeMove      = "Move"
	TypePlaceBomb = "PlaceBomb"

	TypeWelcome   = "Welcome"
	TypeWaiting   = "Waiting"
	TypeGameStart = "GameStart"
	TypeGameState = "GameState"
	TypeGameOver  = "GameOver"
)

// BaseMessage lets us route unknown messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}
