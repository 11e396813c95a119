package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the frame encoding of one connection.
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

// MsgpackSubprotocol is the websocket subprotocol that selects FormatMsgpack.
const MsgpackSubprotocol = "bombarena.msgpack"

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "json":
		return FormatJSON, true
	case "msgpack":
		return FormatMsgpack, true
	default:
		return FormatJSON, false
	}
}

var (
	ErrEmpty       = errors.New("protocol: empty message")
	ErrUnknownType = errors.New("protocol: unknown message type")
)

func Encode(f Format, v any) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.Marshal(v)
	case FormatMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("protocol: unsupported format %s", f)
	}
}

func decode(f Format, b []byte, v any) error {
	if len(b) == 0 {
		return ErrEmpty
	}
	switch f {
	case FormatJSON:
		return json.Unmarshal(b, v)
	case FormatMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(b))
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	default:
		return fmt.Errorf("protocol: unsupported format %s", f)
	}
}

func DecodeBase(f Format, b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := decode(f, b, &m)
	return m, err
}

// DecodeClient returns one of JoinMsg, MoveMsg or PlaceBombMsg.
func DecodeClient(f Format, b []byte) (any, error) {
	base, err := DecodeBase(f, b)
	if err != nil {
		return nil, err
	}
	switch base.Type {
	case TypeJoin:
		return decodeAs[JoinMsg](f, b)
	case TypeMove:
		return decodeAs[MoveMsg](f, b)
	case TypePlaceBomb:
		return decodeAs[PlaceBombMsg](f, b)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, base.Type)
	}
}

// DecodeServer returns the typed server message carried by b.
func DecodeServer(f Format, b []byte) (any, error) {
	base, err := DecodeBase(f, b)
	if err != nil {
		return nil, err
	}
	switch base.Type {
	case TypeWelcome:
		return decodeAs[WelcomeMsg](f, b)
	case TypeWaiting:
		return decodeAs[WaitingMsg](f, b)
	case TypeGameStart:
		return decodeAs[GameStartMsg](f, b)
	case TypeGameState:
		return decodeAs[GameStateMsg](f, b)
	case TypeGameOver:
		return decodeAs[GameOverMsg](f, b)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, base.Type)
	}
}

func decodeAs[T any](f Format, b []byte) (any, error) {
	var out T
	if err := decode(f, b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
