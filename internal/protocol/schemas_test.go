package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"bombarena.dev/internal/protocol"
	"bombarena.dev/internal/sim/world/terrain/gen"
)

func TestSchemas_ValidateEncodedMessages(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, msg any) {
		t.Helper()
		b, err := protocol.Encode(protocol.FormatJSON, msg)
		if err != nil {
			t.Fatalf("encode %T: %v", msg, err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal %T: %v", msg, err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %T: %v", msg, err)
		}
	}

	clientSchema := compile("client.schema.json")
	serverSchema := compile("server.schema.json")

	validate(clientSchema, protocol.NewJoin("bot1"))
	validate(clientSchema, protocol.NewMove(1, -1))
	validate(clientSchema, protocol.NewPlaceBomb())

	g := gen.Generate()
	players := []protocol.PlayerState{{ID: 0, Name: "bot1", Alive: true, Speed: 2, BombRange: 1, MaxBombs: 1}}
	winner := protocol.PlayerID(0)
	validate(serverSchema, protocol.NewWelcome(0, "deadbeef"))
	validate(serverSchema, protocol.NewWaiting(1, 2))
	validate(serverSchema, protocol.NewGameStart(g.Rows(), players))
	validate(serverSchema, protocol.GameStateMsg{
		Type:       protocol.TypeGameState,
		Players:    players,
		Bombs:      []protocol.BombState{{X: 0, Y: 0, Owner: 0, Timer: 40}},
		Explosions: []protocol.ExplosionState{},
		Items:      []protocol.ItemState{{X: 1, Y: 2, Kind: protocol.ItemBombCount}},
		Map:        g.Rows(),
		Tick:       1,
	})
	validate(serverSchema, protocol.NewGameOver(&winner))
	validate(serverSchema, protocol.NewGameOver(nil))
}

func TestSchemas_RejectUnknownType(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "client.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var v any
	_ = json.Unmarshal([]byte(`{"type":"Teleport","x":1}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("expected validation failure")
	}
}
